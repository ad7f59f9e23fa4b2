package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string   `json:"name" validate:"required,not_blank,max=10"`
	Phone    string   `json:"parentPhone" validate:"omitempty,mobile"`
	Birthday string   `json:"birthDate" validate:"omitempty,date"`
	Status   string   `json:"status" validate:"omitempty,oneof=active graduated"`
	Tags     []string `json:"tags" validate:"omitempty,max=3"`
}

func TestValidateUsesJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&sample{Phone: "12345", Birthday: "2020/01/01", Status: "gone"})
	require.Error(t, err)

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "mobile", fields["parentPhone"])
	assert.Equal(t, "date", fields["birthDate"])
	assert.Equal(t, "oneof", fields["status"])
}

func TestValidatePasses(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(&sample{Name: "小明", Phone: "13800138000", Birthday: "2020-05-01", Status: "active"}))
}

func TestNotBlank(t *testing.T) {
	v := New()
	err := v.Validate(&sample{Name: "   "})

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "not_blank", errs[0].Rule)
	assert.Equal(t, "validation failed: name must not be blank", errs.Error())
}

func TestVarReportsGivenField(t *testing.T) {
	v := New()
	err := v.Var("status", "archived", "oneof=draft published")

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Equal(t, "status", errs[0].Field)
}

func TestToValidationErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, ToValidationErrors(errors.New("boom")))
}
