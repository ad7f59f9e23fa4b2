package auth

import (
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/models"
)

func TestIdentityFromCasdoorClaims(t *testing.T) {
	claims := &casdoorsdk.Claims{
		User: casdoorsdk.User{
			Owner: "kg_demo",
			Name:  "li.wei",
			Id:    "c0ffee",
			Type:  "teacher",
			Permissions: []*casdoorsdk.Permission{
				{Name: "TASK_VIEW"},
				nil,
				{Name: ""},
			},
		},
	}

	identity, err := identityFromCasdoorClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", identity.UserID)
	assert.Equal(t, "li.wei", identity.Username)
	assert.Equal(t, models.RoleTeacher, identity.Role)
	assert.Equal(t, "kg_demo", identity.Tenant)
	assert.Equal(t, []string{"TASK_VIEW"}, identity.Permissions)
}

func TestIdentityFromCasdoorClaimsAdminFlag(t *testing.T) {
	claims := &casdoorsdk.Claims{User: casdoorsdk.User{Id: "root", Type: "normal-user", IsAdmin: true}}

	identity, err := identityFromCasdoorClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, identity.Role)
}

func TestIdentityFromCasdoorClaimsRequiresUser(t *testing.T) {
	_, err := identityFromCasdoorClaims(&casdoorsdk.Claims{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
