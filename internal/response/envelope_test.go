package response

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
		wantSize  int
	}{
		{"empty dataset", 0, 10, 0, 10},
		{"exact multiple", 20, 10, 2, 10},
		{"partial last page", 21, 10, 3, 10},
		{"single row", 1, 10, 1, 10},
		{"zero page size falls back", 15, 0, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage([]int{}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantSize, p.PageSize)
		})
	}
}

func TestNewPageRendersNilItemsAsEmptyArray(t *testing.T) {
	var items []string
	body, err := json.Marshal(NewPage(items, 0, 1, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"pageSize":10,"totalPages":0}`, string(body))
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		pageSize int
	}{
		{"", 1, 10},
		{"page=3&pageSize=20", 3, 20},
		{"page=2&limit=5", 2, 5},
		{"page=abc&pageSize=-1", 1, 10},
		{"pageSize=1000", 1, MaxPageSize},
		{"page=9223372036854775807&pageSize=100", MaxPage, 100},
		{"page=99999999999999999999", 1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			page, size := PageParams(c)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.pageSize, size)
		})
	}
}

func TestOffsetNeverOverflows(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     int
	}{
		{"first page", 1, 10, 0},
		{"third page", 3, 20, 40},
		{"page below one", -5, 10, 0},
		{"huge page", math.MaxInt, 100, (MaxPage - 1) * 100},
		{"huge page size", 2, math.MaxInt, MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Offset(tt.page, tt.pageSize)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
		})
	}
}

func TestErrorEnvelopeHasNoData(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, http.StatusNotFound, "学生不存在", CodeNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, CodeNotFound, body["code"])
	_, hasData := body["data"]
	assert.False(t, hasData)
}

func TestValidationErrorListsFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationError(c, "", []FieldError{{Field: "name", Message: "is required", Rule: "required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, CodeInvalidParams, body.Code)
	assert.Equal(t, MsgInvalidParams, body.Message)
	assert.NotNil(t, body.Errors)
}
