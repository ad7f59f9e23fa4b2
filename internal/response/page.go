package response

import (
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize far from int overflow.
	MaxPage = 1_000_000
)

// Page is the paginated list payload.
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// NewPage builds a page. An empty dataset has zero pages and items is never null.
func NewPage(items interface{}, total int64, page, pageSize int) Page {
	if items == nil || isNilSlice(items) {
		items = []interface{}{}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func isNilSlice(v interface{}) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.IsNil()
}

// PageParams reads page and pageSize (or limit) from the query string.
// Bad values fall back to defaults; page is capped at MaxPage and pageSize at MaxPageSize.
func PageParams(c *gin.Context) (page, pageSize int) {
	page = min(parsePositive(c.Query("page"), DefaultPage), MaxPage)

	size := c.Query("pageSize")
	if size == "" {
		size = c.Query("limit")
	}
	pageSize = parsePositive(size, DefaultPageSize)
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the row offset for a page. Out-of-range arguments are clamped.
func Offset(page, pageSize int) int {
	page = max(min(page, MaxPage), 1)
	pageSize = max(min(pageSize, MaxPageSize), 0)
	return (page - 1) * pageSize
}

func parsePositive(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
