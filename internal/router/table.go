package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yyup/kindergarten-service/internal/response"
)

// RoutePatternKey holds the matched pattern on the gin context.
const RoutePatternKey = "route_pattern"

// Rule is one registered route. Handlers run in order; gates abort to stop the chain.
type Rule struct {
	Method   string
	Pattern  string
	Handlers []gin.HandlerFunc

	segments []string
}

func (r *Rule) String() string {
	return fmt.Sprintf("%-6s %s", r.Method, r.Pattern)
}

// match compares path segments against the rule. Literal segments must be equal,
// ":name" segments capture any non-empty value.
func (r *Rule) match(method string, segments []string) (gin.Params, bool) {
	if r.Method != method || len(r.segments) != len(segments) {
		return nil, false
	}
	var params gin.Params
	for i, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			if segments[i] == "" {
				return nil, false
			}
			params = append(params, gin.Param{Key: seg[1:], Value: segments[i]})
			continue
		}
		if seg != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// Table is an ordered dispatch table. The first registered rule that matches wins,
// so a literal route only beats a param route when it was registered first.
type Table struct {
	rules []*Rule
}

func NewTable() *Table {
	return &Table{}
}

// Group returns a route group rooted at prefix. Middleware runs before every handler of the group.
func (t *Table) Group(prefix string, middleware ...gin.HandlerFunc) *Group {
	return &Group{table: t, prefix: cleanPrefix(prefix), middleware: middleware}
}

func (t *Table) add(method, pattern string, handlers []gin.HandlerFunc) {
	if len(handlers) == 0 {
		panic(fmt.Sprintf("router: no handlers for %s %s", method, pattern))
	}
	t.rules = append(t.rules, &Rule{
		Method:   method,
		Pattern:  pattern,
		Handlers: handlers,
		segments: splitPath(pattern),
	})
}

// Match walks the rules in registration order.
func (t *Table) Match(method, path string) (*Rule, gin.Params, bool) {
	segments := splitPath(path)
	for _, rule := range t.rules {
		if params, ok := rule.match(method, segments); ok {
			return rule, params, true
		}
	}
	return nil, nil, false
}

// Dispatch is mounted on the gin engine as the catch-all for the API prefix.
func (t *Table) Dispatch(c *gin.Context) {
	rule, params, ok := t.Match(c.Request.Method, c.Request.URL.Path)
	if !ok {
		NotFound(c)
		return
	}

	c.Params = append(c.Params, params...)
	c.Set(RoutePatternKey, rule.Pattern)

	for _, handler := range rule.Handlers {
		handler(c)
		if c.IsAborted() {
			return
		}
	}
}

// Rules lists the registered routes in match order.
func (t *Table) Rules() []string {
	out := make([]string, len(t.rules))
	for i, r := range t.rules {
		out[i] = r.String()
	}
	return out
}

func (t *Table) Len() int {
	return len(t.rules)
}

// NotFound writes the 404 envelope for unknown routes.
func NotFound(c *gin.Context) {
	response.Abort(c, http.StatusNotFound, response.MsgRouteNotFound, response.CodeNotFound)
}

// Group registers rules under a shared prefix and middleware.
type Group struct {
	table      *Table
	prefix     string
	middleware []gin.HandlerFunc
}

func (g *Group) Group(prefix string, middleware ...gin.HandlerFunc) *Group {
	combined := make([]gin.HandlerFunc, 0, len(g.middleware)+len(middleware))
	combined = append(combined, g.middleware...)
	combined = append(combined, middleware...)
	return &Group{table: g.table, prefix: g.prefix + cleanPrefix(prefix), middleware: combined}
}

func (g *Group) Handle(method, path string, handlers ...gin.HandlerFunc) {
	chain := make([]gin.HandlerFunc, 0, len(g.middleware)+len(handlers))
	chain = append(chain, g.middleware...)
	chain = append(chain, handlers...)

	pattern := g.prefix + path
	if pattern == "" {
		pattern = "/"
	}
	g.table.add(method, pattern, chain)
}

func (g *Group) GET(path string, handlers ...gin.HandlerFunc) {
	g.Handle(http.MethodGet, path, handlers...)
}

func (g *Group) POST(path string, handlers ...gin.HandlerFunc) {
	g.Handle(http.MethodPost, path, handlers...)
}

func (g *Group) PUT(path string, handlers ...gin.HandlerFunc) {
	g.Handle(http.MethodPut, path, handlers...)
}

func (g *Group) PATCH(path string, handlers ...gin.HandlerFunc) {
	g.Handle(http.MethodPatch, path, handlers...)
}

func (g *Group) DELETE(path string, handlers ...gin.HandlerFunc) {
	g.Handle(http.MethodDelete, path, handlers...)
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}
