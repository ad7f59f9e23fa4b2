package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	ErrUnknownTenant = errors.New("unknown tenant")
	ErrNoTenant      = errors.New("no tenant bound to context")
	ErrInvalidSchema = errors.New("invalid schema name")
)

// HeaderName carries the tenant code when the token has none.
const HeaderName = "X-Tenant-Code"

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidSchemaName reports whether name is safe to interpolate as a postgres identifier.
func ValidSchemaName(name string) bool {
	return schemaPattern.MatchString(name)
}

// Registry is the allowlist of tenant schemas. Only names that passed validation
// at construction can ever reach a query.
type Registry struct {
	schemas       map[string]struct{}
	defaultSchema string
}

func NewRegistry(schemas []string, defaultSchema string) (*Registry, error) {
	r := &Registry{schemas: make(map[string]struct{}, len(schemas))}
	for _, raw := range schemas {
		name := normalize(raw)
		if !ValidSchemaName(name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, raw)
		}
		r.schemas[name] = struct{}{}
	}

	def := normalize(defaultSchema)
	if def != "" {
		if _, ok := r.schemas[def]; !ok {
			return nil, fmt.Errorf("default tenant %q is not in the allowlist", defaultSchema)
		}
	}
	r.defaultSchema = def
	return r, nil
}

// Resolve maps a tenant code to its schema. Codes are trimmed and case-insensitive.
func (r *Registry) Resolve(code string) (string, error) {
	name := normalize(code)
	if _, ok := r.schemas[name]; !ok {
		return "", ErrUnknownTenant
	}
	return name, nil
}

// ResolveFirst resolves the first non-empty candidate, falling back to the default schema.
func (r *Registry) ResolveFirst(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return r.Resolve(candidate)
		}
	}
	if r.defaultSchema == "" {
		return "", ErrUnknownTenant
	}
	return r.defaultSchema, nil
}

func (r *Registry) Default() string {
	return r.defaultSchema
}

func (r *Registry) Schemas() []string {
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

type schemaKey struct{}

func WithSchema(ctx context.Context, schema string) context.Context {
	return context.WithValue(ctx, schemaKey{}, schema)
}

func SchemaFromContext(ctx context.Context) (string, bool) {
	schema, ok := ctx.Value(schemaKey{}).(string)
	return schema, ok && schema != ""
}

// Table qualifies a table name with the schema bound to ctx.
func Table(ctx context.Context, name string) (string, error) {
	schema, ok := SchemaFromContext(ctx)
	if !ok {
		return "", ErrNoTenant
	}
	return schema + "." + name, nil
}
