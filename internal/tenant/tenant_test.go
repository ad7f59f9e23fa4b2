package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRejectsInjectionShapedNames(t *testing.T) {
	bad := []string{
		"kg; DROP TABLE students",
		"public.students",
		"kg\"",
		"1tenant",
		"tenant-a",
		"",
	}
	for _, name := range bad {
		_, err := NewRegistry([]string{name}, "")
		assert.ErrorIs(t, err, ErrInvalidSchema, name)
	}
}

func TestNewRegistryRequiresDefaultInAllowlist(t *testing.T) {
	_, err := NewRegistry([]string{"kindergarten"}, "other")
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	reg, err := NewRegistry([]string{"kindergarten", "KG_Demo"}, "kindergarten")
	require.NoError(t, err)

	schema, err := reg.Resolve("  KG_DEMO ")
	require.NoError(t, err)
	assert.Equal(t, "kg_demo", schema)

	_, err = reg.Resolve("unknown")
	assert.ErrorIs(t, err, ErrUnknownTenant)

	assert.Equal(t, []string{"kg_demo", "kindergarten"}, reg.Schemas())
}

func TestResolveFirst(t *testing.T) {
	reg, err := NewRegistry([]string{"kindergarten", "kg_demo"}, "kindergarten")
	require.NoError(t, err)

	schema, err := reg.ResolveFirst("", "kg_demo")
	require.NoError(t, err)
	assert.Equal(t, "kg_demo", schema)

	schema, err = reg.ResolveFirst("", " ")
	require.NoError(t, err)
	assert.Equal(t, "kindergarten", schema)

	// a present but unknown claim is not silently replaced by the default
	_, err = reg.ResolveFirst("evil", "kg_demo")
	assert.ErrorIs(t, err, ErrUnknownTenant)
}

func TestTableQualifiesWithContextSchema(t *testing.T) {
	_, err := Table(context.Background(), "students")
	assert.ErrorIs(t, err, ErrNoTenant)

	ctx := WithSchema(context.Background(), "kg_demo")
	name, err := Table(ctx, "students")
	require.NoError(t, err)
	assert.Equal(t, "kg_demo.students", name)
}
