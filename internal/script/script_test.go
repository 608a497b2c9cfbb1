package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

func TestNewExtractsFieldsAndTrimsTrailingSemicolon(t *testing.T) {
	ref := tableref.New("analytics", []string{"core"}, "users")
	d := NewDuckDBDialect("analytics")
	s := New(ref, "SELECT\n  -- #NO_NULLS\n  id\nFROM core.raw_users;\n\n", d)

	assert.False(t, s.IsTest())
	assert.Equal(t, KindSQL, s.Kind)
	assert.NotContains(t, s.Code, ";")

	f, ok := s.Field("id")
	assert.True(t, ok)
	assert.True(t, f.HasTag(TagNoNulls))

	tagged, ok := s.HasTaggedField(TagNoNulls)
	assert.True(t, ok)
	assert.Equal(t, "id", tagged.Name)
}

func TestDependencies(t *testing.T) {
	ref := tableref.New("analytics", []string{"core"}, "users")
	d := NewDuckDBDialect("analytics")
	s := New(ref, "SELECT id FROM raw.users JOIN core.accounts ON true", d)

	deps := s.Dependencies()
	assert.Len(t, deps, 2)

	for _, want := range []tableref.TableRef{
		tableref.New("analytics", []string{"raw"}, "users"),
		tableref.New("analytics", []string{"core"}, "accounts"),
	} {
		dep, ok := deps[want.Key()]
		assert.True(t, ok, "missing dependency %s", want)
		assert.True(t, dep.Equal(want))
	}
}

func TestDependenciesRecomputedAfterRewrite(t *testing.T) {
	ref := tableref.New("analytics", []string{"core"}, "users")
	d := NewDuckDBDialect("analytics")
	s := New(ref, "SELECT id FROM raw.users", d)
	assert.Len(t, s.Dependencies(), 1)

	rewritten := s.WithCode("SELECT id FROM raw.users JOIN core.accounts ON true")
	assert.Len(t, rewritten.Dependencies(), 2)
	// The original value is untouched since Script is copied by value.
	assert.Len(t, s.Dependencies(), 1)
}

func TestIsTest(t *testing.T) {
	ref := tableref.New("analytics", []string{tableref.TestsSchema, "core", "users", "id"}, "UNIQUE")
	d := NewDuckDBDialect("analytics")
	s := New(ref, "SELECT 1", d)
	assert.True(t, s.IsTest())
}
