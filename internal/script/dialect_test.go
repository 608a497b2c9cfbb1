package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

func TestBigQueryDialectRoundTrip(t *testing.T) {
	d := NewBigQueryDialect("my-project")
	ref := tableref.New("analytics", []string{"core", "users"}, "fact")

	formatted := d.FormatTableRef(ref)
	assert.Equal(t, "`my-project.analytics.core__users__fact`", formatted)

	parsed, ok := d.ParseTableRef("analytics.core__users__fact")
	assert.True(t, ok)
	assert.True(t, parsed.Equal(ref.ReplaceProject("my-project")))
}

func TestBigQueryDialectParseWithProject(t *testing.T) {
	d := NewBigQueryDialect("")
	parsed, ok := d.ParseTableRef("other-project.analytics.core__users__fact")
	assert.True(t, ok)
	assert.Equal(t, "other-project", parsed.Project)
	assert.Equal(t, "analytics", parsed.Dataset)
	assert.Equal(t, []string{"core", "users"}, parsed.Schema)
	assert.Equal(t, "fact", parsed.Name)
}

func TestDuckDBDialectRoundTrip(t *testing.T) {
	d := NewDuckDBDialect("analytics")
	ref := tableref.New("analytics", []string{"schema", "subschema"}, "table")

	formatted := d.FormatTableRef(ref)
	assert.Equal(t, "schema.subschema__table", formatted)

	parsed, ok := d.ParseTableRef("schema.subschema__table")
	assert.True(t, ok)
	assert.True(t, parsed.Equal(ref))
}

func TestDuckDBDialectNoSchema(t *testing.T) {
	d := NewDuckDBDialect("analytics")
	ref := tableref.New("analytics", nil, "events")
	assert.Equal(t, "main.events", d.FormatTableRef(ref))
}

func TestAddDependencyFilters(t *testing.T) {
	d := NewDuckDBDialect("analytics")
	dep := tableref.New("analytics", []string{"core"}, "users")
	code := "SELECT * FROM core.users"

	out := d.AddDependencyFilters(code, "id", []string{"1", "2"}, []tableref.TableRef{dep})

	assert.Contains(t, out, "WHERE id IN (1, 2)")
	assert.Contains(t, out, "(SELECT * FROM core.users WHERE id IN (1, 2))")
}

func TestHandleIncrementalDependencies(t *testing.T) {
	d := NewDuckDBDialect("analytics")
	base := tableref.New("analytics", []string{"core"}, "users")
	audit := base.AddAuditSuffix()
	code := "SELECT * FROM core.users"

	out := d.HandleIncrementalDependencies(code, "id", []string{"1"}, map[string]IncrementalDependency{
		base.Key(): {Base: base, Audit: audit},
	})

	assert.Contains(t, out, "UNION ALL")
	assert.Contains(t, out, "core.users___audit")
}
