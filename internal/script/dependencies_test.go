package script

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestExtractDottedIdentifiers(t *testing.T) {
	code := `
SELECT *
FROM core.users u
JOIN core.orders o ON o.user_id = u.id
LEFT JOIN UNNEST(u.tags) AS tag
`
	idents := extractDottedIdentifiers(code)
	assert.ElementsMatch(t, []string{"core.users", "core.orders"}, idents)
}

func TestExtractDottedIdentifiersIgnoresBareNames(t *testing.T) {
	code := `
WITH recent AS (SELECT * FROM core.events)
SELECT * FROM recent
`
	idents := extractDottedIdentifiers(code)
	assert.Equal(t, []string{"core.events"}, idents)
}

func TestExtractDottedIdentifiersOrderIndependentDiff(t *testing.T) {
	code := `SELECT * FROM b.two JOIN a.one ON true`
	idents := extractDottedIdentifiers(code)
	sort.Strings(idents)
	if diff := cmp.Diff([]string{"a.one", "b.two"}, idents); diff != "" {
		t.Errorf("unexpected identifiers (-want +got):\n%s", diff)
	}
}
