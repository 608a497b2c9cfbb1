package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFields(t *testing.T) {
	code := `
SELECT
    -- #NO_NULLS
    -- #UNIQUE
    id,
    -- #INCREMENTAL
    updated_at,
    -- #SET{active,inactive}
    status,
    core.users.email AS email
FROM core.users
`
	fields := ExtractFields(code)
	byName := map[string]Field{}
	for _, f := range fields {
		byName[f.Name] = f
	}

	if assert.Contains(t, byName, "id") {
		assert.True(t, byName["id"].HasTag(TagNoNulls))
		assert.True(t, byName["id"].HasTag(TagUnique))
	}
	if assert.Contains(t, byName, "updated_at") {
		assert.True(t, byName["updated_at"].HasTag(TagIncremental))
	}
	if assert.Contains(t, byName, "status") {
		tag, ok := byName["status"].Tags[0], true
		assert.True(t, ok)
		assert.Equal(t, TagSet, tag.Kind)
		assert.Equal(t, []string{"active", "inactive"}, tag.Set)
	}
	if assert.Contains(t, byName, "email") {
		assert.Empty(t, byName["email"].Tags)
	}
}

func TestExtractFieldsIgnoresSubqueries(t *testing.T) {
	code := `
SELECT
    id,
    (SELECT COUNT(*) FROM core.orders WHERE core.orders.user_id = core.users.id) AS n_orders
FROM core.users
`
	fields := ExtractFields(code)
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"id", "n_orders"}, names)
}

func TestExtractFieldsNoSelect(t *testing.T) {
	assert.Nil(t, ExtractFields("-- just a comment, no query"))
}
