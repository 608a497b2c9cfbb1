package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonfact/lea-sub000/internal/tableref"
)

func TestAssertionTests(t *testing.T) {
	ref := tableref.New("analytics", []string{"core"}, "users")
	d := NewDuckDBDialect("analytics")
	code := `
SELECT
    -- #NO_NULLS
    -- #UNIQUE
    id,
    -- #UNIQUE_BY(account_id)
    email,
    -- #SET{active,inactive}
    status,
    -- #INCREMENTAL
    updated_at
FROM raw.users
`
	s := New(ref, code, d)
	tests := AssertionTests(s)

	byLabel := map[string]Script{}
	for _, test := range tests {
		byLabel[test.TableRef.Name] = test
		assert.True(t, test.IsTest())
		assert.Equal(t, "tests", test.TableRef.Schema[0])
	}

	assert.Contains(t, byLabel, "NO_NULLS")
	assert.Contains(t, byLabel, "UNIQUE")
	assert.Contains(t, byLabel, "UNIQUE_BY_account_id")
	assert.Contains(t, byLabel, "SET")
	assert.NotContains(t, byLabel, "INCREMENTAL")

	assert.Contains(t, byLabel["NO_NULLS"].Code, "IS NULL")
	assert.Contains(t, byLabel["UNIQUE_BY_account_id"].Code, "GROUP BY account_id, email")
	assert.Contains(t, byLabel["SET"].Code, "NOT IN ('active', 'inactive')")
	assert.NotContains(t, byLabel["SET"].Code, "IS NULL", "a NULL tagged value must pass #SET, not fail it")
}

func TestAssertionTestsDisambiguatesCollidingSetTags(t *testing.T) {
	ref := tableref.New("analytics", []string{"core"}, "orders")
	d := NewDuckDBDialect("analytics")
	code := `
SELECT
    -- #SET{pending,shipped}
    -- #SET{pending,shipped,cancelled}
    status
FROM raw.orders
`
	s := New(ref, code, d)
	tests := AssertionTests(s)
	require.Len(t, tests, 2)

	names := map[string]bool{}
	for _, test := range tests {
		names[test.TableRef.Name] = true
	}
	assert.Len(t, names, 2, "two #SET tags on one column must produce two distinct, non-colliding test nodes")
	assert.Contains(t, names, "SET")
}
