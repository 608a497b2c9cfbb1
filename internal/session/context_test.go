package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carbonfact/lea-sub000/internal/dag"
	"github.com/carbonfact/lea-sub000/internal/database"
	"github.com/carbonfact/lea-sub000/internal/script"
)

// TestAddContextToScriptOnlyAuditSuffixesSelectedOrExistingDependencies
// exercises spec.md §4.2 Pass 1 under a partial selection: a selected
// script's not-currently-selected (but in-DAG) dependency must be rewritten
// to the write dataset with no audit suffix, since nothing materialized it
// this run - unless it already has an audit table left over from a prior
// partial run, in which case it must be read from that audit table.
func TestAddContextToScriptOnlyAuditSuffixesSelectedOrExistingDependencies(t *testing.T) {
	d := script.NewDuckDBDialect("analytics")
	raw := script.New(newRef([]string{"core"}, "raw"), "SELECT 1 AS id", d)
	staged := script.New(newRef([]string{"core"}, "staged"), "SELECT id FROM core.raw", d)
	final := script.New(newRef([]string{"core"}, "final"), "SELECT id FROM core.staged", d)

	graph, err := dag.New([]script.Script{raw, staged, final})
	require.NoError(t, err)
	// Select only "final": "staged" is in the DAG as a dependency but is not
	// itself selected this run, and neither is "raw".
	require.NoError(t, graph.Select("core.final"))

	client := database.NewFakeClient()
	sess := New(graph, client, Options{WriteDataset: "analytics", MaxConcurrency: 4})

	deps := sess.dependenciesAsBase(final)
	rewritten := sess.addContextToScript(final, deps)
	assert.Contains(t, rewritten.Code, "core.staged", "an unselected dependency with no existing audit table reads production, not an audit table")
	assert.NotContains(t, rewritten.Code, "staged___audit")

	// Now simulate a prior partial run having already materialized
	// core.staged's audit table.
	stagedKey := staged.TableRef.Key()
	sess.existingAuditTables = map[string]bool{stagedKey: true}

	rewritten = sess.addContextToScript(final, deps)
	assert.Contains(t, rewritten.Code, "staged___audit", "a dependency with an existing audit table from a prior partial run must be read from it")

	assert.True(t, rewritten.TableRef.IsAuditTable(), "the selected script itself is always retargeted to its own audit table")
	assert.Equal(t, "analytics", rewritten.TableRef.Dataset)
}
