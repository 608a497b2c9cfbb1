package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "core"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "core", "users.sql"),
		[]byte("SELECT id FROM raw.users"),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "core", "accounts.sql.jinja"),
		[]byte("SELECT id FROM {{ .LEA_DATASET }}.core.users"),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "core", "_fragment.sql"),
		[]byte("SELECT 1"),
		0o644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "core", "empty.sql"),
		[]byte("   \n"),
		0o644,
	))

	t.Setenv("LEA_DATASET", "analytics")

	d := NewDuckDBDialect("analytics")
	scripts, err := LoadDirectory(root, d, "analytics")
	require.NoError(t, err)
	require.Len(t, scripts, 2)

	names := map[string]Script{}
	for _, s := range scripts {
		names[s.TableRef.Name] = s
	}
	assert.Contains(t, names, "users")
	assert.Contains(t, names, "accounts")
	assert.Contains(t, names["accounts"].Code, "analytics.core.users")
	assert.Equal(t, []string{"core"}, names["users"].TableRef.Schema)
}
