package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironRequiresDataset(t *testing.T) {
	t.Setenv("LEA_DATASET", "")
	t.Setenv("LEA_DIALECT", "duckdb")
	_, err := FromEnviron()
	assert.Error(t, err)
}

func TestFromEnvironDefaults(t *testing.T) {
	t.Setenv("LEA_DATASET", "analytics")
	t.Setenv("LEA_DIALECT", "duckdb")
	t.Setenv("LEA_PROJECT", "")
	t.Setenv("LEA_MAX_CONCURRENCY", "")

	cfg, err := FromEnviron()
	require.NoError(t, err)
	assert.Equal(t, "analytics", cfg.Dataset)
	assert.Equal(t, 8, cfg.MaxConcurrency)
}

func TestFromEnvironInvalidConcurrency(t *testing.T) {
	t.Setenv("LEA_DATASET", "analytics")
	t.Setenv("LEA_DIALECT", "duckdb")
	t.Setenv("LEA_MAX_CONCURRENCY", "not-a-number")
	_, err := FromEnviron()
	assert.Error(t, err)
}
