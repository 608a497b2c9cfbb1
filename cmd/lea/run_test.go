package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carbonfact/lea-sub000/internal/config"
)

func TestDialectForUnknown(t *testing.T) {
	_, err := dialectFor(config.Config{Dialect: "snowflake"})
	assert.Error(t, err)
}

func TestDialectForBigQueryAndDuckDB(t *testing.T) {
	d, err := dialectFor(config.Config{Dialect: "bigquery", Project: "proj"})
	assert.NoError(t, err)
	assert.Equal(t, "bigquery", d.Name())

	d, err = dialectFor(config.Config{Dialect: "duckdb", Dataset: "analytics"})
	assert.NoError(t, err)
	assert.Equal(t, "duckdb", d.Name())
}

func TestRunCmdRegistersFlags(t *testing.T) {
	cmd := newRunCmd()
	for _, name := range []string{"select", "scripts", "incremental", "incremental-field", "dry", "early-end", "fresh", "max-concurrency"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}
