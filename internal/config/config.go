// Package config reads lea's process environment. There is no dotenv or
// struct-tag-based env binding library anywhere in the example corpus this
// module was grounded on, so this stays a thin os.Getenv wrapper rather than
// reaching for an out-of-pack dependency to do something this small.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds everything a run needs that isn't passed on the command line.
type Config struct {
	// Dataset is the default warehouse dataset scripts target.
	Dataset string
	// Project is the default cloud project for the BigQuery dialect; unused
	// by the DuckDB dialect.
	Project string
	// Dialect selects "bigquery" or "duckdb".
	Dialect string
	// MaxConcurrency bounds how many scripts run at once. Defaults to 8.
	MaxConcurrency int
}

// FromEnviron reads LEA_DATASET, LEA_PROJECT, LEA_DIALECT and
// LEA_MAX_CONCURRENCY. LEA_DATASET and LEA_DIALECT are required.
func FromEnviron() (Config, error) {
	cfg := Config{
		Dataset:        os.Getenv("LEA_DATASET"),
		Project:        os.Getenv("LEA_PROJECT"),
		Dialect:        os.Getenv("LEA_DIALECT"),
		MaxConcurrency: 8,
	}
	if cfg.Dataset == "" {
		return Config{}, fmt.Errorf("config: LEA_DATASET is required")
	}
	if cfg.Dialect == "" {
		return Config{}, fmt.Errorf("config: LEA_DIALECT is required")
	}
	if raw := os.Getenv("LEA_MAX_CONCURRENCY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: LEA_MAX_CONCURRENCY must be a positive integer, got %q", raw)
		}
		cfg.MaxConcurrency = n
	}
	return cfg, nil
}
