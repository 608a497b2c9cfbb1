// Package database defines the narrow contract a warehouse must satisfy to
// back a session (materializing scripts, promoting audit tables to
// production, listing existing tables), plus a concrete Postgres
// implementation and an in-memory fake used by tests.
package database

import (
	"context"
	"time"

	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// TableStats describes the physical size of a materialized table.
type TableStats struct {
	NRows  int64
	NBytes int64
}

// Job represents one in-flight (or finished) unit of warehouse work: running
// a script, or running an assertion test query against one.
type Job interface {
	// IsDone reports whether the job has finished, successfully or not.
	IsDone() bool
	// Exception returns the error the job failed with, or nil.
	Exception() error
	// Wait blocks until the job finishes or ctx is cancelled.
	Wait(ctx context.Context) error
	// Stop cancels the job if it's still running.
	Stop()
	// BilledDollars estimates the cost of the job, in USD. Zero for
	// warehouses (like Postgres) with no separate billing model.
	BilledDollars() float64
	// Statistics reports the size of the job's output, once known.
	Statistics() TableStats
	// RowCount is populated once a test job finishes: the number of rows its
	// query returned. A nonzero RowCount on an assertion test means it failed.
	RowCount() int64
	// Metadata exposes warehouse-specific identifiers for logging (e.g. a
	// BigQuery job ID or a Postgres backend PID).
	Metadata() map[string]string
}

// Client is the contract a warehouse backend must satisfy to run a session.
type Client interface {
	// CreateDataset ensures dataset exists, creating it if necessary.
	CreateDataset(ctx context.Context, dataset string) error

	// MaterializeScript runs s and writes its result to s.TableRef, returning
	// a Job that tracks the write.
	MaterializeScript(ctx context.Context, s script.Script) (Job, error)

	// QueryScript runs s without writing its result anywhere, returning a Job
	// whose RowCount reports how many rows came back. Used for assertion
	// tests, where a nonzero row count is a failure.
	QueryScript(ctx context.Context, s script.Script) (Job, error)

	// CloneTable makes dst an exact, cheap copy of src. Used to promote a
	// fully-materialized (non-incremental) audit table to production.
	CloneTable(ctx context.Context, src, dst tableref.TableRef) error

	// DeleteAndInsert deletes every row from dst matching the rows present in
	// src (keyed by incrementalField) and re-inserts src's rows in their
	// place. Used to promote an incrementally-materialized audit table.
	DeleteAndInsert(ctx context.Context, src, dst tableref.TableRef, incrementalField string) error

	// DropTable removes ref if it exists. Session.End does not call it, so
	// audit tables stay in the write dataset after a run.
	DropTable(ctx context.Context, ref tableref.TableRef) error

	// ListTables enumerates every table that exists under dataset.
	ListTables(ctx context.Context, dataset string) ([]tableref.TableRef, error)

	// ListColumnValues returns the distinct values of column in ref. The
	// session does not call it: a run's incremental values come from
	// Options.IncrementalValues.
	ListColumnValues(ctx context.Context, ref tableref.TableRef, column string) ([]string, error)

	// Close releases any resources (connection pools, etc.) held by the
	// client.
	Close() error
}

// pollInterval is a polling period for a backend whose Wait has no native
// blocking wait. Neither backend here uses it: fakeJob.Wait returns at once
// (fake jobs finish synchronously) and postgresJob.Wait blocks on the job's
// own goroutine.
const pollInterval = 50 * time.Millisecond
