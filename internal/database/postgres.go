package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// PostgresClient runs scripts against a Postgres warehouse via a pgx
// connection pool. Tables are materialized with "CREATE TABLE ... AS",
// audit tables are promoted by dropping the production table and re-creating
// it with "CREATE TABLE ... AS SELECT * FROM <audit>" for full
// materialization, or DELETE+INSERT for incremental materialization.
type PostgresClient struct {
	pool *pgxpool.Pool
}

// NewPostgresClient builds a client from a libpq-style connection string.
func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	pool, err := pgxpool.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresClient{pool: pool}, nil
}

func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}

func (c *PostgresClient) CreateDataset(ctx context.Context, dataset string) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{dataset}.Sanitize()))
	if err != nil {
		return fmt.Errorf("creating schema %s: %w", dataset, err)
	}
	return nil
}

func (c *PostgresClient) MaterializeScript(ctx context.Context, s script.Script) (Job, error) {
	table := s.Dialect.FormatTableRef(s.TableRef)
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s; CREATE TABLE %s AS\n%s", table, table, s.Code)
	return c.run(ctx, sql, true)
}

func (c *PostgresClient) QueryScript(ctx context.Context, s script.Script) (Job, error) {
	return c.run(ctx, s.Code, false)
}

func (c *PostgresClient) CloneTable(ctx context.Context, src, dst tableref.TableRef) error {
	srcName, dstName := src.String(), dst.String()
	_, err := c.pool.Exec(ctx, fmt.Sprintf(
		"DROP TABLE IF EXISTS %s; CREATE TABLE %s AS SELECT * FROM %s",
		dstName, dstName, srcName,
	))
	if err != nil {
		return fmt.Errorf("cloning %s to %s: %w", srcName, dstName, err)
	}
	return nil
}

func (c *PostgresClient) DeleteAndInsert(ctx context.Context, src, dst tableref.TableRef, incrementalField string) error {
	srcName, dstName := src.String(), dst.String()
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning delete+insert transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deleteSQL := fmt.Sprintf(
		"DELETE FROM %s WHERE %s IN (SELECT DISTINCT %s FROM %s)",
		dstName, incrementalField, incrementalField, srcName,
	)
	if _, err := tx.Exec(ctx, deleteSQL); err != nil {
		return fmt.Errorf("deleting stale rows from %s: %w", dstName, err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", dstName, srcName)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return fmt.Errorf("inserting fresh rows into %s: %w", dstName, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete+insert into %s: %w", dstName, err)
	}
	return nil
}

func (c *PostgresClient) DropTable(ctx context.Context, ref tableref.TableRef) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", ref.String()))
	if err != nil {
		return fmt.Errorf("dropping %s: %w", ref, err)
	}
	return nil
}

func (c *PostgresClient) ListTables(ctx context.Context, dataset string) ([]tableref.TableRef, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema = $1
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("listing tables in %s: %w", dataset, err)
	}
	defer rows.Close()

	var out []tableref.TableRef
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		out = append(out, tableref.New(dataset, strings.Split(schema, "__"), name))
	}
	return out, rows.Err()
}

func (c *PostgresClient) ListColumnValues(ctx context.Context, ref tableref.TableRef, column string) ([]string, error) {
	rows, err := c.pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM %s", column, ref.String()))
	if err != nil {
		return nil, fmt.Errorf("listing distinct %s from %s: %w", column, ref, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s value: %w", column, err)
		}
		values = append(values, fmt.Sprintf("%v", v))
	}
	return values, rows.Err()
}

func (c *PostgresClient) run(ctx context.Context, sql string, writesRows bool) (Job, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &postgresJob{cancel: cancel, id: uuid.New().String()}
	job.wg.Add(1)

	go func() {
		defer job.wg.Done()
		start := time.Now()
		tag, err := c.pool.Exec(jobCtx, sql)
		job.mu.Lock()
		job.done = true
		job.duration = time.Since(start)
		if err != nil {
			job.err = err
		} else if writesRows {
			job.stats = TableStats{NRows: tag.RowsAffected()}
		} else {
			job.rowCount = tag.RowsAffected()
		}
		job.mu.Unlock()
	}()
	return job, nil
}

type postgresJob struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	id       string
	done     bool
	err      error
	stats    TableStats
	rowCount int64
	duration time.Duration
}

func (j *postgresJob) IsDone() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

func (j *postgresJob) Exception() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *postgresJob) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return j.Exception()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *postgresJob) Stop() {
	j.cancel()
}

func (j *postgresJob) BilledDollars() float64 {
	return 0 // Postgres has no separate per-query billing model.
}

func (j *postgresJob) Statistics() TableStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *postgresJob) RowCount() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rowCount
}

func (j *postgresJob) Metadata() map[string]string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return map[string]string{"job_id": j.id, "duration": j.duration.String()}
}
