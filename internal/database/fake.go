package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// FakeClient is an in-memory Client used by session tests. It tracks which
// tables "exist" and records materialized/query SQL so tests can assert on
// scheduling behavior without a real warehouse.
type FakeClient struct {
	mu sync.Mutex

	datasets  map[string]bool
	tables    map[string]fakeTable
	Queries   []string
	FailTable map[string]error // ref.Key() -> error to fail that script's job with
}

type fakeTable struct {
	ref          tableref.TableRef
	rows         int64
	columnValues map[string][]string
}

// NewFakeClient returns an empty FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		datasets:  map[string]bool{},
		tables:    map[string]fakeTable{},
		FailTable: map[string]error{},
	}
}

func (c *FakeClient) CreateDataset(_ context.Context, dataset string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.datasets[dataset] = true
	return nil
}

func (c *FakeClient) MaterializeScript(_ context.Context, s script.Script) (Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := s.TableRef.Key()
	c.Queries = append(c.Queries, s.Code)
	if err := c.FailTable[key]; err != nil {
		return &fakeJob{done: true, err: err}, nil
	}
	c.tables[key] = fakeTable{ref: s.TableRef, rows: 1, columnValues: map[string][]string{}}
	return &fakeJob{done: true, stats: TableStats{NRows: 1, NBytes: 100}}, nil
}

func (c *FakeClient) QueryScript(_ context.Context, s script.Script) (Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Queries = append(c.Queries, s.Code)
	if err := c.FailTable[s.TableRef.Key()]; err != nil {
		return &fakeJob{done: true, err: err}, nil
	}
	return &fakeJob{done: true}, nil // assertion tests default to zero failing rows
}

func (c *FakeClient) CloneTable(_ context.Context, src, dst tableref.TableRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[src.Key()]
	if !ok {
		return fmt.Errorf("fake: clone source %s does not exist", src)
	}
	t.ref = dst
	c.tables[dst.Key()] = t
	return nil
}

func (c *FakeClient) DeleteAndInsert(_ context.Context, src, dst tableref.TableRef, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[src.Key()]
	if !ok {
		return fmt.Errorf("fake: delete+insert source %s does not exist", src)
	}
	existing := c.tables[dst.Key()]
	existing.ref = dst
	existing.rows += t.rows
	c.tables[dst.Key()] = existing
	return nil
}

func (c *FakeClient) DropTable(_ context.Context, ref tableref.TableRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, ref.Key())
	return nil
}

func (c *FakeClient) ListTables(_ context.Context, dataset string) ([]tableref.TableRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []tableref.TableRef
	for _, t := range c.tables {
		if t.ref.Dataset == dataset {
			out = append(out, t.ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (c *FakeClient) ListColumnValues(_ context.Context, ref tableref.TableRef, column string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("fake: %s does not exist", ref)
	}
	return t.columnValues[column], nil
}

// SetColumnValues seeds the distinct values ListColumnValues returns for
// ref's column, for tests that exercise incremental value discovery.
func (c *FakeClient) SetColumnValues(ref tableref.TableRef, column string, values []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[ref.Key()]
	if !ok {
		t = fakeTable{ref: ref, columnValues: map[string][]string{}}
	}
	if t.columnValues == nil {
		t.columnValues = map[string][]string{}
	}
	t.columnValues[column] = values
	c.tables[ref.Key()] = t
}

func (c *FakeClient) Close() error { return nil }

type fakeJob struct {
	done  bool
	err   error
	stats TableStats
}

func (j *fakeJob) IsDone() bool            { return j.done }
func (j *fakeJob) Exception() error        { return j.err }
func (j *fakeJob) Wait(context.Context) error { return j.err }
func (j *fakeJob) Stop()                   {}
func (j *fakeJob) BilledDollars() float64  { return 0 }
func (j *fakeJob) Statistics() TableStats  { return j.stats }
func (j *fakeJob) RowCount() int64         { return 0 }
func (j *fakeJob) Metadata() map[string]string { return nil }
