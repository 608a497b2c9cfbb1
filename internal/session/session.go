// Package session runs a dag.DAG of scripts to completion: rewriting each
// script to read and write its audit-side tables, scheduling ready scripts
// onto a bounded worker pool, monitoring each job to completion, and
// promoting successful writes from audit tables to production.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/carbonfact/lea-sub000/internal/dag"
	"github.com/carbonfact/lea-sub000/internal/database"
	"github.com/carbonfact/lea-sub000/internal/eventlog"
	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// Options configures a Session.
type Options struct {
	// Dataset is the scripts' nominal (production) dataset. Defaults to
	// WriteDataset if left empty, which is correct whenever a session writes
	// straight into production rather than a separate scratch dataset.
	Dataset string
	// WriteDataset is the dataset audit tables are materialized into. Often
	// the same as the scripts' nominal dataset, but kept separate so a
	// session can target a scratch dataset during development.
	WriteDataset string
	// MaxConcurrency bounds how many scripts run at once.
	MaxConcurrency int64
	// IncrementalField is the field name (e.g. "date") that an incremental
	// run filters on. Empty disables incremental rewriting entirely.
	IncrementalField string
	// IncrementalValues is the set of values of IncrementalField this run
	// covers.
	IncrementalValues []string
	// EarlyEnd stops the whole scheduling loop as soon as any script fails.
	// By default a failure only skips that script's descendants - every
	// independent branch of the DAG still runs to completion.
	EarlyEnd bool
	// Sink receives structured events. Defaults to eventlog.Discard.
	Sink eventlog.Sink
}

// Session runs one DAG of scripts to completion against a database.Client.
type Session struct {
	dag    *dag.DAG
	client database.Client
	sink   eventlog.Sink
	sem    *semaphore.Weighted

	baseDataset         string
	writeDataset        string
	incrementalField    string
	incrementalValues   []string
	incrementalDatasets map[string]bool
	earlyEnd            bool

	// existingTables and existingAuditTables are sampled once at the start
	// of Run and never mutated afterward, so runOne's goroutines can read
	// them without synchronization.
	existingTables      map[string]bool
	existingAuditTables map[string]bool

	mu       sync.Mutex
	errs     []error
	stopped  bool
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New builds a Session ready to Run d against client.
func New(d *dag.DAG, client database.Client, opts Options) *Session {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	sink := opts.Sink
	if sink == nil {
		sink = eventlog.Discard
	}

	incrementalDatasets := map[string]bool{}
	for _, key := range d.Keys() {
		if d.IsSelected(key) {
			continue
		}
		s, ok := d.Script(key)
		if !ok {
			continue
		}
		if f, tagged := s.Field(opts.IncrementalField); tagged && f.HasTag(script.TagIncremental) {
			incrementalDatasets[key] = true
		}
	}

	baseDataset := opts.Dataset
	if baseDataset == "" {
		baseDataset = opts.WriteDataset
	}

	return &Session{
		dag:                 d,
		client:              client,
		sink:                sink,
		sem:                 semaphore.NewWeighted(opts.MaxConcurrency),
		baseDataset:         baseDataset,
		writeDataset:        opts.WriteDataset,
		incrementalField:    opts.IncrementalField,
		incrementalValues:   opts.IncrementalValues,
		incrementalDatasets: incrementalDatasets,
		earlyEnd:            opts.EarlyEnd,
		stopCh:              make(chan struct{}),
	}
}

// Run schedules every selected script in sess.dag onto the worker pool,
// waits for the whole DAG to finish (or, with EarlyEnd, for the first
// failure), and returns every error encountered, joined.
func (sess *Session) Run(ctx context.Context) error {
	if err := sess.client.CreateDataset(ctx, sess.writeDataset); err != nil {
		return fmt.Errorf("session: preparing write dataset: %w", err)
	}
	if err := sess.sampleExistingTables(ctx); err != nil {
		return fmt.Errorf("session: sampling existing tables: %w", err)
	}

	var wg sync.WaitGroup
	for {
		if sess.isStopped() {
			break
		}
		ready := sess.dag.Ready()
		if len(ready) == 0 {
			if sess.dag.Finished() {
				break
			}
			select {
			case <-ctx.Done():
				sess.stop()
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		for _, s := range ready {
			s := s
			if err := sess.sem.Acquire(ctx, 1); err != nil {
				sess.recordErr(fmt.Errorf("session: acquiring worker slot: %w", err))
				sess.stop()
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sess.sem.Release(1)
				sess.runOne(ctx, s)
			}()
		}
	}
	wg.Wait()

	return sess.joinedErr()
}

// sampleExistingTables lists the production dataset and the write dataset
// concurrently (the two are independent warehouse round-trips) and records
// which audit tables already exist, keyed the same way as a dependency's
// base-form DAG key. addContextToScript's Pass 1 needs this: a dependency
// that isn't selected this run but already has an audit table sitting in the
// write dataset (e.g. left over from a prior partial run) should still be
// read from that audit table rather than production.
func (sess *Session) sampleExistingTables(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	var production, write []tableref.TableRef
	g.Go(func() error {
		var err error
		production, err = sess.client.ListTables(gctx, sess.baseDataset)
		return err
	})
	g.Go(func() error {
		var err error
		write, err = sess.client.ListTables(gctx, sess.writeDataset)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	existingTables := map[string]bool{}
	for _, ref := range production {
		if !ref.IsAuditTable() {
			existingTables[ref.Key()] = true
		}
	}

	existingAuditTables := map[string]bool{}
	for _, ref := range write {
		if !ref.IsAuditTable() {
			continue
		}
		base := ref.RemoveAuditSuffix().ReplaceDataset(sess.baseDataset)
		existingAuditTables[base.Key()] = true
	}

	sess.existingTables = existingTables
	sess.existingAuditTables = existingAuditTables
	sess.sink.Event("existing_tables_sampled", "tables", len(existingTables), "audit_tables", len(existingAuditTables))
	return nil
}

func (sess *Session) runOne(ctx context.Context, s script.Script) {
	ref := s.TableRef
	deps := sess.dependenciesAsBase(s)
	rewritten := sess.addContextToScript(s, deps)

	sess.sink.Event("job_started", "table", ref.String(), "test", rewritten.IsTest())

	var job database.Job
	var err error
	if rewritten.IsTest() {
		job, err = sess.client.QueryScript(ctx, rewritten)
	} else {
		job, err = sess.client.MaterializeScript(ctx, rewritten)
	}
	if err != nil {
		sess.fail(ref, err)
		return
	}

	if err := monitorJob(ctx, job, sess.sink, ref); err != nil {
		sess.fail(ref, err)
		return
	}

	if rewritten.IsTest() {
		if n := job.RowCount(); n > 0 {
			sess.fail(ref, fmt.Errorf("assertion test %s failed: %d violating rows", ref, n))
			return
		}
	} else if err := sess.promote(ctx, s, rewritten); err != nil {
		sess.fail(ref, err)
		return
	}

	sess.sink.Event("job_finished", "table", ref.String(), "billed_dollars", job.BilledDollars())
	sess.dag.Done(ref)
}

// dependenciesAsBase returns s's in-DAG dependencies as production
// (non-audit) TableRefs, the form addContextToScript expects to rewrite
// from.
func (sess *Session) dependenciesAsBase(s script.Script) map[string]tableref.TableRef {
	deps := map[string]tableref.TableRef{}
	for key, ref := range s.Dependencies() {
		if !sess.dagHasKey(key) {
			continue
		}
		deps[key] = ref
	}
	return deps
}

func (sess *Session) dagHasKey(key string) bool {
	_, ok := sess.dag.Script(key)
	return ok
}

func (sess *Session) fail(ref tableref.TableRef, err error) {
	wrapped := fmt.Errorf("session: %s: %w", ref, err)
	sess.sink.Event("job_finished", "table", ref.String(), "error", err.Error())
	sess.recordErr(wrapped)
	// Fail (not Done): ref's descendants must never be submitted, but
	// independent branches of the DAG still run to completion unless
	// EarlyEnd was requested.
	sess.dag.Fail(ref)
	if sess.earlyEnd {
		sess.stop()
	}
}

func (sess *Session) recordErr(err error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.errs = append(sess.errs, err)
}

func (sess *Session) joinedErr() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.errs) == 0 {
		return nil
	}
	if len(sess.errs) == 1 {
		return sess.errs[0]
	}
	msg := fmt.Sprintf("%d scripts failed:", len(sess.errs))
	for _, e := range sess.errs {
		msg += "\n  " + e.Error()
	}
	return errors.New(msg)
}

func (sess *Session) stop() {
	sess.stopOnce.Do(func() {
		sess.mu.Lock()
		sess.stopped = true
		sess.mu.Unlock()
		close(sess.stopCh)
	})
}

func (sess *Session) isStopped() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stopped
}

// End emits the session_ended event once a run (successful or not)
// concludes. It drops no audit tables, stops no jobs and reports no cost.
func (sess *Session) End(ctx context.Context) error {
	sess.sink.Event("session_ended")
	return nil
}
