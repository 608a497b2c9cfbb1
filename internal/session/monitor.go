package session

import (
	"context"
	"time"

	"github.com/carbonfact/lea-sub000/internal/database"
	"github.com/carbonfact/lea-sub000/internal/eventlog"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

const (
	monitorInitialInterval = time.Second
	monitorMaxInterval     = 10 * time.Second
	heartbeatThreshold     = 10 * time.Second
)

// monitorJob polls job until it's done, backing off exponentially from 1s up
// to a 10s cap, logging a heartbeat event on every poll once the interval
// reaches that cap (so a long-running job doesn't go silent).
func monitorJob(ctx context.Context, job database.Job, sink eventlog.Sink, ref tableref.TableRef) error {
	interval := monitorInitialInterval
	for {
		if job.IsDone() {
			return job.Exception()
		}

		select {
		case <-ctx.Done():
			job.Stop()
			return ctx.Err()
		case <-time.After(interval):
		}

		if interval >= heartbeatThreshold {
			sink.Event("job_heartbeat", "table", ref.String())
		}

		interval *= 2
		if interval > monitorMaxInterval {
			interval = monitorMaxInterval
		}
	}
}
