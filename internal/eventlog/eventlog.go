// Package eventlog emits the structured, line-oriented events a session
// produces as it schedules and runs scripts: existing_tables_sampled,
// job_started, job_heartbeat, job_finished, promotion_started,
// promotion_finished, session_ended.
package eventlog

import (
	"io"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Sink receives structured log events. Implementations must be safe for
// concurrent use - a session logs from every worker goroutine.
type Sink interface {
	Event(name string, keyvals ...interface{})
}

// LogfmtSink writes one logfmt-encoded line per event to w.
type LogfmtSink struct {
	mu  sync.Mutex
	enc *logfmt.Encoder
	now func() time.Time
}

// NewLogfmtSink builds a Sink that writes to w.
func NewLogfmtSink(w io.Writer) *LogfmtSink {
	return &LogfmtSink{enc: logfmt.NewEncoder(w), now: time.Now}
}

// Event writes a single logfmt line: ts, event, then keyvals in order.
func (s *LogfmtSink) Event(name string, keyvals ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.enc.EncodeKeyval("ts", s.now().UTC().Format(time.RFC3339Nano))
	_ = s.enc.EncodeKeyval("event", name)
	for i := 0; i+1 < len(keyvals); i += 2 {
		_ = s.enc.EncodeKeyval(keyvals[i], keyvals[i+1])
	}
	_ = s.enc.EndRecord()
}

// Discard is a Sink that drops every event; used where no logging is wanted
// (e.g. in tests that don't care about log output).
var Discard Sink = discard{}

type discard struct{}

func (discard) Event(string, ...interface{}) {}
