package eventlog

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogfmtSinkEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogfmtSink(&buf)
	sink.now = func() time.Time { return time.Unix(0, 0).UTC() }

	sink.Event("job_started", "table", "core.users", "attempt", 1)

	line := buf.String()
	assert.Contains(t, line, "event=job_started")
	assert.Contains(t, line, "table=core.users")
	assert.Contains(t, line, "attempt=1")
}

func TestDiscardDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Event("anything", "k", "v") })
}
