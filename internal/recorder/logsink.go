// logsink.go - an event.Sink that renders each event as a structured
// log line, grounded on the teacher's logger.Logger usage in
// testsuite/run.go (log.Debug/log.Info on a logger.Logger built via
// logger.NewLogger(..., Ldate|Ltime|Lmicroseconds|Lfileloc)).
package recorder

import (
	"github.com/opencoff/go-logger"

	"github.com/waysnap/waysnap/internal/event"
)

// LogSink adapts a logger.Logger into an event.Sink: lifecycle
// events log at Info, per-entry events at Debug.
type LogSink struct {
	log logger.Logger
}

// NewLogSink wraps an already-constructed logger.Logger.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(tag event.Tag, payload event.Payload) {
	if tag.Verbose() {
		s.log.Debug("%s %v", tag, payload)
		return
	}
	s.log.Info("%s %v", tag, payload)
}

var _ event.Sink = &LogSink{}
