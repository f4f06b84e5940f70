package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a structured logger writing to w at the given
// level. Timestamps use wall-clock time with centisecond precision so
// pipeline stages can be eyeballed from the log alone.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress measures one long-running operation and reports its wall
// time on completion. Not safe for concurrent use; each operation gets
// its own progress.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress starts timing immediately.
func newProgress(logger *log.Logger) *progress {
	return &progress{logger: logger, start: time.Now()}
}

// done logs msg with the elapsed time appended, e.g.
// "Documented 12 objects (3.4s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
