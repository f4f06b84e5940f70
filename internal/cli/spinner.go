package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// spinnerFrames are the braille animation frames.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is the frame advance rate.
const spinnerInterval = 80 * time.Millisecond

// spinner renders an animated status line on stderr while a
// long-running operation executes. Stderr keeps piped stdout clean.
// Cancelling the parent context stops the animation as if Stop had
// been called.
type spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stop    sync.Once
	started bool
}

// newSpinner creates a spinner bound to ctx. A nil ctx is allowed and
// behaves like context.Background().
func newSpinner(ctx context.Context, message string) *spinner {
	if ctx == nil {
		ctx = context.Background()
	}
	sctx, cancel := context.WithCancel(ctx)
	return &spinner{
		message: message,
		ctx:     sctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start begins the animation in a background goroutine.
func (s *spinner) Start() {
	s.started = true
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\r%s %s", styleInfo.Render(spinnerFrames[frame]), s.message)
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// Stop halts the animation and clears the status line. Safe to call
// more than once, and before Start.
func (s *spinner) Stop() {
	s.stop.Do(func() {
		s.cancel()
		if s.started {
			<-s.done
		}
	})
}

// StopWithError stops the spinner and prints an error line in its
// place.
func (s *spinner) StopWithError(format string, args ...any) {
	s.Stop()
	printError(format, args...)
}

// clearLine erases the in-progress status line.
func (s *spinner) clearLine() {
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}
