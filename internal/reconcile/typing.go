package reconcile

import (
	"strings"
	"sync"
	"time"
)

// DefaultQuietPeriod is how long after the last keystroke the stop-typing
// signal fires.
const DefaultQuietPeriod = time.Second

// Debouncer implements the trailing-edge typing debounce: every non-empty
// keystroke emits a typing signal and restarts the quiet timer; the stop
// signal fires once the timer expires with no further input. An empty
// input stops immediately.
type Debouncer struct {
	quiet  time.Duration
	onType func()
	onStop func()
	mu     sync.Mutex
	timer  *time.Timer
}

func NewDebouncer(quiet time.Duration, onType, onStop func()) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{
		quiet:  quiet,
		onType: onType,
		onStop: onStop,
	}
}

// Input records the current contents of the message input after a
// keystroke.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if strings.TrimSpace(text) == "" {
		d.mu.Unlock()
		d.onStop()
		return
	}

	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		d.timer = nil
		d.mu.Unlock()
		d.onStop()
	})
	d.mu.Unlock()

	d.onType()
}

// Flush cancels any pending timer and emits the stop signal now. Called
// after sending a message or when the input is cleared.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.onStop()
}
