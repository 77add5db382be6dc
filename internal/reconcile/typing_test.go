package reconcile

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type debounceCounter struct {
	typed   atomic.Int32
	stopped atomic.Int32
}

func newCountingDebouncer(quiet time.Duration) (*Debouncer, *debounceCounter) {
	c := &debounceCounter{}
	d := NewDebouncer(quiet,
		func() { c.typed.Add(1) },
		func() { c.stopped.Add(1) })
	return d, c
}

func TestDebouncerEmitsTypingPerKeystroke(t *testing.T) {
	d, c := newCountingDebouncer(50 * time.Millisecond)

	d.Input("h")
	d.Input("he")
	d.Input("hel")

	assert.Equal(t, int32(3), c.typed.Load(), "expected a typing signal per keystroke")
	assert.Equal(t, int32(0), c.stopped.Load(), "expected no stop signal while typing")
}

// A burst of keystrokes yields exactly one trailing stop signal.
func TestDebouncerTrailingEdgeStop(t *testing.T) {
	d, c := newCountingDebouncer(30 * time.Millisecond)

	d.Input("h")
	d.Input("he")
	d.Input("hel")

	assert.Eventually(t, func() bool {
		return c.stopped.Load() == 1
	}, time.Second, 5*time.Millisecond, "expected exactly one stop after the quiet period")

	// quiet period already elapsed; no further stops should arrive
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), c.stopped.Load(), "expected no extra stop signals")
}

func TestDebouncerKeystrokeRestartsQuietTimer(t *testing.T) {
	d, c := newCountingDebouncer(60 * time.Millisecond)

	d.Input("h")
	time.Sleep(30 * time.Millisecond)
	d.Input("he")
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, int32(0), c.stopped.Load(), "expected the second keystroke to push back the stop")

	assert.Eventually(t, func() bool {
		return c.stopped.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerEmptyInputStopsImmediately(t *testing.T) {
	d, c := newCountingDebouncer(time.Hour)

	d.Input("hello")
	d.Input("")

	assert.Equal(t, int32(1), c.stopped.Load(), "expected clearing the input to stop immediately")
	assert.Equal(t, int32(1), c.typed.Load(), "expected no typing signal for empty input")
}

func TestDebouncerWhitespaceOnlyInputStops(t *testing.T) {
	d, c := newCountingDebouncer(time.Hour)

	d.Input("   ")
	assert.Equal(t, int32(1), c.stopped.Load())
	assert.Equal(t, int32(0), c.typed.Load())
}

func TestDebouncerFlush(t *testing.T) {
	d, c := newCountingDebouncer(time.Hour)

	d.Input("hello")
	d.Flush()

	assert.Equal(t, int32(1), c.stopped.Load(), "expected flush to stop immediately")

	// the pending timer was cancelled, so no second stop fires later
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), c.stopped.Load())
}

func TestDebouncerDefaultQuietPeriod(t *testing.T) {
	d := NewDebouncer(0, func() {}, func() {})
	assert.Equal(t, DefaultQuietPeriod, d.quiet, "expected non-positive quiet period to fall back to the default")
}
