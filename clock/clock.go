// Package clock provides the virtualized time source consumed by the gcra
// and registry packages: a monotonic now(), and two ways to wait.
package clock

import "time"

// Clock is the capability set every limiter depends on instead of calling
// time.Now/time.Sleep directly, so tests can substitute Mock.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// SleepFor suspends the caller for d.
	SleepFor(d time.Duration)

	// SleepUntil suspends the caller until t, or returns immediately if t
	// is not after Now().
	SleepUntil(t time.Time)
}

// Real is the default Clock: monotonic, thread-safe, and backed by the
// runtime's time package. Sleeping parks the calling goroutine.
type Real struct{}

// NewReal constructs a Real clock.
func NewReal() Real { return Real{} }

// Now returns time.Now().
func (Real) Now() time.Time { return time.Now() }

// SleepFor parks the caller for d via time.Sleep.
func (Real) SleepFor(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}

// SleepUntil parks the caller until t.
func (r Real) SleepUntil(t time.Time) {
	now := r.Now()
	if !t.After(now) {
		return
	}
	time.Sleep(t.Sub(now))
}

var _ Clock = Real{}
