package gcra

import "sync/atomic"

// state is the limiter's sole mutable datum: the theoretical arrival time,
// in nanoseconds since a fixed epoch shared with the injected Clock. It is
// never surfaced to callers.
type state struct {
	tatNanos atomic.Int64
}

func (s *state) load() int64 {
	return s.tatNanos.Load()
}

func (s *state) compareAndSwap(old, new int64) bool {
	return s.tatNanos.CompareAndSwap(old, new)
}
