package gcra

import (
	"time"

	"github.com/kadirpekel/throttlefs/clock"
)

// Outcome is the result of a single non-blocking admission attempt.
type Outcome int

const (
	// Admitted means the request was granted immediately.
	Admitted Outcome = iota
	// Wait means the request would be granted at ReadyAt; state was not
	// mutated.
	Wait
	// Exceeds means the request's cost is larger than the limiter's burst
	// and can never be admitted regardless of waiting.
	Exceeds
)

// String renders the outcome for logs and error messages.
func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Wait:
		return "wait"
	case Exceeds:
		return "exceeds"
	default:
		return "unknown"
	}
}

// Decision is the full result of TryAcquireImmediate.
type Decision struct {
	Outcome Outcome
	// ReadyAt is the instant the request would be admitted, valid only
	// when Outcome == Wait.
	ReadyAt time.Time
	// WaitFor is ReadyAt - now, valid only when Outcome == Wait. For
	// Outcome == Exceeds, WaitFor is time.Duration max, so callers that
	// merge the two shapes can carry Exceeds as a Wait with an infinite
	// wait.
	WaitFor time.Duration
}

// maxDuration stands in for an unbounded wait.
const maxDuration = time.Duration(1<<63 - 1)

// AcquireResult is the result of AcquireBlocking: it never returns Wait.
type AcquireResult int

const (
	// AcquireAdmitted means the caller may proceed.
	AcquireAdmitted AcquireResult = iota
	// AcquireExceeds means the request's cost exceeds burst; the caller
	// must not retry with the same cost.
	AcquireExceeds
)

// Limiter is the GCRA admission engine for one (Quota, State, Clock)
// triple. The zero value is not usable; construct with New. A Limiter is
// safe for concurrent use: TryAcquireImmediate mutates only the internal
// atomic counter, never taking a lock.
type Limiter struct {
	quota Quota
	clock clock.Clock
	state state
}

// New constructs a Limiter bound to quota and clock, starting from an idle
// state (epoch zero).
func New(quota Quota, c clock.Clock) *Limiter {
	return &Limiter{quota: quota, clock: c}
}

// Quota returns the limiter's configured quota.
func (l *Limiter) Quota() Quota { return l.quota }

// TryAcquireImmediate runs at most one GCRA admission attempt for a
// request of cost n and returns immediately; it never sleeps.
func (l *Limiter) TryAcquireImmediate(n uint64) Decision {
	if n == 0 {
		return Decision{Outcome: Admitted}
	}

	if l.quota.BurstLimited() && n > uint64(l.quota.Burst()) {
		return Decision{Outcome: Exceeds, WaitFor: maxDuration}
	}

	if !l.quota.RateLimited() {
		return Decision{Outcome: Admitted}
	}

	return l.attempt(n)
}

// attempt performs one CAS-guarded GCRA admission step, retrying locally
// (never sleeping) on a lost CAS race.
func (l *Limiter) attempt(n uint64) Decision {
	incNanos := l.quota.EmissionInterval() * time.Duration(n)
	tolNanos := l.quota.DelayTolerance()
	if !l.quota.BurstLimited() {
		// No burst cap: a request of any cost admits once the limiter has
		// caught up with its TAT, and then pushes the TAT out by its cost.
		tolNanos = incNanos
	}

	for {
		nowNanos := l.clock.Now().UnixNano()
		tat := l.state.load()

		base := tat
		if nowNanos > base {
			base = nowNanos
		}
		newTAT := base + int64(incNanos)
		earliest := newTAT - int64(tolNanos)

		if earliest > nowNanos {
			readyAt := time.Unix(0, earliest)
			now := time.Unix(0, nowNanos)
			return Decision{
				Outcome: Wait,
				ReadyAt: readyAt,
				WaitFor: readyAt.Sub(now),
			}
		}

		if l.state.compareAndSwap(tat, newTAT) {
			return Decision{Outcome: Admitted}
		}
		// Lost the race to a concurrent admitter; reload and retry.
	}
}

// AcquireBlocking retries TryAcquireImmediate, sleeping via the limiter's
// Clock between attempts, until the request admits or is found to exceed
// burst. It never returns a Wait outcome to the caller.
func (l *Limiter) AcquireBlocking(n uint64) AcquireResult {
	for {
		d := l.TryAcquireImmediate(n)
		switch d.Outcome {
		case Admitted:
			return AcquireAdmitted
		case Exceeds:
			return AcquireExceeds
		case Wait:
			l.clock.SleepUntil(d.ReadyAt)
		}
	}
}
