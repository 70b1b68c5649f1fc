// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package registry implements the thread-safe configuration store mapping
// (backend name, operation class) to a declared rate-limit policy and its
// lazily-built limiter.
package registry

import (
	"context"
	"sync"

	"github.com/kadirpekel/throttlefs/clock"
	"github.com/kadirpekel/throttlefs/gcra"
	"github.com/kadirpekel/throttlefs/mode"
	"github.com/kadirpekel/throttlefs/observability"
	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

// Key identifies one configurable slot: a backend name and an operation
// class. Equality is string-exact on Backend.
type Key struct {
	Backend string
	Op      opclass.Class
}

// entry is the mutable per-key tuple. It is only ever
// mutated while the registry's mutex is held; the limiter field itself,
// once read out by a caller, is safe for lock-free concurrent use on its
// own.
type entry struct {
	rate  float64
	burst int64
	mode  mode.Mode

	// limiter is present iff rate > 0 || burst > 0. Go's garbage
	// collector gives limiter handles the "outlives the registry entry
	// that produced it" property for free: a caller's local
	// *gcra.Limiter keeps the old limiter alive after the registry has
	// replaced or erased the map entry, with no manual refcounting needed.
	limiter *gcra.Limiter
}

// EntryView is an immutable snapshot of one configured key, returned by
// Get and Enumerate for introspection. It never aliases registry-internal
// state.
type EntryView struct {
	Backend string
	Op      opclass.Class
	Rate    float64
	Burst   int64
	Mode    mode.Mode
}

// Registry is the thread-safe, process-scoped configuration store.
// The zero value is not usable; construct with New.
type Registry struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[Key]*entry
	obs     *observability.Manager
}

// New constructs an empty Registry using the real wall clock for any
// limiters it builds.
func New() *Registry {
	return &Registry{
		clock:   clock.NewReal(),
		entries: make(map[Key]*entry),
		obs:     observability.NoopManager(),
	}
}

// NewWithClock constructs an empty Registry using c for any limiters it
// builds, e.g. a clock.Mock in tests.
func NewWithClock(c clock.Clock) *Registry {
	return &Registry{
		clock:   c,
		entries: make(map[Key]*entry),
		obs:     observability.NoopManager(),
	}
}

// SetObservability attaches a metrics/tracing manager; every mutation
// below records a throttlefs_registry_reconfigurations_total sample
// against it.
func (r *Registry) SetObservability(obs *observability.Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = obs
}

// SetRate declares (or updates) the rate and mode for (backend, op). If
// rate is 0 and no entry previously existed, SetRate is a no-op. If rate
// is 0 and the resulting burst is also 0, the entry is erased. Otherwise
// the entry is inserted or updated and its limiter is rebuilt from
// scratch (fresh state).
func (r *Registry) SetRate(backend string, op opclass.Class, rate float64, m mode.Mode) error {
	if rate < 0 {
		return rlerrors.NewInvalidConfig("rate", "must be non-negative")
	}
	if !op.Valid() {
		return rlerrors.NewInvalidConfig("op", "unknown operation class")
	}
	if !m.Valid() {
		return rlerrors.NewInvalidConfig("mode", "unknown mode")
	}

	key := Key{Backend: backend, Op: op}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[key]
	if !exists {
		if rate == 0 {
			return nil
		}
		e = &entry{mode: mode.Blocking}
	}

	e.rate = rate
	e.mode = m

	if e.rate == 0 && e.burst == 0 {
		delete(r.entries, key)
		r.obs.RecordReconfiguration(context.Background(), backend, op.String(), "erase")
		return nil
	}

	if err := r.rebuildLocked(e); err != nil {
		return err
	}
	r.entries[key] = e
	r.obs.RecordReconfiguration(context.Background(), backend, op.String(), "set_rate")
	return nil
}

// SetBurst declares (or updates) the burst cap for (backend, op). op must
// be Read or Write; any other class is rejected with InvalidConfig and
// the registry is left unchanged. The erase/insert/rebuild rules mirror
// SetRate, with burst and rate's roles swapped.
func (r *Registry) SetBurst(backend string, op opclass.Class, burst int64) error {
	if burst < 0 {
		return rlerrors.NewInvalidConfig("burst", "must be non-negative")
	}
	if !op.SupportsBurst() {
		return rlerrors.NewInvalidConfig("op", "burst is only configurable for read/write")
	}

	key := Key{Backend: backend, Op: op}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[key]
	if !exists {
		if burst == 0 {
			return nil
		}
		e = &entry{mode: mode.Blocking}
	}

	e.burst = burst

	if e.rate == 0 && e.burst == 0 {
		delete(r.entries, key)
		r.obs.RecordReconfiguration(context.Background(), backend, op.String(), "erase")
		return nil
	}

	if err := r.rebuildLocked(e); err != nil {
		return err
	}
	r.entries[key] = e
	r.obs.RecordReconfiguration(context.Background(), backend, op.String(), "set_burst")
	return nil
}

// rebuildLocked constructs a fresh Quota and Limiter for e from its
// current declared rate/burst and the registry's current clock. Callers
// must hold r.mu.
func (r *Registry) rebuildLocked(e *entry) error {
	q, err := gcra.NewQuota(e.rate, e.burst)
	if err != nil {
		// rate==0 && burst==0 is handled by callers before reaching here;
		// anything else NewQuota rejects (negative values) was already
		// validated above, so reaching this is an invariant violation.
		return &rlerrors.InternalError{Message: "rebuildLocked: " + err.Error()}
	}
	e.limiter = gcra.New(q, r.clock)
	return nil
}

// Get returns a snapshot of the declared policy for (backend, op), and
// whether a key exists at all.
func (r *Registry) Get(backend string, op opclass.Class) (EntryView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[Key{Backend: backend, Op: op}]
	if !ok {
		return EntryView{}, false
	}
	return EntryView{Backend: backend, Op: op, Rate: e.rate, Burst: e.burst, Mode: e.mode}, true
}

// Limiter returns the current limiter handle for (backend, op), or nil if
// no key is configured. The returned handle remains valid and isolated
// from any limiter built by a later SetRate/SetBurst/SetClock call, even
// after the key is cleared or rebuilt.
func (r *Registry) Limiter(backend string, op opclass.Class) (*gcra.Limiter, mode.Mode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[Key{Backend: backend, Op: op}]
	if !ok {
		return nil, 0, false
	}
	return e.limiter, e.mode, true
}

// Clear erases the entry for exactly (backend, op), if any.
func (r *Registry) Clear(backend string, op opclass.Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, Key{Backend: backend, Op: op})
	r.obs.RecordReconfiguration(context.Background(), backend, op.String(), "clear")
}

// ClearBackend erases every entry configured for backend, across all
// operation classes.
func (r *Registry) ClearBackend(backend string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.Backend == backend {
			delete(r.entries, k)
		}
	}
	r.obs.RecordReconfiguration(context.Background(), backend, "*", "clear_backend")
}

// ClearAll erases every entry in the registry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[Key]*entry)
	r.obs.RecordReconfiguration(context.Background(), "*", "*", "clear_all")
}

// Enumerate returns a snapshot of every configured key, for introspection.
func (r *Registry) Enumerate() []EntryView {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]EntryView, 0, len(r.entries))
	for k, e := range r.entries {
		views = append(views, EntryView{Backend: k.Backend, Op: k.Op, Rate: e.rate, Burst: e.burst, Mode: e.mode})
	}
	return views
}

// Backends returns the distinct set of backend names with at least one
// configured key, for introspection.
func (r *Registry) Backends() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var names []string
	for k := range r.entries {
		if _, ok := seen[k.Backend]; !ok {
			seen[k.Backend] = struct{}{}
			names = append(names, k.Backend)
		}
	}
	return names
}

// SetClock replaces the clock used to build future limiters and
// immediately rebuilds every existing entry's limiter under the lock, so
// that in-flight callers holding an old limiter handle keep running
// against the old clock until they return, exactly like any other
// reconfiguration.
func (r *Registry) SetClock(c clock.Clock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock = c
	for _, e := range r.entries {
		if err := r.rebuildLocked(e); err != nil {
			return err
		}
	}
	return nil
}
