package plugins

import (
	"fmt"
	"sync"

	"github.com/kadirpekel/throttlefs/facade"
)

// loaded pairs a plugin-backed FS with the teardown that kills its
// subprocess.
type loaded struct {
	fs      facade.FS
	cleanup func()
}

// Registry tracks plugin-backed backends that have been loaded for the
// lifetime of this process, so a second Wrap of the same backend name
// reuses the running subprocess instead of spawning another one.
type Registry struct {
	loader *Loader
	mu     sync.Mutex
	loaded map[string]loaded
}

// NewRegistry builds a Registry that spawns plugin binaries with loader.
func NewRegistry(loader *Loader) *Registry {
	return &Registry{loader: loader, loaded: make(map[string]loaded)}
}

// Resolve returns the facade.FS for name, launching its plugin binary at
// path on first use. Subsequent calls for the same name return the
// cached FS without spawning another process.
func (r *Registry) Resolve(name, path string) (facade.FS, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loaded[name]; ok {
		return l.fs, nil
	}

	fs, cleanup, err := r.loader.Load(path)
	if err != nil {
		return nil, &Error{Name: name, Op: "load", Err: err}
	}
	r.loaded[name] = loaded{fs: fs, cleanup: cleanup}
	return fs, nil
}

// Unload kills the subprocess backing name, if one is loaded.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.loaded[name]
	if !ok {
		return fmt.Errorf("plugins: %q is not loaded", name)
	}
	l.cleanup()
	delete(r.loaded, name)
	return nil
}

// UnloadAll kills every subprocess this registry started, for clean
// process shutdown.
func (r *Registry) UnloadAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, l := range r.loaded {
		l.cleanup()
		delete(r.loaded, name)
	}
}

// Names lists the currently loaded plugin backend names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.loaded))
	for name := range r.loaded {
		names = append(names, name)
	}
	return names
}
