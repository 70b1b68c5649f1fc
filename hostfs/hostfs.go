// Package hostfs is the host-level registry of named filesystem backends
// that Wrap draws from: it holds the inner FS implementations a
// deployment has registered (local disk, an external plugin-backed FS,
// ...) and the façades built over them.
package hostfs

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/kadirpekel/throttlefs/audit"
	"github.com/kadirpekel/throttlefs/facade"
	"github.com/kadirpekel/throttlefs/observability"
	"github.com/kadirpekel/throttlefs/plugins"
	"github.com/kadirpekel/throttlefs/registry"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

// Host is the process-scoped collaborator the admin surface's "wrap" call
// operates against.
type Host struct {
	mu          sync.RWMutex
	backends    map[string]facade.FS
	wrapped     map[string]*facade.Facade
	pluginPaths map[string]string
	plugins     *plugins.Registry
	reg         *registry.Registry
	obs         *observability.Manager
	audit       audit.Store
	sf          singleflight.Group
}

// New constructs a Host bound to reg; façades it builds admit calls
// against reg's entries.
func New(reg *registry.Registry) *Host {
	return &Host{
		backends:    make(map[string]facade.FS),
		wrapped:     make(map[string]*facade.Facade),
		pluginPaths: make(map[string]string),
		reg:         reg,
		obs:         observability.NoopManager(),
	}
}

// SetObservability attaches a metrics/tracing manager that every façade
// this Host wraps from now on will report into.
func (h *Host) SetObservability(obs *observability.Manager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.obs = obs
}

// SetAudit attaches an audit store that every façade this Host wraps
// from now on will record rejections into.
func (h *Host) SetAudit(store audit.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.audit = store
}

// Register adds an inner FS under name, making it eligible for Wrap. A
// backend already wrapped under this name is left untouched; re-register
// with a new name to pick up a replaced implementation.
func (h *Host) Register(name string, fs facade.FS) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backends[name] = fs
}

// SetLoader equips this Host to resolve plugin-backed backend names,
// spawning binaries registered via RegisterPlugin through loader.
func (h *Host) SetLoader(loader *plugins.Loader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plugins = plugins.NewRegistry(loader)
}

// RegisterPlugin makes name resolvable to the external plugin binary at
// path. The binary is not spawned until Wrap first needs it; call SetLoader first
// so the Host has something to spawn it with.
func (h *Host) RegisterPlugin(name, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pluginPaths[name] = path
}

// Shutdown terminates any plugin subprocesses this Host started.
func (h *Host) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.plugins != nil {
		h.plugins.UnloadAll()
	}
}

// Wrap extracts the inner FS registered under name, wraps it in a Facade,
// and registers the façade back under its GetName(), which is
// "RateLimited(<inner FS's own GetName()>)". Concurrent
// Wrap calls for the same name are
// deduplicated via singleflight, so a caller never pays for constructing
// the same façade twice — the one case in this codebase where first-time
// construction is genuinely racy, unlike registry limiter rebuilds, which
// are already serialized by the registry's own mutex.
func (h *Host) Wrap(name string) (*facade.Facade, error) {
	v, err, _ := h.sf.Do(name, func() (interface{}, error) {
		h.mu.RLock()
		if existing, ok := h.wrapped[name]; ok {
			h.mu.RUnlock()
			return existing, nil
		}
		inner, ok := h.backends[name]
		path, pluginOK := h.pluginPaths[name]
		pluginRegistry := h.plugins
		h.mu.RUnlock()

		if !ok {
			if !pluginOK || pluginRegistry == nil {
				return nil, rlerrors.NewInvalidConfig("backend_name", "unknown backend: "+name)
			}
			resolved, err := pluginRegistry.Resolve(name, path)
			if err != nil {
				return nil, rlerrors.NewInvalidConfig("backend_name", err.Error())
			}
			inner = resolved
		}

		fx := facade.Wrap(inner, h.reg, name).WithObservability(h.obs).WithAudit(h.audit)

		h.mu.Lock()
		h.wrapped[name] = fx
		h.backends[fx.GetName()] = fx
		h.mu.Unlock()

		return fx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*facade.Facade), nil
}

// Names returns every backend name currently registered, including
// derived façade names produced by Wrap.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	return names
}
