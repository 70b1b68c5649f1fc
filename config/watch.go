package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/kadirpekel/throttlefs/registry"
)

// Watcher re-applies a Policy file to a Registry whenever the file
// changes on disk. It does not persist the registry's state anywhere; it
// only re-runs the same Load+Apply a restart would do, triggered by an
// fsnotify event instead of a process start.
type Watcher struct {
	path    string
	reg     *registry.Registry
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	stopped chan struct{}
}

// Watch starts watching path for writes and re-applies it to reg on every
// change. Call Close to stop.
func Watch(path string, reg *registry.Registry, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, reg: reg, logger: logger, fsw: fsw, stopped: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		case <-w.stopped:
			return
		}
	}
}

func (w *Watcher) reload() {
	policy, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload: failed to load policy", "path", w.path, "error", err)
		return
	}
	if err := policy.Apply(w.reg); err != nil {
		w.logger.Error("config reload: failed to apply policy", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "quotas", len(policy.Quotas))
}

// Close stops the watcher and releases its underlying file descriptor.
func (w *Watcher) Close() error {
	close(w.stopped)
	return w.fsw.Close()
}
