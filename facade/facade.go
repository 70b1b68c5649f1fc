package facade

import (
	"context"
	"time"

	"github.com/kadirpekel/throttlefs/audit"
	"github.com/kadirpekel/throttlefs/gcra"
	"github.com/kadirpekel/throttlefs/mode"
	"github.com/kadirpekel/throttlefs/observability"
	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/registry"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

// Facade wraps an inner FS behind rate-limit admission. It implements FS
// itself, so a Facade can be handed anywhere the inner backend was —
// one level of wrapping, never a chain of façades.
type Facade struct {
	inner       FS
	registry    *registry.Registry
	backendName string
	obs         *observability.Manager
	audit       audit.Store
}

// Wrap constructs a Facade over inner, admitting calls against reg's
// entries for backendName. backendName is the key under which quotas for
// this backend are configured. The façade starts
// with a no-op observability manager and no audit trail; use
// WithObservability and WithAudit to attach real ones.
func Wrap(inner FS, reg *registry.Registry, backendName string) *Facade {
	return &Facade{inner: inner, registry: reg, backendName: backendName, obs: observability.NoopManager()}
}

// WithObservability attaches a metrics/tracing manager, replacing the
// default no-op one. Returns f for chaining.
func (f *Facade) WithObservability(obs *observability.Manager) *Facade {
	f.obs = obs
	return f
}

// WithAudit attaches a store that records RateLimited/ExceedsBurst
// decisions. Nil (the default) disables auditing entirely.
func (f *Facade) WithAudit(store audit.Store) *Facade {
	f.audit = store
	return f
}

// BackendName returns the name this façade's calls are billed against.
func (f *Facade) BackendName() string { return f.backendName }

// Inner returns the wrapped backend, for callers that need to reach past
// the façade (e.g. introspection tooling).
func (f *Facade) Inner() FS { return f.inner }

// admit runs the GCRA admission check for one call of the given class
// and cost. A nil return means: proceed to the inner call.
func (f *Facade) admit(ctx context.Context, op opclass.Class, cost int64) error {
	ctx, span := f.obs.StartSpan(ctx, "throttlefs.facade."+op.String())
	defer span.End()

	limiter, m, ok := f.registry.Limiter(f.backendName, op)
	if !ok {
		f.obs.RecordAdmission(ctx, f.backendName, op.String(), "admitted")
		return nil
	}

	decision := limiter.TryAcquireImmediate(uint64(cost))
	switch decision.Outcome {
	case gcra.Admitted:
		f.obs.RecordAdmission(ctx, f.backendName, op.String(), "admitted")
		return nil

	case gcra.Exceeds:
		f.obs.RecordAdmission(ctx, f.backendName, op.String(), "exceeds_burst")
		f.recordAudit(ctx, op, cost, audit.ExceedsBurst, 0)
		return &rlerrors.ExceedsBurstError{
			Backend: f.backendName,
			Op:      op.String(),
			Cost:    cost,
			Burst:   limiter.Quota().Burst(),
		}

	case gcra.Wait:
		if m == mode.NonBlocking {
			f.obs.RecordAdmission(ctx, f.backendName, op.String(), "rate_limited")
			f.recordAudit(ctx, op, cost, audit.RateLimited, decision.WaitFor)
			return &rlerrors.RateLimitedError{
				Backend: f.backendName,
				Op:      op.String(),
				Wait:    decision.WaitFor,
			}
		}
		f.obs.RecordWait(ctx, f.backendName, op.String(), decision.WaitFor.Seconds())
		switch limiter.AcquireBlocking(uint64(cost)) {
		case gcra.AcquireAdmitted:
			f.obs.RecordAdmission(ctx, f.backendName, op.String(), "admitted")
			return nil
		default: // AcquireExceeds
			f.obs.RecordAdmission(ctx, f.backendName, op.String(), "exceeds_burst")
			f.recordAudit(ctx, op, cost, audit.ExceedsBurst, 0)
			return &rlerrors.ExceedsBurstError{
				Backend: f.backendName,
				Op:      op.String(),
				Cost:    cost,
				Burst:   limiter.Quota().Burst(),
			}
		}

	default:
		return &rlerrors.InternalError{Message: "admit: unknown outcome"}
	}
}

// recordAudit appends a rejection event when an audit.Store is attached.
// Admitted decisions are never recorded — an audit log of every admitted
// call would defeat the point of a low-noise rejection trail.
func (f *Facade) recordAudit(ctx context.Context, op opclass.Class, cost int64, outcome audit.Outcome, wait time.Duration) {
	if f.audit == nil {
		return
	}
	_ = f.audit.Record(ctx, audit.Record{
		Time:    time.Now(),
		Backend: f.backendName,
		Op:      op.String(),
		Cost:    cost,
		Outcome: outcome,
		Wait:    wait,
	})
}

// handle wraps an inner Handle so Close can be made idempotent and so
// handle-bearing calls always know which façade (and therefore which
// backend name) to bill against. It carries only a non-owning reference
// back to the façade, so a handle never keeps its façade alive on its own.
type handle struct {
	inner  Handle
	facade *Facade
	closed bool
}

func (f *Facade) wrap(inner Handle) Handle {
	return &handle{inner: inner, facade: f}
}

func unwrap(h Handle) (*handle, error) {
	w, ok := h.(*handle)
	if !ok || w == nil {
		return nil, &rlerrors.InternalError{Message: "facade: handle was not issued by this façade"}
	}
	return w, nil
}

func (f *Facade) OpenFile(ctx context.Context, path string, flags OpenFlags) (Handle, error) {
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return nil, err
	}
	inner, err := f.inner.OpenFile(ctx, path, flags)
	if err != nil {
		return nil, &rlerrors.InnerFSError{Op: "open-file", Err: err}
	}
	return f.wrap(inner), nil
}

func (f *Facade) Read(ctx context.Context, h Handle, buf []byte) (int, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	if err := f.admit(ctx, opclass.Read, int64(len(buf))); err != nil {
		return 0, err
	}
	n, err := f.inner.Read(ctx, w.inner, buf)
	if err != nil {
		return n, &rlerrors.InnerFSError{Op: "read", Err: err}
	}
	return n, nil
}

func (f *Facade) ReadAt(ctx context.Context, h Handle, buf []byte, offset int64) (int, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	if err := f.admit(ctx, opclass.Read, int64(len(buf))); err != nil {
		return 0, err
	}
	n, err := f.inner.ReadAt(ctx, w.inner, buf, offset)
	if err != nil {
		return n, &rlerrors.InnerFSError{Op: "read_at", Err: err}
	}
	return n, nil
}

func (f *Facade) Write(ctx context.Context, h Handle, p []byte) (int, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	if err := f.admit(ctx, opclass.Write, int64(len(p))); err != nil {
		return 0, err
	}
	n, err := f.inner.Write(ctx, w.inner, p)
	if err != nil {
		return n, &rlerrors.InnerFSError{Op: "write", Err: err}
	}
	return n, nil
}

func (f *Facade) WriteAt(ctx context.Context, h Handle, p []byte, offset int64) (int, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	if err := f.admit(ctx, opclass.Write, int64(len(p))); err != nil {
		return 0, err
	}
	n, err := f.inner.WriteAt(ctx, w.inner, p, offset)
	if err != nil {
		return n, &rlerrors.InnerFSError{Op: "write_at", Err: err}
	}
	return n, nil
}

func (f *Facade) GetFileSize(ctx context.Context, h Handle) (int64, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return 0, err
	}
	n, err := f.inner.GetFileSize(ctx, w.inner)
	if err != nil {
		return 0, &rlerrors.InnerFSError{Op: "get_file_size", Err: err}
	}
	return n, nil
}

func (f *Facade) GetLastModifiedTime(ctx context.Context, h Handle) (time.Time, error) {
	w, err := unwrap(h)
	if err != nil {
		return time.Time{}, err
	}
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return time.Time{}, err
	}
	t, err := f.inner.GetLastModifiedTime(ctx, w.inner)
	if err != nil {
		return time.Time{}, &rlerrors.InnerFSError{Op: "get_last_modified_time", Err: err}
	}
	return t, nil
}

func (f *Facade) GetFileType(ctx context.Context, h Handle) (FileType, error) {
	w, err := unwrap(h)
	if err != nil {
		return Unknown, err
	}
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return Unknown, err
	}
	ft, err := f.inner.GetFileType(ctx, w.inner)
	if err != nil {
		return Unknown, &rlerrors.InnerFSError{Op: "get_file_type", Err: err}
	}
	return ft, nil
}

func (f *Facade) Truncate(ctx context.Context, h Handle, size int64) error {
	w, err := unwrap(h)
	if err != nil {
		return err
	}
	if err := f.admit(ctx, opclass.Write, 1); err != nil {
		return err
	}
	if err := f.inner.Truncate(ctx, w.inner, size); err != nil {
		return &rlerrors.InnerFSError{Op: "truncate", Err: err}
	}
	return nil
}

// FileSync is not rate-limited; it forwards straight through.
func (f *Facade) FileSync(ctx context.Context, h Handle) error {
	w, err := unwrap(h)
	if err != nil {
		return err
	}
	if err := f.inner.FileSync(ctx, w.inner); err != nil {
		return &rlerrors.InnerFSError{Op: "file_sync", Err: err}
	}
	return nil
}

func (f *Facade) FileExists(ctx context.Context, path string) (bool, error) {
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return false, err
	}
	ok, err := f.inner.FileExists(ctx, path)
	if err != nil {
		return false, &rlerrors.InnerFSError{Op: "file_exists", Err: err}
	}
	return ok, nil
}

func (f *Facade) IsPipe(ctx context.Context, h Handle) (bool, error) {
	w, err := unwrap(h)
	if err != nil {
		return false, err
	}
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return false, err
	}
	ok, err := f.inner.IsPipe(ctx, w.inner)
	if err != nil {
		return false, &rlerrors.InnerFSError{Op: "is_pipe", Err: err}
	}
	return ok, nil
}

func (f *Facade) RemoveFile(ctx context.Context, path string) error {
	if err := f.admit(ctx, opclass.Delete, 1); err != nil {
		return err
	}
	if err := f.inner.RemoveFile(ctx, path); err != nil {
		return &rlerrors.InnerFSError{Op: "remove_file", Err: err}
	}
	return nil
}

func (f *Facade) TryRemoveFile(ctx context.Context, path string) (bool, error) {
	if err := f.admit(ctx, opclass.Delete, 1); err != nil {
		return false, err
	}
	ok, err := f.inner.TryRemoveFile(ctx, path)
	if err != nil {
		return false, &rlerrors.InnerFSError{Op: "try_remove_file", Err: err}
	}
	return ok, nil
}

func (f *Facade) DirectoryExists(ctx context.Context, path string) (bool, error) {
	if err := f.admit(ctx, opclass.Stat, 1); err != nil {
		return false, err
	}
	ok, err := f.inner.DirectoryExists(ctx, path)
	if err != nil {
		return false, &rlerrors.InnerFSError{Op: "directory_exists", Err: err}
	}
	return ok, nil
}

func (f *Facade) CreateDirectory(ctx context.Context, path string) error {
	if err := f.admit(ctx, opclass.Write, 1); err != nil {
		return err
	}
	if err := f.inner.CreateDirectory(ctx, path); err != nil {
		return &rlerrors.InnerFSError{Op: "create_directory", Err: err}
	}
	return nil
}

func (f *Facade) RemoveDirectory(ctx context.Context, path string) error {
	if err := f.admit(ctx, opclass.Delete, 1); err != nil {
		return err
	}
	if err := f.inner.RemoveDirectory(ctx, path); err != nil {
		return &rlerrors.InnerFSError{Op: "remove_directory", Err: err}
	}
	return nil
}

func (f *Facade) MoveFile(ctx context.Context, src, dst string) error {
	if err := f.admit(ctx, opclass.Write, 1); err != nil {
		return err
	}
	if err := f.inner.MoveFile(ctx, src, dst); err != nil {
		return &rlerrors.InnerFSError{Op: "move_file", Err: err}
	}
	return nil
}

func (f *Facade) Glob(ctx context.Context, pattern string) ([]string, error) {
	if err := f.admit(ctx, opclass.List, 1); err != nil {
		return nil, err
	}
	matches, err := f.inner.Glob(ctx, pattern)
	if err != nil {
		return nil, &rlerrors.InnerFSError{Op: "glob", Err: err}
	}
	return matches, nil
}

func (f *Facade) ListFiles(ctx context.Context, dir string) ([]string, error) {
	if err := f.admit(ctx, opclass.List, 1); err != nil {
		return nil, err
	}
	names, err := f.inner.ListFiles(ctx, dir)
	if err != nil {
		return nil, &rlerrors.InnerFSError{Op: "list_files", Err: err}
	}
	return names, nil
}

// The remaining handle operations are not rate-limited at all: they
// forward straight through after unwrapping.

func (f *Facade) Seek(ctx context.Context, h Handle, offset int64) error {
	w, err := unwrap(h)
	if err != nil {
		return err
	}
	if err := f.inner.Seek(ctx, w.inner, offset); err != nil {
		return &rlerrors.InnerFSError{Op: "seek", Err: err}
	}
	return nil
}

func (f *Facade) Reset(ctx context.Context, h Handle) error {
	w, err := unwrap(h)
	if err != nil {
		return err
	}
	if err := f.inner.Reset(ctx, w.inner); err != nil {
		return &rlerrors.InnerFSError{Op: "reset", Err: err}
	}
	return nil
}

func (f *Facade) SeekPosition(ctx context.Context, h Handle) (int64, error) {
	w, err := unwrap(h)
	if err != nil {
		return 0, err
	}
	n, err := f.inner.SeekPosition(ctx, w.inner)
	if err != nil {
		return 0, &rlerrors.InnerFSError{Op: "seek_position", Err: err}
	}
	return n, nil
}

func (f *Facade) CanSeek(ctx context.Context, h Handle) bool {
	w, err := unwrap(h)
	if err != nil {
		return false
	}
	return f.inner.CanSeek(ctx, w.inner)
}

func (f *Facade) OnDiskFile(ctx context.Context, h Handle) bool {
	w, err := unwrap(h)
	if err != nil {
		return false
	}
	return f.inner.OnDiskFile(ctx, w.inner)
}

// GetName returns the derived façade name, "RateLimited(<original_name>)",
// not the inner backend's own name.
func (f *Facade) GetName() string {
	return "RateLimited(" + f.inner.GetName() + ")"
}

func (f *Facade) PathSeparator() string {
	return f.inner.PathSeparator()
}

// Close forwards to the inner close exactly once; a second Close on the
// same handle is a no-op.
func (f *Facade) Close(ctx context.Context, h Handle) error {
	w, err := unwrap(h)
	if err != nil {
		return err
	}
	if w.closed {
		return nil
	}
	w.closed = true
	if err := f.inner.Close(ctx, w.inner); err != nil {
		return &rlerrors.InnerFSError{Op: "close", Err: err}
	}
	return nil
}

var _ FS = (*Facade)(nil)
