package facade_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kadirpekel/throttlefs/facade"
)

// fakeFS is a minimal in-memory backend satisfying facade.FS, used only to
// exercise the façade's dispatch and admission logic in tests. It is not
// a loopback onto the real local filesystem; this one never touches disk
// at all.
type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

type fakeHandle struct {
	path string
	pos  int64
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: make(map[string][]byte)}
}

func (f *fakeFS) OpenFile(ctx context.Context, path string, flags facade.OpenFlags) (facade.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		if !flags.Create {
			return nil, fmt.Errorf("fakefs: %s: not found", path)
		}
		f.files[path] = nil
	}
	return &fakeHandle{path: path}, nil
}

func (f *fakeFS) Read(ctx context.Context, h facade.Handle, buf []byte) (int, error) {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.files[fh.path]
	n := copy(buf, data[fh.pos:])
	fh.pos += int64(n)
	return n, nil
}

func (f *fakeFS) ReadAt(ctx context.Context, h facade.Handle, buf []byte, offset int64) (int, error) {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.files[fh.path]
	if offset >= int64(len(data)) {
		return 0, nil
	}
	return copy(buf, data[offset:]), nil
}

func (f *fakeFS) Write(ctx context.Context, h facade.Handle, p []byte) (int, error) {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[fh.path] = append(f.files[fh.path], p...)
	return len(p), nil
}

func (f *fakeFS) WriteAt(ctx context.Context, h facade.Handle, p []byte, offset int64) (int, error) {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.files[fh.path]
	need := offset + int64(len(p))
	if int64(len(data)) < need {
		grown := make([]byte, need)
		copy(grown, data)
		data = grown
	}
	copy(data[offset:], p)
	f.files[fh.path] = data
	return len(p), nil
}

func (f *fakeFS) GetFileSize(ctx context.Context, h facade.Handle) (int64, error) {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.files[fh.path])), nil
}

func (f *fakeFS) GetLastModifiedTime(ctx context.Context, h facade.Handle) (time.Time, error) {
	return time.Time{}, nil
}

func (f *fakeFS) GetFileType(ctx context.Context, h facade.Handle) (facade.FileType, error) {
	return facade.Regular, nil
}

func (f *fakeFS) Truncate(ctx context.Context, h facade.Handle, size int64) error {
	fh := h.(*fakeHandle)
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.files[fh.path]
	if int64(len(data)) > size {
		f.files[fh.path] = data[:size]
	}
	return nil
}

func (f *fakeFS) FileSync(ctx context.Context, h facade.Handle) error { return nil }

func (f *fakeFS) FileExists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	return ok, nil
}

func (f *fakeFS) IsPipe(ctx context.Context, h facade.Handle) (bool, error) { return false, nil }

func (f *fakeFS) RemoveFile(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

func (f *fakeFS) TryRemoveFile(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[path]
	delete(f.files, path)
	return ok, nil
}

func (f *fakeFS) DirectoryExists(ctx context.Context, path string) (bool, error) { return true, nil }
func (f *fakeFS) CreateDirectory(ctx context.Context, path string) error         { return nil }
func (f *fakeFS) RemoveDirectory(ctx context.Context, path string) error         { return nil }

func (f *fakeFS) MoveFile(ctx context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[dst] = f.files[src]
	delete(f.files, src)
	return nil
}

func (f *fakeFS) Glob(ctx context.Context, pattern string) ([]string, error) {
	return f.ListFiles(ctx, "")
}

func (f *fakeFS) ListFiles(ctx context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeFS) Seek(ctx context.Context, h facade.Handle, offset int64) error {
	h.(*fakeHandle).pos = offset
	return nil
}

func (f *fakeFS) Reset(ctx context.Context, h facade.Handle) error {
	h.(*fakeHandle).pos = 0
	return nil
}

func (f *fakeFS) SeekPosition(ctx context.Context, h facade.Handle) (int64, error) {
	return h.(*fakeHandle).pos, nil
}

func (f *fakeFS) CanSeek(ctx context.Context, h facade.Handle) bool    { return true }
func (f *fakeFS) OnDiskFile(ctx context.Context, h facade.Handle) bool { return false }
func (f *fakeFS) GetName() string        { return "fake" }
func (f *fakeFS) PathSeparator() string   { return "/" }

func (f *fakeFS) Close(ctx context.Context, h facade.Handle) error { return nil }

var _ facade.FS = (*fakeFS)(nil)
