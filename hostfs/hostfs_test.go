package hostfs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/throttlefs/facade"
	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/registry"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

type stubFS struct{ name string }

func (s *stubFS) OpenFile(ctx context.Context, path string, flags facade.OpenFlags) (facade.Handle, error) {
	return nil, nil
}
func (s *stubFS) Read(ctx context.Context, h facade.Handle, buf []byte) (int, error) { return 0, nil }
func (s *stubFS) ReadAt(ctx context.Context, h facade.Handle, buf []byte, offset int64) (int, error) {
	return 0, nil
}
func (s *stubFS) Write(ctx context.Context, h facade.Handle, p []byte) (int, error) { return 0, nil }
func (s *stubFS) WriteAt(ctx context.Context, h facade.Handle, p []byte, offset int64) (int, error) {
	return 0, nil
}
func (s *stubFS) GetFileSize(ctx context.Context, h facade.Handle) (int64, error) { return 0, nil }
func (s *stubFS) GetLastModifiedTime(ctx context.Context, h facade.Handle) (time.Time, error) {
	return time.Time{}, nil
}
func (s *stubFS) GetFileType(ctx context.Context, h facade.Handle) (facade.FileType, error) {
	return facade.Regular, nil
}
func (s *stubFS) Truncate(ctx context.Context, h facade.Handle, size int64) error { return nil }
func (s *stubFS) FileSync(ctx context.Context, h facade.Handle) error             { return nil }
func (s *stubFS) FileExists(ctx context.Context, path string) (bool, error)       { return false, nil }
func (s *stubFS) IsPipe(ctx context.Context, h facade.Handle) (bool, error)       { return false, nil }
func (s *stubFS) RemoveFile(ctx context.Context, path string) error               { return nil }
func (s *stubFS) TryRemoveFile(ctx context.Context, path string) (bool, error)    { return false, nil }
func (s *stubFS) DirectoryExists(ctx context.Context, path string) (bool, error)  { return false, nil }
func (s *stubFS) CreateDirectory(ctx context.Context, path string) error          { return nil }
func (s *stubFS) RemoveDirectory(ctx context.Context, path string) error          { return nil }
func (s *stubFS) MoveFile(ctx context.Context, src, dst string) error             { return nil }
func (s *stubFS) Glob(ctx context.Context, pattern string) ([]string, error)      { return nil, nil }
func (s *stubFS) ListFiles(ctx context.Context, dir string) ([]string, error)     { return nil, nil }
func (s *stubFS) Seek(ctx context.Context, h facade.Handle, offset int64) error   { return nil }
func (s *stubFS) Reset(ctx context.Context, h facade.Handle) error                { return nil }
func (s *stubFS) SeekPosition(ctx context.Context, h facade.Handle) (int64, error) {
	return 0, nil
}
func (s *stubFS) CanSeek(ctx context.Context, h facade.Handle) bool    { return false }
func (s *stubFS) OnDiskFile(ctx context.Context, h facade.Handle) bool { return false }
func (s *stubFS) GetName() string                                      { return s.name }
func (s *stubFS) PathSeparator() string                                { return "/" }
func (s *stubFS) Close(ctx context.Context, h facade.Handle) error     { return nil }

var _ facade.FS = (*stubFS)(nil)

func TestWrap_UnknownBackendIsInvalidConfig(t *testing.T) {
	h := hostfs.New(registry.New())
	_, err := h.Wrap("nope")
	if !rlerrors.IsInvalidConfig(err) {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

func TestWrap_DerivesName(t *testing.T) {
	h := hostfs.New(registry.New())
	h.Register("s3", &stubFS{name: "s3"})

	fx, err := h.Wrap("s3")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := fx.GetName(), "RateLimited(s3)"; got != want {
		t.Fatalf("GetName() = %q, want %q", got, want)
	}
}

func TestWrap_ConcurrentCallsReturnSameFacade(t *testing.T) {
	h := hostfs.New(registry.New())
	h.Register("s3", &stubFS{name: "s3"})

	var wg sync.WaitGroup
	results := make([]*facade.Facade, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fx, err := h.Wrap("s3")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = fx
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("expected every concurrent Wrap call to return the same façade instance")
		}
	}
}
