// Package facade implements the interception façade: it
// wraps an inner file-system-like backend, classifies each call into an
// operation class and cost, consults the configuration registry, and
// applies blocking or fail-fast admission policy before delegating.
package facade

import (
	"context"
	"time"
)

// OpenFlags describes the requested access mode for OpenFile. Backends are
// free to ignore combinations they don't support and return an
// InnerFSError.
type OpenFlags struct {
	Read     bool
	Write    bool
	Create   bool
	Truncate bool
	Append   bool
}

// FileType is the closed set of entry kinds GetFileType can report.
type FileType int

const (
	Unknown FileType = iota
	Regular
	Directory
	Symlink
)

// Handle is the opaque per-open-file token an FS implementation hands back
// from OpenFile and expects on every subsequent handle-bearing call. The
// façade never inspects it; it only stores and forwards it.
type Handle any

// FS is the backend capability set the façade wraps. An
// implementation need not be safe for concurrent use on the same Handle
// unless it documents otherwise — the façade adds no synchronization of
// its own around handle state.
type FS interface {
	OpenFile(ctx context.Context, path string, flags OpenFlags) (Handle, error)

	Read(ctx context.Context, h Handle, buf []byte) (int, error)
	ReadAt(ctx context.Context, h Handle, buf []byte, offset int64) (int, error)
	Write(ctx context.Context, h Handle, p []byte) (int, error)
	WriteAt(ctx context.Context, h Handle, p []byte, offset int64) (int, error)

	GetFileSize(ctx context.Context, h Handle) (int64, error)
	GetLastModifiedTime(ctx context.Context, h Handle) (time.Time, error)
	GetFileType(ctx context.Context, h Handle) (FileType, error)
	Truncate(ctx context.Context, h Handle, size int64) error
	FileSync(ctx context.Context, h Handle) error
	FileExists(ctx context.Context, path string) (bool, error)
	IsPipe(ctx context.Context, h Handle) (bool, error)

	RemoveFile(ctx context.Context, path string) error
	TryRemoveFile(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
	CreateDirectory(ctx context.Context, path string) error
	RemoveDirectory(ctx context.Context, path string) error
	MoveFile(ctx context.Context, src, dst string) error

	Glob(ctx context.Context, pattern string) ([]string, error)
	ListFiles(ctx context.Context, dir string) ([]string, error)

	Seek(ctx context.Context, h Handle, offset int64) error
	Reset(ctx context.Context, h Handle) error
	SeekPosition(ctx context.Context, h Handle) (int64, error)
	CanSeek(ctx context.Context, h Handle) bool
	OnDiskFile(ctx context.Context, h Handle) bool

	GetName() string
	PathSeparator() string

	Close(ctx context.Context, h Handle) error
}
