package plugins

import (
	"context"
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/throttlefs/facade"
)

// memFS is a minimal in-memory facade.FS used to exercise the net/rpc
// bridge without spawning a real subprocess.
type memFS struct {
	data map[string][]byte
}

type memHandle struct{ path string }

func newMemFS() *memFS { return &memFS{data: make(map[string][]byte)} }

func (m *memFS) OpenFile(ctx context.Context, path string, flags facade.OpenFlags) (facade.Handle, error) {
	if flags.Create {
		if _, ok := m.data[path]; !ok {
			m.data[path] = nil
		}
	}
	return &memHandle{path: path}, nil
}
func (m *memFS) Read(ctx context.Context, h facade.Handle, buf []byte) (int, error) {
	d := m.data[h.(*memHandle).path]
	n := copy(buf, d)
	return n, nil
}
func (m *memFS) ReadAt(ctx context.Context, h facade.Handle, buf []byte, offset int64) (int, error) {
	d := m.data[h.(*memHandle).path]
	if offset >= int64(len(d)) {
		return 0, nil
	}
	return copy(buf, d[offset:]), nil
}
func (m *memFS) Write(ctx context.Context, h facade.Handle, p []byte) (int, error) {
	path := h.(*memHandle).path
	m.data[path] = append(m.data[path], p...)
	return len(p), nil
}
func (m *memFS) WriteAt(ctx context.Context, h facade.Handle, p []byte, offset int64) (int, error) {
	return m.Write(ctx, h, p)
}
func (m *memFS) GetFileSize(ctx context.Context, h facade.Handle) (int64, error) {
	return int64(len(m.data[h.(*memHandle).path])), nil
}
func (m *memFS) GetLastModifiedTime(ctx context.Context, h facade.Handle) (time.Time, error) {
	return time.Time{}, nil
}
func (m *memFS) GetFileType(ctx context.Context, h facade.Handle) (facade.FileType, error) {
	return facade.Regular, nil
}
func (m *memFS) Truncate(ctx context.Context, h facade.Handle, size int64) error { return nil }
func (m *memFS) FileSync(ctx context.Context, h facade.Handle) error            { return nil }
func (m *memFS) FileExists(ctx context.Context, path string) (bool, error) {
	_, ok := m.data[path]
	return ok, nil
}
func (m *memFS) IsPipe(ctx context.Context, h facade.Handle) (bool, error)    { return false, nil }
func (m *memFS) RemoveFile(ctx context.Context, path string) error            { delete(m.data, path); return nil }
func (m *memFS) TryRemoveFile(ctx context.Context, path string) (bool, error) { delete(m.data, path); return true, nil }
func (m *memFS) DirectoryExists(ctx context.Context, path string) (bool, error) { return false, nil }
func (m *memFS) CreateDirectory(ctx context.Context, path string) error         { return nil }
func (m *memFS) RemoveDirectory(ctx context.Context, path string) error         { return nil }
func (m *memFS) MoveFile(ctx context.Context, src, dst string) error {
	m.data[dst] = m.data[src]
	delete(m.data, src)
	return nil
}
func (m *memFS) Glob(ctx context.Context, pattern string) ([]string, error) { return nil, nil }
func (m *memFS) ListFiles(ctx context.Context, dir string) ([]string, error) {
	names := make([]string, 0, len(m.data))
	for k := range m.data {
		names = append(names, k)
	}
	return names, nil
}
func (m *memFS) Seek(ctx context.Context, h facade.Handle, offset int64) error   { return nil }
func (m *memFS) Reset(ctx context.Context, h facade.Handle) error                { return nil }
func (m *memFS) SeekPosition(ctx context.Context, h facade.Handle) (int64, error) { return 0, nil }
func (m *memFS) CanSeek(ctx context.Context, h facade.Handle) bool               { return false }
func (m *memFS) OnDiskFile(ctx context.Context, h facade.Handle) bool            { return false }
func (m *memFS) GetName() string                                                  { return "mem" }
func (m *memFS) PathSeparator() string                                           { return "/" }
func (m *memFS) Close(ctx context.Context, h facade.Handle) error                { return nil }

var _ facade.FS = (*memFS)(nil)

// serveOverLoopback wires an fsRPCServer to an fsRPCClient over a real
// TCP loopback connection, mimicking the net/rpc transport go-plugin
// sets up between host and plugin process without spawning one.
func serveOverLoopback(t *testing.T, impl facade.FS) *fsRPCClient {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { lis.Close() })

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", newFSRPCServer(impl)))
	go server.Accept(lis)

	conn, err := net.Dial("tcp", lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fsRPCClient{client: rpc.NewClient(conn)}
}

func TestFSRPC_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := serveOverLoopback(t, newMemFS())

	h, err := client.OpenFile(ctx, "/a.txt", facade.OpenFlags{Create: true, Write: true})
	require.NoError(t, err)

	n, err := client.Write(ctx, h, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = client.Read(ctx, h, buf)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestFSRPC_GetNameAndPathSeparator(t *testing.T) {
	client := serveOverLoopback(t, newMemFS())
	require.Equal(t, "mem", client.GetName())
	require.Equal(t, "/", client.PathSeparator())
}

func TestFSRPC_FileExists(t *testing.T) {
	ctx := context.Background()
	client := serveOverLoopback(t, newMemFS())

	ok, err := client.FileExists(ctx, "/missing")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = client.OpenFile(ctx, "/present", facade.OpenFlags{Create: true})
	require.NoError(t, err)

	ok, err = client.FileExists(ctx, "/present")
	require.NoError(t, err)
	require.True(t, ok)
}
