package plugins

import (
	"context"
	"fmt"
	"net/rpc"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/throttlefs/facade"
)

// net/rpc requires one concrete Args/Reply pair per exported method. A
// facade.FS has 28 methods; rather than hand-writing 28 RPC method
// signatures, both sides share one envelope keyed by op name. This is
// still genuine net/rpc (registered by hashicorp/go-plugin under the
// fixed "Plugin" service name, dispatched with gob encoding) — just with
// a single Call method instead of one per FS operation. CallArgs and
// CallReply are exported because net/rpc only registers methods whose
// argument and reply types are exported; callArgs and callReply are
// in-package aliases for them.
type CallArgs struct {
	Op      string
	Path    string
	Path2   string
	Handle  string
	Buf     []byte
	Offset  int64
	Size    int64
	Flags   facade.OpenFlags
	Pattern string
	Dir     string
}

type callArgs = CallArgs

type CallReply struct {
	Handle   string
	N        int
	Data     []byte
	Int64    int64
	Bool     bool
	Time     time.Time
	FileType int
	Strings  []string
	Str      string
}

type callReply = CallReply

// fsRPCServer runs inside the plugin process. It holds the real
// facade.FS and maps opaque handle IDs (uuids, since facade.Handle is
// not itself gob-encodable) to the underlying handles OpenFile returns.
type fsRPCServer struct {
	impl facade.FS

	mu      sync.Mutex
	handles map[string]facade.Handle
}

func newFSRPCServer(impl facade.FS) *fsRPCServer {
	return &fsRPCServer{impl: impl, handles: make(map[string]facade.Handle)}
}

func (s *fsRPCServer) handleFor(id string) facade.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[id]
}

func (s *fsRPCServer) putHandle(h facade.Handle) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.handles[id] = h
	s.mu.Unlock()
	return id
}

func (s *fsRPCServer) dropHandle(id string) {
	s.mu.Lock()
	delete(s.handles, id)
	s.mu.Unlock()
}

// Call is the single net/rpc entry point; hashicorp/go-plugin registers
// this object as "Plugin", so the client dials "Plugin.Call".
func (s *fsRPCServer) Call(args *callArgs, reply *callReply) error {
	ctx := context.Background()

	switch args.Op {
	case "OpenFile":
		h, err := s.impl.OpenFile(ctx, args.Path, args.Flags)
		if err != nil {
			return err
		}
		reply.Handle = s.putHandle(h)
		return nil
	case "Read":
		buf := make([]byte, args.Size)
		n, err := s.impl.Read(ctx, s.handleFor(args.Handle), buf)
		reply.N, reply.Data = n, buf[:n]
		return err
	case "ReadAt":
		buf := make([]byte, args.Size)
		n, err := s.impl.ReadAt(ctx, s.handleFor(args.Handle), buf, args.Offset)
		reply.N, reply.Data = n, buf[:n]
		return err
	case "Write":
		n, err := s.impl.Write(ctx, s.handleFor(args.Handle), args.Buf)
		reply.N = n
		return err
	case "WriteAt":
		n, err := s.impl.WriteAt(ctx, s.handleFor(args.Handle), args.Buf, args.Offset)
		reply.N = n
		return err
	case "GetFileSize":
		n, err := s.impl.GetFileSize(ctx, s.handleFor(args.Handle))
		reply.Int64 = n
		return err
	case "GetLastModifiedTime":
		t, err := s.impl.GetLastModifiedTime(ctx, s.handleFor(args.Handle))
		reply.Time = t
		return err
	case "GetFileType":
		t, err := s.impl.GetFileType(ctx, s.handleFor(args.Handle))
		reply.FileType = int(t)
		return err
	case "Truncate":
		return s.impl.Truncate(ctx, s.handleFor(args.Handle), args.Size)
	case "FileSync":
		return s.impl.FileSync(ctx, s.handleFor(args.Handle))
	case "FileExists":
		ok, err := s.impl.FileExists(ctx, args.Path)
		reply.Bool = ok
		return err
	case "IsPipe":
		ok, err := s.impl.IsPipe(ctx, s.handleFor(args.Handle))
		reply.Bool = ok
		return err
	case "RemoveFile":
		return s.impl.RemoveFile(ctx, args.Path)
	case "TryRemoveFile":
		ok, err := s.impl.TryRemoveFile(ctx, args.Path)
		reply.Bool = ok
		return err
	case "DirectoryExists":
		ok, err := s.impl.DirectoryExists(ctx, args.Path)
		reply.Bool = ok
		return err
	case "CreateDirectory":
		return s.impl.CreateDirectory(ctx, args.Path)
	case "RemoveDirectory":
		return s.impl.RemoveDirectory(ctx, args.Path)
	case "MoveFile":
		return s.impl.MoveFile(ctx, args.Path, args.Path2)
	case "Glob":
		matches, err := s.impl.Glob(ctx, args.Pattern)
		reply.Strings = matches
		return err
	case "ListFiles":
		files, err := s.impl.ListFiles(ctx, args.Dir)
		reply.Strings = files
		return err
	case "Seek":
		return s.impl.Seek(ctx, s.handleFor(args.Handle), args.Offset)
	case "Reset":
		return s.impl.Reset(ctx, s.handleFor(args.Handle))
	case "SeekPosition":
		pos, err := s.impl.SeekPosition(ctx, s.handleFor(args.Handle))
		reply.Int64 = pos
		return err
	case "CanSeek":
		reply.Bool = s.impl.CanSeek(ctx, s.handleFor(args.Handle))
		return nil
	case "OnDiskFile":
		reply.Bool = s.impl.OnDiskFile(ctx, s.handleFor(args.Handle))
		return nil
	case "GetName":
		reply.Str = s.impl.GetName()
		return nil
	case "PathSeparator":
		reply.Str = s.impl.PathSeparator()
		return nil
	case "Close":
		err := s.impl.Close(ctx, s.handleFor(args.Handle))
		s.dropHandle(args.Handle)
		return err
	default:
		return &Error{Name: s.impl.GetName(), Op: args.Op, Err: fmt.Errorf("unknown rpc op")}
	}
}

// fsRPCClient runs in the host process; it implements facade.FS by
// making one net/rpc round trip per call.
type fsRPCClient struct {
	client *rpc.Client
}

func (c *fsRPCClient) call(op string, args *callArgs) (*callReply, error) {
	args.Op = op
	var reply callReply
	if err := c.client.Call("Plugin.Call", args, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *fsRPCClient) OpenFile(_ context.Context, path string, flags facade.OpenFlags) (facade.Handle, error) {
	r, err := c.call("OpenFile", &callArgs{Path: path, Flags: flags})
	if err != nil {
		return nil, err
	}
	return r.Handle, nil
}

func (c *fsRPCClient) Read(_ context.Context, h facade.Handle, buf []byte) (int, error) {
	r, err := c.call("Read", &callArgs{Handle: h.(string), Size: int64(len(buf))})
	if r != nil {
		copy(buf, r.Data)
	}
	if err != nil {
		return 0, err
	}
	return r.N, nil
}

func (c *fsRPCClient) ReadAt(_ context.Context, h facade.Handle, buf []byte, offset int64) (int, error) {
	r, err := c.call("ReadAt", &callArgs{Handle: h.(string), Size: int64(len(buf)), Offset: offset})
	if r != nil {
		copy(buf, r.Data)
	}
	if err != nil {
		return 0, err
	}
	return r.N, nil
}

func (c *fsRPCClient) Write(_ context.Context, h facade.Handle, p []byte) (int, error) {
	r, err := c.call("Write", &callArgs{Handle: h.(string), Buf: p})
	if err != nil {
		return 0, err
	}
	return r.N, nil
}

func (c *fsRPCClient) WriteAt(_ context.Context, h facade.Handle, p []byte, offset int64) (int, error) {
	r, err := c.call("WriteAt", &callArgs{Handle: h.(string), Buf: p, Offset: offset})
	if err != nil {
		return 0, err
	}
	return r.N, nil
}

func (c *fsRPCClient) GetFileSize(_ context.Context, h facade.Handle) (int64, error) {
	r, err := c.call("GetFileSize", &callArgs{Handle: h.(string)})
	if err != nil {
		return 0, err
	}
	return r.Int64, nil
}

func (c *fsRPCClient) GetLastModifiedTime(_ context.Context, h facade.Handle) (time.Time, error) {
	r, err := c.call("GetLastModifiedTime", &callArgs{Handle: h.(string)})
	if err != nil {
		return time.Time{}, err
	}
	return r.Time, nil
}

func (c *fsRPCClient) GetFileType(_ context.Context, h facade.Handle) (facade.FileType, error) {
	r, err := c.call("GetFileType", &callArgs{Handle: h.(string)})
	if err != nil {
		return facade.Unknown, err
	}
	return facade.FileType(r.FileType), nil
}

func (c *fsRPCClient) Truncate(_ context.Context, h facade.Handle, size int64) error {
	_, err := c.call("Truncate", &callArgs{Handle: h.(string), Size: size})
	return err
}

func (c *fsRPCClient) FileSync(_ context.Context, h facade.Handle) error {
	_, err := c.call("FileSync", &callArgs{Handle: h.(string)})
	return err
}

func (c *fsRPCClient) FileExists(_ context.Context, path string) (bool, error) {
	r, err := c.call("FileExists", &callArgs{Path: path})
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func (c *fsRPCClient) IsPipe(_ context.Context, h facade.Handle) (bool, error) {
	r, err := c.call("IsPipe", &callArgs{Handle: h.(string)})
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func (c *fsRPCClient) RemoveFile(_ context.Context, path string) error {
	_, err := c.call("RemoveFile", &callArgs{Path: path})
	return err
}

func (c *fsRPCClient) TryRemoveFile(_ context.Context, path string) (bool, error) {
	r, err := c.call("TryRemoveFile", &callArgs{Path: path})
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func (c *fsRPCClient) DirectoryExists(_ context.Context, path string) (bool, error) {
	r, err := c.call("DirectoryExists", &callArgs{Path: path})
	if err != nil {
		return false, err
	}
	return r.Bool, nil
}

func (c *fsRPCClient) CreateDirectory(_ context.Context, path string) error {
	_, err := c.call("CreateDirectory", &callArgs{Path: path})
	return err
}

func (c *fsRPCClient) RemoveDirectory(_ context.Context, path string) error {
	_, err := c.call("RemoveDirectory", &callArgs{Path: path})
	return err
}

func (c *fsRPCClient) MoveFile(_ context.Context, src, dst string) error {
	_, err := c.call("MoveFile", &callArgs{Path: src, Path2: dst})
	return err
}

func (c *fsRPCClient) Glob(_ context.Context, pattern string) ([]string, error) {
	r, err := c.call("Glob", &callArgs{Pattern: pattern})
	if err != nil {
		return nil, err
	}
	return r.Strings, nil
}

func (c *fsRPCClient) ListFiles(_ context.Context, dir string) ([]string, error) {
	r, err := c.call("ListFiles", &callArgs{Dir: dir})
	if err != nil {
		return nil, err
	}
	return r.Strings, nil
}

func (c *fsRPCClient) Seek(_ context.Context, h facade.Handle, offset int64) error {
	_, err := c.call("Seek", &callArgs{Handle: h.(string), Offset: offset})
	return err
}

func (c *fsRPCClient) Reset(_ context.Context, h facade.Handle) error {
	_, err := c.call("Reset", &callArgs{Handle: h.(string)})
	return err
}

func (c *fsRPCClient) SeekPosition(_ context.Context, h facade.Handle) (int64, error) {
	r, err := c.call("SeekPosition", &callArgs{Handle: h.(string)})
	if err != nil {
		return 0, err
	}
	return r.Int64, nil
}

func (c *fsRPCClient) CanSeek(_ context.Context, h facade.Handle) bool {
	r, err := c.call("CanSeek", &callArgs{Handle: h.(string)})
	return err == nil && r.Bool
}

func (c *fsRPCClient) OnDiskFile(_ context.Context, h facade.Handle) bool {
	r, err := c.call("OnDiskFile", &callArgs{Handle: h.(string)})
	return err == nil && r.Bool
}

func (c *fsRPCClient) GetName() string {
	r, err := c.call("GetName", &callArgs{})
	if err != nil {
		return "RPCPlugin(unknown)"
	}
	return r.Str
}

func (c *fsRPCClient) PathSeparator() string {
	r, err := c.call("PathSeparator", &callArgs{})
	if err != nil {
		return "/"
	}
	return r.Str
}

func (c *fsRPCClient) Close(_ context.Context, h facade.Handle) error {
	_, err := c.call("Close", &callArgs{Handle: h.(string)})
	return err
}

var _ facade.FS = (*fsRPCClient)(nil)
