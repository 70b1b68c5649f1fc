package admin

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/mode"
	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/registry"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// SetQuotaRequest/Response and the other message types below are the
// gRPC wire messages for the admin service, marshaled with jsonCodec
// instead of protoc-generated types.
type SetQuotaRequest struct {
	Backend string  `json:"backend"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate"`
	Mode    string  `json:"mode"`
}

type SetBurstRequest struct {
	Backend string `json:"backend"`
	Op      string `json:"op"`
	Burst   int64  `json:"burst"`
}

type ClearRequest struct {
	Backend string `json:"backend"`
	Op      string `json:"op"`
}

type WrapRequest struct {
	BackendName string `json:"backend_name"`
}

type WrapResponse struct {
	Name string `json:"name"`
}

type EnumerateRequest struct{}

type QuotaEntry struct {
	Backend string  `json:"backend"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate"`
	Burst   int64   `json:"burst"`
	Mode    string  `json:"mode"`
}

type EnumerateResponse struct {
	Entries []QuotaEntry `json:"entries"`
}

type Empty struct{}

// GRPCService implements the admin RPCs directly against a Registry and
// Host, without a generated *_grpc.pb.go server interface.
type GRPCService struct {
	reg    *registry.Registry
	host   *hostfs.Host
	logger *slog.Logger
}

func NewGRPCService(reg *registry.Registry, host *hostfs.Host, logger *slog.Logger) *GRPCService {
	return &GRPCService{reg: reg, host: host, logger: logger}
}

func (s *GRPCService) SetQuota(ctx context.Context, req *SetQuotaRequest) (*Empty, error) {
	op, err := opclass.ParseClass(req.Op)
	if err != nil {
		return nil, toGRPCError(rlerrors.NewInvalidConfig("op", err.Error()))
	}
	m, err := mode.Parse(req.Mode)
	if err != nil {
		return nil, toGRPCError(rlerrors.NewInvalidConfig("mode", err.Error()))
	}
	if err := s.reg.SetRate(req.Backend, op, req.Rate, m); err != nil {
		return nil, toGRPCError(err)
	}
	return &Empty{}, nil
}

func (s *GRPCService) SetBurst(ctx context.Context, req *SetBurstRequest) (*Empty, error) {
	op, err := opclass.ParseClass(req.Op)
	if err != nil {
		return nil, toGRPCError(rlerrors.NewInvalidConfig("op", err.Error()))
	}
	if err := s.reg.SetBurst(req.Backend, op, req.Burst); err != nil {
		return nil, toGRPCError(err)
	}
	return &Empty{}, nil
}

func (s *GRPCService) Clear(ctx context.Context, req *ClearRequest) (*Empty, error) {
	switch {
	case req.Backend == "*":
		s.reg.ClearAll()
	case req.Op == "*" || req.Op == "":
		s.reg.ClearBackend(req.Backend)
	default:
		op, err := opclass.ParseClass(req.Op)
		if err != nil {
			return nil, toGRPCError(rlerrors.NewInvalidConfig("op", err.Error()))
		}
		s.reg.Clear(req.Backend, op)
	}
	return &Empty{}, nil
}

func (s *GRPCService) Wrap(ctx context.Context, req *WrapRequest) (*WrapResponse, error) {
	fx, err := s.host.Wrap(req.BackendName)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &WrapResponse{Name: fx.GetName()}, nil
}

func (s *GRPCService) Enumerate(ctx context.Context, req *EnumerateRequest) (*EnumerateResponse, error) {
	views := s.reg.Enumerate()
	resp := &EnumerateResponse{Entries: make([]QuotaEntry, 0, len(views))}
	for _, v := range views {
		resp.Entries = append(resp.Entries, QuotaEntry{Backend: v.Backend, Op: v.Op.String(), Rate: v.Rate, Burst: v.Burst, Mode: v.Mode.String()})
	}
	return resp, nil
}

func toGRPCError(err error) error {
	switch {
	case rlerrors.IsInvalidConfig(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case rlerrors.IsRateLimited(err):
		return status.Error(codes.ResourceExhausted, err.Error())
	case rlerrors.IsExceedsBurst(err):
		return status.Error(codes.OutOfRange, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// adminServiceName is the fully-qualified service name a protoc-generated
// stub would derive from the .proto package/service declaration.
const adminServiceName = "throttlefs.admin.v1.Admin"

// serviceDesc is the hand-authored equivalent of a protoc-generated
// grpc.ServiceDesc: it registers each RPC's handler with the codec-driven
// decode/invoke wiring gRPC needs, without a .proto file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: adminServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetQuota", Handler: unaryHandler("SetQuota", func(s *GRPCService, ctx context.Context, req *SetQuotaRequest) (any, error) {
			return s.SetQuota(ctx, req)
		})},
		{MethodName: "SetBurst", Handler: unaryHandler("SetBurst", func(s *GRPCService, ctx context.Context, req *SetBurstRequest) (any, error) {
			return s.SetBurst(ctx, req)
		})},
		{MethodName: "Clear", Handler: unaryHandler("Clear", func(s *GRPCService, ctx context.Context, req *ClearRequest) (any, error) {
			return s.Clear(ctx, req)
		})},
		{MethodName: "Wrap", Handler: unaryHandler("Wrap", func(s *GRPCService, ctx context.Context, req *WrapRequest) (any, error) {
			return s.Wrap(ctx, req)
		})},
		{MethodName: "Enumerate", Handler: unaryHandler("Enumerate", func(s *GRPCService, ctx context.Context, req *EnumerateRequest) (any, error) {
			return s.Enumerate(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "throttlefs/admin.proto",
}

// unaryHandler adapts a strongly-typed method into the untyped
// grpc.methodHandler shape grpc.ServiceDesc expects. methodName is carried
// into UnaryServerInfo.FullMethod as "/service/Method", the same path a
// protoc-generated stub would produce, so interceptors that key off
// FullMethod (grpcAuthInterceptor, loggingInterceptor) see the real RPC
// being called instead of the service name for every method.
func unaryHandler[Req any](methodName string, fn func(*GRPCService, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + adminServiceName + "/" + methodName
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(*GRPCService)
		if interceptor == nil {
			return fn(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: s, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// RegisterGRPCService registers the admin service on server using
// jsonCodec framing.
func RegisterGRPCService(server *grpc.Server, svc *GRPCService) {
	server.RegisterService(&serviceDesc, svc)
}

// NewGRPCServer builds a *grpc.Server with the admin service registered on
// it; it does not listen or serve. auth.Enabled gates the mutating
// RPCs behind a bearer JWT carried in the "authorization" metadata key.
func NewGRPCServer(reg *registry.Registry, host *hostfs.Host, logger *slog.Logger, auth AdminAuth) *grpc.Server {
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		loggingInterceptor(logger),
		grpcAuthInterceptor(auth),
	))
	RegisterGRPCService(server, NewGRPCService(reg, host, logger))
	return server
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("admin rpc failed", "method", info.FullMethod, "error", err)
		} else {
			logger.Debug("admin rpc ok", "method", info.FullMethod)
		}
		return resp, err
	}
}

// Listen is a small convenience wrapper mirroring the accept-loop pattern
// hector's own transport.Server uses.
func Listen(address string) (net.Listener, error) {
	return net.Listen("tcp", address)
}
