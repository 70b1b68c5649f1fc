package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AdminAuth configures bearer-JWT verification for the admin transports.
// Disabled by default — this is additive hardening for the
// configuration surface, not a requirement of the core admission path.
type AdminAuth struct {
	Enabled bool
	Secret  []byte
	Issuer  string
}

func (a AdminAuth) verify(tokenString string) error {
	_, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, a.Secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(a.Issuer),
	)
	return err
}

// mutatingMethods lists the HTTP methods AdminAuth guards; GET routes
// (enumeration) stay open as a read-only introspection surface.
var mutatingMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPost:   true,
}

// httpAuthMiddleware rejects unauthenticated configuration-mutating
// requests when auth is enabled; GET requests always pass through.
func httpAuthMiddleware(auth AdminAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled || !mutatingMethods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if header == "" || tokenString == header {
				writeError(w, unauthorizedf("missing bearer token"))
				return
			}
			if err := auth.verify(tokenString); err != nil {
				writeError(w, unauthorizedf("invalid token: %v", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mutatingRPCs lists the gRPC methods AdminAuth guards; Enumerate is
// read-only and always passes through.
var mutatingRPCs = map[string]bool{
	"/throttlefs.admin.v1.Admin/SetQuota": true,
	"/throttlefs.admin.v1.Admin/SetBurst": true,
	"/throttlefs.admin.v1.Admin/Clear":    true,
	"/throttlefs.admin.v1.Admin/Wrap":     true,
}

func grpcAuthInterceptor(auth AdminAuth) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !auth.Enabled || !mutatingRPCs[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		tokens := md.Get("authorization")
		if len(tokens) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization metadata")
		}
		tokenString := strings.TrimPrefix(tokens[0], "Bearer ")
		if err := auth.verify(tokenString); err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return handler(ctx, req)
	}
}

type unauthorizedError struct{ msg string }

func unauthorizedf(format string, args ...any) error {
	return &unauthorizedError{msg: fmt.Sprintf(format, args...)}
}

func (e *unauthorizedError) Error() string { return e.msg }
