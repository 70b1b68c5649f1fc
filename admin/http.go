// Package admin exposes the registry's configuration surface over HTTP
// (chi) and gRPC: set_quota, set_burst, clear, wrap, and the two
// introspection enumeration endpoints.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	throttlefs "github.com/kadirpekel/throttlefs"
	"github.com/kadirpekel/throttlefs/hostfs"
	"github.com/kadirpekel/throttlefs/mode"
	"github.com/kadirpekel/throttlefs/opclass"
	"github.com/kadirpekel/throttlefs/registry"
	"github.com/kadirpekel/throttlefs/rlerrors"
)

// Server is the HTTP admin surface over a Registry and a Host.
type Server struct {
	reg    *registry.Registry
	host   *hostfs.Host
	logger *slog.Logger
	router chi.Router
}

// NewServer builds a chi router exposing the configuration and
// introspection surface for reg and host. auth.Enabled gates the
// mutating routes behind a bearer JWT; zero-value AdminAuth
// (Enabled: false) leaves the surface open.
func NewServer(reg *registry.Registry, host *hostfs.Host, logger *slog.Logger, auth AdminAuth) *Server {
	s := &Server{reg: reg, host: host, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(httpAuthMiddleware(auth))

	r.Route("/v1/quotas", func(r chi.Router) {
		r.Get("/", s.handleEnumerate)
		r.Put("/", s.handleSetQuota)
		r.Put("/burst", s.handleSetBurst)
		r.Delete("/", s.handleClear)
	})
	r.Get("/v1/backends", s.handleBackends)
	r.Post("/v1/wrap/{name}", s.handleWrap)
	r.Get("/v1/version", s.handleVersion)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	s.router = r
	return s
}

// Handler returns the http.Handler to mount (e.g. behind TLS termination
// or alongside a Prometheus /metrics handler).
func (s *Server) Handler() http.Handler { return s.router }

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("admin request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

type setQuotaRequest struct {
	Backend string  `json:"backend"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate"`
	Mode    string  `json:"mode"`
}

func (s *Server) handleSetQuota(w http.ResponseWriter, r *http.Request) {
	var req setQuotaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rlerrors.NewInvalidConfig("body", err.Error()))
		return
	}

	op, err := opclass.ParseClass(req.Op)
	if err != nil {
		writeError(w, rlerrors.NewInvalidConfig("op", err.Error()))
		return
	}
	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeError(w, rlerrors.NewInvalidConfig("mode", err.Error()))
		return
	}

	if err := s.reg.SetRate(req.Backend, op, req.Rate, m); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setBurstRequest struct {
	Backend string `json:"backend"`
	Op      string `json:"op"`
	Burst   int64  `json:"burst"`
}

func (s *Server) handleSetBurst(w http.ResponseWriter, r *http.Request) {
	var req setBurstRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rlerrors.NewInvalidConfig("body", err.Error()))
		return
	}
	op, err := opclass.ParseClass(req.Op)
	if err != nil {
		writeError(w, rlerrors.NewInvalidConfig("op", err.Error()))
		return
	}
	if err := s.reg.SetBurst(req.Backend, op, req.Burst); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	backend := r.URL.Query().Get("backend")
	opStr := r.URL.Query().Get("op")

	switch {
	case backend == "*":
		s.reg.ClearAll()
	case opStr == "*" || opStr == "":
		s.reg.ClearBackend(backend)
	default:
		op, err := opclass.ParseClass(opStr)
		if err != nil {
			writeError(w, rlerrors.NewInvalidConfig("op", err.Error()))
			return
		}
		s.reg.Clear(backend, op)
	}
	w.WriteHeader(http.StatusNoContent)
}

type quotaView struct {
	Backend string  `json:"backend"`
	Op      string  `json:"op"`
	Rate    float64 `json:"rate"`
	Burst   int64   `json:"burst"`
	Mode    string  `json:"mode"`
}

func (s *Server) handleEnumerate(w http.ResponseWriter, r *http.Request) {
	views := s.reg.Enumerate()
	out := make([]quotaView, 0, len(views))
	for _, v := range views {
		out = append(out, quotaView{Backend: v.Backend, Op: v.Op.String(), Rate: v.Rate, Burst: v.Burst, Mode: v.Mode.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Names())
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, throttlefs.GetVersion())
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	fx, err := s.host.Wrap(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": fx.GetName()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case rlerrors.IsInvalidConfig(err):
		status = http.StatusBadRequest
	case rlerrors.IsRateLimited(err):
		status = http.StatusTooManyRequests
	case rlerrors.IsExceedsBurst(err):
		status = http.StatusUnprocessableEntity
	default:
		if _, ok := err.(*unauthorizedError); ok {
			status = http.StatusUnauthorized
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
