package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	resolver "github.com/datum-labs/rdap-resolver"
)

// Resolver is the slice of *resolver.Resolver the HTTP surface needs.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (*resolver.Record, error)
}

type Server struct {
	res     Resolver
	log     *zap.Logger
	metrics http.Handler
	timeout time.Duration
}

// New returns a Server. metrics may be nil to omit /metrics.
func New(res Resolver, log *zap.Logger, metrics http.Handler, timeout time.Duration) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{res: res, log: log, metrics: metrics, timeout: timeout}
}

// Routes returns the chi.Router serving the resolver API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/domain/{name}", s.getDomain)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

type errorEnvelope struct {
	Error    string         `json:"error"`
	Message  string         `json:"message"`
	Domain   string         `json:"domain"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type cause struct {
	Tier    string `json:"tier"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) getDomain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snake := r.URL.Query().Get("case") == "snake"

	rec, err := s.res.Resolve(r.Context(), name)
	if err == nil {
		if snake {
			writeJSON(w, http.StatusOK, toSnake(rec))
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}
	var rerr *resolver.ResolveError
	switch {
	case errors.Is(err, resolver.ErrInvalidDomain):
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error:    string(resolver.KindInvalidDomain),
			Message:  err.Error(),
			Domain:   name,
			Metadata: map[string]any{"requestId": requestID},
		})
	case errors.As(err, &rerr):
		causes := make([]cause, 0, len(rerr.Failures))
		for _, f := range rerr.Failures {
			causes = append(causes, cause{Tier: string(f.Source), Kind: string(resolver.KindOf(f.Err)), Message: f.Err.Error()})
		}
		unknown := rerr.Record()
		s.log.Warn("resolution failed", zap.String("domain", rerr.Domain), zap.String("requestId", requestID))
		writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{
			Error:   string(resolver.KindServiceUnavailable),
			Message: "all resolution tiers failed",
			Domain:  rerr.Domain,
			Metadata: map[string]any{
				"requestId":    requestID,
				"availability": unknown.Availability,
				"queryTimeMs":  unknown.QueryTimeMs,
				"causes":       causes,
			},
		})
	default:
		s.log.Error("unexpected resolver error", zap.String("domain", name), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{
			Error:    string(resolver.KindServiceUnavailable),
			Message:  err.Error(),
			Domain:   name,
			Metadata: map[string]any{"requestId": requestID},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
