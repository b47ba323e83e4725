// Package api exposes the coordinator over HTTP. Four POST endpoints
// carry typed request envelopes ({"type": ..., "params": ...}): /auth
// for credentials, then /read, /write, and /execute behind
// authentication. Prometheus metrics are served on GET /metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flotilla-dev/flotilla/internal/core"
	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/metrics"
	"github.com/flotilla-dev/flotilla/internal/store"
	"github.com/flotilla-dev/flotilla/internal/types"
)

// Request is the envelope every endpoint family accepts.
type Request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// handler resolves one request type for an authenticated user.
type handler func(ctx context.Context, user *types.User, params json.RawMessage) (any, error)

// Server is the coordinator HTTP API.
type Server struct {
	state  *core.State
	log    *logging.Logger
	router chi.Router
	server *http.Server

	read    map[string]handler
	write   map[string]handler
	execute map[string]handler
}

// NewServer builds the API around a core state.
func NewServer(state *core.State, log *logging.Logger) *Server {
	s := &Server{state: state, log: log}
	s.read = s.readHandlers()
	s.write = s.writeHandlers()
	s.execute = s.executeHandlers()

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/auth", s.handleAuth)
	r.Post("/read", s.dispatch("read", s.read))
	r.Post("/write", s.dispatch("write", s.write))
	r.Post("/execute", s.dispatch("execute", s.execute))

	s.router = r
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the API server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.Info("core api listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// dispatch decodes the envelope, authenticates, and routes to the
// family's handler table.
func (s *Server) dispatch(family string, table map[string]handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		user, err := s.authenticate(r)
		if err != nil {
			s.finish(w, family, started, nil, err)
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.finish(w, family, started, nil, badRequest("decode request: "+err.Error()))
			return
		}
		h, ok := table[req.Type]
		if !ok {
			s.finish(w, family, started, nil, badRequest("unknown request type "+strconv.Quote(req.Type)))
			return
		}

		result, err := h(r.Context(), &user, req.Params)
		s.finish(w, family, started, result, err)
	}
}

// authenticate resolves the caller from a JWT bearer token or an api
// key/secret header pair. Every failure maps to 401.
func (s *Server) authenticate(r *http.Request) (types.User, error) {
	var user types.User
	var err error
	if key := r.Header.Get("X-Api-Key"); key != "" {
		user, err = s.state.AuthenticateApiKey(key, r.Header.Get("X-Api-Secret"))
	} else {
		token := r.Header.Get("Authorization")
		if after, ok := cutBearer(token); ok {
			token = after
		}
		if token == "" {
			return types.User{}, errUnauthenticated
		}
		user, err = s.state.AuthenticateJWT(token)
	}
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %s", errUnauthenticated, err)
	}
	return user, nil
}

func cutBearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):], true
	}
	return header, false
}

// finish writes the response and records request metrics.
func (s *Server) finish(w http.ResponseWriter, family string, started time.Time, result any, err error) {
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		writeError(w, status, err.Error())
	} else {
		writeJSON(w, http.StatusOK, result)
	}
	metrics.RequestsTotal.WithLabelValues(family, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(family).Observe(time.Since(started).Seconds())
}

var errUnauthenticated = errors.New("authentication required")

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func badRequest(msg string) error { return badRequestError(msg) }

// statusFor maps handler errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBusy), errors.Is(err, store.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrUserDisabled),
		errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNoServer), errors.Is(err, core.ErrServerUnavailable):
		return http.StatusBadRequest
	default:
		var br badRequestError
		if errors.As(err, &br) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode unmarshals handler params, tolerating an absent params object
// for parameterless request types.
func decode[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, badRequest("decode params: " + err.Error())
	}
	return v, nil
}
