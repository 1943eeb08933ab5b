package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the slice of the game engine the transport drives.
type Engine interface {
	CreateSession(ctx context.Context, setup app.Setup) (string, error)
	Join(ctx context.Context, sessionID string, req app.JoinRequest) (domain.Participant, error)
	Dispatch(ctx context.Context, a app.Action) error
	Snapshot(ctx context.Context, sessionID, path string) (json.RawMessage, bool, error)
	Subscribe(ctx context.Context, sessionID, path string) (<-chan store.Snapshot, func(), error)
}

// Options configures the router.
type Options struct {
	Logger *slog.Logger
	// PublicURL is the base of join links; empty means the request host.
	PublicURL string
	Checkers  map[string]Checker
}

// NewRouter mounts the REST, websocket and health endpoints.
func NewRouter(engine Engine, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	api := &sessionHandler{engine: engine, logger: logger, publicURL: opts.PublicURL}
	ws := NewWSHandler(engine, logger)

	r.Mount("/healthz", NewHealthHandler(logger, opts.Checkers).Routes())
	r.Get("/ws", ws.ServeWS)
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", api.create)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/join", api.join)
			r.Post("/actions/{action}", api.action)
			r.Get("/snapshot", api.snapshot)
			r.Get("/qr.png", api.qr)
		})
	})
	return r
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
