package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Checker reports the health of one dependency.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	logger   *slog.Logger
	checkers map[string]Checker
}

func NewHealthHandler(logger *slog.Logger, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{logger: logger, checkers: checkers}
}

func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

func (h *HealthHandler) check(w http.ResponseWriter, r *http.Request) {
	type result struct {
		Status string `json:"status"`
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]result, len(h.checkers))
	status := http.StatusOK
	for name, c := range h.checkers {
		if err := c.Check(ctx); err != nil {
			h.logger.Error("health check failed", "name", name, "error", err)
			checks[name] = result{Status: "error"}
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = result{Status: "ok"}
	}
	writeJSON(w, status, checks)
}
