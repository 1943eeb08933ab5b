package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gameshow-service/internal/app"
	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

type sessionHandler struct {
	engine    Engine
	logger    *slog.Logger
	publicURL string
}

type createResponse struct {
	SessionID string `json:"sessionId"`
}

func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var setup app.Setup
	if err := readJSON(r, &setup); err != nil {
		writeError(w, http.StatusBadRequest, "invalid setup document")
		return
	}
	id, err := h.engine.CreateSession(r.Context(), setup)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.logger.Info("session created", "session_id", id, "title", setup.Title)
	writeJSON(w, http.StatusCreated, createResponse{SessionID: id})
}

func (h *sessionHandler) join(w http.ResponseWriter, r *http.Request) {
	var req app.JoinRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid join request")
		return
	}
	p, err := h.engine.Join(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// action runs a named action. The body carries the ref (without session id)
// and the action arguments.
func (h *sessionHandler) action(w http.ResponseWriter, r *http.Request) {
	var body struct {
		app.Ref
		Args app.Args `json:"args"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid action body")
			return
		}
	}
	a := app.Action{Ref: body.Ref, Name: chi.URLParam(r, "action"), Args: body.Args}
	a.SessionID = chi.URLParam(r, "sessionID")
	if err := h.engine.Dispatch(r.Context(), a); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing path")
		return
	}
	raw, ok, err := h.engine.Snapshot(r.Context(), sessionID, path)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no document at %s", path))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// qr renders the join link of a session as a PNG.
func (h *sessionHandler) qr(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	png, err := qrcode.Encode(h.joinURL(r, sessionID), qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("qr generation failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "qr generation failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *sessionHandler) joinURL(r *http.Request, sessionID string) string {
	base := strings.TrimSuffix(h.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + sessionID
}
