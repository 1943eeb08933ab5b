package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
)

type errorBody struct {
	Error string            `json:"error"`
	Code  domain.RejectCode `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeEngineError maps engine errors to statuses: rejections are 409 (403
// for role checks), missing references 404, exhausted retries 503.
func writeEngineError(w http.ResponseWriter, err error) {
	status, body := errorStatus(err)
	writeJSON(w, status, body)
}

func errorStatus(err error) (int, errorBody) {
	if rej, ok := domain.IsRejection(err); ok {
		status := http.StatusConflict
		if rej.Code == domain.RejectForbidden {
			status = http.StatusForbidden
		}
		return status, errorBody{Error: rej.Reason, Code: rej.Code}
	}
	switch {
	case domain.IsMissingReference(err):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	case store.IsRetryable(err):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error()}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

var errBadRequest = errors.New("bad request")
