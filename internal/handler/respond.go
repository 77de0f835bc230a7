package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yvesmugisha901/umuturage-backend/internal/middleware"
	"github.com/yvesmugisha901/umuturage-backend/internal/workflow"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("id must be positive")
	}
	return id, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeWorkflowError maps engine errors to status codes. Store failures are
// logged in full and reported generically.
func writeWorkflowError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *workflow.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, workflow.ErrNotFoundOrUnauthorized):
		writeError(w, http.StatusNotFound, "household not found or you are not authorized")
	case errors.Is(err, workflow.ErrRoleDenied):
		writeError(w, http.StatusForbidden, "access denied for this role")
	default:
		logger.ErrorContext(r.Context(), "workflow failure",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
