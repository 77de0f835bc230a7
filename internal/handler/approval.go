package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/workflow"
)

// ApprovalHandler serves the review queue of one tier. The village, cell
// and sector routes share it.
type ApprovalHandler struct {
	tier   model.Tier
	engine *workflow.Engine
	logger *slog.Logger
}

func NewApprovalHandler(tier model.Tier, engine *workflow.Engine, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{tier: tier, engine: engine, logger: logger}
}

func (h *ApprovalHandler) Pending(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListPending(r.Context(), auth.UserID(r.Context()), h.tier)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"households": list})
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	hh, err := h.engine.Advance(r.Context(), auth.UserID(r.Context()), id, h.tier)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("Household approved at %s level", h.tier),
		"household": hh,
	})
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	hh, err := h.engine.Revert(r.Context(), auth.UserID(r.Context()), id, h.tier)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("Household rejected at %s level", h.tier),
		"household": hh,
	})
}
