package handler

import (
	"log/slog"
	"net/http"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/workflow"
)

// HouseholdHandler serves isibo leaders' own submissions.
type HouseholdHandler struct {
	engine *workflow.Engine
	logger *slog.Logger
}

func NewHouseholdHandler(engine *workflow.Engine, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{engine: engine, logger: logger}
}

type householdRequest struct {
	Head     string `json:"head"`
	Members  *int   `json:"members"`
	Location string `json:"location"`
}

func (req householdRequest) members(w http.ResponseWriter) (int, bool) {
	if req.Members == nil {
		writeError(w, http.StatusBadRequest, "members is required")
		return 0, false
	}
	return *req.Members, true
}

func (h *HouseholdHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	members, ok := req.members(w)
	if !ok {
		return
	}

	hh, err := h.engine.Submit(r.Context(), auth.UserID(r.Context()), req.Head, members, req.Location)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Household submitted", "household": hh})
}

func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListOwn(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"households": list})
}

func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req householdRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	members, ok := req.members(w)
	if !ok {
		return
	}

	hh, err := h.engine.Update(r.Context(), auth.UserID(r.Context()), id, req.Head, members, req.Location)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Household updated", "household": hh})
}

func (h *HouseholdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	hh, err := h.engine.Delete(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Household deleted", "household": hh})
}

func (h *HouseholdHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	trail, err := h.engine.History(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeWorkflowError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": trail})
}
