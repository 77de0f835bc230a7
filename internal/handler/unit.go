package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

// UnitHandler serves admin management of one tier of the hierarchy.
type UnitHandler struct {
	tier   model.Tier
	units  *store.UnitStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewUnitHandler(tier model.Tier, units *store.UnitStore, users *store.UserStore, logger *slog.Logger) *UnitHandler {
	return &UnitHandler{tier: tier, units: units, users: users, logger: logger}
}

func (h *UnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	parentTier, hasParent := h.tier.Parent()
	switch {
	case hasParent && req.ParentID == nil:
		writeError(w, http.StatusBadRequest, "parent_id is required")
		return
	case !hasParent && req.ParentID != nil:
		writeError(w, http.StatusBadRequest, "a sector has no parent")
		return
	}
	if hasParent {
		parent, err := h.units.GetByID(r.Context(), parentTier, *req.ParentID)
		if err != nil {
			h.logger.Error("get parent unit", "tier", parentTier, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create "+string(h.tier))
			return
		}
		if parent == nil {
			writeError(w, http.StatusNotFound, string(parentTier)+" not found")
			return
		}
	}

	u, err := h.units.Create(r.Context(), h.tier, req.ParentID, req.Name)
	if err != nil {
		h.logger.Error("create unit", "tier", h.tier, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create "+string(h.tier))
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.List(r.Context(), h.tier, nil)
	if err != nil {
		h.logger.Error("list units", "tier", h.tier, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list units")
		return
	}
	if units == nil {
		units = []model.Unit{}
	}
	writeJSON(w, http.StatusOK, units)
}

// AssignLeader makes a user with the tier's leader role the unit's leader.
func (h *UnitHandler) AssignLeader(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	u, err := h.users.GetByID(ctx, req.UserID)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to assign leader")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if want := h.tier.LeaderRole(); u.Role != want {
		writeError(w, http.StatusBadRequest, "user must have role "+string(want))
		return
	}

	current, err := h.units.GetByLeader(ctx, h.tier, u.ID)
	if err != nil {
		h.logger.Error("get unit by leader", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to assign leader")
		return
	}
	if current != nil && current.ID != id {
		writeError(w, http.StatusConflict, "user already leads another "+string(h.tier))
		return
	}

	unit, err := h.units.AssignLeader(ctx, h.tier, id, u.ID)
	if err != nil {
		h.logger.Error("assign leader", "tier", h.tier, "unit_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to assign leader")
		return
	}
	if unit == nil {
		writeError(w, http.StatusNotFound, string(h.tier)+" not found")
		return
	}

	h.logger.Info("leader assigned", "tier", h.tier, "unit_id", unit.ID, "user_id", u.ID)
	writeJSON(w, http.StatusOK, unit)
}
