package handler

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewUserHandler(users *store.UserStore, tokens *auth.TokenIssuer, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, logger: logger}
}

// Register creates a leader account. Admins are seeded out of band.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string     `json:"username"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if !req.Role.Valid() || req.Role == model.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be one of sector_leader, cell_leader, village_leader, isibo_leader")
		return
	}

	existing, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email is already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.users.Create(r.Context(), req.Username, req.Email, hash, req.Role)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User registered", "user": u})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, expires, err := h.tokens.Issue(u)
	if err != nil {
		h.logger.Error("issue token", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
		"user":       u,
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
