package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yvesmugisha901/umuturage-backend/internal/auth"
	"github.com/yvesmugisha901/umuturage-backend/internal/database"
	"github.com/yvesmugisha901/umuturage-backend/internal/handler"
	"github.com/yvesmugisha901/umuturage-backend/internal/middleware"
	"github.com/yvesmugisha901/umuturage-backend/internal/model"
	"github.com/yvesmugisha901/umuturage-backend/internal/notify"
	"github.com/yvesmugisha901/umuturage-backend/internal/store"
	"github.com/yvesmugisha901/umuturage-backend/internal/workflow"
	ws "github.com/yvesmugisha901/umuturage-backend/internal/websocket"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Server struct {
	db          *database.DB
	hub         *ws.Hub
	dispatcher  *notify.Dispatcher
	tokens      *auth.TokenIssuer
	userH       *handler.UserHandler
	unitH       map[model.Tier]*handler.UnitHandler
	householdH  *handler.HouseholdHandler
	approvalH   map[model.Tier]*handler.ApprovalHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

type options struct {
	publisher notify.Publisher
	mailer    notify.Mailer
}

type Option func(*options)

// WithPublisher publishes notifications to a message broker.
func WithPublisher(p notify.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMailer emails notifications to their recipients.
func WithMailer(m notify.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// New wires stores, the workflow engine and handlers.
func New(db *database.DB, tokens *auth.TokenIssuer, logger *slog.Logger, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	unitStore := store.NewUnitStore(db)
	householdStore := store.NewHouseholdStore(db)
	notificationStore := store.NewNotificationStore(db)

	var notifyOpts []notify.Option
	if o.mailer != nil {
		notifyOpts = append(notifyOpts, notify.WithMailer(o.mailer, userStore))
	}
	dispatcher := notify.NewDispatcher(notificationStore, hub, o.publisher, logger, notifyOpts...)
	engine := workflow.New(householdStore, dispatcher, logger)

	s := &Server{
		db:          db,
		hub:         hub,
		dispatcher:  dispatcher,
		tokens:      tokens,
		userH:       handler.NewUserHandler(userStore, tokens, logger.With("component", "user")),
		unitH:       make(map[model.Tier]*handler.UnitHandler),
		householdH:  handler.NewHouseholdHandler(engine, logger.With("component", "household")),
		approvalH:   make(map[model.Tier]*handler.ApprovalHandler),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
	for _, tier := range model.Tiers {
		s.unitH[tier] = handler.NewUnitHandler(tier, unitStore, userStore, logger.With("component", "admin"))
	}
	for _, tier := range workflow.ReviewTiers {
		s.approvalH[tier] = handler.NewApprovalHandler(tier, engine, logger.With("component", "approval", "tier", string(tier)))
	}
	return s
}

// Wait blocks until background notification deliveries have finished.
// Call it after the HTTP server has shut down.
func (s *Server) Wait() {
	s.dispatcher.Wait()
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/users/register", s.userH.Register)
	outerMux.HandleFunc("POST /api/users/login", s.rateLimitedHandler(s.userH.Login))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(logged)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/me", s.userH.Me)
	mux.Handle("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	// Admin: hierarchy management
	for _, tier := range model.Tiers {
		h := s.unitH[tier]
		base := fmt.Sprintf("/api/admin/%ss", tier)
		mux.Handle("POST "+base, withRole(h.Create, model.RoleAdmin))
		mux.Handle("GET "+base, withRole(h.List, model.RoleAdmin))
		mux.Handle("PUT "+base+"/{id}/leader", withRole(h.AssignLeader, model.RoleAdmin))
	}

	// Isibo leaders: submissions
	isibo := model.RoleIsiboLeader
	mux.Handle("POST /api/isibo/households", withRole(s.householdH.Submit, isibo))
	mux.Handle("GET /api/isibo/households", withRole(s.householdH.List, isibo))
	mux.Handle("PUT /api/isibo/households/{id}", withRole(s.householdH.Update, isibo))
	mux.Handle("DELETE /api/isibo/households/{id}", withRole(s.householdH.Delete, isibo))
	mux.Handle("GET /api/isibo/households/{id}/history", withRole(s.householdH.History, isibo))

	// Reviewers: one queue per tier
	for _, tier := range workflow.ReviewTiers {
		h := s.approvalH[tier]
		role := tier.LeaderRole()
		base := fmt.Sprintf("/api/%s/pending-approvals", tier)
		mux.Handle("GET "+base, withRole(h.Pending, role))
		mux.Handle("PUT "+base+"/{id}/approve", withRole(h.Approve, role))
		mux.Handle("PUT "+base+"/{id}/reject", withRole(h.Reject, role))
	}
}

func withRole(h http.HandlerFunc, roles ...model.Role) http.Handler {
	return middleware.RequireRole(roles...)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginLimit, loginWindow)
	return rl(h).ServeHTTP
}
