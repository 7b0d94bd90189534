package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/convoy/internal/api/handler"
	"github.com/mcoot/convoy/internal/api/middleware"
	httpmw "github.com/mcoot/convoy/internal/middleware"
	"github.com/mcoot/convoy/internal/api/response"
	"github.com/mcoot/convoy/internal/services/auth"
	"github.com/mcoot/convoy/internal/services/party"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	PartyService party.ServiceInterface
	Storage      Pinger
	JoinLimit    middleware.RateLimitConfig
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Create handlers
	userHandler := handler.NewUserHandler(cfg.AuthService)
	partyHandler := handler.NewPartyHandler(cfg.PartyService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := httpmw.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	if cfg.JoinLimit.Logger == nil {
		cfg.JoinLimit.Logger = cfg.Logger
	}
	joinLimiter := middleware.RateLimit(cfg.JoinLimit)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// User routes (no auth required for creating users/logging in)
	api.HandleFunc("/users/guest", userHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/users/register", userHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", userHandler.Login).Methods(http.MethodPost)

	// Protected user routes
	userProtected := api.PathPrefix("/users").Subrouter()
	userProtected.Use(authMiddleware)
	userProtected.HandleFunc("/me", userHandler.GetMe).Methods(http.MethodGet)

	// Party routes (all require auth)
	parties := api.PathPrefix("/parties").Subrouter()
	parties.Use(authMiddleware)
	parties.HandleFunc("", partyHandler.Create).Methods(http.MethodPost)
	parties.HandleFunc("/{party_id}", partyHandler.Get).Methods(http.MethodGet)
	parties.HandleFunc("/{party_id}/members", partyHandler.Members).Methods(http.MethodGet)
	parties.HandleFunc("/{party_id}/leave", partyHandler.Leave).Methods(http.MethodPost)
	parties.HandleFunc("/{party_id}/disband", partyHandler.Disband).Methods(http.MethodPost)
	parties.Handle("/{party_id}/join", joinLimiter(http.HandlerFunc(partyHandler.Join))).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Storage)).Methods(http.MethodGet)

	return r
}

func healthHandler(storage Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if storage != nil {
			if err := storage.Ping(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","storage":"unreachable"}`))
				return
			}
		}
		response.JSON(w, http.StatusOK, response.Health{Status: "ok", Storage: "ok"})
	}
}

