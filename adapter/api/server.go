// Package api provides the HTTP API for thermae.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	access "github.com/felixgeelhaar/thermae/internal/access/domain"
	cartapp "github.com/felixgeelhaar/thermae/internal/cart/application"
	clubapp "github.com/felixgeelhaar/thermae/internal/club/application"
	identityapp "github.com/felixgeelhaar/thermae/internal/identity/application"
	"github.com/felixgeelhaar/thermae/pkg/observability"
)

const maxBodyBytes = 1 << 20

// IdentityProvider resolves a session token for the access gate.
type IdentityProvider interface {
	Lookup(ctx context.Context, token string) access.Lookup
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	Catalog      *clubapp.Catalog
	Carts        *cartapp.Sessions
	Checkout     *clubapp.Checkout
	CheckIns     *clubapp.CheckIns
	Members      *identityapp.Members
	Verification *identityapp.Verification
	Identity     IdentityProvider
	Routes       *access.RouteTable
	Health       *observability.HealthRegistry
	Metrics      observability.Metrics
}

// Server is the HTTP API server.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	deps    Dependencies
	cookies CookieConfig
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Cookies      CookieConfig
}

// CookieConfig controls the session and cart cookies.
type CookieConfig struct {
	Secure  bool
	CartTTL time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		Cookies:      CookieConfig{CartTTL: 14 * 24 * time.Hour},
	}
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Routes == nil {
		deps.Routes = access.DefaultRouteTable()
	}
	if deps.Catalog == nil {
		deps.Catalog = clubapp.NewCatalog(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		deps:    deps,
		cookies: cfg.Cookies,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Sign-in
	s.mux.HandleFunc("POST /auth/code", s.handleRequestCode)
	s.mux.HandleFunc("POST /auth/verify", s.handleVerifyCode)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)

	// Catalog
	s.mux.HandleFunc("GET /api/v1/plans", s.handleListPlans)
	s.mux.HandleFunc("GET /api/v1/plans/{planID}", s.handleGetPlan)

	// Cart
	s.mux.HandleFunc("GET /api/v1/cart", s.handleGetCart)
	s.mux.HandleFunc("POST /api/v1/cart/items", s.handleAddCartItem)
	s.mux.HandleFunc("PATCH /api/v1/cart/items/{itemID}", s.handleUpdateCartItem)
	s.mux.HandleFunc("DELETE /api/v1/cart/items/{itemID}", s.handleRemoveCartItem)
	s.mux.HandleFunc("DELETE /api/v1/cart", s.handleClearCart)
	s.mux.HandleFunc("POST /api/v1/checkout", s.handleCheckout)

	// Member
	s.mux.HandleFunc("GET /api/v1/me", s.handleMe)
	s.mux.HandleFunc("GET /api/v1/me/checkin-qr", s.handleCheckInQR)
	s.mux.HandleFunc("GET /api/v1/me/checkins", s.handleMyCheckIns)
	s.mux.HandleFunc("GET /api/v1/me/orders", s.handleMyOrders)

	// Admin console
	s.mux.HandleFunc("GET /api/v1/admin/members", s.handleListMembers)
	s.mux.HandleFunc("PATCH /api/v1/admin/members/{memberID}/role", s.handleSetRole)
	s.mux.HandleFunc("GET /api/v1/admin/checkins", s.handleListCheckIns)
	s.mux.HandleFunc("POST /api/v1/admin/checkins", s.handleRecordCheckIn)
	s.mux.HandleFunc("GET /api/v1/admin/metrics", s.handleMetrics)

	// Pages
	for _, page := range []string{"/auth", "/dashboard", "/checkin", "/checkout", "/admin", "/admin/{rest...}"} {
		s.mux.HandleFunc("GET "+page, s.handlePage)
	}
}

// Handler returns the routed handler wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestContext(s.withGate(s.mux))
}

// handleHealth reports the state of the backing components.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": string(observability.HealthStatusHealthy),
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	health := s.deps.Health.Check(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting thermae API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down thermae API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// internalError logs err and answers 500 with message.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	s.logger.ErrorContext(r.Context(), message, "error", err)
	writeError(w, http.StatusInternalServerError, message)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseIntParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
