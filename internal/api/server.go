// Package api exposes the HTTP surface next to the WebSocket gateway:
// credential issuance (signup, signin, refresh) and a health endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sketchroom/internal/auth"
	"sketchroom/pkg/interfaces"
	"sketchroom/pkg/types"
)

// HealthChecker is the slice of the store the health endpoint needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionStats is the slice of the registry the health endpoint needs.
type ConnectionStats interface {
	Stats() map[string]int
}

// Server handles the REST side: no business logic, only HTTP handling
// and JSON serialization.
type Server struct {
	authService *auth.Service
	health      HealthChecker
	stats       ConnectionStats
	router      *http.ServeMux
	log         *slog.Logger
}

func NewServer(authService *auth.Service, health HealthChecker, stats ConnectionStats, log *slog.Logger) *Server {
	s := &Server{
		authService: authService,
		health:      health,
		stats:       stats,
		router:      http.NewServeMux(),
		log:         log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/auth/signup", s.corsMiddleware(http.HandlerFunc(s.handleSignup)))
	s.router.Handle("/auth/signin", s.corsMiddleware(http.HandlerFunc(s.handleSignin)))
	s.router.Handle("/auth/refresh", s.corsMiddleware(http.HandlerFunc(s.handleRefresh)))
	s.router.Handle("/health", s.corsMiddleware(http.HandlerFunc(s.handleHealth)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	var req types.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	pair, err := s.authService.Signup(r.Context(), &req)
	if err != nil {
		s.sendAuthError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, pair)
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	var req types.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	pair, err := s.authService.Signin(r.Context(), &req)
	if err != nil {
		s.sendAuthError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.requirePost(w, r) {
		return
	}
	var req types.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	pair, err := s.authService.Refresh(r.Context(), &req)
	if err != nil {
		s.sendAuthError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, pair)
}

type healthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Database:    "connected",
		Connections: s.stats.Stats(),
	}

	status := http.StatusOK
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.health.HealthCheck(ctx); err != nil {
		s.log.Error("health check failed", "error", err)
		resp.Status = "unhealthy"
		resp.Database = "error"
		status = http.StatusServiceUnavailable
	}

	s.sendJSON(w, status, resp)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// sendAuthError maps service failures to HTTP statuses without leaking
// internals.
func (s *Server) sendAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, interfaces.ErrDuplicateUser):
		s.sendError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		s.sendError(w, err.Error(), http.StatusUnauthorized)
	default:
		s.log.Error("auth request failed", "error", err)
		s.sendError(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) requirePost(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodPost:
		return true
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return false
	default:
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, status, errorResponse{Error: message, Code: status})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}
