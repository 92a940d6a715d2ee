// Package http exposes the expense-sharing API over JSON.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"conti/internal/core"
	applog "conti/internal/log"
	"conti/internal/services"
)

// Repository is the slice of the storage layer the user and group
// handlers need.
type Repository interface {
	CreateUser(ctx context.Context, u *core.User) error
	GetUser(ctx context.Context, id int64) (*core.User, error)
	CreateGroup(ctx context.Context, g *core.Group) error
	GetGroup(ctx context.Context, id int64) (*core.Group, error)
	AddGroupMembers(ctx context.Context, groupID int64, userIDs []int64) error
}

type Server struct {
	http.Server

	repo     Repository
	expenses *services.ExpenseService
	balances *services.BalanceService
	logger   *applog.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, repo Repository, expenses *services.ExpenseService, balances *services.BalanceService, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		repo:        repo,
		expenses:    expenses,
		balances:    balances,
		logger:      logger,
		rateLimiter: newRateLimiter(),
	}
	s.Server.Handler = applog.Middleware(logger)(mux)

	mux.HandleFunc("POST /users", s.observe("/users", s.handleCreateUser))
	mux.HandleFunc("GET /users/{id}", s.observe("/users/{id}", s.handleGetUser))
	mux.HandleFunc("POST /groups", s.observe("/groups", s.handleCreateGroup))
	mux.HandleFunc("GET /groups/{id}", s.observe("/groups/{id}", s.handleGetGroup))
	mux.HandleFunc("POST /groups/{id}/members", s.observe("/groups/{id}/members", s.handleAddMembers))
	mux.HandleFunc("POST /expenses", s.observe("/expenses", s.handleCreateExpense))
	mux.HandleFunc("GET /groups/{id}/balance", s.observe("/groups/{id}/balance", s.handleGroupBalance))
	mux.HandleFunc("GET /groups/{id}/expenses", s.observe("/groups/{id}/expenses", s.handleGroupExpenses))

	mux.HandleFunc("/healthz", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// observe wraps a handler with request logging, rate limiting and
// metrics. route is the registered pattern, used as the metrics label
// so IDs do not blow up cardinality.
func (s *Server) observe(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		logger := applog.FromContext(r.Context()).With("request_id", requestID)
		ctx := applog.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-Id", requestID)

		logger.InfoContext(ctx, "Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "path", r.URL.Path)
			rateLimitHitsTotal.Inc()
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(duration.Seconds())

		logger.InfoContext(ctx, "Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Shutdown stops the rate limiter cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
