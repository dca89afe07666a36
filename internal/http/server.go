package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledgerd/internal/core"
	"ledgerd/internal/log"
	"ledgerd/internal/services"
)

// Service ports the server depends on. The concrete implementations
// live in internal/services.
type (
	BudgetAPI interface {
		Create(ctx context.Context, owner, category string, limit core.Money) (core.Budget, error)
		Update(ctx context.Context, owner string, id int64, upd services.BudgetUpdate) (core.Budget, error)
		Delete(ctx context.Context, owner string, id int64) error
	}

	UsageAPI interface {
		EnrichBudgets(ctx context.Context, owner string) ([]core.BudgetUsage, error)
		MonthSummary(ctx context.Context, owner string, ref time.Time) (core.Summary, error)
		Now() time.Time
	}

	TransactionAPI interface {
		Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Get(ctx context.Context, owner string, id int64) (core.Transaction, error)
		List(ctx context.Context, owner string) ([]core.Transaction, error)
		Update(ctx context.Context, owner string, id int64, upd services.TransactionUpdate) (core.Transaction, error)
		Delete(ctx context.Context, owner string, id int64) error
	}

	GroupAPI interface {
		Invite(ctx context.Context, groupID int64, actorID, targetID string) error
		Remove(ctx context.Context, groupID int64, actorID, memberID string) error
		GetMember(ctx context.Context, groupID int64, actorID, memberID string) (core.GroupMember, error)
		ListMembers(ctx context.Context, groupID int64, actorID string) ([]core.GroupMember, error)
		PostTransaction(ctx context.Context, groupID int64, actorID string, tx core.Transaction) (core.Transaction, error)
		ListTransactions(ctx context.Context, groupID int64, actorID string) ([]core.Transaction, error)
		Budgets(ctx context.Context, groupID int64, actorID string) ([]core.BudgetUsage, error)
	}

	// Pinger reports backing-store health for the readiness probe.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

type Server struct {
	http.Server

	budgets      BudgetAPI
	usage        UsageAPI
	transactions TransactionAPI
	groups       GroupAPI
	store        Pinger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, budgets BudgetAPI, usage UsageAPI, transactions TransactionAPI, groups GroupAPI, store Pinger) *Server {
	mux := http.NewServeMux()

	httpLogger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: log.Middleware(httpLogger)(mux),
		},
		budgets:      budgets,
		usage:        usage,
		transactions: transactions,
		groups:       groups,
		store:        store,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /budgets", s.secured(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets", s.secured(s.handleListBudgets))
	mux.HandleFunc("PATCH /budgets/{id}", s.secured(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{id}", s.secured(s.handleDeleteBudget))

	mux.HandleFunc("POST /transactions", s.secured(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions", s.secured(s.handleListTransactions))
	mux.HandleFunc("GET /transactions/{id}", s.secured(s.handleGetTransaction))
	mux.HandleFunc("PATCH /transactions/{id}", s.secured(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.secured(s.handleDeleteTransaction))

	mux.HandleFunc("GET /summary", s.secured(s.handleSummary))

	mux.HandleFunc("POST /groups/{groupID}/transactions", s.secured(s.handlePostGroupTransaction))
	mux.HandleFunc("GET /groups/{groupID}/transactions", s.secured(s.handleListGroupTransactions))
	mux.HandleFunc("GET /groups/{groupID}/budgets", s.secured(s.handleGroupBudgets))
	mux.HandleFunc("GET /groups/{groupID}/members", s.secured(s.handleListGroupMembers))
	mux.HandleFunc("POST /groups/{groupID}/members/{userID}", s.secured(s.handleInviteGroupMember))
	mux.HandleFunc("GET /groups/{groupID}/members/{userID}", s.secured(s.handleGetGroupMember))
	mux.HandleFunc("DELETE /groups/{groupID}/members/{userID}", s.secured(s.handleRemoveGroupMember))

	return s
}

// secured adds security headers, rate limiting, and request logging.
func (s *Server) secured(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		reqLogger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		sl := log.NewStructuredLogger(reqLogger)
		sl.LogHTTPStart(ctx, r, clientIP)

		// Rate limit writes only; reads are cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		sl.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines
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
