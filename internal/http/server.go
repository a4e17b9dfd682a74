package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shosatojp/kakeibo-back/internal/cache"
	applog "github.com/shosatojp/kakeibo-back/internal/log"
	"github.com/shosatojp/kakeibo-back/internal/middleware/ratelimit"
	"github.com/shosatojp/kakeibo-back/internal/middleware/security"
	"github.com/shosatojp/kakeibo-back/internal/middleware/trace"
	"github.com/shosatojp/kakeibo-back/internal/services"
)

type Server struct {
	http.Server

	auth     *services.AuthService
	sessions *services.SessionService
	ledger   *services.LedgerService
	summary  *services.SummaryService

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	// Only id -> user name lookups are cached: a user's name never changes
	// once registered. Aggregates are recomputed on every request because
	// their window clamps to the clock.
	userNames    *cache.LRUCache[string]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, auth *services.AuthService, sessions *services.SessionService, ledger *services.LedgerService, summary *services.SummaryService) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()

	s := &Server{
		auth:         auth,
		sessions:     sessions,
		ledger:       ledger,
		summary:      summary,
		detector:     detector,
		rateLimiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		userNames:    cache.NewLRUCache[string](500, time.Hour),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.userNames)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/v1/register", s.handleRegister)
	mux.HandleFunc("/api/v1/auth", s.handleAuth)
	mux.HandleFunc("/api/v1/logout", s.handleLogout)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("/api/v1/username", s.handleUserName)
	mux.HandleFunc("/api/v1/available/username", s.handleUserNameAvailable)
	mux.HandleFunc("/api/v1/available/password", s.handlePasswordAvailable)

	mux.HandleFunc("/api/v1/entry", s.handleEntry)
	mux.HandleFunc("/api/v1/category", s.handleCategories)
	mux.HandleFunc("/api/v1/month", s.handleMonth)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, credentialEndpoint)

	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.Default().Handler(),
	})
	withLogger := applog.Middleware(logger)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})

	// Outermost first: tracing wraps everything so rate-limited and rejected
	// requests still show up in the request log.
	handler := s.tracer.Middleware(
		headers.Middleware(
			limited(
				s.suspicionFilter(
					withLogger(
						withRequestID(
							security.NoStoreMiddleware(mux)))))))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// credentialEndpoint marks the routes that accept a password, which run on
// the limiter's stricter budget.
func credentialEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/api/v1/auth", "/api/v1/register":
		return true
	}
	return false
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
