// Package http exposes the JSON API: ledger operations, derived figures,
// goal tracking, auth, preferences, the advisor and the payment gateway.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/middleware/cors"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/payment"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

// Options carries the dependencies a Server needs.
type Options struct {
	Addr       string
	Ledger     *services.LedgerService
	Users      store.UserStore
	Sessions   session.Store
	SessionTTL time.Duration

	// Payments is nil when Razorpay credentials are not configured; the
	// payment endpoints then answer 503.
	Payments *payment.Client

	Logger *log.Logger

	RateLimit      ratelimit.Config
	AllowedOrigins []string
}

// Server wires the JSON API handlers behind the middleware chain.
type Server struct {
	http.Server

	ledger     *services.LedgerService
	users      store.UserStore
	sessions   session.Store
	sessionTTL time.Duration
	payments   *payment.Client
	logger     *log.Logger

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		ledger:     opts.Ledger,
		users:      opts.Users,
		sessions:   opts.Sessions,
		sessionTTL: opts.SessionTTL,
		payments:   opts.Payments,
		logger:     logger.WithComponent(log.ComponentHTTP),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 24 * time.Hour
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/signup", s.handleSignup)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/me", s.handleProfile)

	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/summary/monthly", s.handleMonthlySummary)
	mux.HandleFunc("/api/goal", s.handleGoal)
	mux.HandleFunc("/api/theme", s.handleTheme)
	mux.HandleFunc("/api/chat", s.handleChat)

	mux.HandleFunc("/api/create-order", s.handleCreateOrder)
	mux.HandleFunc("/api/verify-payment", s.handleVerifyPayment)
	mux.HandleFunc("/api/paytm/initiate", s.handlePaytmInitiate)

	resolver := security.NewClientIPResolver()
	traceMW := trace.NewMiddleware(resolver.ExtractClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	corsMW := cors.Middleware(cors.Config{AllowedOrigins: opts.AllowedOrigins})

	var handler http.Handler = mux
	handler = s.limiter.Middleware(resolver.ExtractClientIP)(handler)
	handler = corsMW(handler)
	handler = headersMW.Middleware(handler)
	handler = traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
