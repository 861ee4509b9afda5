package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"posledger/internal/cache"
	"posledger/internal/core"
	"posledger/internal/log"
	"posledger/internal/report"
	"posledger/internal/services"
)

// Ledger is the set of ledger operations exposed over HTTP.
type Ledger interface {
	Create(ctx context.Context, req services.TransactionRequest, timeString string) services.Result
	Update(ctx context.Context, tx core.Transaction, timeString string) services.Result
	Delete(ctx context.Context, id string) services.Result
	SelectDate(dateString string) services.Result
	SelectType(filter string) services.Result
	Summary() core.DailySummary
	SummaryFor(dateString, filter string) (core.DailySummary, core.TypeFilter, error)
	Transactions() []core.Transaction
	Selection() services.Selection
	Revision() uint64
}

// Options tune the server. Zero values fall back to defaults.
type Options struct {
	CORSAllowedOrigins []string
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
	RequestsPerMinute  int
	Renderer           *report.Renderer
	Logger             *log.Logger
}

type Server struct {
	http.Server

	ledger   Ledger
	validate *services.ValidationHelper
	renderer *report.Renderer
	logger   *log.Logger
	errors   *log.StructuredLogger

	reports *cache.LRU[cache.ReportKey, []byte]
	caches  *cache.Manager
	limiter *rateLimiter

	shutdownOnce sync.Once
}

func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Renderer == nil {
		opts.Renderer = report.NewRenderer()
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 32
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 10 * time.Minute
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 120
	}

	s := &Server{
		ledger:   ledger,
		validate: services.NewValidationHelper(),
		renderer: opts.Renderer,
		logger:   opts.Logger.WithComponent(log.ComponentHTTP),
		errors:   log.NewStructuredLogger(opts.Logger),
		reports:  cache.NewLRU[cache.ReportKey, []byte](opts.ReportCacheSize, opts.ReportCacheTTL),
		caches:   cache.NewManager(opts.Logger),
		limiter:  newRateLimiter(opts.RequestsPerMinute),
	}
	s.caches.Register(s.reports)

	s.Addr = addr
	s.Handler = s.routes(opts.CORSAllowedOrigins)
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16

	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogging(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.limiter.middleware)

		api.Route("/transactions", func(tx chi.Router) {
			tx.Get("/", s.handleListTransactions)
			tx.Post("/", s.handleCreateTransaction)
			tx.Put("/{id}", s.handleUpdateTransaction)
			tx.Delete("/{id}", s.handleDeleteTransaction)
		})
		api.Get("/summary", s.handleSummary)
		api.Put("/selection", s.handleSelection)
		api.Get("/report.pdf", s.handleReport)
	})

	return r
}

// Start begins background maintenance. It returns immediately.
func (s *Server) Start(ctx context.Context) {
	s.caches.Start(ctx, time.Minute)
	s.limiter.startCleanup(5 * time.Minute)
}

// Shutdown stops background maintenance and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.close()
	})
	return s.Server.Shutdown(ctx)
}
