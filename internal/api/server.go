// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

// Service interfaces for dependency injection and testing

// HoldingServiceInterface defines the interface for holding operations
type HoldingServiceInterface interface {
	AddHolding(ctx context.Context, input *service.AddHoldingInput) (*models.Holding, error)
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	UpdateHolding(ctx context.Context, assetID, source string, input *service.UpdateHoldingInput) (*models.Holding, error)
	RemoveHolding(ctx context.Context, assetID, source string) error
}

// PortfolioServiceInterface defines the interface for portfolio valuation
type PortfolioServiceInterface interface {
	GetValuation(ctx context.Context) (*service.ValuationResult, error)
}

// SnapshotterInterface defines the interface for snapshot operations
type SnapshotterInterface interface {
	MaybeSnapshot(ctx context.Context, input service.SnapshotInput) (*models.HistorySnapshot, error)
	History(ctx context.Context) ([]models.HistorySnapshot, error)
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	holdingService   HoldingServiceInterface
	portfolioService PortfolioServiceInterface
	snapshotter      SnapshotterInterface
	config           *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	holdingService HoldingServiceInterface,
	portfolioService PortfolioServiceInterface,
	snapshotter SnapshotterInterface,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		holdingService:   holdingService,
		portfolioService: portfolioService,
		snapshotter:      snapshotter,
		config:           config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	limiter := rate.NewLimiter(rate.Limit(s.config.RateLimitRPS), 2*s.config.RateLimitRPS)

	// Middleware order matters: recovery wraps everything that can panic,
	// rate limiting runs after CORS so preflights are never throttled.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(limiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Portfolio endpoints
	api.HandleFunc("/portfolio", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/history", s.handleGetHistory).Methods("GET")

	// Holding endpoints
	api.HandleFunc("/holdings", s.handleListHoldings).Methods("GET")
	api.HandleFunc("/holdings", s.handleAddHolding).Methods("POST")
	api.HandleFunc("/holdings/{asset}/{source}", s.handleUpdateHolding).Methods("PUT")
	api.HandleFunc("/holdings/{asset}/{source}", s.handleRemoveHolding).Methods("DELETE")
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying router, used in tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
