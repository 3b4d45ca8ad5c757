// Package server provides the PromptNote HTTP API: items, collections,
// tags and auth, backed by the SQLite store.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/promptnote/promptnote/internal/auth"
	"github.com/promptnote/promptnote/internal/config"
	"github.com/promptnote/promptnote/internal/ratelimit"
	"github.com/promptnote/promptnote/internal/server/sqlite"
)

// Version reported by the status endpoint.
const Version = "1.0.0"

// cleanupInterval is how often expired token records are purged.
const cleanupInterval = time.Hour

// Server holds dependencies for the HTTP API.
type Server struct {
	store        *sqlite.Store
	tokens       *auth.TokenService
	cfg          *config.Config
	router       *chi.Mux
	api          huma.API
	logger       *slog.Logger
	loginLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, store *sqlite.Store, tokens *auth.TokenService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig("PromptNote API", Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		router: router,
		api:    api,
		logger: logger,
		// 5 login attempts per minute per IP.
		loginLimiter: ratelimit.New(5.0/60.0, 5),
	}

	s.registerStatusRoutes()
	s.registerAuthRoutes()
	s.registerItemRoutes()
	s.registerCollectionRoutes()
	s.registerTagRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartCleanup runs the expired-token purge on a fixed interval until the
// context is canceled.
func (s *Server) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.store.PurgeExpired(ctx, time.Now()); err != nil {
					s.logger.Error("token cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.loginLimiter.Stop()
}

// === Status ===

// StatusResponse is the health payload from GET /api/status.
type StatusResponse struct {
	Status    string `json:"status" doc:"Always online when reachable"`
	Timestamp string `json:"timestamp" doc:"Server time, RFC3339"`
	Database  string `json:"database" doc:"Database availability"`
	Server    string `json:"server" doc:"Server state"`
}

// StatusOutput wraps the status response for Huma.
type StatusOutput struct {
	Body StatusResponse
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Connection probe",
		Description: "Lightweight endpoint the client polls to detect online/offline transitions.",
		Tags:        []string{"Status"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health check",
		Tags:        []string{"Status"},
	}, s.handleHealth)
}

func (s *Server) handleStatus(_ context.Context, _ *struct{}) (*StatusOutput, error) {
	return &StatusOutput{
		Body: StatusResponse{
			Status:    "online",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Database:  "online",
			Server:    "running",
		},
	}, nil
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "OK"
	return out, nil
}
