package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"peoplebox/internal/ctgov"
	"peoplebox/internal/history"
	"peoplebox/internal/policy"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 30 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit = 60 // All routes
	ActionRateLimit = 20 // Cleaning/linting actions
)

// Server represents the HTTP server
type Server struct {
	Policy   *policy.Policy
	History  *history.History
	Trials   *ctgov.Client
	Logger   *slog.Logger
	APIKey   string
	TestMode bool
}

// NewServer creates a new server instance
func NewServer(pol *policy.Policy, hist *history.History, trials *ctgov.Client, logger *slog.Logger, apiKey string, testMode bool) *Server {
	return &Server{
		Policy:   pol,
		History:  hist,
		Trials:   trials,
		Logger:   logger,
		APIKey:   apiKey,
		TestMode: testMode,
	}
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Open routes
	r.Get("/healthz", s.HandleHealth)
	r.Get("/status", s.HandleStatus)

	// Authenticated action routes
	auth := RequireAPIKey(s.APIKey, s.Logger)
	r.With(auth).Post("/purify_url", s.HandlePurifyURL)
	r.With(auth).Get("/trials/search", s.HandleTrialsSearch)

	// Cleaning actions run the full pipeline; give them a stricter rate tier
	if !s.TestMode {
		actionLimit := NewActionRateLimitMiddleware(ActionRateLimit, s.Logger)
		r.With(auth, actionLimit).Post("/emit_people_json", s.HandleEmit)
		r.With(auth, actionLimit).Post("/lint_raw", s.HandleLintRaw)
	} else {
		r.With(auth).Post("/emit_people_json", s.HandleEmit)
		r.With(auth).Post("/lint_raw", s.HandleLintRaw)
	}

	return r
}

// Start starts the HTTP server
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
