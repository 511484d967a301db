// Package httpapi exposes a goadsio client as a small JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrpasztoradam/goadsio"
	"github.com/mrpasztoradam/goadsio/config"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	logger     goadsio.Logger
	gatherer   prometheus.Gatherer
	bridge     *Bridge
	handler    *Handler
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new HTTP server for plc. A nil gatherer serves the
// default Prometheus registry on /metrics.
func NewServer(cfg *config.Config, plc PLC, logger goadsio.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = goadsio.DefaultLogger
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	bridge := NewBridge(plc)
	s := &Server{
		config:   cfg,
		logger:   logger,
		gatherer: gatherer,
		bridge:   bridge,
		handler:  NewHandler(bridge),
	}

	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	if c := s.config.HTTP.CORS; c.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   c.AllowedOrigins,
			AllowedMethods:   c.AllowedMethods,
			AllowedHeaders:   c.AllowedHeaders,
			AllowCredentials: c.AllowCredentials,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/info", s.handler.HandleInfo)
		r.Get("/status", s.handler.HandleStatus)
		r.Post("/connect", s.handler.HandleConnect)
		r.Post("/disconnect", s.handler.HandleDisconnect)

		r.Route("/memory/{address}", func(r chi.Router) {
			r.Get("/", s.handler.HandleReadMemory)
			r.Put("/", s.handler.HandleWriteMemory)
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"name":    "goadsio HTTP API",
			"version": goadsio.Version(),
			"api":     "/api/v1",
		})
	})

	s.router = r
}

// requestLogger logs one line per request and tags the request context so
// client log lines carry the request ID.
func requestLogger(logger goadsio.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimiddleware.GetReqID(r.Context())
			ctx := goadsio.ContextWithLogFields(r.Context(), "request_id", reqID)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", reqID,
			)
		})
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP API", "address", s.config.Address(), "plc", s.config.PLC.URL)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and closes the PLC session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}

	s.bridge.Disconnect()
	s.logger.Info("HTTP API stopped")
	return nil
}

// Router returns the chi router (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
