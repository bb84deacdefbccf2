// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"incidentmap/internal/config"
	"incidentmap/internal/domain/incident"
	"incidentmap/internal/server/handlers"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server. surface serves the websocket
// endpoint that map clients connect to.
func NewServer(
	cfg config.ServerConfig,
	version string,
	reconciler incident.Reconciler,
	surface http.Handler,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	incidentHandler := handlers.NewIncidentHandler(reconciler)

	// Routes
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Client reload check
		r.Get("/version", handlers.VersionHandler(version))

		r.Route("/api", func(r chi.Router) {
			// Health check
			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("OK"))
			})

			// API version
			r.Route("/v1", func(r chi.Router) {
				r.Get("/watermark", incidentHandler.GetWatermark)
				r.Get("/labels", incidentHandler.ListLabels)

				// Markers API
				r.Route("/markers", func(r chi.Router) {
					r.Get("/", incidentHandler.ListMarkers)
					r.Get("/nearby", incidentHandler.GetNearbyMarkers)
					r.Get("/{key}", incidentHandler.GetMarker)
				})

				// Sidebar API
				r.Route("/sidebar", func(r chi.Router) {
					r.Get("/", incidentHandler.ListSidebar)
					r.Post("/{id}/focus", incidentHandler.FocusSidebarEntry)
				})
			})
		})
	})

	// WebSocket endpoint for live marker updates
	if surface != nil {
		router.Get("/ws", surface.ServeHTTP)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
