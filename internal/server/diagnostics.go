// internal/server/diagnostics.go

package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"incidentmap/internal/config"
	"incidentmap/internal/domain/incident"
	"incidentmap/internal/metrics"
	"incidentmap/internal/server/handlers"
)

// NewDiagnosticsServer creates the listener for metrics and debug views.
// It is kept off the public router so it can bind to a private address.
func NewDiagnosticsServer(
	cfg config.DiagnosticsConfig,
	m *metrics.Metrics,
	reconciler incident.Reconciler,
) *Server {
	router := chi.NewRouter()

	incidentHandler := handlers.NewIncidentHandler(reconciler)

	router.Handle("/metrics", m.Handler())
	router.Route("/debug", func(r chi.Router) {
		r.Get("/errors", incidentHandler.ListErrors)
		r.Get("/snapshot", incidentHandler.GetSnapshot)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: c.Handler(router),
		},
		router: router,
	}
}
