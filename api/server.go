/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request, echoed in dispatch logs
  4. CORS:       Cross-origin requests for the form UI

ROUTE GROUPS:
  /api/doctypes                   Catalog contents
  /api/documents/{doctype}/*      Documents, rows, lifecycle
  /api/dashboards/daily-rejection Rejection dashboard
  /api/dashboards/production-log-book Production log book dashboard
  /api/scenarios/*                Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/doctypes", h.ListDocTypes)

		// Document routes
		r.Route("/documents/{doctype}", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.GetDocument)
				r.Delete("/", h.DeleteDocument)
				r.Put("/fields/{field}", h.SetField)
				r.Post("/submit", h.SubmitDocument)
				r.Post("/cancel", h.CancelDocument)

				// Row routes
				r.Post("/rows/{collection}", h.AddRow)
				r.Put("/rows/{collection}/{row}/fields/{field}", h.SetRowField)
				r.Delete("/rows/{collection}/{row}", h.DeleteRow)
			})
		})

		// Dashboard routes
		r.Route("/dashboards/daily-rejection", func(r chi.Router) {
			r.Get("/overview", h.RejectionOverview)
			r.Get("/table", h.RejectionTable)
			r.Get("/trend", h.RejectionTrend)
		})
		r.Route("/dashboards/production-log-book", func(r chi.Router) {
			r.Get("/overview", h.LogBookOverview)
			r.Get("/entries", h.LogBookEntries)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
