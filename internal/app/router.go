// Package app wires configuration, middleware, and routes into an HTTP handler.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/haziqlabs/haziq-ai/internal/adapter/httpserver"
	"github.com/haziqlabs/haziq-ai/internal/adapter/observability"
	"github.com/haziqlabs/haziq-ai/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	// The request deadline must outlive a full provider dispatch, so it
	// follows the provider timeout rather than a fixed value.
	r.Use(httpserver.TimeoutMiddleware(cfg.ProviderTimeout + 10*time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1/auth", func(ar chi.Router) {
		ar.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		ar.Post("/register", srv.RegisterHandler())
		ar.Post("/login", srv.LoginHandler())
		ar.Post("/logout", srv.LogoutHandler())
	})

	r.Group(func(gr chi.Router) {
		gr.Use(srv.StudentSessions.RequireAuth)
		gr.Group(func(cr chi.Router) {
			cr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
			cr.Post("/v1/chat", srv.ChatHandler())
		})
		gr.Get("/v1/sessions", srv.SessionsListHandler())
		gr.Get("/v1/sessions/{id}", srv.SessionGetHandler())
		gr.Delete("/v1/sessions/{id}", srv.SessionDeleteHandler())
	})

	r.Get("/v1/app-info", srv.AppInfoHandler())

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	httpserver.MountAdmin(r, srv)

	return httpserver.SecurityHeaders(r)
}
