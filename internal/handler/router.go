package handler

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Shivanand-hulikatti/fundraiser-events/internal/auth"
)

// RouterOptions selects the optional parts of the HTTP surface.
type RouterOptions struct {
	JWTSecret     string
	EnableCORS    bool
	EnableMetrics bool
}

// NewRouter builds the chi router with the global middleware stack, the
// plain health and metrics endpoints, and the huma operations.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httplog.RequestLogger(httplog.NewLogger("fundraiser-events", httplog.Options{
		JSON:            true,
		Concise:         true,
		LogLevel:        slog.LevelInfo,
		QuietDownRoutes: []string{"/health"},
	})))
	if opts.EnableCORS {
		// Any origin; intended for local front-end development.
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:       []string{"*"},
			AllowedMethods:       []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:       []string{"Authorization", "Content-Type"},
			MaxAge:               300,
			OptionsSuccessStatus: http.StatusNoContent,
		}))
	}
	r.Use(auth.Middleware(opts.JWTSecret))

	r.Get("/health", HealthCheck)
	if opts.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	config := huma.DefaultConfig("Fundraiser Events API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, config)
	h.Register(api)

	return r
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
