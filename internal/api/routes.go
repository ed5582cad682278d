package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)
	admin := Chain(chain, RequireAdmin(h.auth))

	// Public
	mux.Handle("POST /api/applications", chain(http.HandlerFunc(h.SubmitApplication)))
	mux.Handle("POST /api/admin/login", chain(http.HandlerFunc(h.Login)))
	mux.Handle("GET /api/health", chain(http.HandlerFunc(h.Health)))

	// Admin
	mux.Handle("GET /api/admin/applications", admin(http.HandlerFunc(h.ListApplications)))
	mux.Handle("GET /api/admin/applications/{id}", admin(http.HandlerFunc(h.GetApplication)))
	mux.Handle("PUT /api/admin/applications/{id}/approved", admin(http.HandlerFunc(h.ApproveApplication)))
	mux.Handle("PUT /api/admin/applications/{id}/rejected", admin(http.HandlerFunc(h.RejectApplication)))
	mux.Handle("GET /api/admin/applications/{id}/document", admin(http.HandlerFunc(h.DocumentStatus)))
	mux.Handle("GET /api/admin/applications/{id}/pdf", admin(http.HandlerFunc(h.DownloadDocument)))

	// Ops
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Routes возвращает корневой http.Handler: маршруты, CORS и трассировка.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	origins := h.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return otelhttp.NewHandler(c.Handler(mux), "kycdoc-api")
}
