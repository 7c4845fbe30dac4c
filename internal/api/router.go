package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fenestra-platform/fenestra/internal/database"
	mw "github.com/fenestra-platform/fenestra/internal/middleware"
	inats "github.com/fenestra-platform/fenestra/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Lead handlers
	CreateLead         http.HandlerFunc
	ListLeads          http.HandlerFunc
	GetLead            http.HandlerFunc
	GetLeadVisibility  http.HandlerFunc
	PurchaseLead       http.HandlerFunc
	PreviewPricing     http.HandlerFunc
	OverrideLeadStatus http.HandlerFunc
	DeleteLead         http.HandlerFunc
	ListLeadEvents     http.HandlerFunc

	// Catalog handlers (public reference data)
	ListCategories http.HandlerFunc
	ListProducts   http.HandlerFunc

	// Seller handlers
	RegisterSeller http.HandlerFunc
	GetSeller      http.HandlerFunc
	ListSellers    http.HandlerFunc
	ApproveSeller  http.HandlerFunc
	RejectSeller   http.HandlerFunc
	BlockSeller    http.HandlerFunc
	UnblockSeller  http.HandlerFunc
	SellerQuota    http.HandlerFunc

	// Auth middleware per principal class
	BuyerAuth         func(http.Handler) http.Handler
	SellerAuth        func(http.Handler) http.Handler
	AdminAuth         func(http.Handler) http.Handler
	SellerOrAdminAuth func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	WriteRateLimiter   func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if natsClient != nil && !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if natsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	limited := func(r chi.Router) chi.Router {
		if cfg.WriteRateLimiter != nil {
			return r.With(cfg.WriteRateLimiter)
		}
		return r
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/categories", h.ListCategories)
			r.Get("/categories/{id}/products", h.ListProducts)
		})

		r.Route("/sellers", func(r chi.Router) {
			// Public onboarding
			limited(r).Post("/register", h.RegisterSeller)

			r.Group(func(r chi.Router) {
				r.Use(h.SellerAuth)
				r.Get("/me/quota", h.SellerQuota)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.AdminAuth)
				r.Get("/", h.ListSellers)
				r.Get("/{id}", h.GetSeller)
				r.Post("/{id}/approve", h.ApproveSeller)
				r.Post("/{id}/reject", h.RejectSeller)
				r.Post("/{id}/block", h.BlockSeller)
				r.Post("/{id}/unblock", h.UnblockSeller)
			})
		})

		r.Route("/leads", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.BuyerAuth)
				limited(r).Post("/", h.CreateLead)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.SellerOrAdminAuth)
				r.Get("/", h.ListLeads)
				r.Get("/preview", h.PreviewPricing)
				r.Get("/{id}", h.GetLead)
				r.Get("/{id}/visibility", h.GetLeadVisibility)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.SellerAuth)
				limited(r).Post("/purchase", h.PurchaseLead)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.AdminAuth)
				r.Patch("/{id}/status", h.OverrideLeadStatus)
				r.Delete("/{id}", h.DeleteLead)
				r.Get("/{id}/events", h.ListLeadEvents)
			})
		})
	})

	return r
}
