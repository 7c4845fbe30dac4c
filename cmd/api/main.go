package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fenestra-platform/fenestra/internal/activity"
	"github.com/fenestra-platform/fenestra/internal/api"
	"github.com/fenestra-platform/fenestra/internal/auth"
	"github.com/fenestra-platform/fenestra/internal/brand"
	"github.com/fenestra-platform/fenestra/internal/catalog"
	"github.com/fenestra-platform/fenestra/internal/config"
	"github.com/fenestra-platform/fenestra/internal/database"
	"github.com/fenestra-platform/fenestra/internal/leads"
	"github.com/fenestra-platform/fenestra/internal/middleware"
	inats "github.com/fenestra-platform/fenestra/internal/nats"
	"github.com/fenestra-platform/fenestra/internal/quota"
	iredis "github.com/fenestra-platform/fenestra/internal/redis"
	"github.com/fenestra-platform/fenestra/internal/sellers"
	"github.com/fenestra-platform/fenestra/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional: the platform runs without eventing)
	var natsClient *inats.Client
	var publisher *inats.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
	}

	// Auth
	verifier := auth.NewVerifier(cfg.JWT)

	// Quota ledger
	quotaRepo := quota.NewRepository(pool)
	ledger := quota.NewLedger(quotaRepo, cfg.Quota)

	// Sellers
	sellerRepo := sellers.NewRepository(pool)
	sellerSvc := sellers.NewService(sellerRepo, cfg.Quota)
	sellerHandler := sellers.NewHandler(sellerSvc, ledger)

	// Brand concentration guard
	guard := brand.NewGuard(sellerSvc)

	// Catalog
	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(catalogRepo)

	// Leads
	leadRepo := leads.NewRepository(pool)
	policy := leads.NewPricingPolicy(cfg.Pricing)
	leadSvc := leads.NewService(leadRepo, catalogRepo, policy, eventPublisher(publisher))
	allocator := leads.NewAllocator(leadRepo, sellerSvc, ledger, guard, eventPublisher(publisher))
	leadHandler := leads.NewHandler(leadSvc, allocator)

	// Lead activity trail
	activityRepo := activity.NewRepository(pool)
	activityHandler := activity.NewHandler(activityRepo)
	if natsClient != nil {
		consumer := activity.NewConsumer(activityRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("activity consumer stopped", "error", err)
			}
		}()
	}

	// Rate limiting on write endpoints
	writeLimiter := middleware.NewRateLimiter(redisClient, "write", cfg.Rate.Requests, cfg.Rate.WindowSec)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		WriteRateLimiter:   writeLimiter.Middleware,
	}, api.HandlerSet{
		CreateLead:         leadHandler.Create,
		ListLeads:          leadHandler.List,
		GetLead:            leadHandler.Get,
		GetLeadVisibility:  leadHandler.GetVisibility,
		PurchaseLead:       leadHandler.Purchase,
		PreviewPricing:     leadHandler.Preview,
		OverrideLeadStatus: leadHandler.OverrideStatus,
		DeleteLead:         leadHandler.Delete,
		ListLeadEvents:     activityHandler.ListByLead,

		ListCategories: catalogHandler.ListCategories,
		ListProducts:   catalogHandler.ListProducts,

		RegisterSeller: sellerHandler.Register,
		GetSeller:      sellerHandler.Get,
		ListSellers:    sellerHandler.List,
		ApproveSeller:  sellerHandler.Approve,
		RejectSeller:   sellerHandler.Reject,
		BlockSeller:    sellerHandler.Block,
		UnblockSeller:  sellerHandler.Unblock,
		SellerQuota:    sellerHandler.Quota,

		BuyerAuth:         auth.Middleware(verifier, auth.PrincipalBuyer),
		SellerAuth:        auth.Middleware(verifier, auth.PrincipalSeller),
		AdminAuth:         auth.Middleware(verifier, auth.PrincipalAdmin),
		SellerOrAdminAuth: auth.Middleware(verifier, auth.PrincipalSeller, auth.PrincipalAdmin),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// eventPublisher keeps a typed nil out of the EventPublisher interface when
// NATS is disabled.
func eventPublisher(p *inats.Publisher) leads.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
