// Package main is the entry point for the MECSA API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mecsa/internal/config"
	"mecsa/internal/domain/audit"
	"mecsa/internal/domain/auth"
	"mecsa/internal/domain/catalogs/color"
	"mecsa/internal/domain/catalogs/fabric"
	"mecsa/internal/domain/catalogs/fiber"
	"mecsa/internal/domain/catalogs/supplier"
	"mecsa/internal/domain/catalogs/unit"
	"mecsa/internal/domain/catalogs/yarn"
	"mecsa/internal/domain/documents/dyeing_service_dispatch"
	"mecsa/internal/domain/documents/purchase_order"
	"mecsa/internal/domain/documents/service_order"
	"mecsa/internal/domain/documents/weaving_service_entry"
	"mecsa/internal/domain/documents/yarn_purchase_entry"
	"mecsa/internal/domain/documents/yarn_weaving_dispatch"
	"mecsa/internal/domain/params"
	"mecsa/internal/domain/registers/inventory"
	"mecsa/internal/domain/registers/supply"
	"mecsa/internal/domain/series"
	v1 "mecsa/internal/infrastructure/http/v1"
	"mecsa/internal/infrastructure/mail"
	"mecsa/internal/infrastructure/storage/postgres"
	"mecsa/internal/infrastructure/storage/postgres/audit_repo"
	"mecsa/internal/infrastructure/storage/postgres/auth_repo"
	"mecsa/internal/infrastructure/storage/postgres/catalog_repo"
	"mecsa/internal/infrastructure/storage/postgres/movement_repo"
	"mecsa/internal/infrastructure/storage/postgres/order_repo"
	"mecsa/internal/infrastructure/storage/postgres/param_repo"
	"mecsa/internal/infrastructure/storage/postgres/register_repo"
	"mecsa/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	relayInterval   = 5 * time.Second
	relayBatchSize  = 100
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infow("starting mecsa server", "env", cfg.Env, "port", cfg.Port)

	// --- Database pools ---
	appPool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.AppDatabaseURL, "mecsa-app"))
	if err != nil {
		log.Fatalw("failed to connect to app database", "error", err)
	}
	defer appPool.Close()

	promecPool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.PromecDatabaseURL, "mecsa-promec"))
	if err != nil {
		log.Fatalw("failed to connect to promec database", "error", err)
	}
	defer promecPool.Close()

	appTx := postgres.NewTxManager("app", appPool)
	promecTx := postgres.NewTxManager("promec", promecPool)

	// --- Parameters ---
	paramsService := params.NewService(param_repo.New(appTx))
	loader := params.NewLoader(paramsService)

	// --- Sequences ---
	seriesService := series.NewService(postgres.NewSeriesRepo(promecTx))

	// --- Catalogs ---
	colors := color.NewService(catalog_repo.NewColorRepo(appTx))
	fibers := fiber.NewService(catalog_repo.NewFiberRepo(appTx), loader, colors)
	units := unit.NewService(catalog_repo.NewUnitRepo(promecTx))
	suppliers := supplier.NewCatalogService(catalog_repo.NewSupplierRepo(promecTx))

	itemRepo := catalog_repo.NewItemRepo(promecTx)
	yarns := yarn.NewService(itemRepo, catalog_repo.NewYarnRecipeRepo(appTx),
		fibers, loader, seriesService, promecTx, appTx)
	fabrics := fabric.NewService(itemRepo, catalog_repo.NewFabricRecipeRepo(appTx),
		yarns, loader, seriesService, promecTx, appTx)

	// --- Registers ---
	inventoryService := inventory.NewService(register_repo.NewInventoryRepo(promecTx))
	supplyService := supply.NewService(register_repo.NewSupplyRepo(promecTx))

	// --- Movement engine ---
	outboxPublisher := postgres.NewOutboxPublisher(promecTx)
	headerRepo := movement_repo.NewHeaderRepo(promecTx).WithOutbox(outboxPublisher)
	detailRepo := movement_repo.NewDetailRepo(promecTx)
	heavyRepo := movement_repo.NewHeavyRepo(promecTx)
	warehouseRepo := movement_repo.NewWarehouseRepo(promecTx)
	cardRepo := movement_repo.NewCardRepo(promecTx)

	purchaseOrders := purchase_order.NewService(order_repo.NewPurchaseOrderRepo(promecTx))
	orders := service_order.NewService(order_repo.NewServiceOrderRepo(promecTx), suppliers, promecTx)

	purchaseEntries := yarn_purchase_entry.NewService(headerRepo, detailRepo, heavyRepo,
		purchaseOrders, suppliers, inventoryService, seriesService, promecTx)
	weavingDispatches := yarn_weaving_dispatch.NewService(headerRepo, detailRepo, heavyRepo,
		suppliers, orders, fabrics, inventoryService, supplyService, seriesService, promecTx)
	weavingEntries := weaving_service_entry.NewService(headerRepo, detailRepo, warehouseRepo,
		cardRepo, suppliers, orders, fabrics, inventoryService, supplyService, seriesService, promecTx)
	dyeingDispatches := dyeing_service_dispatch.NewService(headerRepo, detailRepo, warehouseRepo,
		cardRepo, suppliers, fabrics, inventoryService, seriesService, promecTx)

	// --- Security ---
	jwtConfig := auth.DefaultJWTConfig(cfg.SecretKey)
	jwtConfig.AccessTokenTTL = cfg.AccessTokenTTL
	jwtConfig.RefreshTokenTTL = cfg.RefreshTokenTTL
	jwtService := auth.NewJWTService(jwtConfig)

	var mailer auth.Mailer = mail.LogMailer{}
	if cfg.ResendAPIKey != "" {
		mailer = mail.NewResendMailer(cfg.ResendAPIKey, cfg.SenderName, cfg.SenderEmail)
	} else {
		log.Warn("RESEND_API_KEY not set, login codes will only be logged")
	}

	authService := auth.NewService(
		auth_repo.NewUserRepo(appTx),
		auth_repo.NewRoleRepo(appTx),
		auth_repo.NewSessionRepo(appTx),
		auth_repo.NewTokenRepo(appTx),
		appTx, jwtService, mailer, loader)

	// --- Audit ---
	auditRepo := audit_repo.New(appTx)
	auditService, err := audit.NewService(auditRepo, appTx)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	// Relay Promec-side movement events into the App DB audit data log.
	relay := postgres.NewOutboxRelay(promecPool.Unwrap(), relayBatchSize,
		audit_repo.NewOutboxHandler(auditRepo))
	go relay.Run(ctx, relayInterval)

	// --- HTTP server ---
	router := v1.NewRouter(v1.RouterConfig{
		AppPool:    appPool.Unwrap(),
		PromecPool: promecPool.Unwrap(),

		AuthService:  authService,
		JWTService:   jwtService,
		AuditService: auditService,

		Colors:    colors,
		Fibers:    fibers,
		Units:     units,
		Suppliers: suppliers,
		Params:    paramsService,
		Yarns:     yarns,
		Fabrics:   fabrics,

		PurchaseEntries:   purchaseEntries,
		WeavingDispatches: weavingDispatches,
		WeavingEntries:    weavingEntries,
		DyeingDispatches:  dyeingDispatches,
		Orders:            orders,

		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
