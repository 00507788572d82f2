package main

import (
	"context"
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tabletrack.dev/app/internal/config"
	"tabletrack.dev/app/internal/gateway"
	apphttp "tabletrack.dev/app/internal/http"
	"tabletrack.dev/app/internal/modules/catalog"
	"tabletrack.dev/app/internal/modules/orders"
	"tabletrack.dev/app/internal/modules/payments"
	"tabletrack.dev/app/internal/notify"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := config.Load()
	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&catalog.Item{},
		&orders.Order{},
		&orders.OrderItem{},
		&orders.OrderStatusEvent{},
		&payments.Payment{},
		&payments.GatewayEvent{},
	); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	hub := notify.NewHub(logger)
	go hub.Run(context.Background())

	// Gateway client is an explicit dependency; nil means "not configured"
	// and intent creation answers 503.
	var gw gateway.Client
	if cfg.Gateway.Configured() {
		gw = gateway.NewRazorClient(cfg.Gateway, logger)
	} else {
		logger.Warn("payment gateway not configured; intent creation disabled")
	}

	ledger := payments.NewLedger()
	catalogRepo := catalog.NewRepo(db)
	orderSvc := orders.NewService(db, catalogRepo, ledger, hub, cfg.Currency)
	orderRepo := orders.NewRepo(db)
	adminSvc := orders.NewAdminService(db, ledger, hub)
	intentSvc := payments.NewIntentService(db, gw, logger)
	reconciler := payments.NewReconciler(db, hub, logger,
		cfg.Gateway.VerifySecret, cfg.Gateway.WebhookSecret)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:     logger,
		OrderSvc:   orderSvc,
		OrderRepo:  orderRepo,
		AdminSvc:   adminSvc,
		IntentSvc:  intentSvc,
		Reconciler: reconciler,
		Hub:        hub,
	})

	logger.Info("api listening", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
