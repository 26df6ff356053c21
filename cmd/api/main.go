package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/config"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/logging"
	"github.com/georgemunganga/tillcore/internal/migrations"
	"github.com/georgemunganga/tillcore/internal/modules/auth"
	"github.com/georgemunganga/tillcore/internal/modules/catalog"
	"github.com/georgemunganga/tillcore/internal/modules/eventlog"
	"github.com/georgemunganga/tillcore/internal/modules/inventory"
	"github.com/georgemunganga/tillcore/internal/modules/keyboard"
	"github.com/georgemunganga/tillcore/internal/modules/payment"
	"github.com/georgemunganga/tillcore/internal/modules/register"
	"github.com/georgemunganga/tillcore/internal/modules/sale"
	"github.com/georgemunganga/tillcore/internal/modules/session"
	"github.com/georgemunganga/tillcore/internal/modules/settings"
	"github.com/georgemunganga/tillcore/internal/modules/stockline"
	"github.com/georgemunganga/tillcore/internal/modules/stocktake"
	"github.com/georgemunganga/tillcore/internal/modules/supplier"
	"github.com/georgemunganga/tillcore/internal/modules/transaction"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/georgemunganga/tillcore/internal/modules/vat"
	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/georgemunganga/tillcore/internal/peripheral"
	"github.com/georgemunganga/tillcore/internal/secrets"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Development())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Run(ctx, db); err != nil {
		logger.Fatal("applying schema", zap.Error(err))
	}

	clk := clock.System{}
	printer := peripheral.NewLogPrinter(logger.Named("printer"), 40)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// ── Settings, event log & users ─────────────────────────
	settingsService, err := settings.NewService(settings.NewPostgresRepository(db), logger.Named("settings"))
	if err != nil {
		logger.Fatal("settings", zap.Error(err))
	}
	eventService := eventlog.NewService(eventlog.NewPostgresRepository(db), clk, logger.Named("eventlog"))

	userService := user.NewService(user.NewPostgresRepository(db), clk, logger.Named("user"))
	authService := auth.NewService(userService, cfg.JWTSecret, clk, logger.Named("auth"))
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Catalog & stock ─────────────────────────────────────
	vatService := vat.NewService(vat.NewPostgresRepository(db))
	supplierService := supplier.NewService(
		supplier.NewPostgresRepository(db),
		supplier.NewBusinessPostgresRepository(db),
	)
	catalogService := catalog.NewService(catalog.NewPostgresRepository(db), clk)
	inventoryService := inventory.NewService(
		inventory.NewDeliveryPostgresRepository(db),
		inventory.NewStockPostgresRepository(db),
		catalogService,
		clk,
	)
	stocklineService := stockline.NewService(stockline.NewPostgresRepository(db), inventoryService,
		settingsService, clk, logger.Named("stockline"))
	stocktakeService := stocktake.NewService(stocktake.NewPostgresRepository(db), eventService,
		clk, logger.Named("stocktake"))

	modifiers := sale.NewDefaultRegistry()
	keyboardService, err := keyboard.NewService(keyboard.NewPostgresRepository(db), modifiers, logger.Named("keyboard"))
	if err != nil {
		logger.Fatal("keyboard", zap.Error(err))
	}

	// ── Sessions, transactions & payments ───────────────────
	sessionService := session.NewService(session.NewPostgresRepository(db), settingsService,
		eventService, clk, logger.Named("session"))
	transactionService := transaction.NewService(transaction.NewPostgresRepository(db), userService,
		settingsService, eventService, clk, logger.Named("transaction"))

	cardKey, err := cardTerminalKey(ctx, cfg, db)
	if err != nil {
		logger.Fatal("card terminal credentials", zap.Error(err))
	}
	drivers := payment.DriverRegistry{
		"cash": payment.NewCashDriver(),
		"card": payment.NewCardDriver(payment.NewTerminalClient(cfg.CardTerminalBaseURL, cardKey)),
	}
	paymentService := payment.NewService(payment.NewPostgresRepository(db), drivers, transactionService,
		settingsService, printer, eventService, clk, logger.Named("payment"))

	// ── Register ────────────────────────────────────────────
	registerID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(cfg.RegisterName))
	reg := register.New(registerID, register.Deps{
		Users:        userService,
		Keys:         keyboardService,
		Catalog:      catalogService,
		Stock:        inventoryService,
		Lines:        stocklineService,
		Stocktakes:   stocktakeService,
		Modifiers:    modifiers,
		Transactions: transactionService,
		Payments:     paymentService,
		Settings:     settingsService,
		Printer:      printer,
		Clock:        clk,
		Log:          logger,
	})

	router.Group(func(r chi.Router) {
		r.Use(authService.Middleware)

		settings.NewHandler(settingsService).RegisterRoutes(r)
		eventlog.NewHandler(eventService).RegisterRoutes(r)
		user.NewHandler(userService).RegisterRoutes(r)
		vat.NewHandler(vatService).RegisterRoutes(r)
		supplier.NewHandler(supplierService).RegisterRoutes(r)
		catalog.NewHandler(catalogService).RegisterRoutes(r)
		inventory.NewHandler(inventoryService).RegisterRoutes(r)
		stockline.NewHandler(stocklineService).RegisterRoutes(r)
		stocktake.NewHandler(stocktakeService).RegisterRoutes(r)
		keyboard.NewHandler(keyboardService).RegisterRoutes(r)
		session.NewHandler(sessionService).RegisterRoutes(r)
		transaction.NewHandler(transactionService).RegisterRoutes(r)
		payment.NewHandler(paymentService, cfg.CardPollInterval).RegisterRoutes(r)
		register.NewHandler(reg, logger.Named("register")).RegisterRoutes(r)
	})

	// ── Notifications ───────────────────────────────────────
	dispatcher := notify.NewListener(cfg.DatabaseURL, logger.Named("notify"))
	configCh, err := dispatcher.Subscribe(notify.ChannelConfig)
	if err != nil {
		logger.Fatal("listening for config changes", zap.Error(err))
	}
	keycapsCh, err := dispatcher.Subscribe(notify.ChannelKeycaps)
	if err != nil {
		logger.Fatal("listening for keycap changes", zap.Error(err))
	}
	go settingsService.Watch(ctx, configCh)
	go keyboardService.Watch(ctx, keycapsCh)
	go dispatcher.Run(ctx)

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down", zap.Error(err))
		}
	}()

	logger.Info("till API server starting",
		zap.String("port", cfg.Port),
		zap.String("register", cfg.RegisterName),
		zap.String("register_id", registerID.String()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server", zap.Error(err))
	}
}

// cardTerminalKey prefers the API key held in the secret store, falling
// back to CARD_TERMINAL_API_KEY.
func cardTerminalKey(ctx context.Context, cfg config.Config, db *sqlx.DB) (string, error) {
	if cfg.SecretKey == "" {
		return cfg.CardTerminalAPIKey, nil
	}
	store, err := secrets.NewStore(secrets.NewPostgresRepository(db), "card", cfg.SecretKey)
	if err != nil {
		return "", err
	}
	key, err := store.Get(ctx, "api_key")
	if errors.Is(err, secrets.ErrNotFound) {
		return cfg.CardTerminalAPIKey, nil
	}
	return key, err
}
