package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/montip/tipbot-middleware/pkg/app/errors"
	apphttp "github.com/montip/tipbot-middleware/pkg/app/http"
	"github.com/montip/tipbot-middleware/pkg/audit"
	"github.com/montip/tipbot-middleware/pkg/chain"
	"github.com/montip/tipbot-middleware/pkg/command"
	"github.com/montip/tipbot-middleware/pkg/config"
	"github.com/montip/tipbot-middleware/pkg/dispatch"
	"github.com/montip/tipbot-middleware/pkg/farcaster"
	"github.com/montip/tipbot-middleware/pkg/identity"
	"github.com/montip/tipbot-middleware/pkg/ledger"
	"github.com/montip/tipbot-middleware/pkg/notify"
	"github.com/montip/tipbot-middleware/pkg/pgutil"
	"github.com/montip/tipbot-middleware/pkg/pipeline"
	"github.com/montip/tipbot-middleware/pkg/tipdb"
	"github.com/montip/tipbot-middleware/pkg/token"
	"github.com/montip/tipbot-middleware/pkg/webhook"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Farcaster tip bot")

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := tipdb.NewStore(db)
	defer store.Close()

	chainClient, err := chain.NewClient(&cfg.Chain, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chain client", zap.Error(err))
	}
	defer chainClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	walletCache, err := identity.NewWalletCache(ctx, &cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer walletCache.Close()

	registry := token.Default()
	if cfg.Tokens.RegistryFile != "" {
		registry, err = token.LoadFile(cfg.Tokens.RegistryFile)
		if err != nil {
			logger.Fatal("Failed to load token registry", zap.Error(err))
		}
	}
	logger.Info("Token registry loaded", zap.Int("tokens", registry.Len()))

	maxAmount, err := decimal.NewFromString(cfg.Tokens.MaxTipAmount)
	if err != nil {
		logger.Fatal("Invalid max tip amount", zap.Error(err))
	}
	parser := command.NewParser(registry, maxAmount)

	neynar := farcaster.NewClient(&cfg.Farcaster, logger)
	resolver := identity.NewResolver(neynar, chainClient, walletCache, logger)

	dispatcher := dispatch.NewDispatcher(chainClient, store, &cfg.Dispatch, &cfg.Chain, logger)
	claims := ledger.New(store, logger)
	notifier := notify.NewNotifier(neynar, logger)

	auditor := audit.NewWriter(store, &cfg.Audit, logger)
	auditor.Start()
	defer auditor.Stop()

	pipe := pipeline.New(parser, claims, resolver, dispatcher, auditor, notifier, cfg.Farcaster.BotFID, logger)
	defer pipe.Stop()

	// Reconcile anything left mid-flight by the previous run before new
	// webhooks arrive.
	if err := dispatcher.RecoverInFlight(ctx, pipe.RecordRecovered); err != nil {
		logger.Fatal("Failed to recover in-flight transactions", zap.Error(err))
	}

	sweeper := ledger.NewSweeper(store, &cfg.Ledger, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := webhook.NewHandler(webhook.NewVerifier(cfg.Farcaster.WebhookSecret), pipe, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/webhook", apphttp.HandleError(handler.Receive))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled")
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tips", apphttp.HandleError(handleListTips(store)))
		r.Get("/tips/{eventID}", apphttp.HandleError(handleGetTip(store)))
	})

	if err := apphttp.ServeAndWait(ctx, r, logger, &cfg.Server); err != nil {
		logger.Error("HTTP server failed", zap.Error(err))
	}

	logger.Info("Tip bot stopped")
}

// tipReader is the store surface the read-only tips API needs.
type tipReader interface {
	ListAudit(ctx context.Context, limit int) ([]*tipdb.AuditRecord, error)
	GetTransaction(ctx context.Context, eventID string) (*tipdb.TransactionRecord, error)
}

func handleListTips(store tipReader) apphttp.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		tips, err := store.ListAudit(r.Context(), 100)
		if err != nil {
			return apperrors.GeneralError(err)
		}

		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(map[string]interface{}{"tips": tips})
	}
}

func handleGetTip(store tipReader) apphttp.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		eventID := chi.URLParam(r, "eventID")
		record, err := store.GetTransaction(r.Context(), eventID)
		if err != nil {
			return apperrors.GeneralError(err)
		}
		if record == nil {
			return apperrors.ResourceNotFoundError(nil, "tip not found")
		}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(record)
	}
}
