package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/vitos/signal_trader/internal/config"
	"github.com/vitos/signal_trader/internal/domain"
	"github.com/vitos/signal_trader/internal/infrastructure/exchange"
	"github.com/vitos/signal_trader/internal/infrastructure/logger"
	"github.com/vitos/signal_trader/internal/infrastructure/notifier"
	"github.com/vitos/signal_trader/internal/infrastructure/storage"
	"github.com/vitos/signal_trader/internal/usecase"
	"github.com/vitos/signal_trader/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log := logger.NewFileLogger(cfg.Logging.Level, logger.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Bot stopped", zap.Error(err))
	}
	log.Info("Shut down cleanly")
}

func run(cfg *config.Config, log *zap.Logger) error {
	// 3. Init Storage
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer store.Close()

	// 4. Init Exchange
	gateway := exchange.NewBinanceGateway(exchange.BinanceConfig{
		APIKey:            cfg.Exchange.APIKey,
		APISecret:         cfg.Exchange.APISecret,
		BaseURL:           cfg.Exchange.RESTEndpoint,
		Testnet:           cfg.Exchange.Testnet,
		RequestsPerSecond: cfg.Exchange.RequestsPerSecond,
		Burst:             cfg.Exchange.Burst,
		Timeout:           cfg.ExchangeTimeout(),
	}, log)

	// 5. Init Notifications
	notify, err := buildNotifier(cfg)
	if err != nil {
		return err
	}

	// 6. Init Services
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := usecase.NewMetrics(registry)

	executor := usecase.NewOrderExecutor(gateway, notify, metrics, log)
	loans := usecase.NewLoanManager(gateway, notify, metrics, log)
	transitions := usecase.NewTransitionController(gateway, executor, loans, notify, metrics, log)
	router := usecase.NewSignalRouter(gateway, executor, loans, transitions, store, notify, metrics, log)

	// 7. Init Web Server
	hub := web.NewHub(log)
	defer hub.Close()
	server := web.NewServer(cfg.Server.Port, router, hub, web.Options{
		Passphrase: cfg.Webhook.Passphrase,
		Gatherer:   registry,
		Defaults: web.SignalDefaults{
			StopLossPct:     decimal.NewFromFloat(cfg.Trading.StopLossPct),
			StopLimitGapPct: decimal.NewFromFloat(cfg.Trading.StopLimitGapPct),
			EquityPct:       decimal.NewFromFloat(cfg.Trading.EquityPct),
		},
	}, log)

	// 8. Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildNotifier(cfg *config.Config) (domain.Notifier, error) {
	if !cfg.Notifications.Enabled {
		return notifier.Nop{}, nil
	}

	var targets notifier.Multi
	if url := cfg.Notifications.Discord.WebhookURL; url != "" {
		targets = append(targets, notifier.NewDiscord(url))
	}
	if tg := cfg.Notifications.Telegram; tg.Token != "" {
		bot, err := notifier.NewTelegram(tg.Token, tg.ChatID, tg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("init telegram: %w", err)
		}
		targets = append(targets, bot)
	}
	if len(targets) == 0 {
		return notifier.Nop{}, nil
	}
	return targets, nil
}
