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

	"golang.org/x/sync/errgroup"

	"church_app_backend/internal/config"
	"church_app_backend/internal/donation"
	"church_app_backend/internal/feature/admin"
	"church_app_backend/internal/health"
	"church_app_backend/internal/httpapi"
	"church_app_backend/internal/logging"
	"church_app_backend/internal/metrics"
	"church_app_backend/internal/payments"
	"church_app_backend/internal/profile"
	"church_app_backend/internal/store"
	"church_app_backend/internal/telegram"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoIndexTimeout      = 5 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	adminBootstrapTimeout  = 10 * time.Second
	httpShutdownTimeout    = 15 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":     "startup",
		"mongo_db":  cfg.MongoDB,
		"http_port": cfg.HTTPPort,
		"telegram":  cfg.TelegramEnabled(),
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	registry := metrics.NewRegistry()

	profiles := profile.NewStore(mongoManager.Users(), logger,
		profile.WithRecorder(metrics.NewProfileMetrics(registry)),
	)

	if len(cfg.BootstrapAdminIDs) > 0 {
		bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), adminBootstrapTimeout)
		_, err := admin.NewRegistrar(profiles, logger).EnsureAdmins(bootstrapCtx, cfg.BootstrapAdminIDs)
		cancelBootstrap()
		if err != nil {
			logger.WithError(err).Error("admin bootstrap error")
			fmt.Fprintf(os.Stderr, "admin bootstrap error: %v\n", err)
			os.Exit(1)
		}
	}

	donations := donation.NewService(
		payments.NewStripeProvider(cfg.StripeSecretKey, logger),
		cfg.DonationCurrency,
		logger,
		donation.WithRecorder(metrics.NewDonationMetrics(registry)),
		donation.WithIdempotencyKeyRequired(cfg.RequireIdempotencyKey),
	)

	router := httpapi.NewRouter(httpapi.Config{
		Donations:      donations,
		Health:         health.NewHandler(mongoManager, logger),
		Gatherer:       registry,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
	})
	httpServer := httpapi.NewServer(cfg.HTTPPort, router, logger)

	var tgClient *telegram.Client
	if cfg.TelegramEnabled() {
		tgClient, err = telegram.NewClient(cfg, logger,
			telegram.WithProfiles(profiles),
			telegram.WithStats(store.NewStatsProvider(mongoManager.Users())),
		)
		if err != nil {
			logger.WithError(err).Error("telegram client setup error")
			fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
			os.Exit(1)
		}
		logger.WithField("event", "telegram_ready").Info("telegram admin bot initialized")
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(signalCtx)

	group.Go(func() error {
		return httpServer.ListenAndServe()
	})

	if tgClient != nil {
		group.Go(func() error {
			tgClient.Start(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		if errors.Is(signalCtx.Err(), context.Canceled) {
			logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping servers")
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		exitCode = 1
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
