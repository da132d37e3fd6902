package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobsift/jobsift/internal/delivery"
	"github.com/jobsift/jobsift/internal/logger"
	"github.com/jobsift/jobsift/internal/metrics"
	"github.com/jobsift/jobsift/internal/profile"
	"github.com/jobsift/jobsift/internal/ratelimit"
	"github.com/jobsift/jobsift/internal/server"
	"github.com/jobsift/jobsift/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ingestion and matching API over http",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Store == nil || config.Store.Driver != "postgres" || config.Store.DSN == "" {
		logger.Fatal("serve requires the postgres store driver",
			zap.String("hint", "set store.driver to postgres and store.dsn or JOBSIFT_DATABASE_URL"),
		)
	}

	logger.Info("starting the jobsift server", zap.String("version", version))

	jobStore, closeStore, err := newJobStore(ctx, config.Store)
	if err != nil {
		logger.Fatal("building job store", zap.Error(err))
	}
	defer closeStore()

	gateway := store.NewGateway(jobStore, config.Store.BatchSize, logger)

	profiles, err := profile.NewPostgresStore(ctx, config.Store.DSN)
	if err != nil {
		logger.Fatal("building profile store", zap.Error(err))
	}
	defer profiles.Close()

	rawCache := newRawCache(config.Redis, logger)
	if rawCache != nil {
		defer rawCache.Close()
	}

	m := metrics.New()

	orchestrator, err := newOrchestrator(config, gateway, rawCache, m, logger)
	if err != nil {
		logger.Fatal("building orchestrator", zap.Error(err))
	}

	limiter := ratelimit.New()

	engine, err := newEngine(ctx, config, limiter, logger)
	if err != nil {
		logger.Fatal("building matching engine", zap.Error(err))
	}

	listen := ":8080"
	limits := server.Limits{}
	ingestCron := ""
	if c := config.Server; c != nil {
		if c.Listen != "" {
			listen = c.Listen
		}
		limits = server.Limits{
			IngestLimit:  c.IngestLimit,
			IngestWindow: time.Duration(c.IngestWindow) * time.Second,
			MatchLimit:   c.MatchLimit,
			MatchWindow:  time.Duration(c.MatchWindow) * time.Second,
		}
		ingestCron = c.IngestCron
	}

	srv := server.New(orchestrator, engine, profiles, gateway, limiter, delivery.NewTierPlan(), m, limits, logger)

	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.New()
	if ingestCron != "" {
		_, err := scheduler.AddFunc(ingestCron, func() {
			if _, err := orchestrator.Run(ctx); err != nil {
				logger.Error("scheduled ingestion failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("invalid ingest cron expression",
				zap.String("expression", ingestCron),
				zap.Error(err),
			)
		}
		scheduler.Start()
		logger.Info("scheduled ingestion enabled", zap.String("cron", ingestCron))
	}

	go func() {
		logger.Info("listening", zap.String("addr", listen))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	if ingestCron != "" {
		<-scheduler.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}
