package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jobsift/jobsift/internal/logger"
	"github.com/jobsift/jobsift/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over all configured sources",
	Run: func(cmd *cobra.Command, _ []string) {
		runIngest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Bool("summary", false, "print the run summary as json to stdout")
}

func runIngest(cmd *cobra.Command) {
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

	logger.Info("starting jobsift ingestion", zap.String("version", version))

	jobStore, closeStore, err := newJobStore(ctx, config.Store)
	if err != nil {
		logger.Fatal("building job store", zap.Error(err))
	}
	defer closeStore()

	batchSize := 0
	if config.Store != nil {
		batchSize = config.Store.BatchSize
	}
	gateway := store.NewGateway(jobStore, batchSize, logger)

	rawCache := newRawCache(config.Redis, logger)
	if rawCache != nil {
		defer rawCache.Close()
	}

	orchestrator, err := newOrchestrator(config, gateway, rawCache, nil, logger)
	if err != nil {
		logger.Fatal("building orchestrator", zap.Error(err))
	}

	summary, err := orchestrator.Run(ctx)
	if err != nil {
		logger.Fatal("ingestion run failed", zap.Error(err))
	}

	if cmd.Flag("summary").Value.String() == "true" {
		pretty, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(pretty))
	}
}
