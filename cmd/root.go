package cmd

import (
	"log"

	"github.com/jobsift/jobsift/internal/source"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobsift"
)

type Config struct {
	Sources  []source.Config `mapstructure:"sources"`
	Store    *StoreConfig    `mapstructure:"store"`
	Redis    *RedisConfig    `mapstructure:"redis"`
	Ingest   *IngestConfig   `mapstructure:"ingest"`
	Matching *MatchingConfig `mapstructure:"matching"`
	AI       *AIConfig       `mapstructure:"ai"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type StoreConfig struct {
	// Driver selects the job store: postgres or memory.
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	BatchSize int    `mapstructure:"batch-size"`
}

type RedisConfig struct {
	URL        string `mapstructure:"url"`
	TTLMinutes int    `mapstructure:"ttl-minutes"`
}

type IngestConfig struct {
	Workers        int `mapstructure:"workers"`
	TimeoutSeconds int `mapstructure:"timeout-seconds"`
	Retries        int `mapstructure:"retries"`
	BackoffSeconds int `mapstructure:"backoff-seconds"`
}

type MatchingConfig struct {
	TopN          int `mapstructure:"top-n"`
	FreshnessDays int `mapstructure:"freshness-days"`
	ScorerTimeout int `mapstructure:"scorer-timeout-seconds"`
	ScorerLimit   int `mapstructure:"scorer-limit"`
	ScorerWindow  int `mapstructure:"scorer-window-seconds"`
	// FallbackWeights stays a free-form map here and is decoded into
	// match.Weights when the engine is built.
	FallbackWeights map[string]any `mapstructure:"fallback-weights"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	IngestCron   string `mapstructure:"ingest-cron"`
	IngestLimit  int    `mapstructure:"ingest-limit"`
	IngestWindow int    `mapstructure:"ingest-window-seconds"`
	MatchLimit   int    `mapstructure:"match-limit"`
	MatchWindow  int    `mapstructure:"match-window-seconds"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobsift ingests job postings from configured sources and matches them against subscriber profiles",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.dsn", "JOBSIFT_DATABASE_URL"); err != nil {
		log.Fatalf("binding JOBSIFT_DATABASE_URL environment variable: %v", err)
	}
	if err := viper.BindEnv("redis.url", "JOBSIFT_REDIS_URL"); err != nil {
		log.Fatalf("binding JOBSIFT_REDIS_URL environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobsift.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config file.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
