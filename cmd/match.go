package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jobsift/jobsift/internal/job"
	"github.com/jobsift/jobsift/internal/logger"
	"github.com/jobsift/jobsift/internal/match"
	"github.com/jobsift/jobsift/internal/profile"
	"github.com/jobsift/jobsift/internal/ratelimit"
	"github.com/jobsift/jobsift/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptBack = "back"
)

var matchCmd = &cobra.Command{
	Use:   "match [subscriber-id]",
	Short: "Match stored postings against a subscriber profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("profile-file", "p", "", "load the profile from a json file instead of the profile store")
	matchCmd.Flags().BoolP("review", "r", false, "browse matched postings interactively")
}

func runMatch(cmd *cobra.Command, args []string) {
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

	prof, err := resolveProfile(ctx, cmd, args, config)
	if err != nil {
		logger.Fatal("resolving profile", zap.Error(err))
	}

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

	candidates, err := gateway.Query(ctx, store.Filter{
		Statuses:  []job.Status{job.StatusActive},
		SeenSince: time.Now().Add(-30 * 24 * time.Hour),
	})
	if err != nil {
		logger.Fatal("loading candidate postings", zap.Error(err))
	}

	logger.Info("loaded candidates",
		zap.String("subscriber_id", prof.SubscriberID),
		zap.Int("count", len(candidates)),
	)

	engine, err := newEngine(ctx, config, ratelimit.New(), logger)
	if err != nil {
		logger.Fatal("building matching engine", zap.Error(err))
	}

	result, err := engine.Match(ctx, candidates, prof)
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	if result.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no matching postings"))
		return
	}

	if cmd.Flag("review").Value.String() == "true" {
		if err := review(result, candidates); err != nil {
			logger.Fatal("review aborted", zap.Error(err))
		}
		return
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

// resolveProfile loads the profile from a local file when --profile-file is
// set, otherwise from the profile store by subscriber id.
func resolveProfile(ctx context.Context, cmd *cobra.Command, args []string, config *Config) (*profile.Profile, error) {
	if file := cmd.Flag("profile-file").Value.String(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading profile file: %w", err)
		}
		var prof profile.Profile
		if err := json.Unmarshal(data, &prof); err != nil {
			return nil, fmt.Errorf("parsing profile file: %w", err)
		}
		if prof.Tier != profile.TierPremium {
			prof.Tier = profile.TierFree
		}
		return &prof, nil
	}

	if len(args) == 0 {
		return nil, errors.New("a subscriber id or --profile-file is required")
	}

	if config.Store == nil || config.Store.DSN == "" {
		return nil, errors.New("store.dsn is required to load profiles by subscriber id")
	}

	profiles, err := profile.NewPostgresStore(ctx, config.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer profiles.Close()

	return profiles.Get(ctx, args[0])
}

// review walks the ranked matches in an interactive prompt, showing full
// posting details on selection.
func review(result *match.Result, candidates []*job.Posting) error {
	byHash := make(map[string]*job.Posting, len(candidates))
	for _, p := range candidates {
		byHash[p.IdentityHash] = p
	}

	for {
		items := make([]string, 0, len(result.Matches)+1)
		for _, m := range result.Matches {
			p := byHash[m.IdentityHash]
			if p == nil {
				continue
			}
			items = append(items, fmt.Sprintf("%.2f %s / %s / %s", m.Score, p.Title, p.Company, p.Location))
		}

		prompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := prompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		m := result.Matches[idx]
		p := byHash[m.IdentityHash]

		fmt.Printf("\n%s at %s\n", p.Title, p.Company)
		fmt.Printf("  location: %s\n", p.Location)
		fmt.Printf("  url:      %s\n", p.URL)
		fmt.Printf("  score:    %.2f (%s, via %s)\n", m.Score, m.Reason, result.Path)
		if !p.PostedAt.IsZero() {
			fmt.Printf("  posted:   %s\n", p.PostedAt.Format("2006-01-02"))
		}
		fmt.Println()
	}
}
