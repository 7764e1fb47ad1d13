package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <profile-id> <query...>",
	Short: "Recommend options for a request, grounded in the collected profile",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runRecommend(cmd, args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().IntP("count", "n", 0, "number of recommendations (default from config, 3 otherwise)")
}

func runRecommend(cmd *cobra.Command, profileID, query string) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	count := config.Recommend.Count
	if flagCount, err := cmd.Flags().GetInt("count"); err == nil && flagCount > 0 {
		count = flagCount
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	defer st.Close()

	answers, err := st.Answers(profileID)
	if err != nil {
		logger.Fatal("loading profile answers", zap.Error(err))
	}

	// Recommendations have no degraded mode: without the ai service there
	// is nothing useful to print.
	generator, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Fatal("recommendations need the ai service", zap.Error(err))
	}

	engine, err := recommend.NewEngine(generator, count, logger)
	if err != nil {
		logger.Fatal("preparing the recommendation engine", zap.Error(err))
	}

	items, err := engine.Recommend(ctx, answers, query)
	if err != nil {
		logger.Fatal("generating recommendations", zap.Error(err))
	}

	fmt.Printf("Recommendations for %q:\n", query)
	for i, item := range items {
		fmt.Printf("\n%d. %s\n   %s\n", i+1, item.Title, item.Reason)
	}
}
