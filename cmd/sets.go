package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/question"
	"github.com/prism-labs/prism/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Manage stored question sets",
}

var setsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored question sets",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		listSets()
	},
}

var setsShowCmd = &cobra.Command{
	Use:   "show <set-id>",
	Short: "Show a question set tier by tier",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		showSet(args[0])
	},
}

var setsExportCmd = &cobra.Command{
	Use:   "export <set-id> <file>",
	Short: "Export a question set as JSON",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		exportSet(args[0], args[1])
	},
}

var setsDeleteCmd = &cobra.Command{
	Use:   "delete <set-id>",
	Short: "Delete a question set",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deleteSet(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(setsCmd)
	setsCmd.AddCommand(setsListCmd, setsShowCmd, setsExportCmd, setsDeleteCmd)

	setsDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func listSets() {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	infos, err := st.ListQuestionSets()
	if err != nil {
		logger.Fatal("listing question sets", zap.Error(err))
	}

	if len(infos) == 0 {
		fmt.Println("No question sets stored yet. Run 'prism generate' to create one.")
		return
	}

	for _, info := range infos {
		fmt.Printf("%s\tprofile=%s\tsection=%s\tupdated=%s\n",
			info.ID, info.ProfileID, info.Section, info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func showSet(setID string) {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	set := mustGetSet(st, setID, logger)

	for i, tier := range set.Tiers() {
		fmt.Printf("Tier %d (%s):\n", i+1, tier.Status)
		if len(tier.Questions) == 0 {
			fmt.Println("  (no questions)")
			continue
		}
		for _, candidate := range tier.Questions {
			fmt.Printf("  [%s] %.0f  %s\n", candidate.Status, candidate.ImpactScore, candidate.Text)
		}
	}
}

func exportSet(setID, filename string) {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	set := mustGetSet(st, setID, logger)

	payload, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		logger.Fatal("encoding question set", zap.Error(err))
	}

	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		logger.Fatal("writing export file", zap.Error(err))
	}

	logger.Info("question set exported",
		zap.String("set", setID),
		zap.String("filename", filename),
	)
}

func deleteSet(cmd *cobra.Command, setID string) {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	// Confirm against the stored set, not just the id.
	set := mustGetSet(st, setID, logger)

	if cmd.Flag("yes").Value.String() != "true" {
		confirm := promptui.Select{
			Label: fmt.Sprintf("Delete %s (%d questions)?", setID, set.Len()),
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := confirm.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := st.DeleteQuestionSet(setID); err != nil {
		logger.Fatal("deleting question set", zap.Error(err))
	}

	logger.Info("question set deleted", zap.String("set", setID))
}

func mustOpenStore(logger *zap.Logger) *store.Store {
	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	return st
}

func mustGetSet(st *store.Store, setID string, logger *zap.Logger) *question.TieredSet {
	set, err := st.GetQuestionSet(setID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Fatal("question set not found", zap.String("set", setID))
		}
		logger.Fatal("loading question set", zap.Error(err))
	}
	return set
}
