package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/interview"
	"github.com/prism-labs/prism/internal/store"
)

const abortInput = "/quit"

var interviewCmd = &cobra.Command{
	Use:   "interview <profile-id>",
	Short: "Run the tiered interview, collecting answers into the profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInterview(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("category", "c", "", "recommendation category to interleave with general questions")
}

func runInterview(cmd *cobra.Command, profileID string) {
	ctx := context.Background()
	logger := newLogger()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := openStore(config)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err))
	}
	defer st.Close()

	general, err := loadSource(st, questionSetID(profileID, "general"), generalSection)
	if err != nil {
		logger.Fatal("loading general questions",
			zap.Error(err),
			zap.String("hint", "run 'prism generate' first"),
		)
	}

	var category *interview.Source
	if name := strings.TrimSpace(cmd.Flag("category").Value.String()); name != "" {
		category, err = loadSource(st, questionSetID(profileID, name), categorySectionRoot+"."+name)
		if err != nil {
			logger.Fatal("loading category questions",
				zap.String("category", name),
				zap.Error(err),
			)
		}
	}

	// Conversational transitions are cosmetic; the interview runs without
	// them when the ai service is unavailable.
	var transitions interview.Transitioner
	if generator, err := newGenerator(ctx, config, logger); err != nil {
		logger.Warn("interviewing without conversational transitions", zap.Error(err))
	} else {
		transitions = interview.NewAITransitioner(generator)
	}

	driver, err := interview.NewDriver(interview.Config{
		ProfileID:   profileID,
		General:     general,
		Category:    category,
		Store:       st,
		Transitions: transitions,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("preparing the interview", zap.Error(err))
	}

	prompt, err := driver.Start(ctx)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	if prompt == nil {
		fmt.Println("This interview is already complete.")
		return
	}

	fmt.Printf("Answer in your own words. Type %s to stop; answers so far are kept.\n", abortInput)

	for prompt != nil {
		prompt, err = askOne(ctx, driver, prompt)
		if err != nil {
			if errors.Is(err, errExit) {
				if abortErr := driver.Abort(ctx); abortErr != nil {
					logger.Fatal("aborting the interview", zap.Error(abortErr))
				}
				fmt.Println("Interview stopped. Your answers so far are saved.")
				return
			}
			logger.Fatal("interview failed", zap.Error(err))
		}
	}

	fmt.Println("That's everything. Thanks for sharing!")
}

var errExit = errors.New("exit requested")

// askOne presents one question and submits the answer, re-prompting until
// the answer matches the field type.
func askOne(ctx context.Context, driver *interview.Driver, current *interview.Prompt) (*interview.Prompt, error) {
	fmt.Printf("\n[tier %d] %s\n", current.Tier, current.Lead)

	for {
		input := promptui.Prompt{Label: "Your answer"}

		answer, err := input.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil, errExit
			}
			return nil, err
		}

		if strings.TrimSpace(answer) == abortInput {
			return nil, errExit
		}

		next, err := driver.Submit(ctx, answer)
		if err != nil {
			var invalid *interview.ErrInvalidAnswer
			if errors.As(err, &invalid) {
				fmt.Printf("Sorry, %s. Let's try again.\n", invalid.Reason)
				continue
			}
			return nil, err
		}

		return next, nil
	}
}

func loadSource(st *store.Store, setID, section string) (*interview.Source, error) {
	set, err := st.GetQuestionSet(setID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("question set %q not found", setID)
		}
		return nil, err
	}

	return &interview.Source{ID: setID, Section: section, Set: set}, nil
}
