package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/question"
	"github.com/prism-labs/prism/internal/schema"
	"github.com/prism-labs/prism/internal/store"
)

const (
	generalSection      = "generalprofile"
	categorySectionRoot = "recommendationProfiles"
)

var generateCmd = &cobra.Command{
	Use:   "generate <profile-id>",
	Short: "Generate tiered interview questions from the profile schema",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		generate(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("schema", "s", "", "JSON schema file describing the profile (stored on first use)")
	generateCmd.Flags().String("section", generalSection, "schema section to generate questions for")
	generateCmd.Flags().StringP("category", "c", "", "recommendation category to generate questions for (e.g. movie, travel)")
}

func generate(cmd *cobra.Command, profileID string) {
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

	schemaJSON, err := loadSchema(cmd, st, profileID)
	if err != nil {
		logger.Fatal("loading the profile schema", zap.Error(err))
	}

	answers, err := st.Answers(profileID)
	if err != nil {
		logger.Fatal("loading stored answers", zap.Error(err))
	}
	answered := make(map[string]bool, len(answers))
	for path := range answers {
		answered[path] = true
	}

	// Question phrasing and ranking degrade to templates and heuristic
	// scores when no generator is available.
	generator, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Warn("generating without the ai service", zap.Error(err))
	}

	targets := generationTargets(cmd, profileID)
	for _, target := range targets {
		fields, err := schema.ExtractSection(schemaJSON, target.section)
		if err != nil {
			logger.Fatal("extracting schema section",
				zap.String("section", target.section),
				zap.Error(err),
			)
		}

		batch, err := question.Run(ctx, logger, []question.Stage{
			question.NewSkipAnswered(answered),
			question.NewPhraser(generator, logger),
			question.NewRanker(generator, logger),
		}, question.NewBatch(fields))
		if err != nil {
			logger.Fatal("generating questions", zap.String("section", target.section), zap.Error(err))
		}

		set, err := question.Assign(batch, config.Tiers)
		if err != nil {
			logger.Fatal("assigning tiers", zap.Error(err))
		}

		if err := st.SaveQuestionSet(target.setID, profileID, target.section, set); err != nil {
			logger.Fatal("saving question set", zap.String("set", target.setID), zap.Error(err))
		}

		logger.Info("question set saved",
			zap.String("set", target.setID),
			zap.String("section", target.section),
			zap.Int("questions", set.Len()),
		)
	}
}

type generationTarget struct {
	setID   string
	section string
}

// generationTargets resolves the schema sections to generate for: the
// general profile by default, plus one recommendation category when
// requested.
func generationTargets(cmd *cobra.Command, profileID string) []generationTarget {
	section := cmd.Flag("section").Value.String()
	category := strings.TrimSpace(cmd.Flag("category").Value.String())

	targets := []generationTarget{{
		setID:   questionSetID(profileID, sectionSetName(section)),
		section: section,
	}}

	if category != "" {
		targets = append(targets, generationTarget{
			setID:   questionSetID(profileID, category),
			section: categorySectionRoot + "." + category,
		})
	}

	return targets
}

func sectionSetName(section string) string {
	if section == generalSection {
		return "general"
	}
	return strings.ReplaceAll(section, ".", "_")
}

func questionSetID(profileID, name string) string {
	return fmt.Sprintf("%s.%s_tiered_questions", profileID, name)
}

// loadSchema reads the schema file when given, storing it as the profile
// schema, and falls back to the stored profile otherwise.
func loadSchema(cmd *cobra.Command, st *store.Store, profileID string) ([]byte, error) {
	schemaFile := strings.TrimSpace(cmd.Flag("schema").Value.String())
	if schemaFile != "" {
		data, err := os.ReadFile(schemaFile)
		if err != nil {
			return nil, fmt.Errorf("reading schema file %q: %w", schemaFile, err)
		}
		if err := st.SaveProfile(profileID, data); err != nil {
			return nil, err
		}
		return data, nil
	}

	profile, err := st.GetProfile(profileID)
	if err != nil {
		return nil, fmt.Errorf("no stored schema for %q, pass --schema: %w", profileID, err)
	}
	return profile.Schema, nil
}
