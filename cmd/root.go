package cmd

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prism-labs/prism/internal/ai"
	"github.com/prism-labs/prism/internal/ai/gemini"
	"github.com/prism-labs/prism/internal/logger"
	"github.com/prism-labs/prism/internal/question"
	"github.com/prism-labs/prism/internal/recommend"
	"github.com/prism-labs/prism/internal/secrets"
	"github.com/prism-labs/prism/internal/store"
)

const (
	app = "prism"

	defaultDBPath = "prism.db"
)

type Config struct {
	Database  *DatabaseConfig     `mapstructure:"database"`
	AI        *AIConfig           `mapstructure:"ai"`
	Tiers     question.TierPolicy `mapstructure:"tiers"`
	Recommend *RecommendConfig    `mapstructure:"recommend"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type RecommendConfig struct {
	Count int `mapstructure:"count"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "prism builds a personal profile through a tiered interview and recommends options grounded in it",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("database.path", "PRISM_DB_PATH"); err != nil {
		log.Fatalf("binding PRISM_DB_PATH environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is prism.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// Every setting has a default or a flag, so a missing config file is
	// fine. A broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Database == nil {
		config.Database = &DatabaseConfig{}
	}
	if config.Database.Path == "" {
		config.Database.Path = defaultDBPath
	}
	if config.Recommend == nil {
		config.Recommend = &RecommendConfig{}
	}
	if config.Recommend.Count <= 0 {
		config.Recommend.Count = recommend.DefaultCount
	}

	return config, nil
}

func newLogger() *zap.Logger {
	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return zl
}

func openStore(config *Config) (*store.Store, error) {
	return store.Open(config.Database.Path)
}

// newGenerator builds the text-generation client from the configuration.
// Commands that can degrade without it treat an error here as a warning.
func newGenerator(ctx context.Context, config *Config, log *zap.Logger) (ai.Generator, error) {
	aiCfg := config.AI
	if aiCfg == nil {
		aiCfg = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(aiCfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, errors.New("unsupported ai provider: " + aiCfg.Provider)
	}

	geminiCfg := aiCfg.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	keyFile := strings.TrimSpace(geminiCfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, errors.New(err.Error() + " (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)")
	}

	return gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, log)
}
