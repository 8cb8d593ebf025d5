package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"brandstudio/internal/bootstrap"
	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/internal/session"
)

var (
	envFile    string
	locale     string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Brand image studio CLI",
	Long: `Brand image studio CLI.

Suggests marketing styles for a product photo, analyzes articles for
whether a human model helps, and renders branded images with Gemini.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			_ = godotenv.Load()
		}
		if locale != domain.LocaleVI && locale != domain.LocaleEN {
			return fmt.Errorf("--locale must be vi or en, got %q", locale)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVarP(&locale, "locale", "l", domain.LocaleVI, "output language (vi or en)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log provider activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newSession builds a Gemini-backed session for one command run.
func newSession(ctx context.Context) (*session.Session, func(), error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := infra.NewCLILogger(verbose)
	deps, cleanup, err := bootstrap.Dependencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return newSessionWith(deps, logger), cleanup, nil
}

func newSessionWith(deps session.Dependencies, logger zerolog.Logger) *session.Session {
	deps.Logger = logger
	return session.New(uuid.NewString(), locale, deps, nil)
}
