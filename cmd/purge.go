package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/logging"
)

func newPurgeCmd() *cobra.Command {
	var (
		envFile   string
		aiBaseURL string
		aiTimeout time.Duration
		debugMode bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Clear the AI backend's vector database",
		Long: `Ask the AI backend to drop every document it indexed for attachment
questions. The gateway does this on its own whenever a user leaves a
thread; this command is for operators cleaning up after a crash.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			envString(cmd, "ai-base-url", "AI_BASE_URL", &aiBaseURL)
			if err := envDuration(cmd, "ai-timeout", "AI_TIMEOUT", &aiTimeout); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger := logging.New(logging.Options{Debug: debugMode, Output: cmd.ErrOrStderr()})
			client := ai.New(ai.Config{BaseURL: aiBaseURL, Timeout: aiTimeout, Logger: logger})

			res, err := client.ClearDatabase(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear AI backend database: %w", err)
			}
			msg := "database cleared"
			if res != nil && res.Message != "" {
				msg = res.Message
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	cmd.Flags().StringVar(&aiBaseURL, "ai-base-url", ai.DefaultBaseURL, "AI backend base URL. Can also use AI_BASE_URL env var.")
	cmd.Flags().DurationVar(&aiTimeout, "ai-timeout", ai.DefaultTimeout, "Timeout for a single AI backend call. Can also use AI_TIMEOUT env var.")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	return cmd
}
