package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the smartmail application
var rootCmd = &cobra.Command{
	Use:   "smartmail",
	Short: "AI-assisted Gmail gateway",
	Long: `smartmail is an HTTP gateway between a Gmail web client, the Google APIs
and an AI backend. It signs users in with Google, lists and decodes their
mail, runs AI quick actions over threads, extracts and classifies
attachments, and detects and books meetings.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "smartmail version %s\n" .Version}}`)

	// If no subcommand is provided, run the gateway
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPurgeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
