package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	version = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gbv-reporter",
	Short: "WhatsApp reporting line for gender-based violence",
	Long: `A WhatsApp service that walks survivors and witnesses through a
confidential incident report or a direct request for support services.

Commands:
  gbv-reporter serve      # Run the webhook, dashboard and queue workers
  gbv-reporter chat       # Talk to the dialogue from the terminal
  gbv-reporter migrate    # Create the report tables in PostgreSQL

Configuration is read from the environment and from a .env file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func logLevel(configured string) string {
	if verbose {
		return "debug"
	}
	return configured
}
