package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "headline-lab",
	Short: "Headline Lab - A/B testing and readability scoring for article headlines",
	Long: `Headline Lab runs timed headline experiments and scores article
readability. Single Go binary, embedded SQLite archive.

Running without a subcommand starts the server (same as 'headline-lab serve').`,
	RunE: runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getEnvOrDefault("HL_CONFIG", "./headline-lab.yaml"), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", getEnvOrDefault("HL_DB_PATH", ""), "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", getEnvOrDefault("HL_SERVER", "http://localhost:8080"), "base URL of a running headline-lab server")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
