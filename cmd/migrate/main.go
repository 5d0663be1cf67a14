package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hr-request-backend/config"
	"hr-request-backend/internal/migration"
)

var (
	envFile    string
	jsonOutput bool
	timeout    time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the HR request schema to its target shape",
	Long: "Runs the idempotent schema steps against DATABASE_URL. Every step checks the live " +
		"schema first, so the command is safe to repeat and to run while the API is serving.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Give up after this long")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(planCmd)
}

func newRunner() (*migration.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.LogLevel)}))
	db, err := config.OpenDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}
	return migration.NewRunner(migration.NewGormSchema(db), logger, nil), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
