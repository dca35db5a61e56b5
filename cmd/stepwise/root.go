package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/stepwise/internal/cli"
	"github.com/aretw0/stepwise/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Stepwise runs mood check-ins and assessments one step at a time",
	Long: `Stepwise drives stepped flows (check-ins, assessments, questionnaires) from a
YAML definition, a directory of Markdown steps or one of the built-in flows.

Flags can also be set through STEPWISE_* environment variables, loaded from
a .env file in the working directory when present.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil {
			if os.IsNotExist(err) && !cmd.Flags().Changed("env-file") {
				return nil
			}
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("env-file", ".env", "Environment file to load")
	pf.StringP("flow", "f", "", "Flow to run: a YAML file, a directory of Markdown steps or a built-in name (env STEPWISE_FLOW)")
	pf.Bool("debug", false, "Write debug logs to stderr (env STEPWISE_DEBUG)")
	pf.String("store", cli.StoreFile, "Where flow state is kept: file, memory, redis or sqlite (env STEPWISE_STORE)")
	pf.String("store-dir", "", "Directory of the file store (default .stepwise/flows, env STEPWISE_STORE_DIR)")
	pf.String("redis-url", "", "Redis URL for the redis store and sink (env STEPWISE_REDIS_URL)")
	pf.String("sqlite", "", "SQLite database path (default .stepwise/stepwise.db, env STEPWISE_SQLITE)")
	pf.String("sink", cli.SinkStdout, "Where submitted answers go: stdout, memory, redis, sqlite, none or process:<name> (env STEPWISE_SINK)")
	pf.String("sinks-config", "sinks.yaml", "Allow-list of process sinks (env STEPWISE_SINKS_CONFIG)")
	pf.StringSlice("redact", nil, "Step ID patterns whose text answers are masked in the store (env STEPWISE_REDACT)")
}

// stringFlag returns the flag value when set, then the environment, then the flag default.
func stringFlag(cmd *cobra.Command, name, env string) string {
	value, _ := cmd.Flags().GetString(name)
	if cmd.Flags().Changed(name) {
		return value
	}
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	return value
}

func boolFlag(cmd *cobra.Command, name, env string) bool {
	value, _ := cmd.Flags().GetBool(name)
	if cmd.Flags().Changed(name) {
		return value
	}
	switch strings.ToLower(os.Getenv(env)) {
	case "1", "true", "yes":
		return true
	}
	return value
}

// flowSource prefers a positional argument over --flow.
func flowSource(cmd *cobra.Command, args []string) string {
	if !cmd.Flags().Changed("flow") && len(args) > 0 {
		return args[0]
	}
	return stringFlag(cmd, "flow", "STEPWISE_FLOW")
}

func backendOptions(cmd *cobra.Command) cli.BackendOptions {
	redact, _ := cmd.Flags().GetStringSlice("redact")
	if !cmd.Flags().Changed("redact") {
		if env := os.Getenv("STEPWISE_REDACT"); env != "" {
			redact = strings.Split(env, ",")
		}
	}
	return cli.BackendOptions{
		Store:       stringFlag(cmd, "store", "STEPWISE_STORE"),
		StoreDir:    stringFlag(cmd, "store-dir", "STEPWISE_STORE_DIR"),
		RedisURL:    stringFlag(cmd, "redis-url", "STEPWISE_REDIS_URL"),
		SQLitePath:  stringFlag(cmd, "sqlite", "STEPWISE_SQLITE"),
		Sink:        stringFlag(cmd, "sink", "STEPWISE_SINK"),
		SinksConfig: stringFlag(cmd, "sinks-config", "STEPWISE_SINKS_CONFIG"),
		Redact:      redact,
	}
}

func debugEnabled(cmd *cobra.Command) bool {
	return boolFlag(cmd, "debug", "STEPWISE_DEBUG")
}

// serverLogger logs at info level, or debug with --debug. Output goes to stderr.
func serverLogger(cmd *cobra.Command) *slog.Logger {
	if debugEnabled(cmd) {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}
