package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/abhisek/examiner/internal/config"
	"github.com/abhisek/examiner/internal/store"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "examiner",
	Short: "LLM examiner for economics answers",
	Long: "Examiner grades free-text economics answers sentence by sentence with a " +
		"text model and critiques an optional diagram with a vision model.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
}

// Execute runs the root command under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("usage-db", "", "Path to the SQLite usage ledger (overrides EXAMINER_USAGE_DB)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides EXAMINER_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs a JSON slog handler on stderr and carries it in the
// command context for clog.
func setupLogging(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = os.Getenv(config.Prefix + "LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return err
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(clog.WithLogger(ctx, clog.New(h)))
	return nil
}

// resolveDBPath returns the ledger path using --usage-db (highest
// priority), then EXAMINER_USAGE_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("usage-db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
