package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/matheuskafuri/hntop/internal/config"
	"github.com/matheuskafuri/hntop/internal/hn"
	"github.com/matheuskafuri/hntop/internal/update"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig  string
	flagPartial bool
	flagTimeout string
	flagCheck   bool
)

var rootCmd = &cobra.Command{
	Use:   "hntop",
	Short: "Hacker News top stories in your terminal",
	Long:  "hntop loads the current top 100 Hacker News stories and lets you filter them by title as you type.",
	RunE:  runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagPartial, "partial", false, "show the stories that loaded even if some failed")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "deadline for the whole fetch (e.g., 30s); empty means none")

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hntop %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return
		}
		if res := update.Check(cmd.Context(), version); res != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Update available: v%s\n", res.LatestVersion)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "You are up to date.")
		}
	},
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cmd.Flags().Changed("partial") {
		cfg.AllowPartial = flagPartial
	}
	if flagTimeout != "" {
		if _, err := config.ParseDuration(flagTimeout); err != nil {
			return nil, fmt.Errorf("invalid --timeout value: %w", err)
		}
		cfg.RequestTimeout = flagTimeout
	}
	return cfg, nil
}

func newClient(cfg *config.Config, log *slog.Logger) *hn.Client {
	return hn.New(
		hn.WithBaseURL(cfg.BaseURL()),
		hn.WithLimit(cfg.Limit),
		hn.WithConcurrency(cfg.Concurrency),
		hn.WithTimeout(cfg.TimeoutDuration()),
		hn.WithPartial(cfg.AllowPartial),
		hn.WithLogger(log),
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
