// Package cmd defines the jobsift command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/config"
	"github.com/JakeFAU/jobsift/internal/logging"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	devLog     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "jobsift",
		Short: "Find entry-level remote IT support postings across job boards.",
		Long: `jobsift fetches the listing pages of the configured job boards, follows
candidate postings, keeps the ones that match the filter rules, removes
duplicates and writes a report.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML, JSON or TOML)")
	cmd.PersistentFlags().BoolVar(&opts.devLog, "dev-log", false, "human-readable development logging")

	cmd.AddCommand(newRunCmd(opts), newSourcesCmd(opts), newServeCmd(opts))
	return cmd
}

// load reads the config and builds the global logger. The caller syncs the
// logger.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.devLog {
		cfg.Logging.Development = true
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

func syncLogger(logger *zap.Logger) {
	// Sync fails on terminals; there is nowhere left to report that.
	_ = logger.Sync()
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jobsift:", err)
		os.Exit(1)
	}
}
