package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/app"
	"github.com/JakeFAU/jobsift/internal/config"
	"github.com/JakeFAU/jobsift/internal/report"
)

const closeTimeout = 10 * time.Second

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every enabled source once and write the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			if err := applyRunFlags(&cfg, format, out); err != nil {
				return err
			}
			return runOnce(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "report format: markdown, json or yaml")
	cmd.Flags().StringVar(&out, "out", "", "write the report to this directory")
	return cmd
}

// applyRunFlags lets --format and --out override the config, then
// revalidates it.
func applyRunFlags(cfg *config.Config, format, out string) error {
	if format != "" {
		if _, err := report.ParseFormat(format); err != nil {
			return err
		}
		cfg.Report.Format = format
	}
	if out != "" {
		cfg.Report.Destination = config.DestinationLocal
		cfg.Report.Dir = out
	}
	return cfg.Validate()
}

func runOnce(ctx context.Context, w io.Writer, cfg config.Config, logger *zap.Logger, opts ...app.Option) error {
	a, err := app.New(ctx, cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	outcome, err := a.Run(ctx)
	printSummary(w, outcome)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, outcome app.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tRECORDS\tELAPSED\tERROR")
	for _, o := range outcome.Report.Outcomes {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", o.Source, o.Count, o.Elapsed.Round(time.Millisecond), o.Error)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%d postings from %d sources", outcome.Report.Total(), len(outcome.Report.Outcomes))
	if failed := outcome.Failed(); failed > 0 {
		fmt.Fprintf(w, " (%d failed)", failed)
	}
	fmt.Fprintf(w, " in %s\n", outcome.Elapsed.Round(time.Millisecond))
	if outcome.URI != "" {
		fmt.Fprintf(w, "report: %s\n", outcome.URI)
	}
}
