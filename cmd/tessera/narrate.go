package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackhale98/tessera/internal/claude"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/reporter"
	"github.com/jackhale98/tessera/internal/tolerance"
	"github.com/jackhale98/tessera/internal/ui"
)

var flagShowReport bool

func narrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "narrate",
		Short: "Ask Claude for a plain-language summary of a report",
		Long: `Renders a variance, earned value or stackup report and asks Claude to
summarise it for stakeholders. Needs ANTHROPIC_API_KEY or claude.api_key.`,
	}
	cmd.PersistentFlags().BoolVar(&flagShowReport, "show-report", false, "Print the report before the summary")

	cmd.AddCommand(narrateVarianceCmd())
	cmd.AddCommand(narrateEVCmd())
	cmd.AddCommand(narrateStackupCmd())
	return cmd
}

// plain renders a report without color codes and without printing it.
func plain(render func(r *reporter.Reporter) string) string {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()
	return render(reporter.New(io.Discard))
}

func narrate(kind claude.ReportKind, report string) error {
	client, err := claude.NewClient(cfg.Claude.APIKey, cfg.Claude.Model)
	if err != nil {
		return errs.Wrap(errs.Configuration, "tessera", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if flagShowReport {
		fmt.Println(report)
	}
	logger.Debug("requesting narration", zap.String("kind", string(kind)), zap.Int("report_bytes", len(report)))

	start := time.Now()
	text, err := client.Narrate(ctx, kind, report)
	if err != nil {
		return err
	}
	logger.Debug("narration received", zap.Duration("elapsed", time.Since(start)))

	if flagJSON {
		return out().JSON(map[string]string{"kind": string(kind), "summary": text})
	}
	fmt.Fprintf(os.Stdout, "%s\n\n%s\n", ui.BoldCyan("✨ Summary"), text)
	return nil
}

func narrateVarianceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variance NEWER [OLDER]",
		Short: "Summarise a baseline comparison",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := compareBaselines(args)
			if err != nil {
				return err
			}
			report := plain(func(r *reporter.Reporter) string { return r.Variance(v) })
			return narrate(claude.VarianceReport, report)
		},
	}
}

func narrateEVCmd() *cobra.Command {
	var (
		flagBaseline   string
		flagStatusDate string
	)

	cmd := &cobra.Command{
		Use:   "ev",
		Short: "Summarise earned value against a baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := earnedValue(flagBaseline, flagStatusDate)
			if err != nil {
				return err
			}
			report := plain(func(r *reporter.Reporter) string { return r.EarnedValue(m) })
			return narrate(claude.EarnedValue, report)
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "Project file (YAML)")
	cmd.Flags().StringVar(&flagBaseline, "baseline", "", "Baseline ID (default: current)")
	cmd.Flags().StringVar(&flagStatusDate, "status-date", "", "Status date YYYY-MM-DD (default: today)")

	return cmd
}

func narrateStackupCmd() *cobra.Command {
	var flagID string

	cmd := &cobra.Command{
		Use:   "stackup",
		Short: "Summarise a stackup analysis with its sensitivity ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary()
			if err != nil {
				return err
			}
			if flagID == "" {
				return errs.New(errs.Configuration, "tessera", "--id is required")
			}
			stackups, err := selectStackups(lib, flagID)
			if err != nil {
				return err
			}
			res, err := tolerance.Analyze(stackups[0], lib.Features)
			if err != nil {
				return err
			}
			sens, err := tolerance.Sensitivity(stackups[0], lib.Features)
			if err != nil {
				return err
			}
			report := plain(func(r *reporter.Reporter) string {
				return r.Stackup(res) + "\n" + r.Sensitivity(sens)
			})
			return narrate(claude.StackupReport, report)
		},
	}

	cmd.Flags().StringVarP(&flagStackups, "file", "f", "", "Stackup library (YAML)")
	cmd.Flags().StringVar(&flagID, "id", "", "Stackup to summarise")

	return cmd
}
