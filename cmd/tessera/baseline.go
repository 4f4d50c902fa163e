package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/export"
	"github.com/jackhale98/tessera/internal/ui"
)

func baselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Capture, inspect and compare schedule baselines",
	}
	cmd.AddCommand(baselineCaptureCmd())
	cmd.AddCommand(baselineListCmd())
	cmd.AddCommand(baselineShowCmd())
	cmd.AddCommand(baselineCompareCmd())
	cmd.AddCommand(baselineCurrentCmd())
	cmd.AddCommand(baselineArchiveCmd())
	cmd.AddCommand(baselineDeleteCmd())
	cmd.AddCommand(baselineMetricsCmd())
	return cmd
}

func baselineCaptureCmd() *cobra.Command {
	var opts baseline.Options
	var flagType string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Snapshot the current schedule as a new baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			s, err := computeSchedule(p)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}

			opts.Type = baseline.Type(flagType)
			b, err := baseline.Create(p, s, opts)
			if err != nil {
				return err
			}
			if err := store.Add(b); err != nil {
				return fmt.Errorf("store baseline: %w", err)
			}
			logger.Info("baseline captured",
				zap.String("id", b.ID),
				zap.String("project", p.ID),
				zap.String("type", string(b.Type)))

			if flagJSON {
				return out().JSON(b)
			}
			fmt.Printf("📌 Captured %s %s (%s)\n", ui.BoldMagenta(b.ID), ui.Bold(b.Name), b.Type)
			fmt.Printf("   %s → %s, %d days, cost %.2f\n",
				b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"), b.TotalDurationDays, b.TotalCost)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "Project file (YAML)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Baseline name")
	cmd.Flags().StringVar(&flagType, "type", "", "Baseline type (initial, approved, working)")
	cmd.Flags().StringVar(&opts.Author, "author", "", "Author")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description")

	return cmd
}

func baselineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			headers, err := store.List()
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(headers)
			}
			if len(headers) == 0 {
				fmt.Println(ui.Dim("No baselines."))
				return nil
			}
			for _, h := range headers {
				mark := " "
				if h.IsCurrent {
					mark = ui.BoldGreen("*")
				}
				fmt.Printf("%s %s  %-24s %-9s %s  end %s  cost %.2f\n",
					mark, ui.BoldMagenta(h.ID), h.Name, h.Type,
					h.CreatedAt.Format("2006-01-02 15:04"), h.EndDate.Format("2006-01-02"), h.TotalCost)
			}
			return nil
		},
	}
}

func baselineShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			b, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(b)
			}
			fmt.Printf("%s %s (%s)\n", ui.BoldMagenta(b.ID), ui.Bold(b.Name), b.Type)
			if b.Description != "" {
				fmt.Printf("   %s\n", b.Description)
			}
			fmt.Printf("   project %s, captured %s", b.ProjectID, b.CreatedAt.Format("2006-01-02 15:04"))
			if b.Author != "" {
				fmt.Printf(" by %s", b.Author)
			}
			fmt.Println()
			fmt.Printf("   %s → %s (%d days), cost %.2f, effort %.1fh\n\n",
				b.StartDate.Format("2006-01-02"), b.EndDate.Format("2006-01-02"),
				b.TotalDurationDays, b.TotalCost, b.TotalEffort)
			for _, t := range b.Tasks {
				fmt.Printf("   %-14s %-28s %s → %s  %8.2f\n", t.ID, t.Name,
					t.Start.Format("2006-01-02"), t.Finish.Format("2006-01-02"), t.Cost)
			}
			for _, m := range b.Milestones {
				fmt.Printf("   ◆ %-12s %-28s %s\n", m.ID, m.Name, m.Earliest.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func baselineCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare NEWER [OLDER]",
		Short: "Compare two baselines (OLDER defaults to the current baseline)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := compareBaselines(args)
			if err != nil {
				return err
			}
			if flagXLSX != "" {
				f, err := export.VarianceWorkbook(v)
				if err != nil {
					return err
				}
				if err := export.Save(f, flagXLSX); err != nil {
					return err
				}
				logger.Info("variance exported", zap.String("path", flagXLSX))
			}
			if flagJSON {
				return out().JSON(v)
			}
			out().Variance(v)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Also write the comparison to an Excel workbook")
	return cmd
}

// compareBaselines loads NEWER and OLDER (or the current baseline) and
// compares them.
func compareBaselines(args []string) (*baseline.VarianceReport, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	newer, err := store.Load(args[0])
	if err != nil {
		return nil, err
	}
	var older *baseline.Baseline
	if len(args) > 1 {
		older, err = store.Load(args[1])
	} else {
		older, err = store.Current()
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("comparing baselines", zap.String("newer", newer.ID), zap.String("older", older.ID))
	return baseline.Compare(newer, older), nil
}

func baselineCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current [ID]",
		Short: "Show the current baseline, or make ID current",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := store.SetCurrent(args[0]); err != nil {
					return err
				}
				logger.Info("current baseline set", zap.String("id", args[0]))
			}
			b, err := store.Current()
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(b)
			}
			fmt.Printf("%s %s %s (%s)\n", ui.BoldGreen("*"), ui.BoldMagenta(b.ID), ui.Bold(b.Name), b.Type)
			return nil
		},
	}
}

func baselineArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Archive a baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Archive(args[0]); err != nil {
				return err
			}
			logger.Info("baseline archived", zap.String("id", args[0]))
			return nil
		},
	}
}

func baselineDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a baseline that is neither current nor initial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			logger.Info("baseline deleted", zap.String("id", args[0]))
			return nil
		},
	}
}

func baselineMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics ID",
		Short: "Summarise a stored baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			m, err := store.Metrics(args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(m)
			}
			fmt.Printf("%s\n", ui.BoldCyan("Baseline "+args[0]))
			fmt.Printf("  Tasks       %d\n", m.Tasks)
			fmt.Printf("  Milestones  %d\n", m.Milestones)
			fmt.Printf("  Resources   %d\n", m.Resources)
			fmt.Printf("  Duration    %d days\n", m.DurationDays)
			fmt.Printf("  Cost        %.2f\n", m.Cost)
			fmt.Printf("  Effort      %.1fh\n", m.Effort)
			fmt.Printf("  Avg hours   %.1fh per resource\n", m.AverageResourceHours)
			return nil
		},
	}
}

func evCmd() *cobra.Command {
	var (
		flagBaseline   string
		flagStatusDate string
	)

	cmd := &cobra.Command{
		Use:   "ev",
		Short: "Earned value of a project against a baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := earnedValue(flagBaseline, flagStatusDate)
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(m)
			}
			out().EarnedValue(m)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "Project file (YAML) carrying progress and actual cost")
	cmd.Flags().StringVar(&flagBaseline, "baseline", "", "Baseline ID (default: current)")
	cmd.Flags().StringVar(&flagStatusDate, "status-date", "", "Status date YYYY-MM-DD (default: today)")

	return cmd
}

func earnedValue(baselineID, statusDate string) (*baseline.EVMetrics, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}
	d, err := parseDate(statusDate)
	if err != nil {
		return nil, err
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	var b *baseline.Baseline
	if baselineID != "" {
		b, err = store.Load(baselineID)
	} else {
		b, err = store.Current()
	}
	if err != nil {
		return nil, err
	}
	if b.ProjectID != p.ID {
		logger.Warn("baseline belongs to another project",
			zap.String("baseline", b.ID),
			zap.String("baseline_project", b.ProjectID),
			zap.String("project", p.ID))
	}

	m := baseline.EarnedValue(b, baseline.ProgressFromProject(p), d)
	return &m, nil
}
