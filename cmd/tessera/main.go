package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/config"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/projectfile"
	"github.com/jackhale98/tessera/internal/reporter"
	"github.com/jackhale98/tessera/internal/ui"
)

var (
	flagConfig   string
	flagJSON     bool
	flagProject  string
	flagStackups string
	flagXLSX     string
)

var (
	v      = config.New()
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tessera",
		Short: "Schedule projects, track baselines and analyze tolerance stackups",
		Long: `Tessera computes critical-path schedules with resource loading, captures
and compares baselines with earned value, and evaluates tolerance stackups by
worst case, RSS and Monte Carlo with process capability.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Banner(cmd.OutOrStdout())
			return cmd.Help()
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ./tessera.yaml)")
	pf.BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Float64("hours-per-day", 8, "Working hours per day")
	pf.Float64("buffer", 0.10, "Schedule buffer applied to effort-driven durations")
	pf.String("date-mode", string(cpm.CalendarDays), "Date mapping (calendar, working)")
	pf.String("baseline-dir", baseline.DefaultDir, "Directory holding baseline snapshots")

	for key, flag := range map[string]string{
		"log.level":               "log-level",
		"scheduler.hours_per_day": "hours-per-day",
		"scheduler.buffer":        "buffer",
		"scheduler.date_mode":     "date-mode",
		"baseline.dir":            "baseline-dir",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "tessera: bind %s: %v\n", flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(baselineCmd())
	rootCmd.AddCommand(evCmd())
	rootCmd.AddCommand(workflowCmd())
	rootCmd.AddCommand(stackupCmd())
	rootCmd.AddCommand(sensitivityCmd())
	rootCmd.AddCommand(capabilityCmd())
	rootCmd.AddCommand(narrateCmd())

	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger, _ = zap.NewDevelopment()
		}
		logger.Error("command failed", zap.String("kind", string(errs.KindOf(err))), zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(v, flagConfig)
	if err != nil {
		return err
	}
	cfg = c

	logger, err = initLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Float64("hours_per_day", cfg.Scheduler.HoursPerDay),
		zap.Float64("buffer", cfg.Scheduler.Buffer),
		zap.String("date_mode", string(cfg.Scheduler.DateMode)),
		zap.String("baseline_dir", cfg.Baseline.Dir),
	)
	return nil
}

func initLogger(lc config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if lc.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch lc.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func out() *reporter.Reporter {
	return reporter.New(os.Stdout)
}

func loadProject() (*project.Project, error) {
	if flagProject == "" {
		return nil, errs.New(errs.Configuration, "tessera", "--project is required")
	}
	p, err := projectfile.LoadProject(flagProject)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	logger.Debug("project loaded",
		zap.String("project", p.ID),
		zap.Int("tasks", len(p.Tasks)),
		zap.Int("milestones", len(p.Milestones)))
	return p, nil
}

// computeSchedule runs the scheduler with the configured settings and logs
// the warnings it reports.
func computeSchedule(p *project.Project) (*cpm.Schedule, error) {
	s, err := cpm.Compute(p, cfg.SchedulerConfig())
	if err != nil {
		return nil, fmt.Errorf("compute schedule: %w", err)
	}
	for _, w := range s.Warnings {
		logger.Warn("schedule", zap.String("project", p.ID), zap.String("detail", w))
	}
	return s, nil
}

func openStore() (*baseline.Store, error) {
	store, err := baseline.NewStore(cfg.Baseline.Dir)
	if err != nil {
		return nil, fmt.Errorf("open baseline store: %w", err)
	}
	return store, nil
}

// parseDate reads a YYYY-MM-DD flag value; empty means today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return calendar.Truncate(time.Now()), nil
	}
	return calendar.Parse(s)
}
