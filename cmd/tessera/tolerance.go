package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/export"
	"github.com/jackhale98/tessera/internal/projectfile"
	"github.com/jackhale98/tessera/internal/tolerance"
)

func loadLibrary() (*tolerance.Library, error) {
	if flagStackups == "" {
		return nil, errs.New(errs.Configuration, "tessera", "--file is required")
	}
	lib, err := projectfile.LoadStackupsWithDefaults(flagStackups, projectfile.MonteCarloDefaults{
		Samples:    cfg.MonteCarlo.Samples,
		Confidence: cfg.MonteCarlo.Confidence,
	})
	if err != nil {
		return nil, fmt.Errorf("load stackups: %w", err)
	}
	return lib, nil
}

// selectStackups returns the stackup named id, or all of them.
func selectStackups(lib *tolerance.Library, id string) ([]*tolerance.Stackup, error) {
	if id == "" {
		if len(lib.Stackups) == 0 {
			return nil, errs.New(errs.Validation, "tessera", "%s defines no stackups", flagStackups)
		}
		return lib.Stackups, nil
	}
	st := lib.Stackup(id)
	if st == nil {
		return nil, errs.New(errs.NotFound, "tessera", "stackup %q", id)
	}
	return []*tolerance.Stackup{st}, nil
}

func stackupCmd() *cobra.Command {
	var (
		flagID      string
		flagSeed    uint64
		flagSamples int
		flagMethods []string
	)

	cmd := &cobra.Command{
		Use:   "stackup",
		Short: "Analyze tolerance stackups by worst case, RSS and Monte Carlo",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibrary()
			if err != nil {
				return err
			}
			stackups, err := selectStackups(lib, flagID)
			if err != nil {
				return err
			}

			for _, st := range stackups {
				if cmd.Flags().Changed("seed") {
					seed := flagSeed
					st.MonteCarlo.Seed = &seed
				}
				if cmd.Flags().Changed("samples") {
					st.MonteCarlo.Samples = flagSamples
				}
				if len(flagMethods) > 0 {
					st.Methods = st.Methods[:0]
					for _, m := range flagMethods {
						st.Methods = append(st.Methods, tolerance.Method(m))
					}
				}
			}

			results := make([]*tolerance.StackupResult, len(stackups))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.NumCPU())
			for i, st := range stackups {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					progress := tolerance.ProgressFunc(func(done, total int) {
						logger.Debug("monte carlo", zap.String("stackup", st.ID), zap.Int("done", done), zap.Int("total", total))
					})
					res, err := tolerance.Analyze(st, lib.Features, tolerance.WithObserver(progress))
					if err != nil {
						return fmt.Errorf("stackup %s: %w", st.ID, err)
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if flagXLSX != "" {
				if err := exportSamples(results); err != nil {
					return err
				}
			}

			if flagJSON {
				return out().JSON(results)
			}
			for _, res := range results {
				out().Stackup(res)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagStackups, "file", "f", "", "Stackup library (YAML)")
	cmd.Flags().StringVar(&flagID, "id", "", "Analyze only this stackup")
	cmd.Flags().Uint64Var(&flagSeed, "seed", 0, "Monte Carlo seed for reproducible runs")
	cmd.Flags().IntVar(&flagSamples, "samples", tolerance.DefaultSamples, "Monte Carlo sample count")
	cmd.Flags().StringSliceVar(&flagMethods, "method", nil, "Methods to run (worst_case, rss, monte_carlo)")
	cmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Write Monte Carlo samples to an Excel workbook")

	return cmd
}

// exportSamples writes one workbook per stackup with Monte Carlo results.
// Several stackups get their id appended to the file name.
func exportSamples(results []*tolerance.StackupResult) error {
	var withMC []*tolerance.StackupResult
	for _, res := range results {
		if res.MonteCarlo != nil {
			withMC = append(withMC, res)
		}
	}
	if len(withMC) == 0 {
		return errs.New(errs.Validation, "tessera", "--xlsx needs a Monte Carlo result")
	}
	for _, res := range withMC {
		path := flagXLSX
		if len(withMC) > 1 {
			path = strings.TrimSuffix(flagXLSX, ".xlsx") + "-" + res.StackupID + ".xlsx"
		}
		f, err := export.SamplesWorkbook(res)
		if err != nil {
			return err
		}
		if err := export.Save(f, path); err != nil {
			return err
		}
		logger.Info("samples exported", zap.String("stackup", res.StackupID), zap.String("path", path))
	}
	return nil
}

func sensitivityCmd() *cobra.Command {
	var (
		flagID        string
		flagThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Rank the variance contribution of each feature in a stackup",
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
			rep, err := tolerance.Sensitivity(stackups[0], lib.Features)
			if err != nil {
				return err
			}
			for _, it := range rep.CriticalFeatures(flagThreshold) {
				logger.Debug("critical feature",
					zap.String("feature", it.FeatureID),
					zap.Float64("percent", it.Percent))
			}
			if flagJSON {
				return out().JSON(rep)
			}
			out().Sensitivity(rep)
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagStackups, "file", "f", "", "Stackup library (YAML)")
	cmd.Flags().StringVar(&flagID, "id", "", "Stackup to analyze")
	cmd.Flags().Float64Var(&flagThreshold, "critical", 25, "Contribution percent above which a feature is critical")

	return cmd
}

func capabilityCmd() *cobra.Command {
	var (
		flagSamples string
		flagLSL     float64
		flagUSL     float64
		flagTarget  float64
	)

	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Process capability of measured samples against specification limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := readSamples(flagSamples)
			if err != nil {
				return err
			}
			var lim tolerance.Limits
			if cmd.Flags().Changed("lsl") {
				lim.LSL = &flagLSL
			}
			if cmd.Flags().Changed("usl") {
				lim.USL = &flagUSL
			}
			switch {
			case cmd.Flags().Changed("target"):
				lim.Target = &flagTarget
			case lim.Both():
				mid := (flagLSL + flagUSL) / 2
				lim.Target = &mid
			}
			logger.Debug("samples read", zap.String("path", flagSamples), zap.Int("count", len(samples)))

			rep, err := tolerance.Capability(samples, lim)
			if err != nil {
				return err
			}
			if flagJSON {
				return out().JSON(rep)
			}
			out().Capability(rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagSamples, "samples", "", "CSV file of measurements (first column)")
	cmd.Flags().Float64Var(&flagLSL, "lsl", 0, "Lower specification limit")
	cmd.Flags().Float64Var(&flagUSL, "usl", 0, "Upper specification limit")
	cmd.Flags().Float64Var(&flagTarget, "target", 0, "Target value (defaults to the limit midpoint)")

	return cmd
}

// readSamples reads the first column of a CSV file. Rows whose first field
// is not a number, such as a header, are skipped.
func readSamples(path string) ([]float64, error) {
	if path == "" {
		return nil, errs.New(errs.Configuration, "tessera", "--samples is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var samples []float64
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			continue
		}
		samples = append(samples, x)
	}
	return samples, nil
}
