package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackhale98/tessera/internal/export"
	"github.com/jackhale98/tessera/internal/graph"
)

func scheduleCmd() *cobra.Command {
	var (
		flagDOT   bool
		flagWaves bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute the critical path schedule of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			s, err := computeSchedule(p)
			if err != nil {
				return err
			}

			if flagXLSX != "" {
				f, err := export.ScheduleWorkbook(s)
				if err != nil {
					return err
				}
				if err := export.Save(f, flagXLSX); err != nil {
					return err
				}
				logger.Info("schedule exported", zap.String("path", flagXLSX))
			}

			switch {
			case flagJSON:
				return out().JSON(s)
			case flagDOT:
				g, err := graph.Build(p)
				if err != nil {
					return fmt.Errorf("build graph: %w", err)
				}
				out().DOT(g, s)
			case flagWaves:
				out().Waves(s)
			default:
				out().Schedule(s, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flagProject, "project", "p", "", "Project file (YAML)")
	cmd.Flags().BoolVar(&flagDOT, "dot", false, "Print a Graphviz DOT graph")
	cmd.Flags().BoolVar(&flagWaves, "waves", false, "Print the parallel start waves")
	cmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Also write the schedule to an Excel workbook")

	return cmd
}
