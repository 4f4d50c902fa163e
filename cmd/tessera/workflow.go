package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/projectfile"
	"github.com/jackhale98/tessera/internal/ui"
	"github.com/jackhale98/tessera/internal/workflow"
)

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Edit task status and dependencies of a project file",
	}
	cmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Project file (YAML)")

	cmd.AddCommand(transitionCmd())
	cmd.AddCommand(addDepCmd())
	cmd.AddCommand(removeDepCmd())
	cmd.AddCommand(earliestCmd())
	return cmd
}

// saveProject writes the edited project back to the file it came from.
func saveProject(p *project.Project) error {
	if err := projectfile.SaveProject(flagProject, p); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	logger.Debug("project saved", zap.String("path", flagProject))
	return nil
}

func transitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transition TASK STATUS",
		Short: "Move a task to a new status and run its workflow actions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			t := p.Task(args[0])
			if t == nil {
				return errs.New(errs.NotFound, "tessera", "task %q", args[0])
			}
			from, to := t.Status, project.Status(args[1])

			m := workflow.NewManager(p, nil)
			results, err := m.Transition(t.ID, from, to)
			if err != nil {
				return err
			}
			if err := saveProject(p); err != nil {
				return err
			}
			logger.Info("task transitioned",
				zap.String("task", t.ID),
				zap.String("from", string(from)),
				zap.String("to", string(to)))

			if flagJSON {
				return out().JSON(results)
			}
			fmt.Printf("%s %s: %s → %s\n", ui.StatusIcon(to), ui.BoldMagenta(t.ID), from, to)
			for _, r := range results {
				line := fmt.Sprintf("  • %s", r.Action)
				if r.Detail != "" {
					line += " " + ui.Dim(r.Detail)
				}
				if len(r.Affected) > 0 {
					line += " [" + strings.Join(r.Affected, ", ") + "]"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func addDepCmd() *cobra.Command {
	var (
		flagType string
		flagLag  float64
	)

	cmd := &cobra.Command{
		Use:   "add-dep SUCCESSOR PREDECESSOR",
		Short: "Add a dependency, refusing edits that would close a cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			typ := project.DependencyType(strings.ToUpper(flagType))
			if err := workflow.NewManager(p, nil).AddDependency(args[0], args[1], typ, flagLag); err != nil {
				if cycle := errs.Cycle(err); len(cycle) > 0 {
					logger.Warn("dependency refused", zap.Strings("cycle", cycle))
				}
				return err
			}
			if err := saveProject(p); err != nil {
				return err
			}
			logger.Info("dependency added",
				zap.String("successor", args[0]),
				zap.String("predecessor", args[1]),
				zap.String("type", string(typ)),
				zap.Float64("lag", flagLag))
			return nil
		},
	}

	cmd.Flags().StringVar(&flagType, "type", string(project.FinishToStart), "Dependency type (FS, SS, FF, SF)")
	cmd.Flags().Float64Var(&flagLag, "lag", 0, "Lag in working days (negative for lead)")

	return cmd
}

func removeDepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-dep SUCCESSOR PREDECESSOR",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := workflow.NewManager(p, nil).RemoveDependency(args[0], args[1]); err != nil {
				return err
			}
			if err := saveProject(p); err != nil {
				return err
			}
			logger.Info("dependency removed", zap.String("successor", args[0]), zap.String("predecessor", args[1]))
			return nil
		},
	}
}

func earliestCmd() *cobra.Command {
	var flagConstraints []string

	cmd := &cobra.Command{
		Use:   "earliest TASK",
		Short: "Earliest start of a task from its predecessors and constraints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			m := workflow.NewManager(p, nil)
			for _, arg := range flagConstraints {
				c, err := parseConstraint(args[0], arg)
				if err != nil {
					return err
				}
				if err := m.AddConstraint(c); err != nil {
					return err
				}
			}

			start, err := m.EarliestStart(args[0])
			if err != nil {
				return err
			}
			for _, w := range m.Warnings() {
				logger.Warn("calendar fallback", zap.String("task", args[0]), zap.String("detail", w))
			}

			// check the scheduled window against the constraints too
			var violations []workflow.Violation
			if len(flagConstraints) > 0 {
				s, err := computeSchedule(p)
				if err != nil {
					return err
				}
				if n, ok := s.Nodes[args[0]]; ok {
					violations = m.CheckConstraints(args[0], n.Start, n.Finish)
				}
			}
			for _, v := range violations {
				logger.Warn("constraint violated",
					zap.String("task", args[0]),
					zap.String("constraint", string(v.Constraint.Type)),
					zap.String("detail", v.Message))
			}

			if flagJSON {
				return out().JSON(map[string]any{
					"task":           args[0],
					"earliest_start": start.Format("2006-01-02"),
					"violations":     violations,
				})
			}
			fmt.Printf("%s earliest start %s\n", ui.BoldMagenta(args[0]), ui.Bold(start.Format("2006-01-02")))
			for _, v := range violations {
				fmt.Printf("  %s %s\n", ui.Red("✗"), v.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&flagConstraints, "constraint", nil, "Date constraint TYPE=YYYY-MM-DD (MSO, MFO, SNET, SNLT, FNET, FNLT)")

	return cmd
}

func parseConstraint(taskID, arg string) (workflow.Constraint, error) {
	typ, date, ok := strings.Cut(arg, "=")
	if !ok {
		return workflow.Constraint{}, errs.New(errs.Validation, "tessera", "constraint %q is not TYPE=DATE", arg)
	}
	d, err := parseDate(date)
	if err != nil {
		return workflow.Constraint{}, err
	}
	return workflow.Constraint{
		TaskID: taskID,
		Type:   workflow.ConstraintType(strings.ToUpper(typ)),
		Date:   d,
	}, nil
}
