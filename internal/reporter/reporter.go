package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/graph"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/tolerance"
	"github.com/jackhale98/tessera/internal/ui"
)

// Reporter renders analysis results for the terminal.
type Reporter struct {
	w io.Writer
}

// New creates a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// capture writes to the reporter's writer and to a buffer, so that every
// renderer can return its text (e.g. as context for Claude narration).
func (r *Reporter) capture() (io.Writer, *strings.Builder) {
	var b strings.Builder
	return io.MultiWriter(r.w, &b), &b
}

func day(t interface{ Format(string) string }) string {
	return t.Format(calendar.Layout)
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

// Schedule writes the header, critical path, task table, milestones,
// resource usage and warnings of a schedule. p supplies task statuses and may
// be nil.
func (r *Reporter) Schedule(s *cpm.Schedule, p *project.Project) string {
	mw, b := r.capture()

	fmt.Fprintf(mw, "\n%s %s\n", ui.BoldCyan("Schedule"), ui.Dim(s.ProjectID))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Start:     %s\n", day(s.Start))
	fmt.Fprintf(mw, "End:       %s\n", ui.Bold(day(s.End)))
	fmt.Fprintf(mw, "Duration:  %d days\n", s.TotalDurationDays)
	fmt.Fprintf(mw, "Cost:      %.2f\n", s.TotalCost)
	if len(s.CriticalPath) > 0 {
		fmt.Fprintf(mw, "Critical:  %s\n", ui.BoldYellow("⚡ "+strings.Join(s.CriticalPath, " → ")))
	}
	fmt.Fprintln(mw)

	fmt.Fprintf(mw, "    %-12s %-30s %-10s %-10s %4s %4s %4s\n",
		"ID", "NAME", "START", "FINISH", "DUR", "TF", "FF")
	for _, id := range s.TopoOrder {
		n := s.Nodes[id]
		if n.Kind == graph.MilestoneNode {
			continue
		}
		icon := ui.StatusIcon(project.NotStarted)
		if p != nil {
			if t := p.Task(id); t != nil {
				icon = ui.StatusIcon(t.Status)
			}
		}
		tf := fmt.Sprintf("%4d", n.TotalFloat)
		if n.IsCritical {
			tf = ui.BoldYellow(tf)
		}
		fmt.Fprintf(mw, "  %s %-12s %-30s %-10s %-10s %4d %s %4d %s\n",
			icon, ui.BoldMagenta(truncate(id, 12)), truncate(n.Name, 30),
			day(n.Start), day(n.Finish), n.Duration, tf, n.FreeFloat, ui.Critical(n.IsCritical))
	}

	if len(s.Milestones) > 0 {
		fmt.Fprintf(mw, "\n%s\n", ui.BoldWhite("Milestones"))
		ids := make([]string, 0, len(s.Milestones))
		for id := range s.Milestones {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m := s.Milestones[id]
			fmt.Fprintf(mw, "  ◆ %-12s %-30s target %s  earliest %s  float %3d  %s %s\n",
				ui.BoldMagenta(id), truncate(m.Name, 30), day(m.Target), day(m.Earliest),
				m.TotalFloat, ui.MilestoneStatus(m.Status), ui.Critical(m.IsCritical))
		}
	}

	if len(s.Resources) > 0 {
		fmt.Fprintf(mw, "\n%s\n", ui.BoldWhite("Resources"))
		for _, u := range s.Resources {
			util := fmt.Sprintf("%5.1f%%", u.Utilization)
			if len(u.Conflicts) > 0 {
				util = ui.Red(util)
			}
			fmt.Fprintf(mw, "  %-12s %s %s  %7.1fh  peak %5.0f%%  cost %.2f\n",
				ui.Bold(u.ResourceID), ui.Bar(u.Utilization/100, 20), util, u.TotalHours, u.PeakAllocation, u.Cost)
			for _, c := range u.Conflicts {
				fmt.Fprintf(mw, "      %s %s %.0f%% > %.0f%% (%s)\n",
					ui.Red("✗"), day(c.Date), c.Required, c.Available, strings.Join(c.TaskIDs, ", "))
			}
		}
	}

	writeWarnings(mw, s.Warnings)
	return b.String()
}

func writeWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", ui.BoldYellow("Warnings:"))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  %s %s\n", ui.Yellow("!"), msg)
	}
}

// Waves lists the groups of nodes that can start together.
func (r *Reporter) Waves(s *cpm.Schedule) string {
	mw, b := r.capture()
	for _, wave := range s.Waves {
		status := ui.Dim("slack")
		if wave.IsCritical {
			status = ui.BoldYellow("critical")
		}
		start := ""
		if len(wave.NodeIDs) > 0 {
			start = day(s.Nodes[wave.NodeIDs[0]].Start)
		}
		fmt.Fprintf(mw, "  🌊 %s %d  %s  %s  (%d nodes)\n",
			ui.BoldWhite("Wave"), wave.Index+1, start, status, len(wave.NodeIDs))
		for _, id := range wave.NodeIDs {
			n := s.Nodes[id]
			fmt.Fprintf(mw, "    %s %s %-40s\n", ui.Critical(n.IsCritical), ui.BoldMagenta(id), truncate(n.Name, 40))
		}
	}
	return b.String()
}

// Variance writes a baseline comparison.
func (r *Reporter) Variance(v *baseline.VarianceReport) string {
	mw, b := r.capture()

	fmt.Fprintf(mw, "\n%s %s → %s\n", ui.BoldCyan("Baseline variance"), ui.Dim(v.OlderID), ui.Dim(v.NewerID))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Health:    %s\n", ui.Health(v.Health))
	fmt.Fprintf(mw, "End date:  %s days\n", ui.Signed("%+.0f", float64(v.EndDateVarianceDays)))
	fmt.Fprintf(mw, "Cost:      %s\n", ui.Signed("%+.2f", v.CostVariance))
	fmt.Fprintf(mw, "Effort:    %s h\n", ui.Signed("%+.1f", v.EffortVariance))
	fmt.Fprintf(mw, "Changes:   %d tasks, %d milestones\n\n", v.TaskChanges, v.MilestoneChanges)

	for _, t := range v.Tasks {
		if t.Type == baseline.NoChange {
			continue
		}
		fmt.Fprintf(mw, "  %-12s %-30s %-18s start %s  finish %s  cost %s\n",
			ui.BoldMagenta(t.TaskID), truncate(t.Name, 30), t.Type,
			ui.Signed("%+.0f", float64(t.StartVarianceDays)),
			ui.Signed("%+.0f", float64(t.ScheduleVarianceDays)),
			ui.Signed("%+.2f", t.CostVariance))
	}
	for _, m := range v.Milestones {
		fmt.Fprintf(mw, "  ◆ %-12s %-30s slip %s  %s\n",
			ui.BoldMagenta(m.MilestoneID), truncate(m.Name, 30),
			ui.Signed("%+.0f", float64(m.SlipDays)), ui.MilestoneState(m.Status))
	}
	return b.String()
}

// EarnedValue writes EV metrics.
func (r *Reporter) EarnedValue(m *baseline.EVMetrics) string {
	mw, b := r.capture()

	fmt.Fprintf(mw, "\n%s %s\n", ui.BoldCyan("Earned value"), ui.Dim(day(m.StatusDate)))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Health:    %s\n", ui.Health(m.Health))
	fmt.Fprintf(mw, "PV %12.2f   EV %12.2f   AC %12.2f   BAC %12.2f\n", m.PV, m.EV, m.AC, m.BAC)
	fmt.Fprintf(mw, "SV %s   CV %s\n", ui.Gain("%+12.2f", m.SV), ui.Gain("%+12.2f", m.CV))
	fmt.Fprintf(mw, "SPI %6.3f   CPI %6.3f   TCPI %6.3f\n", m.SPI, m.CPI, m.TCPI)
	fmt.Fprintf(mw, "EAC %12.2f   ETC %12.2f   VAC %12.2f\n", m.EAC, m.ETC, m.VAC)
	fmt.Fprintf(mw, "Complete  %s %5.1f%%\n", ui.Bar(m.PercentComplete/100, 20), m.PercentComplete)
	fmt.Fprintf(mw, "Spent     %s %5.1f%%\n", ui.Bar(m.PercentSpent/100, 20), m.PercentSpent)
	return b.String()
}

func optional(v *float64, format string) string {
	if v == nil {
		return ui.Dim("-")
	}
	return fmt.Sprintf(format, *v)
}

// Stackup writes the results of one stackup analysis.
func (r *Reporter) Stackup(res *tolerance.StackupResult) string {
	mw, b := r.capture()

	fmt.Fprintf(mw, "\n%s %s %s\n", ui.BoldCyan("Stackup"), ui.BoldMagenta(res.StackupID), res.Name)
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Nominal:   %.4f\n", res.Nominal)
	fmt.Fprintf(mw, "Limits:    LSL %s  USL %s  target %s\n",
		optional(res.Limits.LSL, "%.4f"), optional(res.Limits.USL, "%.4f"), optional(res.Limits.Target, "%.4f"))

	if wc := res.WorstCase; wc != nil {
		fmt.Fprintf(mw, "\n%s\n", ui.BoldWhite("Worst case"))
		fmt.Fprintf(mw, "  +%.4f / -%.4f   range [%.4f, %.4f]   Cp %s  Cpk %s\n",
			wc.Plus, wc.Minus, wc.Min, wc.Max, optional(wc.Cp, "%.3f"), optional(wc.Cpk, "%.3f"))
	}
	if rs := res.RSS; rs != nil {
		fmt.Fprintf(mw, "\n%s\n", ui.BoldWhite("RSS"))
		yield := ui.Dim("-")
		if rs.Yield != nil {
			yield = fmt.Sprintf("%.4f%%", *rs.Yield*100)
		}
		fmt.Fprintf(mw, "  ±%.4f   σ %.4f   range [%.4f, %.4f]   Cp %s  Cpk %s  yield %s\n",
			rs.Tolerance, rs.Sigma, rs.Min, rs.Max, optional(rs.Cp, "%.3f"), optional(rs.Cpk, "%.3f"), yield)
	}
	if mc := res.MonteCarlo; mc != nil {
		st := mc.Statistics
		fmt.Fprintf(mw, "\n%s %s\n", ui.BoldWhite("Monte Carlo"), ui.Dim(fmt.Sprintf("(%d samples)", st.Count)))
		fmt.Fprintf(mw, "  mean %.4f   σ %.4f   min %.4f   max %.4f\n", st.Mean, st.StdDev, st.Min, st.Max)
		fmt.Fprintf(mw, "  ±3σ  +%.4f / -%.4f\n", mc.ThreeSigma.Plus, mc.ThreeSigma.Minus)
		fmt.Fprintf(mw, "  %.0f%% interval [%.4f, %.4f]\n", mc.Confidence.Level*100, mc.Confidence.Lower, mc.Confidence.Upper)
		q := mc.Quartiles
		fmt.Fprintf(mw, "  p5 %.4f  q1 %.4f  median %.4f  q3 %.4f  p95 %.4f  iqr %.4f\n",
			q.P5, q.Q1, q.Median, q.Q3, q.P95, q.IQR)
		var ps []string
		for _, p := range mc.Percentiles {
			ps = append(ps, fmt.Sprintf("p%g=%.4f", p.P, p.Value))
		}
		fmt.Fprintf(mw, "  %s\n", ui.Dim(strings.Join(ps, " ")))
		if mc.Capability != nil {
			writeCapability(mw, mc.Capability)
		}
	}
	return b.String()
}

// Sensitivity writes the variance contribution ranking.
func (r *Reporter) Sensitivity(s *tolerance.SensitivityReport) string {
	mw, b := r.capture()

	fmt.Fprintf(mw, "\n%s %s %s\n", ui.BoldCyan("Sensitivity"), ui.BoldMagenta(s.StackupID), s.StackupName)
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Total σ:   %.5f   variance %.6g\n\n", s.TotalStdDev, s.TotalVariance)
	for _, c := range s.Contributions {
		fmt.Fprintf(mw, "  %2d. %-16s %s %6.2f%%  %s\n",
			c.Rank, ui.BoldMagenta(truncate(c.FeatureID, 16)), ui.Bar(c.Percent/100, 25), c.Percent, ui.Impact(c.Impact))
	}
	for _, sug := range s.SuggestImprovements(50) {
		fmt.Fprintf(mw, "  %s %s\n", ui.Cyan("→"), sug)
	}
	return b.String()
}

// Capability writes a standalone capability report.
func (r *Reporter) Capability(c *tolerance.CapabilityReport) string {
	mw, b := r.capture()
	writeCapability(mw, c)
	return b.String()
}

func index(i tolerance.Index) string {
	f := float64(i)
	switch {
	case math.IsNaN(f):
		return ui.Dim("n/a")
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return fmt.Sprintf("%.3f", f)
}

func writeCapability(w io.Writer, c *tolerance.CapabilityReport) {
	fmt.Fprintf(w, "\n%s %s\n", ui.BoldWhite("Capability"), ui.Rating(c.Overall))
	fmt.Fprintf(w, "  Cp %s (%s)  Cpk %s (%s)  Pp %s  Ppk %s  Cpm %s\n",
		index(c.Cp), ui.Rating(c.CpRating), index(c.Cpk), ui.Rating(c.CpkRating),
		index(c.Pp), index(c.Ppk), index(c.Cpm))
	fmt.Fprintf(w, "  yield %.4f%%   ppm %.0f (above %.0f, below %.0f)   sigma %.0f\n",
		c.Yield*100, c.PPM, c.PPMAboveUSL, c.PPMBelowLSL, c.SigmaLevel)
	for _, rec := range c.Recommendations {
		fmt.Fprintf(w, "  %s %s\n", ui.Cyan("→"), rec)
	}
}

// DOT renders the dependency network in Graphviz format, with critical
// nodes and edges highlighted.
func (r *Reporter) DOT(g *graph.Graph, s *cpm.Schedule) string {
	mw, b := r.capture()
	critical := func(id string) bool {
		n, ok := s.Nodes[id]
		return ok && n.IsCritical
	}

	fmt.Fprintln(mw, "digraph schedule {")
	fmt.Fprintln(mw, "  rankdir=LR;")
	fmt.Fprintln(mw, "  node [shape=box, fontname=\"Helvetica\"];")
	for _, id := range g.IDs() {
		n := g.Nodes[id]
		attrs := []string{fmt.Sprintf("label=%q", fmt.Sprintf("%s\\n%s", id, n.Name))}
		if n.Kind == graph.MilestoneNode {
			attrs = append(attrs, "shape=diamond")
		}
		if critical(id) {
			attrs = append(attrs, "color=red", "penwidth=2")
		}
		fmt.Fprintf(mw, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}
	for _, from := range g.IDs() {
		for _, to := range g.Adj[from] {
			e, _ := g.Edge(from, to)
			label := string(e.Type)
			if e.Lag != 0 {
				label += fmt.Sprintf("%+g", e.Lag)
			}
			attrs := []string{fmt.Sprintf("label=%q", label)}
			if critical(from) && critical(to) {
				attrs = append(attrs, "color=red")
			}
			fmt.Fprintf(mw, "  %q -> %q [%s];\n", from, to, strings.Join(attrs, ", "))
		}
	}
	fmt.Fprintln(mw, "}")
	return b.String()
}

// JSON writes v as indented JSON.
func (r *Reporter) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}
