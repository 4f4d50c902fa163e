// Package export writes schedules, baseline variance and Monte Carlo samples
// to Excel workbooks.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/tolerance"
)

const dateLayout = "2006-01-02"

type styles struct {
	header   int
	critical int
	total    int
}

func newStyles(f *excelize.File) styles {
	header, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#8EA9DB", Style: 1},
		},
	})
	critical, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFC7CE"}},
	})
	total, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	return styles{header: header, critical: critical, total: total}
}

// writeHeader writes a bold header row and sets column widths.
func writeHeader(f *excelize.File, sheet string, st styles, headers []string, widths []float64) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) {
	last, _ := excelize.ColumnNumberToName(cols)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), style)
}

// ScheduleWorkbook lays out a computed schedule: one row per node in
// topological order with critical rows highlighted, plus milestone and
// resource sheets.
func ScheduleWorkbook(s *cpm.Schedule) (*excelize.File, error) {
	if s == nil {
		return nil, errs.New(errs.Validation, "export.ScheduleWorkbook", "schedule is nil")
	}
	f := excelize.NewFile()
	st := newStyles(f)

	sheet := "Schedule"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"ID", "Name", "Kind", "Duration", "ES", "EF", "LS", "LF", "Start", "Finish", "Total Float", "Free Float", "Critical", "Wave", "Cost"}
	widths := []float64{14, 30, 10, 10, 6, 6, 6, 6, 12, 12, 12, 11, 9, 6, 12}
	writeHeader(f, sheet, st, headers, widths)

	row := 2
	for _, id := range s.TopoOrder {
		n := s.Nodes[id]
		if n == nil {
			continue
		}
		critical := "N"
		if n.IsCritical {
			critical = "Y"
		}
		writeRow(f, sheet, row,
			n.ID, n.Name, string(n.Kind), n.Duration,
			n.ES, n.EF, n.LS, n.LF,
			n.Start.Format(dateLayout), n.Finish.Format(dateLayout),
			n.TotalFloat, n.FreeFloat, critical, n.Wave, n.Cost)
		if n.IsCritical {
			styleRow(f, sheet, row, len(headers), st.critical)
		}
		row++
	}
	writeRow(f, sheet, row, "Total", fmt.Sprintf("%d days", s.TotalDurationDays))
	f.SetCellValue(sheet, fmt.Sprintf("O%d", row), s.TotalCost)
	styleRow(f, sheet, row, len(headers), st.total)

	if err := milestoneSheet(f, st, s); err != nil {
		return nil, err
	}
	if err := resourceSheet(f, st, s); err != nil {
		return nil, err
	}
	return f, nil
}

func milestoneSheet(f *excelize.File, st styles, s *cpm.Schedule) error {
	sheet := "Milestones"
	if _, err := f.NewSheet(sheet); err != nil {
		return errs.Wrap(errs.Validation, "export.ScheduleWorkbook", err)
	}
	writeHeader(f, sheet, st,
		[]string{"ID", "Name", "Target", "Earliest", "Total Float", "Critical", "Status"},
		[]float64{14, 30, 12, 12, 12, 9, 12})

	ids := make([]string, 0, len(s.Milestones))
	for id := range s.Milestones {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		m := s.Milestones[id]
		target := ""
		if !m.Target.IsZero() {
			target = m.Target.Format(dateLayout)
		}
		critical := "N"
		if m.IsCritical {
			critical = "Y"
		}
		writeRow(f, sheet, i+2, m.ID, m.Name, target, m.Earliest.Format(dateLayout), m.TotalFloat, critical, string(m.Status))
	}
	return nil
}

func resourceSheet(f *excelize.File, st styles, s *cpm.Schedule) error {
	sheet := "Resources"
	if _, err := f.NewSheet(sheet); err != nil {
		return errs.Wrap(errs.Validation, "export.ScheduleWorkbook", err)
	}
	headers := []string{"ID", "Name", "Total Hours", "Avg Daily Hours", "Peak Allocation %", "Utilization %", "Cost", "Conflicts"}
	writeHeader(f, sheet, st, headers, []float64{14, 24, 12, 15, 17, 14, 12, 10})

	for i, r := range s.Resources {
		row := i + 2
		writeRow(f, sheet, row, r.ResourceID, r.Name, r.TotalHours, r.AverageDailyHours,
			r.PeakAllocation, r.Utilization, r.Cost, len(r.Conflicts))
		if len(r.Conflicts) > 0 {
			styleRow(f, sheet, row, len(headers), st.critical)
		}
	}
	return nil
}

// VarianceWorkbook lays out a baseline comparison.
func VarianceWorkbook(v *baseline.VarianceReport) (*excelize.File, error) {
	if v == nil {
		return nil, errs.New(errs.Validation, "export.VarianceWorkbook", "report is nil")
	}
	f := excelize.NewFile()
	st := newStyles(f)

	sheet := "Variance"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"Task", "Name", "Type", "Start Var (d)", "Finish Var (d)", "Duration Var (d)", "Cost Var", "Effort Var"}
	writeHeader(f, sheet, st, headers, []float64{14, 30, 18, 13, 14, 16, 12, 12})

	row := 2
	for _, t := range v.Tasks {
		writeRow(f, sheet, row, t.TaskID, t.Name, string(t.Type),
			t.StartVarianceDays, t.ScheduleVarianceDays, t.DurationVariance, t.CostVariance, t.EffortVariance)
		if t.ScheduleVarianceDays > 0 {
			styleRow(f, sheet, row, len(headers), st.critical)
		}
		row++
	}
	writeRow(f, sheet, row, "Total", fmt.Sprintf("%s vs %s", v.NewerID, v.OlderID), string(v.Health),
		"", v.EndDateVarianceDays, "", v.CostVariance, v.EffortVariance)
	styleRow(f, sheet, row, len(headers), st.total)

	if len(v.Milestones) > 0 {
		ms := "Milestones"
		if _, err := f.NewSheet(ms); err != nil {
			return nil, errs.Wrap(errs.Validation, "export.VarianceWorkbook", err)
		}
		writeHeader(f, ms, st, []string{"ID", "Name", "Slip (d)", "Status"}, []float64{14, 30, 10, 12})
		for i, m := range v.Milestones {
			writeRow(f, ms, i+2, m.MilestoneID, m.Name, m.SlipDays, string(m.Status))
		}
	}
	return f, nil
}

// SamplesWorkbook writes the raw Monte Carlo samples of a stackup result and
// a summary sheet with its statistics.
func SamplesWorkbook(res *tolerance.StackupResult) (*excelize.File, error) {
	const op = "export.SamplesWorkbook"
	if res == nil || res.MonteCarlo == nil {
		return nil, errs.New(errs.Validation, op, "no Monte Carlo result to export")
	}
	mc := res.MonteCarlo

	f := excelize.NewFile()
	st := newStyles(f)

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)
	writeHeader(f, summary, st, []string{"Metric", "Value"}, []float64{22, 16})
	rows := [][2]any{
		{"Stackup", res.StackupID},
		{"Name", res.Name},
		{"Nominal", res.Nominal},
		{"Samples", mc.Statistics.Count},
		{"Mean", mc.Statistics.Mean},
		{"Std Dev", mc.Statistics.StdDev},
		{"Min", mc.Statistics.Min},
		{"Max", mc.Statistics.Max},
		{"Q1", mc.Quartiles.Q1},
		{"Median", mc.Quartiles.Median},
		{"Q3", mc.Quartiles.Q3},
		{"P5", mc.Quartiles.P5},
		{"P95", mc.Quartiles.P95},
		{"+3 sigma", mc.ThreeSigma.Plus},
		{"-3 sigma", mc.ThreeSigma.Minus},
		{fmt.Sprintf("CI %.0f%% low", mc.Confidence.Level*100), mc.Confidence.Lower},
		{fmt.Sprintf("CI %.0f%% high", mc.Confidence.Level*100), mc.Confidence.Upper},
	}
	for _, p := range mc.Percentiles {
		rows = append(rows, [2]any{fmt.Sprintf("P%g", p.P), p.Value})
	}
	for i, r := range rows {
		writeRow(f, summary, i+2, r[0], r[1])
	}

	sheet := "Samples"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	// the stream writer owns the whole sheet, so the header goes through it too
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	if err := sw.SetColWidth(1, 2, 14); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	if err := sw.SetRow("A1", []any{
		excelize.Cell{StyleID: st.header, Value: "#"},
		excelize.Cell{StyleID: st.header, Value: "Value"},
	}); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	for i, v := range mc.Samples {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []any{i + 1, v}); err != nil {
			return nil, errs.Wrap(errs.Validation, op, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	return f, nil
}

// Save writes f to path and closes it.
func Save(f *excelize.File, path string) error {
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
