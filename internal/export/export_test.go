package export

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/tolerance"
)

func intp(v int) *int { return &v }

func reopen(t *testing.T, f *excelize.File, name string) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, Save(f, path))
	out, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func TestScheduleWorkbook(t *testing.T) {
	p := &project.Project{
		ID:    "demo",
		Name:  "Demo",
		Start: calendar.Date(2024, time.January, 1),
		Resources: []*project.Resource{
			{ID: "eng", Name: "Engineer", HourlyRate: 50, DailyHours: 8, Availability: 100},
		},
		Tasks: []*project.Task{
			{ID: "a", Name: "Design", Type: project.FixedDuration, DurationDays: intp(2),
				Assignments: []project.Assignment{{ResourceID: "eng", Allocation: 100}}},
			{ID: "b", Name: "Build", Type: project.FixedDuration, DurationDays: intp(3),
				Dependencies: []project.Dependency{{PredecessorID: "a", Type: project.FinishToStart}}},
		},
		Milestones: []*project.Milestone{
			{ID: "m", Name: "Done", TargetDate: calendar.Date(2024, time.January, 2), Dependencies: []project.Dependency{{PredecessorID: "b", Type: project.FinishToStart}}},
		},
	}
	cfg := cpm.DefaultConfig()
	cfg.Buffer = 0
	s, err := cpm.Compute(p, cfg)
	require.NoError(t, err)

	wb, err := ScheduleWorkbook(s)
	require.NoError(t, err)
	f := reopen(t, wb, "schedule.xlsx")

	assert.Equal(t, []string{"Schedule", "Milestones", "Resources"}, f.GetSheetList())

	rows, err := f.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, rows, 1+len(s.TopoOrder)+1)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "Design", rows[1][1])
	assert.Equal(t, "2024-01-01", rows[1][8])
	assert.Equal(t, "Y", rows[1][12])
	assert.Equal(t, "Total", rows[len(rows)-1][0])

	ms, err := f.GetRows("Milestones")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "m", ms[1][0])

	res, err := f.GetRows("Resources")
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "eng", res[1][0])
}

func TestVarianceWorkbook(t *testing.T) {
	v := &baseline.VarianceReport{
		OlderID: "b1", NewerID: "b2", Health: baseline.Yellow, EndDateVarianceDays: 2,
		Tasks: []baseline.TaskVariance{
			{TaskID: "a", Name: "Design", Type: baseline.ScheduleVariance, ScheduleVarianceDays: 2},
			{TaskID: "b", Name: "Build", Type: baseline.TaskAdded},
		},
		Milestones: []baseline.MilestoneVariance{{MilestoneID: "m", Name: "Done", SlipDays: 2, Status: baseline.AtRisk}},
	}
	wb, err := VarianceWorkbook(v)
	require.NoError(t, err)
	f := reopen(t, wb, "variance.xlsx")

	rows, err := f.GetRows("Variance")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "schedule_variance", rows[1][2])
	assert.Equal(t, "2", rows[1][4])
	assert.Equal(t, "b2 vs b1", rows[3][1])
	assert.Equal(t, "yellow", rows[3][2])

	ms, err := f.GetRows("Milestones")
	require.NoError(t, err)
	assert.Equal(t, "at_risk", ms[1][3])
}

func TestSamplesWorkbook(t *testing.T) {
	seed := uint64(11)
	st := &tolerance.Stackup{
		ID:            "gap",
		Name:          "Gap",
		Contributions: []tolerance.Contribution{{FeatureID: "f", Direction: 1}},
		MonteCarlo:    tolerance.MonteCarloSettings{Samples: 250, Seed: &seed},
		Methods:       []tolerance.Method{tolerance.MonteCarlo},
	}
	features := []tolerance.Feature{{ID: "f", Nominal: 10, PlusTol: 0.1, MinusTol: 0.1, Distribution: tolerance.Uniform}}
	res, err := tolerance.Analyze(st, features)
	require.NoError(t, err)

	wb, err := SamplesWorkbook(res)
	require.NoError(t, err)
	f := reopen(t, wb, "samples.xlsx")

	rows, err := f.GetRows("Samples")
	require.NoError(t, err)
	require.Len(t, rows, 251)
	assert.Equal(t, []string{"#", "Value"}, rows[0])
	assert.Equal(t, "1", rows[1][0])

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, "gap", summary[1][1])
	assert.Equal(t, "250", summary[4][1])
}

func TestSamplesWorkbook_NoMonteCarlo(t *testing.T) {
	_, err := SamplesWorkbook(&tolerance.StackupResult{StackupID: "x"})
	assert.True(t, errs.Is(err, errs.Validation))

	_, err = ScheduleWorkbook(nil)
	assert.True(t, errs.Is(err, errs.Validation))
}
