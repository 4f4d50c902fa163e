package baseline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
)

var monday = calendar.Date(2024, time.January, 1)

func day(n int) time.Time { return monday.AddDate(0, 0, n) }

func sampleProject() *project.Project {
	two := 2
	return &project.Project{
		ID: "p", Name: "Widget", Start: monday,
		Resources: []*project.Resource{{ID: "eng", Name: "Engineer", HourlyRate: 50, DailyHours: 8, Availability: 100}},
		Tasks: []*project.Task{
			{ID: "a", Name: "Design", Type: project.EffortDriven, EffortHours: 16, Status: project.NotStarted,
				Assignments: []project.Assignment{{ResourceID: "eng", Allocation: 100}}},
			{ID: "b", Name: "Build", Type: project.FixedDuration, DurationDays: &two, Status: project.NotStarted,
				Dependencies: []project.Dependency{{PredecessorID: "a", Type: project.FinishToStart}}},
		},
		Milestones: []*project.Milestone{{ID: "m", Name: "Ship", TargetDate: day(3),
			Dependencies: []project.Dependency{{PredecessorID: "b", Type: project.FinishToStart}}}},
	}
}

func capture(t *testing.T, p *project.Project, typ Type) *Baseline {
	t.Helper()
	cfg := cpm.DefaultConfig()
	cfg.Buffer = 0
	s, err := cpm.Compute(p, cfg)
	require.NoError(t, err)
	b, err := Create(p, s, Options{Name: "plan", Type: typ, Author: "pm", CreatedAt: monday})
	require.NoError(t, err)
	return b
}

func TestCreate(t *testing.T) {
	b := capture(t, sampleProject(), Initial)

	assert.True(t, b.IsCurrent)
	assert.Equal(t, Initial, b.Type)
	require.Len(t, b.Tasks, 2)

	a, ok := b.Task("a")
	require.True(t, ok)
	assert.Equal(t, monday, a.Start)
	assert.Equal(t, day(1), a.Finish)
	assert.Equal(t, 2, a.DurationDays)
	assert.Equal(t, 800.0, a.Cost)
	assert.Equal(t, []string{"eng"}, a.Resources)

	bt, _ := b.Task("b")
	assert.Equal(t, []string{"a"}, bt.Dependencies)

	assert.Equal(t, 800.0, b.TotalCost)
	assert.Equal(t, 16.0, b.TotalEffort)
	require.Len(t, b.Milestones, 1)
	assert.Equal(t, day(3), b.Milestones[0].Target)
	require.Len(t, b.Resources, 1)
	assert.Equal(t, 16.0, b.Resources[0].Hours)

	archived := capture(t, sampleProject(), Archived)
	assert.False(t, archived.IsCurrent)

	_, err := Create(sampleProject(), &cpm.Schedule{}, Options{})
	assert.True(t, errs.Is(err, errs.Validation), "name is required")
}

func TestImmutable(t *testing.T) {
	b := capture(t, sampleProject(), Working)
	assert.True(t, errs.Is(b.SetDescription("x"), errs.Validation))
	assert.True(t, errs.Is(b.Rename("x"), errs.Validation))
	assert.True(t, errs.Is(b.ReplaceTask(TaskSnapshot{ID: "a"}), errs.Validation))
	assert.Equal(t, "plan", b.Name)
}

func TestCompare_Self(t *testing.T) {
	b := capture(t, sampleProject(), Working)
	r := Compare(b, b)

	for _, tv := range r.Tasks {
		assert.Equal(t, NoChange, tv.Type, tv.TaskID)
	}
	for _, mv := range r.Milestones {
		assert.Equal(t, OnTrack, mv.Status)
		assert.Zero(t, mv.SlipDays)
	}
	assert.Equal(t, Green, r.Health)
	assert.Zero(t, r.TaskChanges)
}

func TestCompare_Classification(t *testing.T) {
	older := capture(t, sampleProject(), Working)

	p := sampleProject()
	p.Tasks[0].EffortHours = 40 // a slips, b follows
	p.Tasks = append(p.Tasks, &project.Task{ID: "c", Name: "Docs", Type: project.FixedDuration, Status: project.NotStarted})
	newer := capture(t, p, Working)

	r := Compare(newer, older)
	byID := make(map[string]TaskVariance)
	for _, tv := range r.Tasks {
		byID[tv.TaskID] = tv
	}
	assert.Equal(t, ScheduleVariance, byID["a"].Type)
	assert.Equal(t, 3, byID["a"].ScheduleVarianceDays)
	assert.Equal(t, ScheduleVariance, byID["b"].Type)
	assert.Equal(t, TaskAdded, byID["c"].Type)
	assert.Equal(t, 3, r.EndDateVarianceDays)
	assert.Equal(t, 1200.0, r.CostVariance)
	assert.Equal(t, Red, r.Health, "cost variance above 1000")

	removed := Compare(older, newer)
	assert.Equal(t, TaskRemoved, removed.Tasks[2].Type)
}

func TestCompare_CostAndScope(t *testing.T) {
	older := &Baseline{ID: "o", Tasks: []TaskSnapshot{
		{ID: "a", Start: monday, Finish: day(1), DurationDays: 2, Cost: 100, EffortHours: 10},
		{ID: "b", Start: monday, Finish: day(1), DurationDays: 2, Cost: 100, EffortHours: 10},
	}}
	newer := &Baseline{ID: "n", Tasks: []TaskSnapshot{
		{ID: "a", Start: monday, Finish: day(1), DurationDays: 2, Cost: 150, EffortHours: 12},
		{ID: "b", Start: monday, Finish: day(1), DurationDays: 2, Cost: 100.005, EffortHours: 12},
	}}

	r := Compare(newer, older)
	assert.Equal(t, CostVariance, r.Tasks[0].Type, "cost outranks scope")
	assert.Equal(t, ScopeChange, r.Tasks[1].Type, "cost within tolerance")
	assert.Equal(t, Green, r.Health)
}

func TestCompare_MilestoneBuckets(t *testing.T) {
	cases := []struct {
		slip   int
		state  MilestoneState
		health Health
	}{
		{0, OnTrack, Green},
		{-2, OnTrack, Green},
		{1, AtRisk, Green},
		{5, AtRisk, Green},
		{6, Delayed, Red},
	}
	for _, tc := range cases {
		older := &Baseline{ID: "o", Milestones: []MilestoneSnapshot{{ID: "m", Earliest: day(10)}}}
		newer := &Baseline{ID: "n", Milestones: []MilestoneSnapshot{{ID: "m", Earliest: day(10 + tc.slip)}}}
		r := Compare(newer, older)
		require.Len(t, r.Milestones, 1)
		assert.Equal(t, tc.state, r.Milestones[0].Status, "slip %d", tc.slip)
		assert.Equal(t, tc.health, r.Health, "slip %d", tc.slip)
	}
}

func TestCompare_YellowOnManyChanges(t *testing.T) {
	older := &Baseline{ID: "o"}
	newer := &Baseline{ID: "n"}
	for _, id := range []string{"a", "b", "c", "d"} {
		older.Tasks = append(older.Tasks, TaskSnapshot{ID: id, Cost: 10})
		newer.Tasks = append(newer.Tasks, TaskSnapshot{ID: id, Cost: 20})
	}
	r := Compare(newer, older)
	assert.Equal(t, 4, r.TaskChanges)
	assert.Equal(t, Yellow, r.Health)
}

func TestEarnedValue(t *testing.T) {
	b := &Baseline{Tasks: []TaskSnapshot{{ID: "t", Start: monday, Finish: day(4), Cost: 100}}}
	m := EarnedValue(b, map[string]Progress{"t": {Percent: 40, ActualCost: 50}}, day(2))

	assert.InDelta(t, 60, m.PV, 1e-9)
	assert.InDelta(t, 40, m.EV, 1e-9)
	assert.InDelta(t, 50, m.AC, 1e-9)
	assert.InDelta(t, -20, m.SV, 1e-9)
	assert.InDelta(t, -10, m.CV, 1e-9)
	assert.InDelta(t, 0.667, m.SPI, 1e-3)
	assert.InDelta(t, 0.8, m.CPI, 1e-9)
	assert.InDelta(t, 125, m.EAC, 1e-9)
	assert.InDelta(t, 75, m.ETC, 1e-9)
	assert.InDelta(t, -25, m.VAC, 1e-9)
	assert.InDelta(t, 1.2, m.TCPI, 1e-9)
	assert.InDelta(t, 40, m.PercentComplete, 1e-9)
	assert.Equal(t, Red, m.Health)
}

func TestEarnedValue_Edges(t *testing.T) {
	b := &Baseline{Tasks: []TaskSnapshot{
		{ID: "future", Start: day(7), Finish: day(9), Cost: 100},
		{ID: "done", Start: monday, Finish: day(1), Cost: 100},
	}}

	m := EarnedValue(b, nil, day(3))
	assert.Equal(t, 100.0, m.PV, "future contributes 0, done contributes 1")
	assert.Equal(t, 1.0, m.CPI, "no actual cost")
	assert.Equal(t, 200.0, m.EAC)

	empty := EarnedValue(&Baseline{}, nil, monday)
	assert.Equal(t, 1.0, empty.SPI)
	assert.Equal(t, 1.0, empty.TCPI)
	assert.Equal(t, Green, empty.Health)

	onTrack := EarnedValue(b, map[string]Progress{"done": {Percent: 100, ActualCost: 100}}, day(3))
	assert.Equal(t, Green, onTrack.Health)

	slightlyBehind := EarnedValue(b, map[string]Progress{"done": {Percent: 90, ActualCost: 100}}, day(3))
	assert.Equal(t, Yellow, slightlyBehind.Health)
}

func TestProgressFromProject(t *testing.T) {
	p := sampleProject()
	p.Tasks[0].Progress = 50
	p.Tasks[0].ActualCost = 300
	got := ProgressFromProject(p)
	assert.Equal(t, Progress{Percent: 50, ActualCost: 300}, got["a"])
	assert.Equal(t, Progress{}, got["b"])
}
