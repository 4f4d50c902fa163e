package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
)

func sample() *Project {
	return &Project{
		ID:    "p1",
		Name:  "Widget",
		Start: calendar.Date(2024, time.January, 1),
		Resources: []*Resource{
			{ID: "eng", Name: "Engineer", HourlyRate: 120, DailyHours: 8, Availability: 100},
		},
		Tasks: []*Task{
			{ID: "a", Name: "Design", Type: EffortDriven, EffortHours: 16, Status: NotStarted,
				Assignments: []Assignment{{ResourceID: "eng", Allocation: 50}}},
			{ID: "b", Name: "Build", Type: FixedDuration, Status: NotStarted,
				Dependencies: []Dependency{{PredecessorID: "a", Type: FinishToStart}}},
		},
		Milestones: []*Milestone{
			{ID: "m", Name: "Done", TargetDate: calendar.Date(2024, time.January, 10),
				Dependencies: []Dependency{{PredecessorID: "b", Type: FinishToStart}}},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, sample().Validate())
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *Project)
		kind   errs.Kind
	}{
		{"progress out of range", func(p *Project) { p.Tasks[0].Progress = 120 }, errs.Validation},
		{"allocation out of range", func(p *Project) { p.Tasks[0].Assignments[0].Allocation = 150 }, errs.Validation},
		{"availability out of range", func(p *Project) { p.Resources[0].Availability = -1 }, errs.Validation},
		{"negative effort", func(p *Project) { p.Tasks[0].EffortHours = -4 }, errs.Validation},
		{"self dependency", func(p *Project) {
			p.Tasks[0].Dependencies = []Dependency{{PredecessorID: "a", Type: FinishToStart}}
		}, errs.Validation},
		{"duplicate pair", func(p *Project) {
			p.Tasks[1].Dependencies = append(p.Tasks[1].Dependencies, Dependency{PredecessorID: "a", Type: StartToStart})
		}, errs.Validation},
		{"bad dependency type", func(p *Project) { p.Tasks[1].Dependencies[0].Type = "XX" }, errs.Validation},
		{"missing milestone target", func(p *Project) { p.Milestones[0].TargetDate = time.Time{} }, errs.Validation},
		{"duplicate id", func(p *Project) { p.Milestones[0].ID = "a" }, errs.Validation},
		{"unknown resource", func(p *Project) { p.Tasks[0].Assignments[0].ResourceID = "ghost" }, errs.NotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sample()
			tc.mutate(p)
			err := p.Validate()
			assert.True(t, errs.Is(err, tc.kind), "expected %s, got %v", tc.kind, err)
		})
	}
}

func TestAllocationSum(t *testing.T) {
	p := sample()
	assert.Equal(t, 0.5, AllocationSum(p.Tasks[0]))
	assert.Equal(t, 1.0, AllocationSum(p.Tasks[1]), "no assignments means A = 1")

	zero := &Task{Assignments: []Assignment{{ResourceID: "eng", Allocation: 0}}}
	assert.Equal(t, 1.0, AllocationSum(zero), "zero sum means A = 1")

	full := &Task{Assignments: []Assignment{{ResourceID: "eng", FullTime: true}, {ResourceID: "x", Allocation: 50}}}
	assert.Equal(t, 1.5, AllocationSum(full))
}

func TestDependentsAndLookups(t *testing.T) {
	p := sample()
	assert.Equal(t, []string{"b"}, p.Dependents("a"))
	assert.Equal(t, []string{"m"}, p.Dependents("b"))
	assert.Empty(t, p.Dependents("m"))

	assert.True(t, p.HasNode("m"))
	assert.False(t, p.HasNode("zz"))
	assert.Len(t, p.DependenciesOf("m"), 1)
	assert.Equal(t, "Standard", p.ProjectCalendar().Name)
	assert.Equal(t, 120.0, p.Resource("eng").Rate())
	assert.Equal(t, DefaultHourlyRate, (&Resource{}).Rate())
}
