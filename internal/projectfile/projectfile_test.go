package projectfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/tolerance"
)

const plan = `
project:
  id: widget
  name: Widget v2
  start: 2024-01-01
  default_calendar: shop
calendars:
  - id: shop
    name: Shop floor
    working_days: [mon, tue, wed, thu, fri]
    holidays:
      - {name: New Year, date: 2024-01-01, recurring: true}
    exceptions:
      - {date: 2024-01-06, kind: half_day, reason: stocktake}
resources:
  - {id: eng, name: Engineer, hourly_rate: 120}
  - {id: tech, name: Technician, availability: 50}
tasks:
  - id: design
    name: Design
    effort_hours: 16
    assignments:
      - {resource: eng, allocation: 100}
  - id: build
    name: Build
    type: fixed_duration
    duration_days: 3
    status: in_progress
    start_date: 2024-01-04
    dependencies:
      - {predecessor: design, lag: 1}
milestones:
  - id: ship
    name: Ship
    target_date: 2024-01-20
    dependencies:
      - {predecessor: build, type: ff}
`

func TestParseProject(t *testing.T) {
	p, err := ParseProject([]byte(plan))
	require.NoError(t, err)

	assert.Equal(t, "widget", p.ID)
	assert.Equal(t, calendar.Date(2024, time.January, 1), p.Start)

	cal := p.ProjectCalendar()
	assert.Equal(t, "Shop floor", cal.Name)
	assert.Equal(t, 8.0, cal.HoursPerDay, "unset hours default")
	assert.False(t, cal.IsWorkingDay(calendar.Date(2027, time.January, 1)))
	assert.Equal(t, 4.0, cal.WorkingHours(calendar.Date(2024, time.January, 6)))

	assert.Equal(t, 100.0, p.Resource("eng").Availability, "availability defaults to 100")
	assert.Equal(t, 50.0, p.Resource("tech").Availability)

	design := p.Task("design")
	assert.Equal(t, project.EffortDriven, design.Type)
	assert.Equal(t, project.NotStarted, design.Status)

	build := p.Task("build")
	assert.Equal(t, project.InProgress, build.Status)
	require.NotNil(t, build.StartDate)
	assert.Equal(t, calendar.Date(2024, time.January, 4), *build.StartDate)
	assert.Equal(t, project.FinishToStart, build.Dependencies[0].Type)
	assert.Equal(t, 1.0, build.Dependencies[0].LagDays)

	ship := p.Milestone("ship")
	assert.Equal(t, project.FinishToFinish, ship.Dependencies[0].Type)
	assert.Equal(t, project.Pending, ship.Status)
}

func TestProjectRoundTrip(t *testing.T) {
	p, err := ParseProject([]byte(plan))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, SaveProject(path, p))

	again, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestParseProject_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		kind errs.Kind
	}{
		{"bad yaml", "project: [", errs.Validation},
		{"bad start", "project: {id: p, name: P, start: 01/02/2024}\ntasks: []", errs.Validation},
		{"bad weekday", "project: {id: p, name: P, start: 2024-01-01}\ncalendars: [{id: c, name: C, working_days: [funday]}]", errs.Validation},
		{"unknown resource", `
project: {id: p, name: P, start: 2024-01-01}
tasks:
  - {id: a, name: A, assignments: [{resource: ghost, allocation: 10}]}
`, errs.NotFound},
		{"bad task date", `
project: {id: p, name: P, start: 2024-01-01}
tasks:
  - {id: a, name: A, due_date: tomorrow}
`, errs.Validation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProject([]byte(tc.doc))
			assert.True(t, errs.Is(err, tc.kind), "expected %s, got %v", tc.kind, err)
		})
	}
}

func TestLoadProject_Missing(t *testing.T) {
	_, err := LoadProject(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

const library = `
features:
  - {id: housing, name: Housing length, nominal: 50, plus_tol: 0.2, minus_tol: 0.1}
  - {id: shim, name: Shim, nominal: 2, plus_tol: 0.05, minus_tol: 0.05, distribution: Uniform}
stackups:
  - id: gap
    name: Cover gap
    contributions:
      - {component_id: body, feature_id: housing}
      - {component_id: shim, feature_id: shim, direction: -1}
    limits: {lsl: 47.5, usl: 48.5}
    monte_carlo: {seed: 42}
`

func TestParseStackups(t *testing.T) {
	lib, err := ParseStackups([]byte(library))
	require.NoError(t, err)
	require.Len(t, lib.Features, 2)
	assert.Equal(t, tolerance.Normal, lib.Features[0].Distribution)
	assert.Equal(t, tolerance.Uniform, lib.Features[1].Distribution)

	st := lib.Stackup("gap")
	require.NotNil(t, st)
	assert.Equal(t, 1.0, st.Contributions[0].Direction)
	assert.Equal(t, -1.0, st.Contributions[1].Direction)
	assert.Equal(t, tolerance.DefaultSamples, st.MonteCarlo.Samples)
	assert.Equal(t, tolerance.DefaultConfidence, st.MonteCarlo.Confidence)
	require.NotNil(t, st.MonteCarlo.Seed)
	assert.Equal(t, uint64(42), *st.MonteCarlo.Seed)
	assert.Equal(t, 48.5, *st.Limits.USL)
	assert.Nil(t, lib.Stackup("nope"))

	res, err := tolerance.Analyze(st, lib.Features)
	require.NoError(t, err)
	assert.InDelta(t, 48.0, res.Nominal, 1e-12)
}

func TestStackupsRoundTrip(t *testing.T) {
	lib, err := ParseStackups([]byte(library))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, SaveStackups(path, lib))
	again, err := LoadStackups(path)
	require.NoError(t, err)
	assert.Equal(t, lib, again)
}

func TestParseStackups_Duplicates(t *testing.T) {
	_, err := ParseStackups([]byte("features: [{id: a}, {id: a}]"))
	assert.True(t, errs.Is(err, errs.Validation))

	_, err = ParseStackups([]byte("stackups: [{id: s}, {id: s}]"))
	assert.True(t, errs.Is(err, errs.Validation))
}

func TestLoadStackupsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(library), 0644))

	lib, err := LoadStackupsWithDefaults(path, MonteCarloDefaults{Samples: 2000, Confidence: 0.9})
	require.NoError(t, err)
	st := lib.Stackup("gap")
	assert.Equal(t, 2000, st.MonteCarlo.Samples)
	assert.Equal(t, 0.9, st.MonteCarlo.Confidence)
}

func TestParseProject_MintsMissingID(t *testing.T) {
	p, err := ParseProject([]byte("project: {name: Untitled, start: 2024-01-01}\ntasks: [{id: a, name: A, type: fixed_duration, duration_days: 1}]"))
	require.NoError(t, err)
	assert.Len(t, p.ID, 36)

	_, err = ParseStackups([]byte("features: [{name: nameless}]"))
	assert.True(t, errs.Is(err, errs.Validation))
	_, err = ParseStackups([]byte("stackups: [{name: nameless}]"))
	assert.True(t, errs.Is(err, errs.Validation))
}
