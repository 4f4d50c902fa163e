package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
)

var (
	monday    = calendar.Date(2024, time.January, 1)
	wednesday = calendar.Date(2024, time.January, 3)
	friday    = calendar.Date(2024, time.January, 5)
	clock     = func() time.Time { return time.Date(2024, time.January, 10, 14, 0, 0, 0, time.UTC) }
)

func ptr(t time.Time) *time.Time { return &t }

func newManager() (*Manager, *project.Project) {
	p := &project.Project{
		ID: "p", Name: "p", Start: monday,
		Tasks: []*project.Task{
			{ID: "a", Name: "A", Type: project.FixedDuration, Status: project.NotStarted,
				StartDate: ptr(monday), DueDate: ptr(wednesday)},
			{ID: "b", Name: "B", Type: project.FixedDuration, Status: project.NotStarted,
				StartDate: ptr(monday), DueDate: ptr(monday.AddDate(0, 0, 1)),
				Dependencies: []project.Dependency{{PredecessorID: "a", Type: project.FinishToStart}}},
			{ID: "c", Name: "C", Type: project.FixedDuration, Status: project.NotStarted},
		},
		Milestones: []*project.Milestone{
			{ID: "m", Name: "Gate", TargetDate: friday, Status: project.Pending,
				Dependencies: []project.Dependency{{PredecessorID: "a", Type: project.FinishToStart}}},
		},
	}
	m := NewManager(p, nil)
	m.SetClock(clock)
	return m, p
}

func TestTransition_Lifecycle(t *testing.T) {
	m, p := newManager()

	res, err := m.Transition("a", project.NotStarted, project.InProgress)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, SetStartDate, res[0].Action)
	a := p.Task("a")
	require.NotNil(t, a.ActualStart)
	assert.Equal(t, calendar.Date(2024, time.January, 10), *a.ActualStart)

	res, err = m.Transition("a", project.InProgress, project.Completed)
	require.NoError(t, err)
	actions := make([]Action, 0, len(res))
	for _, r := range res {
		actions = append(actions, r.Action)
	}
	assert.Equal(t, []Action{SetCompletionDate, UpdateProgress, UpdateDependentTasks, TriggerMilestone}, actions)
	assert.Equal(t, 100.0, a.Progress)
	assert.Equal(t, project.Achieved, p.Milestone("m").Status)
	assert.Equal(t, []string{"m"}, res[3].Affected)
}

func TestTransition_Refused(t *testing.T) {
	m, p := newManager()

	_, err := m.Transition("a", project.NotStarted, project.Completed)
	assert.True(t, errs.Is(err, errs.InvalidTransition), "got %v", err)
	assert.Equal(t, project.NotStarted, p.Task("a").Status, "state unchanged")

	_, err = m.Transition("a", project.InProgress, project.Completed)
	assert.True(t, errs.Is(err, errs.Validation), "from-state mismatch, got %v", err)

	_, err = m.Transition("zz", project.NotStarted, project.InProgress)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestTransition_CustomWorkflow(t *testing.T) {
	m, _ := newManager()
	m.SetWorkflow("c", Workflow{Name: "fast", Transitions: map[project.Status][]project.Status{
		project.NotStarted: {project.Completed},
	}})

	_, err := m.Transition("c", project.NotStarted, project.Completed)
	require.NoError(t, err)
	_, err = m.Transition("a", project.NotStarted, project.Completed)
	assert.True(t, errs.Is(err, errs.InvalidTransition))
}

func TestTransition_ReinstateResetsProgress(t *testing.T) {
	m, p := newManager()
	c := p.Task("c")
	c.Progress = 40

	_, err := m.Transition("c", project.NotStarted, project.Cancelled)
	require.NoError(t, err)
	res, err := m.Transition("c", project.Cancelled, project.NotStarted)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Progress)
	assert.Equal(t, ResetProgress, res[0].Action)
}

func TestDefaultWorkflow(t *testing.T) {
	w := Default()
	assert.True(t, w.Allows(project.Completed, project.InProgress), "reopen")
	assert.True(t, w.Allows(project.Cancelled, project.NotStarted), "reinstate")
	assert.False(t, w.Allows(project.OnHold, project.Completed))
	assert.False(t, w.Allows(project.Completed, project.Cancelled))
}

func TestAddDependency(t *testing.T) {
	m, p := newManager()

	require.NoError(t, m.AddDependency("c", "b", project.StartToStart, 1))
	deps := p.Task("c").Dependencies
	require.Len(t, deps, 1)
	assert.Equal(t, project.StartToStart, deps[0].Type)

	err := m.AddDependency("a", "c", project.FinishToStart, 0)
	assert.True(t, errs.Is(err, errs.CircularDependency), "got %v", err)
	assert.Equal(t, []string{"a", "b", "c", "a"}, errs.Cycle(err))
	assert.Empty(t, p.Task("a").Dependencies, "no edge added")

	assert.True(t, errs.Is(m.AddDependency("a", "a", project.FinishToStart, 0), errs.Validation))
	assert.True(t, errs.Is(m.AddDependency("c", "b", project.FinishToStart, 0), errs.Validation))
	assert.True(t, errs.Is(m.AddDependency("c", "zz", project.FinishToStart, 0), errs.NotFound))
}

func TestAddDependency_RejectsUnknownType(t *testing.T) {
	m, p := newManager()

	err := m.AddDependency("c", "a", "XX", 1)
	assert.True(t, errs.Is(err, errs.Validation), "got %v", err)
	assert.Empty(t, p.Task("c").Dependencies)
	require.NoError(t, p.Validate())

	require.NoError(t, m.AddDependency("c", "a", "", 0))
	assert.Equal(t, project.FinishToStart, p.Task("c").Dependencies[0].Type)
}

func TestRemoveDependency(t *testing.T) {
	m, p := newManager()
	require.NoError(t, m.RemoveDependency("b", "a"))
	assert.Empty(t, p.Task("b").Dependencies)
	assert.True(t, errs.Is(m.RemoveDependency("b", "a"), errs.NotFound))
}

func TestEarliestStart(t *testing.T) {
	m, p := newManager()

	got, err := m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, wednesday, got, "FS uses the predecessor due date")

	p.Task("b").Dependencies[0].LagDays = 3
	got, err = m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.January, 8), got, "lag counts working days")

	p.Task("b").Dependencies[0].LagDays = -1
	got, err = m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, calendar.Date(2024, time.January, 2), got, "lead retreats")

	p.Task("b").Dependencies[0] = project.Dependency{PredecessorID: "a", Type: project.StartToStart}
	got, err = m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, monday, got, "SS uses the predecessor start")

	got, err = m.EarliestStart("c")
	require.NoError(t, err)
	assert.Equal(t, monday, got, "no dependencies defaults to the project start")

	_, err = m.EarliestStart("zz")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestEarliestStart_CalendarOverflowWarns(t *testing.T) {
	_, p := newManager()
	cal := calendar.Default()
	cal.WorkingDays = nil
	m := NewManager(p, cal)

	p.Task("b").Dependencies[0].LagDays = 2
	got, err := m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, wednesday, got, "falls back to the predecessor date")
	require.Len(t, m.Warnings(), 1)
	assert.Contains(t, m.Warnings()[0], "b: lag from a not applied")
}

func TestEarliestStart_Constraints(t *testing.T) {
	m, _ := newManager()

	require.NoError(t, m.AddConstraint(Constraint{TaskID: "b", Type: StartNoEarlierThan, Date: friday}))
	got, err := m.EarliestStart("b")
	require.NoError(t, err)
	assert.Equal(t, friday, got)

	require.NoError(t, m.AddConstraint(Constraint{TaskID: "c", Type: MustStartOn, Date: wednesday}))
	got, err = m.EarliestStart("c")
	require.NoError(t, err)
	assert.Equal(t, wednesday, got)
}

func TestCompletionReschedulesDependents(t *testing.T) {
	m, p := newManager()
	a := p.Task("a")
	a.Status = project.InProgress
	late := calendar.Date(2024, time.January, 4)
	a.DueDate = &late

	res, err := m.Transition("a", project.InProgress, project.Completed)
	require.NoError(t, err)

	b := p.Task("b")
	assert.Equal(t, late, *b.StartDate)
	assert.Equal(t, calendar.Date(2024, time.January, 5), *b.DueDate, "duration preserved")
	assert.Equal(t, []string{"b"}, res[2].Affected)
}

func TestCheckConstraints(t *testing.T) {
	m, _ := newManager()
	require.NoError(t, m.AddConstraint(Constraint{TaskID: "a", Type: FinishNoLaterThan, Date: wednesday}))
	require.NoError(t, m.AddConstraint(Constraint{TaskID: "a", Type: StartNoEarlierThan, Date: monday}))

	assert.Empty(t, m.CheckConstraints("a", monday, wednesday))

	v := m.CheckConstraints("a", monday, friday)
	require.Len(t, v, 1)
	assert.Equal(t, FinishNoLaterThan, v[0].Constraint.Type)

	err := m.AddConstraint(Constraint{TaskID: "a", Type: "XX", Date: monday})
	assert.True(t, errs.Is(err, errs.Validation))
	err = m.AddConstraint(Constraint{TaskID: "zz", Type: MustFinishOn, Date: monday})
	assert.True(t, errs.Is(err, errs.NotFound))
}
