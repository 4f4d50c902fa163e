package workflow

import (
	"fmt"
	"time"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/graph"
	"github.com/jackhale98/tessera/internal/project"
)

// Manager applies workflow rules to a project it owns for the duration of
// an edit session. It is not safe for concurrent use.
type Manager struct {
	project     *project.Project
	cal         *calendar.Calendar
	workflows   map[string]Workflow
	constraints map[string][]Constraint
	warnings    []string
	now         func() time.Time
}

// NewManager returns a manager over p. A nil calendar selects the project
// calendar.
func NewManager(p *project.Project, cal *calendar.Calendar) *Manager {
	if cal == nil {
		cal = p.ProjectCalendar()
	}
	return &Manager{
		project:     p,
		cal:         cal,
		workflows:   make(map[string]Workflow),
		constraints: make(map[string][]Constraint),
		now:         time.Now,
	}
}

// SetClock replaces the time source used to stamp dates.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetWorkflow overrides the transition table for one task.
func (m *Manager) SetWorkflow(taskID string, w Workflow) {
	m.workflows[taskID] = w
}

// WorkflowFor returns the table governing a task.
func (m *Manager) WorkflowFor(taskID string) Workflow {
	if w, ok := m.workflows[taskID]; ok {
		return w
	}
	return Default()
}

// Warnings lists the calendar fallbacks taken so far.
func (m *Manager) Warnings() []string {
	return m.warnings
}

// AddDependency makes predecessor a predecessor of successor. The edit is
// refused when it would close a cycle.
func (m *Manager) AddDependency(successor, predecessor string, typ project.DependencyType, lag float64) error {
	const op = "workflow.AddDependency"
	if successor == predecessor {
		return errs.New(errs.Validation, op, "%q cannot depend on itself", successor)
	}
	for _, id := range []string{successor, predecessor} {
		if !m.project.HasNode(id) {
			return errs.New(errs.NotFound, op, "node %q", id)
		}
	}
	for _, d := range m.project.DependenciesOf(successor) {
		if d.PredecessorID == predecessor {
			return errs.New(errs.Validation, op, "%q already depends on %q", successor, predecessor)
		}
	}

	if typ == "" {
		typ = project.FinishToStart
	}
	d := project.Dependency{PredecessorID: predecessor, Type: typ, LagDays: lag}
	if err := d.Validate(); err != nil {
		return err
	}

	g, err := graph.Build(m.project)
	if err != nil {
		return err
	}
	if path := g.Path(successor, predecessor); path != nil {
		return errs.NewCycle(op, append(path, successor))
	}

	if t := m.project.Task(successor); t != nil {
		t.Dependencies = append(t.Dependencies, d)
	} else {
		ms := m.project.Milestone(successor)
		ms.Dependencies = append(ms.Dependencies, d)
	}
	return nil
}

// RemoveDependency drops the successor's dependency on predecessor.
func (m *Manager) RemoveDependency(successor, predecessor string) error {
	const op = "workflow.RemoveDependency"
	remove := func(deps []project.Dependency) ([]project.Dependency, bool) {
		for i, d := range deps {
			if d.PredecessorID == predecessor {
				return append(deps[:i:i], deps[i+1:]...), true
			}
		}
		return deps, false
	}

	var ok bool
	if t := m.project.Task(successor); t != nil {
		t.Dependencies, ok = remove(t.Dependencies)
	} else if ms := m.project.Milestone(successor); ms != nil {
		ms.Dependencies, ok = remove(ms.Dependencies)
	}
	if !ok {
		return errs.New(errs.NotFound, op, "%q does not depend on %q", successor, predecessor)
	}
	return nil
}

// EarliestStart derives a task's earliest start from its predecessors'
// planned dates, shifting by lag in working days, then applies MustStartOn
// and StartNoEarlierThan constraints. A lag the calendar cannot place is
// dropped and recorded in Warnings.
func (m *Manager) EarliestStart(taskID string) (time.Time, error) {
	t := m.project.Task(taskID)
	if t == nil {
		return time.Time{}, errs.New(errs.NotFound, "workflow.EarliestStart", "task %q", taskID)
	}

	var earliest time.Time
	found := false
	for _, d := range t.Dependencies {
		base, ok := m.baseDate(d)
		if !ok {
			continue
		}
		date, err := m.cal.Advance(base, d.LagDays)
		if err != nil {
			m.warnings = append(m.warnings, fmt.Sprintf("%s: lag from %s not applied (%v); using %s",
				taskID, d.PredecessorID, err, base.Format(calendar.Layout)))
			date = base
		}
		if !found || date.After(earliest) {
			earliest, found = date, true
		}
	}
	if !found {
		earliest = calendar.Truncate(m.project.Start)
		if t.StartDate != nil {
			earliest = calendar.Truncate(*t.StartDate)
		}
	}

	for _, c := range m.constraints[taskID] {
		switch c.Type {
		case StartNoEarlierThan:
			if c.Date.After(earliest) {
				earliest = c.Date
			}
		case MustStartOn:
			earliest = c.Date
		}
	}
	return earliest, nil
}

// baseDate is the predecessor's planned finish for FS/FF links and its
// planned start for SS/SF links. Milestone predecessors use their target.
func (m *Manager) baseDate(d project.Dependency) (time.Time, bool) {
	if ms := m.project.Milestone(d.PredecessorID); ms != nil {
		return calendar.Truncate(ms.TargetDate), true
	}
	p := m.project.Task(d.PredecessorID)
	if p == nil {
		return time.Time{}, false
	}
	date := p.DueDate
	if d.Type == project.StartToStart || d.Type == project.StartToFinish {
		date = p.StartDate
	}
	if date == nil {
		return time.Time{}, false
	}
	return calendar.Truncate(*date), true
}

// Transition moves a task from one status to another and runs the
// automatic actions of the new status. The task is left untouched when the
// move is refused.
func (m *Manager) Transition(taskID string, from, to project.Status) ([]ActionResult, error) {
	const op = "workflow.Transition"
	t := m.project.Task(taskID)
	if t == nil {
		return nil, errs.New(errs.NotFound, op, "task %q", taskID)
	}
	if t.Status != from {
		return nil, errs.New(errs.Validation, op, "task %q is %s, not %s", taskID, t.Status, from)
	}
	if !m.WorkflowFor(taskID).Allows(from, to) {
		return nil, errs.New(errs.InvalidTransition, op, "%s -> %s not permitted for %q", from, to, taskID)
	}
	t.Status = to
	return m.ExecuteOnTransition(taskID, to)
}

// ExecuteOnTransition runs the actions bound to entering newState.
func (m *Manager) ExecuteOnTransition(taskID string, newState project.Status) ([]ActionResult, error) {
	t := m.project.Task(taskID)
	if t == nil {
		return nil, errs.New(errs.NotFound, "workflow.ExecuteOnTransition", "task %q", taskID)
	}
	dependents := m.project.Dependents(taskID)
	now := calendar.Truncate(m.now())

	var out []ActionResult
	switch newState {
	case project.InProgress:
		if t.ActualStart == nil {
			t.ActualStart = &now
			if t.StartDate == nil {
				t.StartDate = &now
			}
			out = append(out, ActionResult{Action: SetStartDate, TaskID: taskID, Detail: now.Format(calendar.Layout)})
		}
		out = append(out, m.updateDependents(taskID, dependents))

	case project.Completed:
		t.CompletedAt = &now
		out = append(out, ActionResult{Action: SetCompletionDate, TaskID: taskID, Detail: now.Format(calendar.Layout)})
		t.Progress = 100
		out = append(out, ActionResult{Action: UpdateProgress, TaskID: taskID, Detail: "100%"})
		out = append(out, m.updateDependents(taskID, dependents))
		out = append(out, m.triggerMilestones(taskID, dependents))

	case project.NotStarted:
		t.Progress = 0
		out = append(out, ActionResult{Action: ResetProgress, TaskID: taskID, Detail: "0%"})
	}
	return out, nil
}

// updateDependents pushes planned windows of dependent tasks later when the
// task's dates now require it. Durations are preserved.
func (m *Manager) updateDependents(taskID string, dependents []string) ActionResult {
	res := ActionResult{Action: UpdateDependentTasks, TaskID: taskID}
	for _, id := range dependents {
		dt := m.project.Task(id)
		if dt == nil || dt.StartDate == nil {
			continue
		}
		es, err := m.EarliestStart(id)
		if err != nil || !es.After(*dt.StartDate) {
			continue
		}
		shift := calendar.DaysBetween(*dt.StartDate, es)
		start := es
		dt.StartDate = &start
		if dt.DueDate != nil {
			due := dt.DueDate.AddDate(0, 0, shift)
			dt.DueDate = &due
		}
		res.Affected = append(res.Affected, id)
	}
	res.Detail = fmt.Sprintf("%d of %d dependents rescheduled", len(res.Affected), len(dependents))
	return res
}

// triggerMilestones marks dependent milestones achieved once every task
// predecessor is completed.
func (m *Manager) triggerMilestones(taskID string, dependents []string) ActionResult {
	res := ActionResult{Action: TriggerMilestone, TaskID: taskID}
	for _, id := range dependents {
		ms := m.project.Milestone(id)
		if ms == nil || ms.Status == project.Achieved {
			continue
		}
		done := true
		for _, d := range ms.Dependencies {
			if pt := m.project.Task(d.PredecessorID); pt != nil && pt.Status != project.Completed {
				done = false
				break
			}
		}
		if done {
			ms.Status = project.Achieved
			res.Affected = append(res.Affected, id)
		}
	}
	res.Detail = fmt.Sprintf("%d milestones achieved", len(res.Affected))
	return res
}
