// Package project holds the scheduling data model: tasks, dependencies,
// resources, assignments, milestones and calendars.
package project

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
)

var validate = validator.New()

// Task returns the task with the given id, or nil.
func (p *Project) Task(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Milestone returns the milestone with the given id, or nil.
func (p *Project) Milestone(id string) *Milestone {
	for _, m := range p.Milestones {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Resource returns the resource with the given id, or nil.
func (p *Project) Resource(id string) *Resource {
	for _, r := range p.Resources {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Calendar returns the calendar with the given id, or nil.
func (p *Project) Calendar(id string) *calendar.Calendar {
	for _, c := range p.Calendars {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ProjectCalendar returns the default calendar, the first declared one, or
// the standard Monday to Friday calendar.
func (p *Project) ProjectCalendar() *calendar.Calendar {
	if c := p.Calendar(p.DefaultCalendar); c != nil {
		return c
	}
	if len(p.Calendars) > 0 {
		return p.Calendars[0]
	}
	return calendar.Default()
}

// CalendarFor returns the calendar bound to a resource, falling back to the
// project calendar.
func (p *Project) CalendarFor(resourceID string) *calendar.Calendar {
	if r := p.Resource(resourceID); r != nil && r.CalendarID != "" {
		if c := p.Calendar(r.CalendarID); c != nil {
			return c
		}
	}
	return p.ProjectCalendar()
}

// HasNode reports whether id names a task or a milestone.
func (p *Project) HasNode(id string) bool {
	return p.Task(id) != nil || p.Milestone(id) != nil
}

// DependenciesOf returns the dependency list of a task or milestone.
func (p *Project) DependenciesOf(id string) []Dependency {
	if t := p.Task(id); t != nil {
		return t.Dependencies
	}
	if m := p.Milestone(id); m != nil {
		return m.Dependencies
	}
	return nil
}

// Dependents returns the sorted ids of tasks and milestones that list id as a
// predecessor.
func (p *Project) Dependents(id string) []string {
	var out []string
	for _, t := range p.Tasks {
		for _, d := range t.Dependencies {
			if d.PredecessorID == id {
				out = append(out, t.ID)
				break
			}
		}
	}
	for _, m := range p.Milestones {
		for _, d := range m.Dependencies {
			if d.PredecessorID == id {
				out = append(out, m.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// AllocationSum returns A = sum(allocation/100) over a task's assignments,
// or 1 when the task has no assignments or the sum is zero.
func AllocationSum(t *Task) float64 {
	sum := 0.0
	for _, a := range t.Assignments {
		sum += a.Percent() / 100
	}
	if sum <= 0 {
		return 1
	}
	return sum
}

// Validate checks a single dependency's fields.
func (d Dependency) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errs.Wrap(errs.Validation, "project.Dependency", err)
	}
	return nil
}

// Validate checks field-level and cross-entity invariants.
func (p *Project) Validate() error {
	const op = "project.Validate"
	if err := validate.Struct(p); err != nil {
		return errs.Wrap(errs.Validation, op, err)
	}
	for _, c := range p.Calendars {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, t := range p.Tasks {
		if seen[t.ID] {
			return errs.New(errs.Validation, op, "duplicate id %q", t.ID)
		}
		seen[t.ID] = true
	}
	for _, m := range p.Milestones {
		if seen[m.ID] {
			return errs.New(errs.Validation, op, "duplicate id %q", m.ID)
		}
		seen[m.ID] = true
	}

	for _, t := range p.Tasks {
		if err := checkDeps(t.ID, t.Dependencies); err != nil {
			return err
		}
		for _, a := range t.Assignments {
			if p.Resource(a.ResourceID) == nil {
				return errs.New(errs.NotFound, op, "task %q assigns unknown resource %q", t.ID, a.ResourceID)
			}
		}
	}
	for _, m := range p.Milestones {
		if err := checkDeps(m.ID, m.Dependencies); err != nil {
			return err
		}
	}
	for _, r := range p.Resources {
		if r.CalendarID != "" && p.Calendar(r.CalendarID) == nil {
			return errs.New(errs.NotFound, op, "resource %q uses unknown calendar %q", r.ID, r.CalendarID)
		}
	}
	return nil
}

func checkDeps(owner string, deps []Dependency) error {
	pairs := make(map[string]bool)
	for _, d := range deps {
		if d.PredecessorID == owner {
			return errs.New(errs.Validation, "project.Validate", "%q depends on itself", owner)
		}
		if pairs[d.PredecessorID] {
			return errs.New(errs.Validation, "project.Validate",
				"%q lists predecessor %q more than once", owner, d.PredecessorID)
		}
		pairs[d.PredecessorID] = true
	}
	return nil
}

// String implements fmt.Stringer.
func (p *Project) String() string {
	return fmt.Sprintf("%s (%d tasks, %d milestones)", p.Name, len(p.Tasks), len(p.Milestones))
}
