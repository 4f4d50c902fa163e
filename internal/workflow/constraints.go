package workflow

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
)

// ConstraintType restricts when a task may start or finish.
type ConstraintType string

const (
	MustStartOn         ConstraintType = "MSO"
	MustFinishOn        ConstraintType = "MFO"
	StartNoEarlierThan  ConstraintType = "SNET"
	StartNoLaterThan    ConstraintType = "SNLT"
	FinishNoEarlierThan ConstraintType = "FNET"
	FinishNoLaterThan   ConstraintType = "FNLT"
)

// Constraint pins a task date.
type Constraint struct {
	TaskID string         `validate:"required"`
	Type   ConstraintType `validate:"oneof=MSO MFO SNET SNLT FNET FNLT"`
	Date   time.Time      `validate:"required"`
}

// Violation is a constraint broken by a proposed window.
type Violation struct {
	Constraint Constraint
	Message    string
}

var validate = validator.New()

// AddConstraint attaches a constraint to a task.
func (m *Manager) AddConstraint(c Constraint) error {
	const op = "workflow.AddConstraint"
	if err := validate.Struct(c); err != nil {
		return errs.Wrap(errs.Validation, op, err)
	}
	if m.project.Task(c.TaskID) == nil {
		return errs.New(errs.NotFound, op, "task %q", c.TaskID)
	}
	c.Date = calendar.Truncate(c.Date)
	m.constraints[c.TaskID] = append(m.constraints[c.TaskID], c)
	return nil
}

// Constraints returns the constraints on a task.
func (m *Manager) Constraints(taskID string) []Constraint {
	return m.constraints[taskID]
}

// CheckConstraints lists the constraints a start/finish window would break.
func (m *Manager) CheckConstraints(taskID string, start, finish time.Time) []Violation {
	start, finish = calendar.Truncate(start), calendar.Truncate(finish)
	var out []Violation
	for _, c := range m.constraints[taskID] {
		var broken bool
		switch c.Type {
		case MustStartOn:
			broken = !start.Equal(c.Date)
		case MustFinishOn:
			broken = !finish.Equal(c.Date)
		case StartNoEarlierThan:
			broken = start.Before(c.Date)
		case StartNoLaterThan:
			broken = start.After(c.Date)
		case FinishNoEarlierThan:
			broken = finish.Before(c.Date)
		case FinishNoLaterThan:
			broken = finish.After(c.Date)
		}
		if broken {
			out = append(out, Violation{
				Constraint: c,
				Message: fmt.Sprintf("%s %s %s violated by %s..%s", taskID, c.Type,
					c.Date.Format(calendar.Layout), start.Format(calendar.Layout), finish.Format(calendar.Layout)),
			})
		}
	}
	return out
}
