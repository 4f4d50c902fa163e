// Package workflow manages task status transitions, dependency edits and
// date constraints on a live project.
package workflow

import (
	"github.com/jackhale98/tessera/internal/project"
)

// Workflow is a table of permitted status transitions.
type Workflow struct {
	Name        string
	Transitions map[project.Status][]project.Status
}

// Default returns the standard task lifecycle.
func Default() Workflow {
	return Workflow{
		Name: "default",
		Transitions: map[project.Status][]project.Status{
			project.NotStarted: {project.InProgress, project.OnHold, project.Cancelled},
			project.InProgress: {project.OnHold, project.Completed, project.Cancelled},
			project.OnHold:     {project.InProgress, project.Cancelled},
			project.Completed:  {project.InProgress},
			project.Cancelled:  {project.NotStarted},
		},
	}
}

// Allows reports whether from -> to is permitted.
func (w Workflow) Allows(from, to project.Status) bool {
	for _, s := range w.Transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Action names an automatic side effect of a transition.
type Action string

const (
	SetStartDate         Action = "set_start_date"
	SetCompletionDate    Action = "set_completion_date"
	UpdateProgress       Action = "update_progress"
	UpdateDependentTasks Action = "update_dependent_tasks"
	TriggerMilestone     Action = "trigger_milestone"
	ResetProgress        Action = "reset_progress"
)

// ActionResult reports what an action did.
type ActionResult struct {
	Action   Action
	TaskID   string
	Detail   string
	Affected []string
}
