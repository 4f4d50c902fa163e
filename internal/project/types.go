package project

import (
	"time"

	"github.com/jackhale98/tessera/internal/calendar"
)

// TaskType selects how a task's duration is derived.
type TaskType string

const (
	EffortDriven  TaskType = "effort_driven"
	FixedDuration TaskType = "fixed_duration"
	FixedWork     TaskType = "fixed_work"
	MilestoneTask TaskType = "milestone"
)

// Status is a task's workflow state.
type Status string

const (
	NotStarted Status = "not_started"
	InProgress Status = "in_progress"
	OnHold     Status = "on_hold"
	Completed  Status = "completed"
	Cancelled  Status = "cancelled"
)

// DependencyType is one of the four precedence relations.
type DependencyType string

const (
	FinishToStart  DependencyType = "FS"
	StartToStart   DependencyType = "SS"
	FinishToFinish DependencyType = "FF"
	StartToFinish  DependencyType = "SF"
)

// MilestoneStatus tracks a milestone against its target.
type MilestoneStatus string

const (
	Pending  MilestoneStatus = "pending"
	AtRisk   MilestoneStatus = "at_risk"
	Achieved MilestoneStatus = "achieved"
	Missed   MilestoneStatus = "missed"
)

// Dependency links a node to one of its predecessors. Lag is in days and may
// be negative (a lead).
type Dependency struct {
	PredecessorID string         `json:"predecessor_id" validate:"required"`
	Type          DependencyType `json:"type" validate:"oneof=FS SS FF SF"`
	LagDays       float64        `json:"lag_days"`
}

// Assignment allocates a resource to a task.
type Assignment struct {
	ResourceID   string   `json:"resource_id" validate:"required"`
	Allocation   float64  `json:"allocation" validate:"gte=0,lte=100"` // percent
	Hours        *float64 `json:"hours,omitempty" validate:"omitempty,gte=0"`
	FullTime     bool     `json:"full_time,omitempty"`
	RateOverride *float64 `json:"rate_override,omitempty" validate:"omitempty,gte=0"`
}

// Percent returns the effective allocation percentage.
func (a Assignment) Percent() float64 {
	if a.FullTime {
		return 100
	}
	return a.Allocation
}

// Resource is a person or machine that can be assigned work.
type Resource struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	HourlyRate   float64 `json:"hourly_rate" validate:"gte=0"`
	DailyHours   float64 `json:"daily_hours" validate:"gte=0,lte=24"`
	Availability float64 `json:"availability" validate:"gte=0,lte=100"`
	CalendarID   string  `json:"calendar_id,omitempty"`
}

// DefaultHourlyRate applies when a resource has no rate.
const DefaultHourlyRate = 100.0

// Rate returns the hourly rate, falling back to DefaultHourlyRate.
func (r *Resource) Rate() float64 {
	if r.HourlyRate > 0 {
		return r.HourlyRate
	}
	return DefaultHourlyRate
}

// Hours returns the standard daily hours, defaulting to 8.
func (r *Resource) Hours() float64 {
	if r.DailyHours > 0 {
		return r.DailyHours
	}
	return 8
}

// Task is a unit of scheduled work.
type Task struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Type         TaskType     `json:"type" validate:"oneof=effort_driven fixed_duration fixed_work milestone"`
	EffortHours  float64      `json:"effort_hours" validate:"gte=0"`
	DurationDays *int         `json:"duration_days,omitempty" validate:"omitempty,gte=0"`
	WorkUnits    *float64     `json:"work_units,omitempty" validate:"omitempty,gte=0"`
	Dependencies []Dependency `json:"dependencies,omitempty" validate:"dive"`
	Assignments  []Assignment `json:"assignments,omitempty" validate:"dive"`
	Progress     float64      `json:"progress" validate:"gte=0,lte=100"`
	Status       Status       `json:"status" validate:"oneof=not_started in_progress on_hold completed cancelled"`

	// Planned dates used by the workflow layer.
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`

	ActualStart *time.Time `json:"actual_start,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ActualCost  float64    `json:"actual_cost" validate:"gte=0"`
}

// Milestone is a zero-duration checkpoint with a mandatory target date.
type Milestone struct {
	ID           string          `json:"id" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	TargetDate   time.Time       `json:"target_date" validate:"required"`
	Dependencies []Dependency    `json:"dependencies,omitempty" validate:"dive"`
	Status       MilestoneStatus `json:"status" validate:"omitempty,oneof=pending at_risk achieved missed"`
}

// Project owns its tasks, milestones, resources and calendars.
type Project struct {
	ID              string               `json:"id" validate:"required"`
	Name            string               `json:"name" validate:"required"`
	Start           time.Time            `json:"start" validate:"required"`
	Tasks           []*Task              `json:"tasks" validate:"dive"`
	Milestones      []*Milestone         `json:"milestones,omitempty" validate:"dive"`
	Resources       []*Resource          `json:"resources,omitempty" validate:"dive"`
	Calendars       []*calendar.Calendar `json:"calendars,omitempty"`
	DefaultCalendar string               `json:"default_calendar,omitempty"`
}
