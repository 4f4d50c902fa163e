// Package baseline captures immutable snapshots of a scheduled project,
// compares them, and measures earned value against them.
package baseline

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/cpm"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/id"
	"github.com/jackhale98/tessera/internal/project"
)

// Type is a baseline's lifecycle stage.
type Type string

const (
	Initial  Type = "initial"
	Approved Type = "approved"
	Working  Type = "working"
	Archived Type = "archived"
)

// TaskSnapshot is a task as planned at capture time.
type TaskSnapshot struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         project.TaskType `json:"type"`
	Start        time.Time        `json:"start"`
	Finish       time.Time        `json:"finish"`
	DurationDays int              `json:"duration_days"`
	EffortHours  float64          `json:"effort_hours"`
	Cost         float64          `json:"cost"`
	Resources    []string         `json:"resources,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
}

// MilestoneSnapshot records a milestone's target and forecast.
type MilestoneSnapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Target   time.Time `json:"target"`
	Earliest time.Time `json:"earliest"`
}

// ResourceSnapshot records a resource's planned load.
type ResourceSnapshot struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Hours      float64 `json:"hours"`
	Cost       float64 `json:"cost"`
	HourlyRate float64 `json:"hourly_rate"`
}

// Baseline is an immutable snapshot of a project plan.
type Baseline struct {
	ID                string              `json:"id"`
	ProjectID         string              `json:"project_id"`
	Name              string              `json:"name"`
	Description       string              `json:"description,omitempty"`
	Author            string              `json:"author,omitempty"`
	Type              Type                `json:"type"`
	IsCurrent         bool                `json:"is_current"`
	CreatedAt         time.Time           `json:"created_at"`
	StartDate         time.Time           `json:"start_date"`
	EndDate           time.Time           `json:"end_date"`
	TotalDurationDays int                 `json:"total_duration_days"`
	TotalCost         float64             `json:"total_cost"`
	TotalEffort       float64             `json:"total_effort"`
	Tasks             []TaskSnapshot      `json:"tasks"`
	Milestones        []MilestoneSnapshot `json:"milestones,omitempty"`
	Resources         []ResourceSnapshot  `json:"resources,omitempty"`

	captured bool
}

// Options describe a new baseline.
type Options struct {
	Name        string `validate:"required"`
	Type        Type   `validate:"omitempty,oneof=initial approved working archived"`
	Author      string
	Description string
	CreatedAt   time.Time // defaults to now
}

var validate = validator.New()

// Create snapshots a project and its schedule.
func Create(p *project.Project, s *cpm.Schedule, opts Options) (*Baseline, error) {
	const op = "baseline.Create"
	if err := validate.Struct(opts); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	if opts.Type == "" {
		opts.Type = Working
	}
	if opts.CreatedAt.IsZero() {
		opts.CreatedAt = time.Now().UTC()
	}

	b := &Baseline{
		ID:                id.New(),
		ProjectID:         p.ID,
		Name:              opts.Name,
		Description:       opts.Description,
		Author:            opts.Author,
		Type:              opts.Type,
		IsCurrent:         opts.Type != Archived,
		CreatedAt:         opts.CreatedAt,
		StartDate:         s.Start,
		EndDate:           s.End,
		TotalDurationDays: s.TotalDurationDays,
		TotalCost:         s.TotalCost,
		captured:          true,
	}

	for _, t := range p.Tasks {
		ns, ok := s.Nodes[t.ID]
		if !ok {
			continue
		}
		ts := TaskSnapshot{
			ID:          t.ID,
			Name:        t.Name,
			Type:        t.Type,
			Start:       ns.Start,
			Finish:      ns.Finish,
			EffortHours: t.EffortHours,
			Cost:        ns.Cost,
		}
		if ns.Duration > 0 {
			ts.DurationDays = calendar.DaysBetween(ns.Start, ns.Finish) + 1
		}
		for _, a := range t.Assignments {
			ts.Resources = append(ts.Resources, a.ResourceID)
		}
		for _, d := range t.Dependencies {
			ts.Dependencies = append(ts.Dependencies, d.PredecessorID)
		}
		b.TotalEffort += t.EffortHours
		b.Tasks = append(b.Tasks, ts)
	}
	sort.Slice(b.Tasks, func(i, j int) bool { return b.Tasks[i].ID < b.Tasks[j].ID })

	for _, m := range p.Milestones {
		ms, ok := s.Milestones[m.ID]
		if !ok {
			continue
		}
		b.Milestones = append(b.Milestones, MilestoneSnapshot{ID: m.ID, Name: m.Name, Target: ms.Target, Earliest: ms.Earliest})
	}
	sort.Slice(b.Milestones, func(i, j int) bool { return b.Milestones[i].ID < b.Milestones[j].ID })

	for _, u := range s.Resources {
		rate := project.DefaultHourlyRate
		if r := p.Resource(u.ResourceID); r != nil {
			rate = r.Rate()
		}
		b.Resources = append(b.Resources, ResourceSnapshot{ID: u.ResourceID, Name: u.Name, Hours: u.TotalHours, Cost: u.Cost, HourlyRate: rate})
	}
	return b, nil
}

// Task returns the snapshot of a task.
func (b *Baseline) Task(id string) (TaskSnapshot, bool) {
	for _, t := range b.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSnapshot{}, false
}

// Milestone returns the snapshot of a milestone.
func (b *Baseline) Milestone(id string) (MilestoneSnapshot, bool) {
	for _, m := range b.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return MilestoneSnapshot{}, false
}

func (b *Baseline) frozen(op string) error {
	if b.captured {
		return errs.New(errs.Validation, op, "baseline %q is immutable", b.ID)
	}
	return nil
}

// SetDescription fails once the baseline has been captured.
func (b *Baseline) SetDescription(desc string) error {
	if err := b.frozen("baseline.SetDescription"); err != nil {
		return err
	}
	b.Description = desc
	return nil
}

// Rename fails once the baseline has been captured.
func (b *Baseline) Rename(name string) error {
	if err := b.frozen("baseline.Rename"); err != nil {
		return err
	}
	b.Name = name
	return nil
}

// ReplaceTask fails once the baseline has been captured.
func (b *Baseline) ReplaceTask(ts TaskSnapshot) error {
	if err := b.frozen("baseline.ReplaceTask"); err != nil {
		return err
	}
	for i := range b.Tasks {
		if b.Tasks[i].ID == ts.ID {
			b.Tasks[i] = ts
			return nil
		}
	}
	return errs.New(errs.NotFound, "baseline.ReplaceTask", "task %q", ts.ID)
}
