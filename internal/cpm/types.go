package cpm

import (
	"time"

	"github.com/jackhale98/tessera/internal/graph"
	"github.com/jackhale98/tessera/internal/project"
)

// DateMode selects how day offsets map to civil dates.
type DateMode string

const (
	CalendarDays DateMode = "calendar" // offset n is S + n days
	WorkingDays  DateMode = "working"  // offset n is the n-th working day
)

// Schedule holds the complete critical path analysis of a project.
type Schedule struct {
	ProjectID         string    `json:"project_id"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TotalDurationDays int       `json:"total_duration_days"`
	ProjectEnd        int       `json:"project_end"`         // day offset P

	Nodes        map[string]*NodeSchedule      `json:"nodes"`
	TopoOrder    []string                      `json:"topo_order"`
	CriticalPath []string                      `json:"critical_path"` // critical nodes in topological order
	Waves        []Wave                        `json:"waves"`         // groups of nodes sharing an earliest start
	Milestones   map[string]*MilestoneSchedule `json:"milestones"`
	Resources    []ResourceUsage               `json:"resources"`     // sorted by resource id
	TotalCost    float64                       `json:"total_cost"`
	Warnings     []string                      `json:"warnings"`
}

// NodeSchedule holds the scheduling info for a single task or milestone.
type NodeSchedule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       graph.Kind `json:"kind"`
	Duration   int        `json:"duration"`
	ES         int        `json:"es"`          // earliest start/finish, day offsets
	EF         int        `json:"ef"`
	LS         int        `json:"ls"`          // latest start/finish
	LF         int        `json:"lf"`
	TotalFloat int        `json:"total_float"`
	FreeFloat  int        `json:"free_float"`
	IsCritical bool       `json:"is_critical"`
	Wave       int        `json:"wave"`

	Start      time.Time `json:"start"`
	Finish     time.Time `json:"finish"`
	LateStart  time.Time `json:"late_start"`
	LateFinish time.Time `json:"late_finish"`
	Cost       float64   `json:"cost"`
}

// MilestoneSchedule tracks a milestone against its target date.
type MilestoneSchedule struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Target     time.Time               `json:"target"`
	Earliest   time.Time               `json:"earliest"`
	TotalFloat int                     `json:"total_float"`
	IsCritical bool                    `json:"is_critical"`
	Status     project.MilestoneStatus `json:"status"`
}

// Wave represents a group of nodes that can start together.
type Wave struct {
	Index      int      `json:"index"`
	NodeIDs    []string `json:"node_ids"`
	IsCritical bool     `json:"is_critical"` // true if the wave contains critical nodes
}

// ResourceUsage summarises one resource's load over the project span.
type ResourceUsage struct {
	ResourceID        string      `json:"resource_id"`
	Name              string      `json:"name"`
	TotalHours        float64     `json:"total_hours"`
	AverageDailyHours float64     `json:"average_daily_hours"`
	PeakAllocation    float64     `json:"peak_allocation"`     // percent
	PeakDailyHours    float64     `json:"peak_daily_hours"`
	Utilization       float64     `json:"utilization"`         // percent, capped at 100
	RawUtilization    float64     `json:"raw_utilization"`
	Cost              float64     `json:"cost"`
	OverAllocated     []time.Time `json:"over_allocated"`
	Conflicts         []Conflict  `json:"conflicts"`
}

// Conflict is a day on which a resource is booked beyond its availability.
type Conflict struct {
	Date      time.Time `json:"date"`
	Required  float64   `json:"required"`  // percent
	Available float64   `json:"available"` // percent
	TaskIDs   []string  `json:"task_ids"`
}
