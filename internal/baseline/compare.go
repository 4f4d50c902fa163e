package baseline

import (
	"math"
	"sort"

	"github.com/jackhale98/tessera/internal/calendar"
)

// VarianceType classifies how a task moved between two baselines.
type VarianceType string

const (
	NoChange         VarianceType = "no_change"
	ScheduleVariance VarianceType = "schedule_variance"
	CostVariance     VarianceType = "cost_variance"
	ScopeChange      VarianceType = "scope_change"
	TaskAdded        VarianceType = "task_added"
	TaskRemoved      VarianceType = "task_removed"
)

// MilestoneState buckets a milestone's slip.
type MilestoneState string

const (
	OnTrack MilestoneState = "on_track"
	AtRisk  MilestoneState = "at_risk"
	Delayed MilestoneState = "delayed"
)

// Health is a traffic-light summary.
type Health string

const (
	Green  Health = "green"
	Yellow Health = "yellow"
	Red    Health = "red"
)

// Thresholds for comparison health.
const (
	costTolerance      = 0.01
	redSlipDays        = 5
	redCostVariance    = 1000.0
	yellowTaskChanges  = 3
	yellowMilestoneMax = 1
)

// TaskVariance is one task's movement from the older to the newer baseline.
type TaskVariance struct {
	TaskID               string       `json:"task_id"`
	Name                 string       `json:"name"`
	Type                 VarianceType `json:"type"`
	StartVarianceDays    int          `json:"start_variance_days"`
	ScheduleVarianceDays int          `json:"schedule_variance_days"`
	DurationVariance     int          `json:"duration_variance"`
	CostVariance         float64      `json:"cost_variance"`
	EffortVariance       float64      `json:"effort_variance"`
}

// MilestoneVariance is one milestone's slip.
type MilestoneVariance struct {
	MilestoneID string         `json:"milestone_id"`
	Name        string         `json:"name"`
	SlipDays    int            `json:"slip_days"`
	Status      MilestoneState `json:"status"`
}

// VarianceReport compares a newer baseline against an older one.
type VarianceReport struct {
	NewerID             string              `json:"newer_id"`
	OlderID             string              `json:"older_id"`
	Tasks               []TaskVariance      `json:"tasks"`
	Milestones          []MilestoneVariance `json:"milestones,omitempty"`
	EndDateVarianceDays int                 `json:"end_date_variance_days"`
	CostVariance        float64             `json:"cost_variance"`
	EffortVariance      float64             `json:"effort_variance"`
	TaskChanges         int                 `json:"task_changes"`
	MilestoneChanges    int                 `json:"milestone_changes"`
	Health              Health              `json:"health"`
}

// Compare reports how newer differs from older.
func Compare(newer, older *Baseline) *VarianceReport {
	r := &VarianceReport{
		NewerID:             newer.ID,
		OlderID:             older.ID,
		EndDateVarianceDays: calendar.DaysBetween(older.EndDate, newer.EndDate),
		CostVariance:        newer.TotalCost - older.TotalCost,
		EffortVariance:      newer.TotalEffort - older.TotalEffort,
	}

	for _, nt := range newer.Tasks {
		ot, ok := older.Task(nt.ID)
		if !ok {
			r.Tasks = append(r.Tasks, TaskVariance{TaskID: nt.ID, Name: nt.Name, Type: TaskAdded,
				CostVariance: nt.Cost, EffortVariance: nt.EffortHours})
			continue
		}
		r.Tasks = append(r.Tasks, taskVariance(nt, ot))
	}
	for _, ot := range older.Tasks {
		if _, ok := newer.Task(ot.ID); !ok {
			r.Tasks = append(r.Tasks, TaskVariance{TaskID: ot.ID, Name: ot.Name, Type: TaskRemoved,
				CostVariance: -ot.Cost, EffortVariance: -ot.EffortHours})
		}
	}
	sort.Slice(r.Tasks, func(i, j int) bool { return r.Tasks[i].TaskID < r.Tasks[j].TaskID })

	for _, nm := range newer.Milestones {
		om, ok := older.Milestone(nm.ID)
		if !ok {
			continue
		}
		slip := calendar.DaysBetween(om.Earliest, nm.Earliest)
		r.Milestones = append(r.Milestones, MilestoneVariance{
			MilestoneID: nm.ID, Name: nm.Name, SlipDays: slip, Status: slipState(slip),
		})
		if slip != 0 {
			r.MilestoneChanges++
		}
	}

	red := math.Abs(r.CostVariance) > redCostVariance
	for _, tv := range r.Tasks {
		if tv.Type != NoChange {
			r.TaskChanges++
		}
		if tv.ScheduleVarianceDays > redSlipDays {
			red = true
		}
	}
	for _, mv := range r.Milestones {
		if mv.Status == Delayed {
			red = true
		}
	}
	switch {
	case red:
		r.Health = Red
	case r.TaskChanges > yellowTaskChanges || r.MilestoneChanges > yellowMilestoneMax:
		r.Health = Yellow
	default:
		r.Health = Green
	}
	return r
}

func taskVariance(nt, ot TaskSnapshot) TaskVariance {
	tv := TaskVariance{
		TaskID:               nt.ID,
		Name:                 nt.Name,
		StartVarianceDays:    calendar.DaysBetween(ot.Start, nt.Start),
		ScheduleVarianceDays: calendar.DaysBetween(ot.Finish, nt.Finish),
		DurationVariance:     nt.DurationDays - ot.DurationDays,
		CostVariance:         nt.Cost - ot.Cost,
		EffortVariance:       nt.EffortHours - ot.EffortHours,
	}
	switch {
	case tv.StartVarianceDays != 0 || tv.ScheduleVarianceDays != 0 || tv.DurationVariance != 0:
		tv.Type = ScheduleVariance
	case math.Abs(tv.CostVariance) > costTolerance:
		tv.Type = CostVariance
	case math.Abs(tv.EffortVariance) > costTolerance:
		tv.Type = ScopeChange
	default:
		tv.Type = NoChange
	}
	return tv
}

func slipState(days int) MilestoneState {
	switch {
	case days > redSlipDays:
		return Delayed
	case days >= 1:
		return AtRisk
	default:
		return OnTrack
	}
}
