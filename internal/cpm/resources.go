package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/jackhale98/tessera/internal/project"
)

// EffectiveHours returns the hours an assignment contributes to a task of
// duration dur.
func EffectiveHours(t *project.Task, a project.Assignment, dur int, cfg Config) float64 {
	if a.Hours != nil {
		return *a.Hours
	}
	share := a.Percent() / 100 / project.AllocationSum(t)
	switch t.Type {
	case project.MilestoneTask:
		return 0
	case project.FixedDuration:
		return float64(dur) * cfg.HoursPerDay * a.Percent() / 100
	case project.FixedWork:
		w := t.EffortHours
		if t.WorkUnits != nil {
			w = *t.WorkUnits
		}
		return w * share
	default:
		return t.EffortHours * share
	}
}

type booking struct {
	percent float64
	hours   float64
	tasks   []string
}

// utilization spreads assignment hours over each task's working window and
// reports per-resource load. It detects over-allocation but never moves work.
func utilization(p *project.Project, s *Schedule, dates *dater, cfg Config) ([]ResourceUsage, float64) {
	days := make(map[string]map[int]*booking)
	usage := make(map[string]*ResourceUsage)
	for _, r := range p.Resources {
		days[r.ID] = make(map[int]*booking)
		usage[r.ID] = &ResourceUsage{ResourceID: r.ID, Name: r.Name}
	}

	total := 0.0
	for _, id := range s.TopoOrder {
		t := p.Task(id)
		if t == nil {
			continue
		}
		ns := s.Nodes[id]
		for _, a := range t.Assignments {
			r := p.Resource(a.ResourceID)
			if r == nil {
				s.Warnings = append(s.Warnings,
					fmt.Sprintf("%s: unknown resource %q ignored", id, a.ResourceID))
				continue
			}
			hours := EffectiveHours(t, a, ns.Duration, cfg)
			rate := r.Rate()
			if a.RateOverride != nil {
				rate = *a.RateOverride
			}
			cost := hours * rate
			ns.Cost += cost
			total += cost

			u := usage[r.ID]
			u.TotalHours += hours
			u.Cost += cost

			if ns.Duration == 0 {
				continue
			}
			perDay := hours / float64(ns.Duration)
			for d := ns.ES; d < ns.EF; d++ {
				b := days[r.ID][d]
				if b == nil {
					b = &booking{}
					days[r.ID][d] = b
				}
				b.percent += a.Percent()
				b.hours += perDay
				b.tasks = append(b.tasks, id)
			}
		}
	}

	span := max(s.ProjectEnd, 1)
	out := make([]ResourceUsage, 0, len(usage))
	for _, r := range p.Resources {
		u := usage[r.ID]
		u.AverageDailyHours = u.TotalHours / float64(span)

		offsets := make([]int, 0, len(days[r.ID]))
		for d := range days[r.ID] {
			offsets = append(offsets, d)
		}
		sort.Ints(offsets)
		for _, d := range offsets {
			b := days[r.ID][d]
			u.PeakAllocation = math.Max(u.PeakAllocation, b.percent)
			u.PeakDailyHours = math.Max(u.PeakDailyHours, b.hours)
			if b.percent > r.Availability {
				date := dates.date(d)
				u.OverAllocated = append(u.OverAllocated, date)
				u.Conflicts = append(u.Conflicts, Conflict{
					Date:      date,
					Required:  b.percent,
					Available: r.Availability,
					TaskIDs:   b.tasks,
				})
			}
		}

		capacity := float64(workingDays(p, r, s, dates)) * r.Hours() * r.Availability / 100
		if capacity > 0 {
			u.RawUtilization = u.TotalHours / capacity * 100
		}
		u.Utilization = math.Min(u.RawUtilization, 100)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResourceID < out[j].ResourceID })
	return out, total
}

// workingDays counts the resource's working days across the project span.
func workingDays(p *project.Project, r *project.Resource, s *Schedule, dates *dater) int {
	cal := p.CalendarFor(r.ID)
	n := 0
	for d := 0; d < s.ProjectEnd; d++ {
		if cal.IsWorkingDay(dates.date(d)) {
			n++
		}
	}
	return n
}
