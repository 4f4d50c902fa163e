// Package cpm schedules a project with the critical path method: forward and
// backward passes over the dependency network, float, milestones, parallel
// waves and resource load.
package cpm

import (
	"fmt"
	"math"
	"sort"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/graph"
	"github.com/jackhale98/tessera/internal/project"
)

// Compute performs critical path analysis on a project. Day offsets count
// from the project start; EF is exclusive, so a one-day task at offset 0
// has ES=0 and EF=1.
func Compute(p *project.Project, cfg Config) (*Schedule, error) {
	const op = "cpm.Compute"
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(p.Tasks) == 0 {
		return nil, errs.New(errs.EmptyProject, op, "project %q has no tasks", p.Name)
	}

	g, err := graph.Build(p)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	s, d := compute(p, g, cfg)
	if d.err != nil && cfg.DateMode == WorkingDays {
		cfg.DateMode = CalendarDays
		s, _ = compute(p, g, cfg)
		s.Warnings = append(s.Warnings,
			fmt.Sprintf("working-day dates unavailable (%v); using calendar days", d.err))
	}
	return s, nil
}

func compute(p *project.Project, g *graph.Graph, cfg Config) (*Schedule, *dater) {
	order, _ := g.TopoSort() // Build already rejected cycles
	dates := newDater(p.Start, p.ProjectCalendar(), cfg.DateMode)

	s := &Schedule{
		ProjectID:  p.ID,
		Start:      calendar.Truncate(p.Start),
		Nodes:      make(map[string]*NodeSchedule, len(order)),
		TopoOrder:  order,
		Milestones: make(map[string]*MilestoneSchedule),
		Warnings:   append([]string(nil), g.Warnings...),
	}

	// targets holds the end-of-day boundary offset of each milestone target
	targets := make(map[string]int)
	for _, m := range p.Milestones {
		targets[m.ID] = dates.boundary(m.TargetDate)
	}

	for _, id := range order {
		n := g.Nodes[id]
		ns := &NodeSchedule{ID: id, Name: n.Name, Kind: n.Kind}
		if t := p.Task(id); t != nil {
			ns.Duration = Duration(t, cfg)
		}
		s.Nodes[id] = ns
	}

	// Forward pass
	for _, id := range order {
		ns := s.Nodes[id]
		es := 0
		for _, pred := range g.RevAdj[id] {
			e, _ := g.Edge(pred, id)
			if c := forward(e, s.Nodes[pred], ns.Duration); c > es {
				es = c
			}
		}
		ns.ES = es
		ns.EF = es + ns.Duration
	}

	end := 0
	for _, ns := range s.Nodes {
		end = max(end, ns.EF)
	}
	for _, b := range targets {
		end = max(end, b)
	}
	s.ProjectEnd = end

	// Backward pass
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		ns := s.Nodes[id]
		lf := end
		for _, succ := range g.Adj[id] {
			e, _ := g.Edge(id, succ)
			if c := backward(e, ns.Duration, s.Nodes[succ]); c < lf {
				lf = c
			}
		}
		if b, ok := targets[id]; ok && b < lf {
			lf = b
		}
		ns.LF = lf
		ns.LS = lf - ns.Duration
		ns.TotalFloat = ns.LS - ns.ES
		ns.IsCritical = ns.TotalFloat <= 0
	}

	// Free float
	for _, id := range order {
		ns := s.Nodes[id]
		if len(g.Adj[id]) == 0 {
			continue
		}
		ff := math.MaxInt
		for _, succ := range g.Adj[id] {
			e, _ := g.Edge(id, succ)
			ff = min(ff, edgeSlack(e, ns, s.Nodes[succ]))
		}
		// slipping by more than TF moves the project end
		ns.FreeFloat = max(min(ff, ns.TotalFloat), 0)
	}

	for _, id := range order {
		if s.Nodes[id].IsCritical {
			s.CriticalPath = append(s.CriticalPath, id)
		}
	}
	s.Waves = computeWaves(s)

	// Dates
	for _, id := range order {
		ns := s.Nodes[id]
		ns.Start = dates.startOf(ns.ES, ns.EF)
		ns.Finish = dates.finish(ns.ES, ns.EF)
		ns.LateStart = dates.startOf(ns.LS, ns.LF)
		ns.LateFinish = dates.finish(ns.LS, ns.LF)
		if ns.Finish.After(s.End) {
			s.End = ns.Finish
		}
	}

	for _, m := range p.Milestones {
		ns := s.Nodes[m.ID]
		ms := &MilestoneSchedule{
			ID:         m.ID,
			Name:       m.Name,
			Target:     calendar.Truncate(m.TargetDate),
			Earliest:   ns.Finish,
			TotalFloat: targets[m.ID] - ns.ES,
		}
		ms.IsCritical = ms.TotalFloat <= 0
		ms.Status = milestoneStatus(p, m, ms.TotalFloat)
		s.Milestones[m.ID] = ms
		if ms.Target.After(s.End) {
			s.End = ms.Target
		}
	}
	s.TotalDurationDays = calendar.DaysBetween(s.Start, s.End)

	s.Resources, s.TotalCost = utilization(p, s, dates, cfg)
	return s, dates
}

// forward returns the earliest start a predecessor edge imposes on a
// successor of duration dur.
func forward(e graph.Edge, pred *NodeSchedule, dur int) int {
	lag := int(math.Ceil(e.Lag))
	switch e.Type {
	case project.StartToStart:
		return pred.ES + lag
	case project.FinishToFinish:
		return pred.EF + lag - dur
	case project.StartToFinish:
		return pred.ES + lag - dur
	default:
		return pred.EF + lag
	}
}

// backward returns the latest finish an edge allows the predecessor. A
// successor's latest times are never taken below its earliest ones, so a
// missed milestone target does not push negative float upstream.
func backward(e graph.Edge, predDur int, succ *NodeSchedule) int {
	lag := int(math.Ceil(e.Lag))
	ls := max(succ.LS, succ.ES)
	lf := max(succ.LF, succ.EF)
	switch e.Type {
	case project.StartToStart:
		return ls - lag + predDur
	case project.FinishToFinish:
		return lf - lag
	case project.StartToFinish:
		return lf - lag + predDur
	default:
		return ls - lag
	}
}

func edgeSlack(e graph.Edge, pred, succ *NodeSchedule) int {
	lag := int(math.Ceil(e.Lag))
	switch e.Type {
	case project.StartToStart:
		return succ.ES - (pred.ES + lag)
	case project.FinishToFinish:
		return succ.EF - (pred.EF + lag)
	case project.StartToFinish:
		return succ.EF - (pred.ES + lag)
	default:
		return succ.ES - (pred.EF + lag)
	}
}

func milestoneStatus(p *project.Project, m *project.Milestone, float int) project.MilestoneStatus {
	done := len(m.Dependencies) > 0
	for _, d := range m.Dependencies {
		t := p.Task(d.PredecessorID)
		if t == nil || t.Status != project.Completed {
			done = false
			break
		}
	}
	switch {
	case done:
		return project.Achieved
	case float < 0:
		return project.Missed
	case float == 0:
		return project.AtRisk
	default:
		return project.Pending
	}
}

// computeWaves groups nodes by their earliest start.
func computeWaves(s *Schedule) []Wave {
	esGroups := make(map[int][]string)
	for _, id := range s.TopoOrder {
		es := s.Nodes[id].ES
		esGroups[es] = append(esGroups[es], id)
	}

	esValues := make([]int, 0, len(esGroups))
	for es := range esGroups {
		esValues = append(esValues, es)
	}
	sort.Ints(esValues)

	waves := make([]Wave, len(esValues))
	for i, es := range esValues {
		ids := esGroups[es]
		sort.Strings(ids)

		hasCritical := false
		for _, id := range ids {
			s.Nodes[id].Wave = i
			if s.Nodes[id].IsCritical {
				hasCritical = true
			}
		}

		// critical nodes first within a wave
		sort.SliceStable(ids, func(a, b int) bool {
			return s.Nodes[ids[a]].IsCritical && !s.Nodes[ids[b]].IsCritical
		})

		waves[i] = Wave{Index: i, NodeIDs: ids, IsCritical: hasCritical}
	}
	return waves
}
