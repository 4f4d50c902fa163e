package baseline

import (
	"math"
	"time"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/project"
)

// Progress is a task's status snapshot.
type Progress struct {
	Percent    float64 // 0..100
	ActualCost float64
}

// EVMetrics are earned-value measures at a status date.
type EVMetrics struct {
	StatusDate      time.Time `json:"status_date"`
	PV              float64   `json:"planned_value"`
	EV              float64   `json:"earned_value"`
	AC              float64   `json:"actual_cost"`
	BAC             float64   `json:"budget_at_completion"`
	SV              float64   `json:"schedule_variance"`
	CV              float64   `json:"cost_variance"`
	SPI             float64   `json:"spi"`
	CPI             float64   `json:"cpi"`
	EAC             float64   `json:"estimate_at_completion"`
	ETC             float64   `json:"estimate_to_complete"`
	VAC             float64   `json:"variance_at_completion"`
	TCPI            float64   `json:"tcpi"`
	PercentComplete float64   `json:"percent_complete"`
	PercentSpent    float64   `json:"percent_spent"`
	Health          Health    `json:"health"`
}

// EarnedValue measures progress against a baseline at status date d. Tasks
// absent from progress count as not started with no cost.
func EarnedValue(b *Baseline, progress map[string]Progress, d time.Time) EVMetrics {
	d = calendar.Truncate(d)
	m := EVMetrics{StatusDate: d}
	for _, t := range b.Tasks {
		m.BAC += t.Cost
		m.PV += t.Cost * plannedFraction(t, d)
		p := progress[t.ID]
		m.EV += t.Cost * p.Percent / 100
		m.AC += p.ActualCost
	}

	m.SV = m.EV - m.PV
	m.CV = m.EV - m.AC
	m.SPI, m.CPI = 1, 1
	if m.PV != 0 {
		m.SPI = m.EV / m.PV
	}
	if m.AC != 0 {
		m.CPI = m.EV / m.AC
	}

	m.EAC = m.BAC
	if m.CPI > 0 {
		m.EAC = m.BAC / m.CPI
	}
	m.ETC = m.EAC - m.AC
	m.VAC = m.BAC - m.EAC

	m.TCPI = 1
	if m.BAC != m.AC {
		m.TCPI = (m.BAC - m.EV) / (m.BAC - m.AC)
	}
	if m.BAC > 0 {
		m.PercentComplete = m.EV / m.BAC * 100
		m.PercentSpent = m.AC / m.BAC * 100
	}

	switch {
	case m.SPI >= 0.95 && m.CPI >= 0.95:
		m.Health = Green
	case m.SPI >= 0.85 && m.CPI >= 0.85:
		m.Health = Yellow
	default:
		m.Health = Red
	}
	return m
}

// plannedFraction is the share of a task's window elapsed by the end of d,
// counting both window ends.
func plannedFraction(t TaskSnapshot, d time.Time) float64 {
	start, end := calendar.Truncate(t.Start), calendar.Truncate(t.Finish)
	switch {
	case start.After(d):
		return 0
	case !end.After(d):
		return 1
	}
	elapsed := float64(calendar.DaysBetween(start, d) + 1)
	span := float64(calendar.DaysBetween(start, end) + 1)
	return math.Min(math.Max(elapsed/span, 0), 1)
}

// ProgressFromProject reads percent complete and actual cost off the tasks.
func ProgressFromProject(p *project.Project) map[string]Progress {
	out := make(map[string]Progress, len(p.Tasks))
	for _, t := range p.Tasks {
		out[t.ID] = Progress{Percent: t.Progress, ActualCost: t.ActualCost}
	}
	return out
}
