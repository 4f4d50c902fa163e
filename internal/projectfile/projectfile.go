// Package projectfile reads and writes the YAML documents the CLI works on:
// project plans and tolerance stackup libraries.
package projectfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackhale98/tessera/internal/calendar"
	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/id"
	"github.com/jackhale98/tessera/internal/project"
)

type document struct {
	Project    header     `yaml:"project"`
	Calendars  []calFile  `yaml:"calendars,omitempty"`
	Resources  []resFile  `yaml:"resources,omitempty"`
	Tasks      []taskFile `yaml:"tasks"`
	Milestones []mileFile `yaml:"milestones,omitempty"`
}

type header struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Start           string `yaml:"start"`
	DefaultCalendar string `yaml:"default_calendar,omitempty"`
}

type calFile struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	WorkingDays []string      `yaml:"working_days,omitempty"`
	HoursPerDay float64       `yaml:"hours_per_day,omitempty"`
	StartHour   *int          `yaml:"start_hour,omitempty"`
	EndHour     *int          `yaml:"end_hour,omitempty"`
	Holidays    []holidayFile `yaml:"holidays,omitempty"`
	Exceptions  []excFile     `yaml:"exceptions,omitempty"`
}

type holidayFile struct {
	Name      string `yaml:"name"`
	Date      string `yaml:"date"`
	Recurring bool   `yaml:"recurring,omitempty"`
}

type excFile struct {
	Date   string `yaml:"date"`
	Kind   string `yaml:"kind"`
	Reason string `yaml:"reason,omitempty"`
}

type resFile struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	HourlyRate   float64  `yaml:"hourly_rate,omitempty"`
	DailyHours   float64  `yaml:"daily_hours,omitempty"`
	Availability *float64 `yaml:"availability,omitempty"`
	Calendar     string   `yaml:"calendar,omitempty"`
}

type depFile struct {
	Predecessor string  `yaml:"predecessor"`
	Type        string  `yaml:"type,omitempty"`
	Lag         float64 `yaml:"lag,omitempty"`
}

type assignFile struct {
	Resource   string   `yaml:"resource"`
	Allocation float64  `yaml:"allocation,omitempty"`
	Hours      *float64 `yaml:"hours,omitempty"`
	FullTime   bool     `yaml:"full_time,omitempty"`
	Rate       *float64 `yaml:"rate,omitempty"`
}

type taskFile struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Type         string       `yaml:"type,omitempty"`
	EffortHours  float64      `yaml:"effort_hours,omitempty"`
	DurationDays *int         `yaml:"duration_days,omitempty"`
	WorkUnits    *float64     `yaml:"work_units,omitempty"`
	Progress     float64      `yaml:"progress,omitempty"`
	Status       string       `yaml:"status,omitempty"`
	StartDate    string       `yaml:"start_date,omitempty"`
	DueDate      string       `yaml:"due_date,omitempty"`
	ActualStart  string       `yaml:"actual_start,omitempty"`
	CompletedAt  string       `yaml:"completed_at,omitempty"`
	ActualCost   float64      `yaml:"actual_cost,omitempty"`
	Dependencies []depFile    `yaml:"dependencies,omitempty"`
	Assignments  []assignFile `yaml:"assignments,omitempty"`
}

type mileFile struct {
	ID           string    `yaml:"id"`
	Name         string    `yaml:"name"`
	TargetDate   string    `yaml:"target_date"`
	Status       string    `yaml:"status,omitempty"`
	Dependencies []depFile `yaml:"dependencies,omitempty"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// LoadProject reads and validates a project file.
func LoadProject(path string) (*project.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	p, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParseProject decodes a project document, fills defaults and validates it.
func ParseProject(data []byte) (*project.Project, error) {
	const op = "projectfile.ParseProject"
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.Validation, op, err)
	}
	p, err := doc.toProject()
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveProject writes p as YAML.
func SaveProject(path string, p *project.Project) error {
	data, err := MarshalProject(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// MarshalProject encodes p in the on-disk layout.
func MarshalProject(p *project.Project) ([]byte, error) {
	doc := fromProject(p)
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	return data, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := calendar.Parse(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func parseOptDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatOptDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(calendar.Layout)
}

func (d *document) toProject() (*project.Project, error) {
	const op = "projectfile.ParseProject"
	start, err := parseDate("project.start", d.Project.Start)
	if err != nil {
		return nil, err
	}
	p := &project.Project{
		ID:              id.OrNew(d.Project.ID),
		Name:            d.Project.Name,
		Start:           start,
		DefaultCalendar: d.Project.DefaultCalendar,
	}

	for _, cf := range d.Calendars {
		c, err := cf.toCalendar()
		if err != nil {
			return nil, err
		}
		p.Calendars = append(p.Calendars, c)
	}

	for _, rf := range d.Resources {
		r := &project.Resource{
			ID:           rf.ID,
			Name:         rf.Name,
			HourlyRate:   rf.HourlyRate,
			DailyHours:   rf.DailyHours,
			Availability: 100,
			CalendarID:   rf.Calendar,
		}
		if rf.Availability != nil {
			r.Availability = *rf.Availability
		}
		p.Resources = append(p.Resources, r)
	}

	for _, tf := range d.Tasks {
		t := &project.Task{
			ID:           tf.ID,
			Name:         tf.Name,
			Type:         project.TaskType(strings.ToLower(tf.Type)),
			EffortHours:  tf.EffortHours,
			DurationDays: tf.DurationDays,
			WorkUnits:    tf.WorkUnits,
			Progress:     tf.Progress,
			Status:       project.Status(strings.ToLower(tf.Status)),
			ActualCost:   tf.ActualCost,
			Dependencies: toDeps(tf.Dependencies),
		}
		if t.Type == "" {
			t.Type = project.EffortDriven
		}
		if t.Status == "" {
			t.Status = project.NotStarted
		}
		for _, af := range tf.Assignments {
			t.Assignments = append(t.Assignments, project.Assignment{
				ResourceID:   af.Resource,
				Allocation:   af.Allocation,
				Hours:        af.Hours,
				FullTime:     af.FullTime,
				RateOverride: af.Rate,
			})
		}
		dates := []struct {
			field string
			raw   string
			dst   **time.Time
		}{
			{"start_date", tf.StartDate, &t.StartDate},
			{"due_date", tf.DueDate, &t.DueDate},
			{"actual_start", tf.ActualStart, &t.ActualStart},
			{"completed_at", tf.CompletedAt, &t.CompletedAt},
		}
		for _, od := range dates {
			v, err := parseOptDate("task "+tf.ID+" "+od.field, od.raw)
			if err != nil {
				return nil, errs.Wrap(errs.Validation, op, err)
			}
			*od.dst = v
		}
		p.Tasks = append(p.Tasks, t)
	}

	for _, mf := range d.Milestones {
		target, err := parseDate("milestone "+mf.ID+" target_date", mf.TargetDate)
		if err != nil {
			return nil, errs.Wrap(errs.Validation, op, err)
		}
		m := &project.Milestone{
			ID:           mf.ID,
			Name:         mf.Name,
			TargetDate:   target,
			Status:       project.MilestoneStatus(strings.ToLower(mf.Status)),
			Dependencies: toDeps(mf.Dependencies),
		}
		if m.Status == "" {
			m.Status = project.Pending
		}
		p.Milestones = append(p.Milestones, m)
	}
	return p, nil
}

func toDeps(in []depFile) []project.Dependency {
	var out []project.Dependency
	for _, df := range in {
		typ := project.DependencyType(strings.ToUpper(df.Type))
		if typ == "" {
			typ = project.FinishToStart
		}
		out = append(out, project.Dependency{PredecessorID: df.Predecessor, Type: typ, LagDays: df.Lag})
	}
	return out
}

func (cf calFile) toCalendar() (*calendar.Calendar, error) {
	const op = "projectfile.ParseProject"
	c := calendar.Default()
	c.ID, c.Name = cf.ID, cf.Name
	if cf.HoursPerDay > 0 {
		c.HoursPerDay = cf.HoursPerDay
	}
	if cf.StartHour != nil {
		c.StartHour = *cf.StartHour
	}
	if cf.EndHour != nil {
		c.EndHour = *cf.EndHour
	}
	if len(cf.WorkingDays) > 0 {
		c.WorkingDays = nil
		for _, name := range cf.WorkingDays {
			wd, ok := weekdays[strings.ToLower(name)[:min(3, len(name))]]
			if !ok {
				return nil, errs.New(errs.Validation, op, "calendar %q: unknown weekday %q", cf.ID, name)
			}
			c.WorkingDays = append(c.WorkingDays, wd)
		}
	}
	for _, h := range cf.Holidays {
		d, err := parseDate("holiday "+h.Name, h.Date)
		if err != nil {
			return nil, errs.Wrap(errs.Validation, op, err)
		}
		c.AddHoliday(h.Name, d, h.Recurring)
	}
	for _, e := range cf.Exceptions {
		d, err := parseDate("exception", e.Date)
		if err != nil {
			return nil, errs.Wrap(errs.Validation, op, err)
		}
		c.AddException(d, calendar.ExceptionKind(strings.ToLower(e.Kind)), e.Reason)
	}
	return c, nil
}

func fromProject(p *project.Project) document {
	doc := document{Project: header{
		ID:              p.ID,
		Name:            p.Name,
		Start:           p.Start.Format(calendar.Layout),
		DefaultCalendar: p.DefaultCalendar,
	}}
	for _, c := range p.Calendars {
		start, end := c.StartHour, c.EndHour
		cf := calFile{ID: c.ID, Name: c.Name, HoursPerDay: c.HoursPerDay, StartHour: &start, EndHour: &end}
		for _, wd := range c.WorkingDays {
			cf.WorkingDays = append(cf.WorkingDays, weekdayNames[wd])
		}
		for _, h := range c.Holidays {
			cf.Holidays = append(cf.Holidays, holidayFile{Name: h.Name, Date: h.Date.Format(calendar.Layout), Recurring: h.Recurring})
		}
		for _, e := range c.Exceptions {
			cf.Exceptions = append(cf.Exceptions, excFile{Date: e.Date.Format(calendar.Layout), Kind: string(e.Kind), Reason: e.Reason})
		}
		doc.Calendars = append(doc.Calendars, cf)
	}
	for _, r := range p.Resources {
		avail := r.Availability
		doc.Resources = append(doc.Resources, resFile{
			ID: r.ID, Name: r.Name, HourlyRate: r.HourlyRate, DailyHours: r.DailyHours,
			Availability: &avail, Calendar: r.CalendarID,
		})
	}
	for _, t := range p.Tasks {
		tf := taskFile{
			ID:           t.ID,
			Name:         t.Name,
			Type:         string(t.Type),
			EffortHours:  t.EffortHours,
			DurationDays: t.DurationDays,
			WorkUnits:    t.WorkUnits,
			Progress:     t.Progress,
			Status:       string(t.Status),
			StartDate:    formatOptDate(t.StartDate),
			DueDate:      formatOptDate(t.DueDate),
			ActualStart:  formatOptDate(t.ActualStart),
			CompletedAt:  formatOptDate(t.CompletedAt),
			ActualCost:   t.ActualCost,
			Dependencies: fromDeps(t.Dependencies),
		}
		for _, a := range t.Assignments {
			tf.Assignments = append(tf.Assignments, assignFile{
				Resource: a.ResourceID, Allocation: a.Allocation, Hours: a.Hours,
				FullTime: a.FullTime, Rate: a.RateOverride,
			})
		}
		doc.Tasks = append(doc.Tasks, tf)
	}
	for _, m := range p.Milestones {
		doc.Milestones = append(doc.Milestones, mileFile{
			ID:           m.ID,
			Name:         m.Name,
			TargetDate:   m.TargetDate.Format(calendar.Layout),
			Status:       string(m.Status),
			Dependencies: fromDeps(m.Dependencies),
		})
	}
	return doc
}

func fromDeps(in []project.Dependency) []depFile {
	var out []depFile
	for _, d := range in {
		out = append(out, depFile{Predecessor: d.PredecessorID, Type: string(d.Type), Lag: d.LagDays})
	}
	return out
}
