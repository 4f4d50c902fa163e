// Package calendar classifies civil dates as working or non-working and does
// working-day arithmetic on them.
package calendar

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jackhale98/tessera/internal/errs"
)

// Epsilon is the remainder below which a working-day budget counts as spent.
const Epsilon = 1e-3

// searchLimit bounds NextWorkingDay / PreviousWorkingDay.
const searchLimit = 3650

// ExceptionKind overrides the normal classification of a single date.
type ExceptionKind string

const (
	Working    ExceptionKind = "working"
	NonWorking ExceptionKind = "non_working"
	HalfDay    ExceptionKind = "half_day"
)

// Holiday is a non-working date. Recurring holidays match on month and day
// in every year.
type Holiday struct {
	Name      string    `json:"name" validate:"required"`
	Date      time.Time `json:"date"`
	Recurring bool      `json:"recurring"`
}

// Exception forces the classification of one date.
type Exception struct {
	Date   time.Time     `json:"date"`
	Kind   ExceptionKind `json:"kind" validate:"oneof=working non_working half_day"`
	Reason string        `json:"reason,omitempty"`
}

// Calendar describes working time for a project or a resource.
type Calendar struct {
	ID          string         `json:"id"`
	Name        string         `json:"name" validate:"required"`
	WorkingDays []time.Weekday `json:"working_days" validate:"min=1,dive,gte=0,lte=6"`
	HoursPerDay float64        `json:"hours_per_day" validate:"gt=0,lte=24"`
	StartHour   int            `json:"start_hour" validate:"gte=0,lt=24"`
	EndHour     int            `json:"end_hour" validate:"gt=0,lte=24"`
	Holidays    []Holiday      `json:"holidays,omitempty" validate:"dive"`
	Exceptions  []Exception    `json:"exceptions,omitempty" validate:"dive"`
}

var validate = validator.New()

// Default returns a Monday to Friday, 09:00-17:00 calendar.
func Default() *Calendar {
	return &Calendar{
		ID:          "standard",
		Name:        "Standard",
		WorkingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		HoursPerDay: 8,
		StartHour:   9,
		EndHour:     17,
	}
}

// Validate checks the calendar's invariants.
func (c *Calendar) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Wrap(errs.Validation, "calendar.Validate", err)
	}
	if c.StartHour >= c.EndHour {
		return errs.New(errs.Validation, "calendar.Validate",
			"calendar %q: start hour %d must be before end hour %d", c.Name, c.StartHour, c.EndHour)
	}
	return nil
}

// AddHoliday appends a holiday.
func (c *Calendar) AddHoliday(name string, date time.Time, recurring bool) {
	c.Holidays = append(c.Holidays, Holiday{Name: name, Date: Truncate(date), Recurring: recurring})
}

// AddException sets the exception for a date, replacing any existing one.
func (c *Calendar) AddException(date time.Time, kind ExceptionKind, reason string) {
	date = Truncate(date)
	for i := range c.Exceptions {
		if sameDay(c.Exceptions[i].Date, date) {
			c.Exceptions[i] = Exception{Date: date, Kind: kind, Reason: reason}
			return
		}
	}
	c.Exceptions = append(c.Exceptions, Exception{Date: date, Kind: kind, Reason: reason})
}

func (c *Calendar) exception(d time.Time) (Exception, bool) {
	for _, e := range c.Exceptions {
		if sameDay(e.Date, d) {
			return e, true
		}
	}
	return Exception{}, false
}

func (c *Calendar) isHoliday(d time.Time) bool {
	for _, h := range c.Holidays {
		if h.Recurring {
			if h.Date.Month() == d.Month() && h.Date.Day() == d.Day() {
				return true
			}
			continue
		}
		if sameDay(h.Date, d) {
			return true
		}
	}
	return false
}

func (c *Calendar) isWorkingWeekday(wd time.Weekday) bool {
	for _, w := range c.WorkingDays {
		if w == wd {
			return true
		}
	}
	return false
}

// IsWorkingDay classifies d. Exceptions override holidays, holidays override
// the weekday set.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	d = Truncate(d)
	if e, ok := c.exception(d); ok {
		return e.Kind != NonWorking
	}
	if c.isHoliday(d) {
		return false
	}
	return c.isWorkingWeekday(d.Weekday())
}

// WorkingHours returns the hours available on d.
func (c *Calendar) WorkingHours(d time.Time) float64 {
	d = Truncate(d)
	if e, ok := c.exception(d); ok {
		switch e.Kind {
		case NonWorking:
			return 0
		case HalfDay:
			return c.HoursPerDay / 2
		default:
			return c.HoursPerDay
		}
	}
	if !c.IsWorkingDay(d) {
		return 0
	}
	return c.HoursPerDay
}

// Advance moves k working days forward from d, counting from the day after
// d. Half days consume half a day of budget. When the iteration bound is hit
// the original date is returned together with an Overflow error.
func (c *Calendar) Advance(d time.Time, k float64) (time.Time, error) {
	if k < 0 {
		return c.Retreat(d, -k)
	}
	return c.step(d, k, 1, "calendar.Advance")
}

// Retreat moves k working days backwards from d, counting from the day
// before d.
func (c *Calendar) Retreat(d time.Time, k float64) (time.Time, error) {
	if k < 0 {
		return c.Advance(d, -k)
	}
	return c.step(d, k, -1, "calendar.Retreat")
}

func (c *Calendar) step(d time.Time, k float64, dir int, op string) (time.Time, error) {
	d = Truncate(d)
	if k <= Epsilon {
		return d, nil
	}
	limit := int(10*k) + 365
	remaining := k
	cur := d
	for i := 0; i < limit; i++ {
		cur = cur.AddDate(0, 0, dir)
		remaining -= c.WorkingHours(cur) / c.HoursPerDay
		if remaining <= Epsilon {
			return cur, nil
		}
	}
	return d, errs.New(errs.Overflow, op, "no %.2f working days within %d days of %s", k, limit, d.Format(Layout))
}

// NextWorkingDay returns the first working day strictly after d, or d itself
// when none is found within the search bound.
func (c *Calendar) NextWorkingDay(d time.Time) time.Time {
	return c.search(d, 1)
}

// PreviousWorkingDay returns the last working day strictly before d, or d
// itself when none is found within the search bound.
func (c *Calendar) PreviousWorkingDay(d time.Time) time.Time {
	return c.search(d, -1)
}

func (c *Calendar) search(d time.Time, dir int) time.Time {
	d = Truncate(d)
	cur := d
	for i := 0; i < searchLimit; i++ {
		cur = cur.AddDate(0, 0, dir)
		if c.IsWorkingDay(cur) {
			return cur
		}
	}
	return d
}

// WorkingDaysBetween sums WorkingHours/H over the inclusive range [d1, d2].
func (c *Calendar) WorkingDaysBetween(d1, d2 time.Time) float64 {
	return c.WorkingHoursBetween(d1, d2) / c.HoursPerDay
}

// WorkingHoursBetween sums working hours over the inclusive range [d1, d2].
func (c *Calendar) WorkingHoursBetween(d1, d2 time.Time) float64 {
	d1, d2 = Truncate(d1), Truncate(d2)
	total := 0.0
	for cur := d1; !cur.After(d2); cur = cur.AddDate(0, 0, 1) {
		total += c.WorkingHours(cur)
	}
	return total
}

// String implements fmt.Stringer.
func (c *Calendar) String() string {
	return fmt.Sprintf("%s (%d days/week, %.1fh/day)", c.Name, len(c.WorkingDays), c.HoursPerDay)
}

// Layout is the civil date format used across the toolkit.
const Layout = "2006-01-02"

// Date builds a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Parse reads a civil date in Layout.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.Validation, "calendar.Parse", err)
	}
	return t, nil
}

// Truncate drops the time of day, keeping the civil date of t.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Truncate(b).Sub(Truncate(a)).Hours() / 24))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
