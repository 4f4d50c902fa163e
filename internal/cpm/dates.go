package cpm

import (
	"fmt"
	"time"

	"github.com/jackhale98/tessera/internal/calendar"
)

// dater maps day offsets to civil dates. In working mode the first
// calendar overflow is kept in err and later lookups return the zero time;
// Compute then reruns in calendar mode.
type dater struct {
	start time.Time
	base  time.Time // first working day >= start
	cal   *calendar.Calendar
	mode  DateMode
	cache map[int]time.Time
	err   error
}

func newDater(start time.Time, cal *calendar.Calendar, mode DateMode) *dater {
	start = calendar.Truncate(start)
	d := &dater{start: start, base: start, cal: cal, mode: mode, cache: make(map[int]time.Time)}
	if mode == WorkingDays && !cal.IsWorkingDay(start) {
		next := cal.NextWorkingDay(start)
		if next.Equal(start) {
			d.err = fmt.Errorf("no working day within reach of %s", start.Format(calendar.Layout))
		}
		d.base = next
	}
	return d
}

// date returns the civil date of offset n.
func (d *dater) date(n int) time.Time {
	if d.mode == CalendarDays {
		return d.start.AddDate(0, 0, n)
	}
	if d.err != nil {
		return time.Time{}
	}
	if t, ok := d.cache[n]; ok {
		return t
	}
	t, err := d.cal.Advance(d.base, float64(n))
	if err != nil {
		d.err = err
		return time.Time{}
	}
	d.cache[n] = t
	return t
}

// offset returns the offset of the day containing t.
func (d *dater) offset(t time.Time) int {
	t = calendar.Truncate(t)
	if d.mode == CalendarDays || t.Before(d.base) {
		return calendar.DaysBetween(d.base, t)
	}
	n := -1
	for cur := d.base; !cur.After(t); cur = cur.AddDate(0, 0, 1) {
		if d.cal.IsWorkingDay(cur) {
			n++
		}
	}
	if n < 0 {
		return 0
	}
	return n
}

// boundary is the end-of-day offset of t: the first offset after it.
func (d *dater) boundary(t time.Time) int {
	return d.offset(t) + 1
}

// finish dates the last day of a window. Zero-length windows are dated at
// the end of the day their constraints are met.
func (d *dater) finish(es, ef int) time.Time {
	if ef > es {
		return d.date(ef - 1)
	}
	if es > 0 {
		return d.date(es - 1)
	}
	return d.date(es)
}

func (d *dater) startOf(es, ef int) time.Time {
	if ef > es {
		return d.date(es)
	}
	return d.finish(es, ef)
}
