package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhale98/tessera/internal/errs"
)

// 2024-01-01 is a Monday.
var monday = Date(2024, time.January, 1)

func TestIsWorkingDay_Precedence(t *testing.T) {
	c := Default()
	sat := Date(2024, time.January, 6)
	tue := Date(2024, time.January, 2)

	assert.True(t, c.IsWorkingDay(monday))
	assert.False(t, c.IsWorkingDay(sat))

	c.AddHoliday("New Year", monday, true)
	assert.False(t, c.IsWorkingDay(monday), "holiday beats weekday")
	assert.False(t, c.IsWorkingDay(Date(2031, time.January, 1)), "recurring holiday matches any year")

	c.AddException(monday, Working, "year-end push")
	assert.True(t, c.IsWorkingDay(monday), "exception beats holiday")

	c.AddException(sat, HalfDay, "release")
	assert.True(t, c.IsWorkingDay(sat), "half day counts as working")
	assert.Equal(t, 4.0, c.WorkingHours(sat))

	c.AddException(tue, NonWorking, "offsite")
	assert.False(t, c.IsWorkingDay(tue))
	assert.Equal(t, 0.0, c.WorkingHours(tue))
}

func TestAddException_Replaces(t *testing.T) {
	c := Default()
	c.AddException(monday, NonWorking, "a")
	c.AddException(monday, HalfDay, "b")
	require.Len(t, c.Exceptions, 1)
	assert.Equal(t, HalfDay, c.Exceptions[0].Kind)
}

func TestAdvance(t *testing.T) {
	c := Default()

	got, err := c.Advance(monday, 0)
	require.NoError(t, err)
	assert.Equal(t, monday, got)

	got, err = c.Advance(monday, 1)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.January, 2), got)

	// Friday + 1 skips the weekend.
	got, err = c.Advance(Date(2024, time.January, 5), 1)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.January, 8), got)

	got, err = c.Advance(monday, 5)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.January, 8), got)
}

func TestAdvance_HalfDaysAccrue(t *testing.T) {
	c := Default()
	c.AddException(Date(2024, time.January, 2), HalfDay, "")
	c.AddException(Date(2024, time.January, 3), HalfDay, "")

	got, err := c.Advance(monday, 1)
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.January, 3), got, "two half days make one working day")
}

func TestRetreat(t *testing.T) {
	c := Default()
	got, err := c.Retreat(monday, 1)
	require.NoError(t, err)
	assert.Equal(t, Date(2023, time.December, 29), got)

	got, err = c.Advance(monday, -1)
	require.NoError(t, err)
	assert.Equal(t, Date(2023, time.December, 29), got, "negative advance retreats")
}

func TestAdvance_Overflow(t *testing.T) {
	c := Default()
	c.WorkingDays = []time.Weekday{}
	got, err := c.Advance(monday, 3)
	assert.True(t, errs.Is(err, errs.Overflow))
	assert.Equal(t, monday, got, "bounded arithmetic returns the original date")
}

func TestNextPreviousWorkingDay(t *testing.T) {
	c := Default()
	fri := Date(2024, time.January, 5)
	assert.Equal(t, Date(2024, time.January, 8), c.NextWorkingDay(fri))
	assert.Equal(t, fri, c.PreviousWorkingDay(Date(2024, time.January, 8)))

	c.WorkingDays = nil
	assert.Equal(t, fri, c.NextWorkingDay(fri), "no working day within bound")
	assert.Equal(t, fri, c.PreviousWorkingDay(fri))
}

func TestWorkingDaysBetween(t *testing.T) {
	c := Default()
	assert.Equal(t, 5.0, c.WorkingDaysBetween(monday, Date(2024, time.January, 7)))
	assert.Equal(t, 1.0, c.WorkingDaysBetween(monday, monday))
	assert.Equal(t, 0.0, c.WorkingDaysBetween(Date(2024, time.January, 7), monday))

	c.AddException(Date(2024, time.January, 3), HalfDay, "")
	assert.Equal(t, 4.5, c.WorkingDaysBetween(monday, Date(2024, time.January, 5)))
	assert.Equal(t, 36.0, c.WorkingHoursBetween(monday, Date(2024, time.January, 5)))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	c := Default()
	c.HoursPerDay = 0
	assert.True(t, errs.Is(c.Validate(), errs.Validation))

	c = Default()
	c.HoursPerDay = 25
	assert.True(t, errs.Is(c.Validate(), errs.Validation))

	c = Default()
	c.StartHour, c.EndHour = 17, 9
	assert.True(t, errs.Is(c.Validate(), errs.Validation))
}

func TestDateHelpers(t *testing.T) {
	d, err := Parse("2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, 2, DaysBetween(monday, d))
	assert.Equal(t, -2, DaysBetween(d, monday))

	withTime := time.Date(2024, time.January, 3, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, d, Truncate(withTime))

	_, err = Parse("03/01/2024")
	assert.True(t, errs.Is(err, errs.Validation))
}
