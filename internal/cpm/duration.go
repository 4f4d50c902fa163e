package cpm

import (
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/jackhale98/tessera/internal/errs"
	"github.com/jackhale98/tessera/internal/project"
)

// Config tunes duration derivation and date mapping.
type Config struct {
	HoursPerDay float64  `mapstructure:"hours_per_day" validate:"gt=0,lte=24"`
	Buffer      float64  `mapstructure:"buffer" validate:"gte=0,lte=1"`
	DateMode    DateMode `mapstructure:"date_mode" validate:"oneof=calendar working"`
}

// DefaultConfig returns H = 8, a 10% buffer and calendar-day dates.
func DefaultConfig() Config {
	return Config{HoursPerDay: 8, Buffer: 0.10, DateMode: CalendarDays}
}

var validate = validator.New()

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Wrap(errs.Configuration, "cpm.Config", err)
	}
	return nil
}

// Duration returns a task's duration in whole days, buffer included.
func Duration(t *project.Task, cfg Config) int {
	a := project.AllocationSum(t)
	var days float64
	switch t.Type {
	case project.MilestoneTask:
		return 0
	case project.FixedDuration:
		days = 1
		if t.DurationDays != nil {
			days = float64(*t.DurationDays)
		}
	case project.FixedWork:
		w := t.EffortHours
		if t.WorkUnits != nil {
			w = *t.WorkUnits
		}
		days = math.Ceil(w / (a * cfg.HoursPerDay))
	default:
		days = math.Ceil(t.EffortHours / a / cfg.HoursPerDay)
	}
	d := int(math.Ceil(days * (1 + cfg.Buffer)))
	if d < 0 {
		return 0
	}
	return d
}
