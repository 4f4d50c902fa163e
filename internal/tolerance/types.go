// Package tolerance evaluates dimensional tolerance stackups: worst case,
// root-sum-square and Monte Carlo, plus variance sensitivity and process
// capability of sampled results.
package tolerance

import (
	"github.com/go-playground/validator/v10"
)

// Distribution is the assumed shape of a feature's manufacturing variation.
type Distribution string

const (
	Normal     Distribution = "normal"
	Uniform    Distribution = "uniform"
	Triangular Distribution = "triangular"
	LogNormal  Distribution = "lognormal"
)

// Method selects an analysis.
type Method string

const (
	WorstCase  Method = "worst_case"
	RSS        Method = "rss"
	MonteCarlo Method = "monte_carlo"
)

// AllMethods is used when a stackup names none.
var AllMethods = []Method{WorstCase, RSS, MonteCarlo}

// MaxSamples caps a single Monte Carlo run.
const MaxSamples = 5_000_000

// DefaultSamples and DefaultConfidence fill unset Monte Carlo settings when a
// stackup is loaded from file.
const (
	DefaultSamples    = 10_000
	DefaultConfidence = 0.95
)

// Feature is a toleranced dimension.
type Feature struct {
	ID           string       `json:"id" yaml:"id" validate:"required"`
	Name         string       `json:"name" yaml:"name"`
	Nominal      float64      `json:"nominal" yaml:"nominal"`
	PlusTol      float64      `json:"plus_tol" yaml:"plus_tol" validate:"gte=0"`
	MinusTol     float64      `json:"minus_tol" yaml:"minus_tol" validate:"gte=0"`
	Distribution Distribution `json:"distribution" yaml:"distribution" validate:"oneof=normal uniform triangular lognormal"`
}

// Lower and Upper are the tolerance bounds.
func (f Feature) Lower() float64 { return f.Nominal - f.MinusTol }
func (f Feature) Upper() float64 { return f.Nominal + f.PlusTol }

// Contribution places one feature in a stackup. Direction is usually +1 or
// -1; a half-count contributes half (e.g. a radius taken from a diameter).
type Contribution struct {
	ComponentID string  `json:"component_id" yaml:"component_id"`
	FeatureID   string  `json:"feature_id" yaml:"feature_id" validate:"required"`
	Direction   float64 `json:"direction" yaml:"direction"`
	HalfCount   bool    `json:"half_count,omitempty" yaml:"half_count,omitempty"`
}

// Multiplier returns d·h.
func (c Contribution) Multiplier() float64 {
	if c.HalfCount {
		return c.Direction * 0.5
	}
	return c.Direction
}

// Limits are optional specification limits on the stackup result.
type Limits struct {
	LSL    *float64 `json:"lsl,omitempty" yaml:"lsl,omitempty"`
	USL    *float64 `json:"usl,omitempty" yaml:"usl,omitempty"`
	Target *float64 `json:"target,omitempty" yaml:"target,omitempty"`
}

// Any reports whether at least one limit is set.
func (l Limits) Any() bool { return l.LSL != nil || l.USL != nil }

// Both reports whether LSL and USL are set.
func (l Limits) Both() bool { return l.LSL != nil && l.USL != nil }

// MonteCarloSettings controls sampling.
type MonteCarloSettings struct {
	Samples    int     `json:"samples" yaml:"samples"`
	Seed       *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Stackup is an ordered chain of contributions evaluated against limits.
type Stackup struct {
	ID            string             `json:"id" yaml:"id" validate:"required"`
	Name          string             `json:"name" yaml:"name"`
	Contributions []Contribution     `json:"contributions" yaml:"contributions" validate:"dive"`
	Limits        Limits             `json:"limits" yaml:"limits"`
	MonteCarlo    MonteCarloSettings `json:"monte_carlo" yaml:"monte_carlo"`
	Methods       []Method           `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// Library is a set of features and the stackups built from them.
type Library struct {
	Features []Feature  `json:"features" yaml:"features"`
	Stackups []*Stackup `json:"stackups" yaml:"stackups"`
}

// Stackup returns the stackup with the given id, or nil.
func (l *Library) Stackup(id string) *Stackup {
	for _, s := range l.Stackups {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// ProgressObserver is told how many Monte Carlo samples are done. It is
// called on the sampling goroutine and must not call back into the engine.
type ProgressObserver interface {
	Progress(done, total int)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(done, total int)

func (f ProgressFunc) Progress(done, total int) { f(done, total) }

var validate = validator.New()
