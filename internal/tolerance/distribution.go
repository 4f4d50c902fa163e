package tolerance

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jackhale98/tessera/internal/errs"
)

// Params describes a feature's distribution.
type Params struct {
	Distribution Distribution `json:"distribution"`
	Mean         float64      `json:"mean"`
	StdDev       float64      `json:"std_dev"`
	Min          float64      `json:"min"`
	Max          float64      `json:"max"`
	Mode         *float64     `json:"mode,omitempty"`
}

// Statistics summarises a sample.
type Statistics struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
}

// Percentile is one rung of the percentile ladder.
type Percentile struct {
	P     float64 `json:"p"`
	Value float64 `json:"value"`
}

// Ladder is the fixed set of reported percentiles.
var Ladder = []float64{0.1, 1, 5, 10, 25, 50, 75, 90, 95, 99, 99.9}

// Engine draws feature samples from a single generator. An Engine is not safe
// for concurrent use; give each goroutine its own.
type Engine struct {
	rng *rand.Rand
}

// NewEngine returns an engine seeded with *seed, or randomly when seed is nil.
func NewEngine(seed *uint64) *Engine {
	if seed == nil {
		return &Engine{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &Engine{rng: rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))}
}

func checkFeature(op string, f Feature) error {
	if err := validate.Struct(f); err != nil {
		return errs.Wrap(errs.Validation, op, err)
	}
	if f.Distribution == LogNormal && f.Lower() <= 0 {
		return errs.New(errs.Validation, op,
			"feature %q: lognormal needs a positive lower bound, got %g", f.ID, f.Lower())
	}
	return nil
}

func sigma(f Feature) float64 {
	total := f.PlusTol + f.MinusTol
	switch f.Distribution {
	case Uniform:
		return total / math.Sqrt(12)
	case Triangular:
		return total / math.Sqrt(24)
	default:
		return total / 6
	}
}

// Parameters derives the distribution parameters of a feature.
func (e *Engine) Parameters(f Feature) (Params, error) {
	if err := checkFeature("tolerance.Parameters", f); err != nil {
		return Params{}, err
	}
	p := Params{
		Distribution: f.Distribution,
		Mean:         f.Nominal,
		StdDev:       sigma(f),
		Min:          f.Lower(),
		Max:          f.Upper(),
	}
	if f.Distribution == Triangular {
		mode := f.Nominal
		p.Mode = &mode
	}
	return p, nil
}

// Variance returns the analytic variance of a feature.
func Variance(f Feature) float64 {
	s := sigma(f)
	return s * s
}

// SampleFeature draws one value.
func (e *Engine) SampleFeature(f Feature) (float64, error) {
	if err := checkFeature("tolerance.SampleFeature", f); err != nil {
		return 0, err
	}
	return e.draw(f), nil
}

// draw assumes f has been checked.
func (e *Engine) draw(f Feature) float64 {
	switch f.Distribution {
	case Uniform:
		lo, hi := f.Lower(), f.Upper()
		return lo + e.rng.Float64()*(hi-lo)
	case Triangular:
		return triangular(f.Lower(), f.Upper(), f.Nominal, e.rng.Float64())
	case LogNormal:
		s := sigma(f) / f.Nominal
		return math.Exp(math.Log(f.Nominal) + s*e.rng.NormFloat64())
	default:
		return f.Nominal + sigma(f)*e.rng.NormFloat64()
	}
}

// triangular inverts the triangular CDF on [a, b] with mode c at u.
func triangular(a, b, c, u float64) float64 {
	if b <= a {
		return c
	}
	fc := (c - a) / (b - a)
	if u < fc {
		return a + math.Sqrt(u*(b-a)*(c-a))
	}
	return b - math.Sqrt((1-u)*(b-a)*(b-c))
}

// Samples draws n values of one feature.
func (e *Engine) Samples(f Feature, n int) ([]float64, error) {
	if err := checkFeature("tolerance.Samples", f); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errs.New(errs.Configuration, "tolerance.Samples", "negative sample count %d", n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = e.draw(f)
	}
	return out, nil
}

// Percentiles evaluates the ladder on a sorted copy of samples.
func Percentiles(samples []float64) []Percentile {
	if len(samples) == 0 {
		return nil
	}
	sorted := sortedCopy(samples)
	n := len(sorted)
	out := make([]Percentile, len(Ladder))
	for i, p := range Ladder {
		idx := int(math.Round(p / 100 * float64(n-1)))
		out[i] = Percentile{P: p, Value: sorted[idx]}
	}
	return out
}

// ComputeStatistics summarises samples with an n-1 variance.
func ComputeStatistics(samples []float64) Statistics {
	n := len(samples)
	if n == 0 {
		return Statistics{}
	}
	s := Statistics{
		Count: n,
		Min:   floats.Min(samples),
		Max:   floats.Max(samples),
	}
	s.Range = s.Max - s.Min
	if n == 1 {
		s.Mean = samples[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(samples, nil)
	s.Variance = s.StdDev * s.StdDev
	return s
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}

// orderStat returns sorted[int(q·n)], clamped to the last element.
func orderStat(sorted []float64, q float64) float64 {
	idx := int(q * float64(len(sorted)))
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
