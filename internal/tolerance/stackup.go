package tolerance

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jackhale98/tessera/internal/errs"
)

// WorstCaseResult is the arithmetic extreme of the stack.
type WorstCaseResult struct {
	Nominal float64  `json:"nominal"`
	Plus    float64  `json:"plus"`
	Minus   float64  `json:"minus"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Cp      *float64 `json:"cp,omitempty"`
	Cpk     *float64 `json:"cpk,omitempty"`
}

// RSSResult is the statistical (root-sum-square) estimate of the stack.
type RSSResult struct {
	Nominal   float64  `json:"nominal"`
	Tolerance float64  `json:"tolerance"`
	Sigma     float64  `json:"sigma"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Cp        *float64 `json:"cp,omitempty"`
	Cpk       *float64 `json:"cpk,omitempty"`
	Yield     *float64 `json:"yield,omitempty"`
}

// Quartiles uses the order statistics at int(n·p).
type Quartiles struct {
	Min    float64 `json:"min"`
	P5     float64 `json:"p5"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
	IQR    float64 `json:"iqr"`
}

// SigmaBand is the empirical spread around the mean.
type SigmaBand struct {
	Plus  float64 `json:"plus"`
	Minus float64 `json:"minus"`
}

// Interval is a central confidence interval.
type Interval struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// MonteCarloResult holds the sampled distribution of the stack.
type MonteCarloResult struct {
	Statistics  Statistics        `json:"statistics"`
	Percentiles []Percentile      `json:"percentiles"`
	Quartiles   Quartiles         `json:"quartiles"`
	ThreeSigma  SigmaBand         `json:"three_sigma"`
	Confidence  Interval          `json:"confidence"`
	Capability  *CapabilityReport `json:"capability,omitempty"`
	Samples     []float64         `json:"-"`
}

// StackupResult collects the requested analyses.
type StackupResult struct {
	StackupID  string            `json:"stackup_id"`
	Name       string            `json:"name"`
	Nominal    float64           `json:"nominal"`
	Limits     Limits            `json:"limits"`
	WorstCase  *WorstCaseResult  `json:"worst_case,omitempty"`
	RSS        *RSSResult        `json:"rss,omitempty"`
	MonteCarlo *MonteCarloResult `json:"monte_carlo,omitempty"`
}

// Option tunes Analyze.
type Option func(*analyzer)

// WithObserver reports Monte Carlo progress to obs.
func WithObserver(obs ProgressObserver) Option {
	return func(a *analyzer) { a.observer = obs }
}

type analyzer struct {
	observer ProgressObserver
}

// term is a resolved contribution.
type term struct {
	feature Feature
	m       float64
	c       Contribution
}

// resolve checks the stackup against the feature list and pairs each
// contribution with its feature.
func resolve(op string, st *Stackup, features []Feature) ([]term, error) {
	if st == nil {
		return nil, errs.New(errs.Validation, op, "nil stackup")
	}
	if len(st.Contributions) == 0 {
		return nil, errs.New(errs.Validation, op, "stackup %q has no contributions", st.ID)
	}
	byID := make(map[string]Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}
	terms := make([]term, 0, len(st.Contributions))
	for _, c := range st.Contributions {
		f, ok := byID[c.FeatureID]
		if !ok {
			return nil, errs.New(errs.Validation, op, "stackup %q references unknown feature %q", st.ID, c.FeatureID)
		}
		if err := checkFeature(op, f); err != nil {
			return nil, err
		}
		terms = append(terms, term{feature: f, m: c.Multiplier(), c: c})
	}
	if st.Limits.Both() && *st.Limits.LSL >= *st.Limits.USL {
		return nil, errs.New(errs.Configuration, op, "LSL %g must be below USL %g", *st.Limits.LSL, *st.Limits.USL)
	}
	return terms, nil
}

func wantsMethod(st *Stackup, m Method) bool {
	if len(st.Methods) == 0 {
		return true
	}
	for _, x := range st.Methods {
		if x == m {
			return true
		}
	}
	return false
}

// Analyze runs the stackup's methods (all of them when none are named).
func Analyze(st *Stackup, features []Feature, opts ...Option) (*StackupResult, error) {
	const op = "tolerance.Analyze"
	a := &analyzer{}
	for _, o := range opts {
		o(a)
	}
	terms, err := resolve(op, st, features)
	if err != nil {
		return nil, err
	}

	res := &StackupResult{StackupID: st.ID, Name: st.Name, Limits: st.Limits}
	for _, t := range terms {
		res.Nominal += t.m * t.feature.Nominal
	}
	if wantsMethod(st, WorstCase) {
		res.WorstCase = worstCase(terms, st.Limits)
	}
	if wantsMethod(st, RSS) {
		res.RSS = rss(terms, st.Limits)
	}
	if wantsMethod(st, MonteCarlo) {
		mc, err := monteCarlo(NewEngine(st.MonteCarlo.Seed), terms, st, a.observer)
		if err != nil {
			return nil, err
		}
		res.MonteCarlo = mc
	}
	return res, nil
}

func worstCase(terms []term, lim Limits) *WorstCaseResult {
	r := &WorstCaseResult{}
	for _, t := range terms {
		r.Nominal += t.m * t.feature.Nominal
		if t.m >= 0 {
			r.Plus += t.m * t.feature.PlusTol
			r.Minus += t.m * t.feature.MinusTol
		} else {
			r.Plus += -t.m * t.feature.MinusTol
			r.Minus += -t.m * t.feature.PlusTol
		}
	}
	r.Min = r.Nominal - r.Minus
	r.Max = r.Nominal + r.Plus

	window := r.Plus + r.Minus
	if lim.Both() && window > 0 {
		usl, lsl := *lim.USL, *lim.LSL
		cp := (usl - lsl) / window
		cpk := math.Min(usl-r.Nominal, r.Nominal-lsl) / (window / 2)
		r.Cp, r.Cpk = &cp, &cpk
	}
	return r
}

func rss(terms []term, lim Limits) *RSSResult {
	r := &RSSResult{}
	sumSq := 0.0
	for _, t := range terms {
		r.Nominal += t.m * t.feature.Nominal
		half := t.m * (t.feature.PlusTol + t.feature.MinusTol) / 2
		sumSq += half * half
	}
	r.Tolerance = math.Sqrt(sumSq)
	r.Sigma = r.Tolerance / 3
	r.Min = r.Nominal - r.Tolerance
	r.Max = r.Nominal + r.Tolerance

	if !lim.Any() || r.Sigma == 0 {
		return r
	}
	n := distuv.Normal{Mu: r.Nominal, Sigma: r.Sigma}
	y := 1.0
	cpk := math.Inf(1)
	if lim.USL != nil {
		y -= 1 - n.CDF(*lim.USL)
		cpk = math.Min(cpk, (*lim.USL-r.Nominal)/(3*r.Sigma))
	}
	if lim.LSL != nil {
		y -= n.CDF(*lim.LSL)
		cpk = math.Min(cpk, (r.Nominal-*lim.LSL)/(3*r.Sigma))
	}
	y = math.Max(0, y)
	r.Yield, r.Cpk = &y, &cpk
	if lim.Both() {
		cp := (*lim.USL - *lim.LSL) / (6 * r.Sigma)
		r.Cp = &cp
	}
	return r
}

const progressEvery = 100

func monteCarlo(e *Engine, terms []term, st *Stackup, obs ProgressObserver) (*MonteCarloResult, error) {
	const op = "tolerance.Analyze"
	n := st.MonteCarlo.Samples
	if n <= 0 {
		return nil, errs.New(errs.Configuration, op, "stackup %q: sample count must be positive, got %d", st.ID, n)
	}
	if n > MaxSamples {
		return nil, errs.New(errs.MCBudgetExceeded, op, "stackup %q: %d samples exceeds the limit of %d", st.ID, n, MaxSamples)
	}
	conf := st.MonteCarlo.Confidence
	if conf == 0 {
		conf = DefaultConfidence
	}
	if conf <= 0 || conf >= 1 {
		return nil, errs.New(errs.Configuration, op, "confidence %g must be in (0, 1)", conf)
	}

	// Calls are at least progressEvery samples apart. A run shorter than
	// that reports once, on completion.
	samples := make([]float64, n)
	reported := 0
	for i := range samples {
		y := 0.0
		for _, t := range terms {
			y += t.m * e.draw(t.feature)
		}
		samples[i] = y
		if obs != nil && (i+1)%progressEvery == 0 {
			obs.Progress(i+1, n)
			reported = i + 1
		}
	}
	if obs != nil && reported == 0 {
		obs.Progress(n, n)
	}

	sorted := sortedCopy(samples)
	stats := ComputeStatistics(samples)
	r := &MonteCarloResult{
		Statistics:  stats,
		Percentiles: Percentiles(sorted),
		Quartiles: Quartiles{
			Min:    sorted[0],
			P5:     orderStat(sorted, 0.05),
			Q1:     orderStat(sorted, 0.25),
			Median: orderStat(sorted, 0.50),
			Q3:     orderStat(sorted, 0.75),
			P95:    orderStat(sorted, 0.95),
			Max:    sorted[n-1],
		},
		ThreeSigma: SigmaBand{
			Plus:  orderStat(sorted, 0.99865) - stats.Mean,
			Minus: stats.Mean - orderStat(sorted, 0.00135),
		},
		Samples: samples,
	}
	r.Quartiles.IQR = r.Quartiles.Q3 - r.Quartiles.Q1

	alpha := 1 - conf
	r.Confidence = Interval{
		Level: conf,
		Lower: orderStat(sorted, alpha/2),
		Upper: orderStat(sorted, 1-alpha/2),
	}

	if st.Limits.Any() {
		report, err := Capability(samples, st.Limits)
		if err != nil {
			return nil, err
		}
		r.Capability = report
	}
	return r, nil
}
