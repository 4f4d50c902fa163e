package tolerance

import (
	"encoding/json"
	"math"

	"github.com/jackhale98/tessera/internal/errs"
)

// Index is a capability index. NaN means the index is undefined for the
// given limits; ±Inf arises from a zero spread.
type Index float64

// Defined reports whether the index could be computed.
func (i Index) Defined() bool { return !math.IsNaN(float64(i)) }

// MarshalJSON renders infinities as "+Inf"/"-Inf" and undefined as null.
func (i Index) MarshalJSON() ([]byte, error) {
	f := float64(i)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

var undefined = Index(math.NaN())

// Rating grades a capability index.
type Rating string

const (
	Excellent Rating = "excellent"
	Good      Rating = "good"
	Adequate  Rating = "adequate"
	Marginal  Rating = "marginal"
	Poor      Rating = "poor"
)

var ratingOrder = map[Rating]int{Poor: 0, Marginal: 1, Adequate: 2, Good: 3, Excellent: 4}

// Rate grades an index; undefined indices are Poor.
func Rate(i Index) Rating {
	f := float64(i)
	switch {
	case math.IsNaN(f):
		return Poor
	case f >= 1.67:
		return Excellent
	case f >= 1.33:
		return Good
	case f >= 1.0:
		return Adequate
	case f >= 0.67:
		return Marginal
	default:
		return Poor
	}
}

func worse(a, b Rating) Rating {
	if ratingOrder[a] <= ratingOrder[b] {
		return a
	}
	return b
}

// CapabilityReport describes how a sampled process sits inside its limits.
type CapabilityReport struct {
	Statistics Statistics `json:"statistics"`
	Limits     Limits     `json:"limits"`

	Cp  Index `json:"cp"`
	Cpk Index `json:"cpk"`
	Pp  Index `json:"pp"`
	Ppk Index `json:"ppk"`
	Cpm Index `json:"cpm"`

	Yield       float64 `json:"yield"`
	DefectRate  float64 `json:"defect_rate"`
	PPM         float64 `json:"ppm"`
	PPMAboveUSL float64 `json:"ppm_above_usl"`
	PPMBelowLSL float64 `json:"ppm_below_lsl"`
	SigmaLevel  float64 `json:"sigma_level"`

	CpRating        Rating   `json:"cp_rating"`
	CpkRating       Rating   `json:"cpk_rating"`
	Overall         Rating   `json:"overall"`
	Recommendations []string `json:"recommendations"`
}

// Capability computes process capability of samples against limits.
func Capability(samples []float64, lim Limits) (*CapabilityReport, error) {
	const op = "tolerance.Capability"
	if !lim.Any() {
		return nil, errs.New(errs.Configuration, op, "at least one of LSL and USL is required")
	}
	if lim.Both() && *lim.LSL >= *lim.USL {
		return nil, errs.New(errs.Configuration, op, "LSL %g must be below USL %g", *lim.LSL, *lim.USL)
	}
	if len(samples) == 0 {
		return nil, errs.New(errs.Configuration, op, "no samples")
	}

	st := ComputeStatistics(samples)
	r := &CapabilityReport{Statistics: st, Limits: lim}
	mu, s := st.Mean, st.StdDev

	r.Cp, r.Cpk, r.Cpm = undefined, undefined, undefined
	if lim.Both() {
		r.Cp = ratio(*lim.USL-*lim.LSL, 6*s)
	}
	cpk := Index(math.Inf(1))
	if lim.USL != nil {
		cpk = min(cpk, ratio(*lim.USL-mu, 3*s))
	}
	if lim.LSL != nil {
		cpk = min(cpk, ratio(mu-*lim.LSL, 3*s))
	}
	r.Cpk = cpk
	if lim.Both() && lim.Target != nil {
		d := mu - *lim.Target
		r.Cpm = ratio(*lim.USL-*lim.LSL, 6*math.Sqrt(s*s+d*d))
	}
	r.Pp, r.Ppk = r.Cp, r.Cpk

	var above, below int
	for _, x := range samples {
		switch {
		case lim.USL != nil && x > *lim.USL:
			above++
		case lim.LSL != nil && x < *lim.LSL:
			below++
		}
	}
	n := float64(len(samples))
	r.Yield = (n - float64(above+below)) / n
	r.DefectRate = 1 - r.Yield
	r.PPM = r.DefectRate * 1e6
	r.PPMAboveUSL = float64(above) / n * 1e6
	r.PPMBelowLSL = float64(below) / n * 1e6
	r.SigmaLevel = SigmaLevel(r.Yield)

	r.CpRating = Rate(r.Cp)
	r.CpkRating = Rate(r.Cpk)
	switch {
	case r.Cp.Defined():
		r.Overall = worse(r.CpRating, r.CpkRating)
	default:
		r.Overall = r.CpkRating
	}
	r.Recommendations = recommendations(r)
	return r, nil
}

// ratio divides a margin by a spread. A zero spread yields +Inf for a
// non-negative margin and -Inf otherwise.
func ratio(margin, spread float64) Index {
	if spread == 0 {
		if margin >= 0 {
			return Index(math.Inf(1))
		}
		return Index(math.Inf(-1))
	}
	return Index(margin / spread)
}

// SigmaLevel maps a yield fraction to the short-term sigma step table.
func SigmaLevel(yield float64) float64 {
	switch {
	case yield >= 0.9999966:
		return 6
	case yield >= 0.999937:
		return 5
	case yield >= 0.9987:
		return 4
	case yield >= 0.9973:
		return 3
	case yield >= 0.9545:
		return 2
	default:
		return 1
	}
}

func recommendations(r *CapabilityReport) []string {
	var out []string
	switch r.Overall {
	case Excellent:
		out = append(out, "Process is excellent. Consider cost optimization.")
	case Good:
		out = append(out, "Process is good. Monitor for consistency.")
	case Adequate:
		out = append(out, "Process is adequate. Look for improvement opportunities.")
	case Marginal:
		out = append(out, "Process needs improvement. Focus on variance reduction.")
	default:
		out = append(out, "Process requires immediate attention. Major improvements needed.")
	}
	if r.Cp.Defined() && r.Cpk.Defined() && float64(r.Cp) > float64(r.Cpk)+0.2 {
		out = append(out, "Process is not well-centered. Adjust process mean.")
	}
	if r.Cp.Defined() && float64(r.Cp) < 1.33 {
		out = append(out, "Process spread is too wide. Reduce process variation.")
	}
	if r.SigmaLevel < 3 {
		out = append(out, "Sigma level is below 3. Implement process controls.")
	}
	if r.PPM > 1000 {
		out = append(out, "Defect rate is high. Investigate root causes.")
	}
	return out
}
