package tolerance

import (
	"fmt"
	"math"
	"sort"
)

// Impact buckets a contribution's share of the total variance.
type Impact string

const (
	HighImpact   Impact = "high"
	MediumImpact Impact = "medium"
	LowImpact    Impact = "low"
)

func classifyImpact(percent float64) Impact {
	switch {
	case percent >= 50:
		return HighImpact
	case percent >= 25:
		return MediumImpact
	default:
		return LowImpact
	}
}

// SensitivityItem is one contribution's share of the stack variance.
type SensitivityItem struct {
	ComponentID string  `json:"component_id"`
	FeatureID   string  `json:"feature_id"`
	FeatureName string  `json:"feature_name"`
	Multiplier  float64 `json:"multiplier"`
	Variance    float64 `json:"variance"`
	StdDev      float64 `json:"std_dev"`
	Percent     float64 `json:"percent"`
	Rank        int     `json:"rank"`
	Impact      Impact  `json:"impact"`
}

// SensitivityReport ranks contributions by variance share.
type SensitivityReport struct {
	StackupID     string            `json:"stackup_id"`
	StackupName   string            `json:"stackup_name"`
	TotalVariance float64           `json:"total_variance"`
	TotalStdDev   float64           `json:"total_std_dev"`
	Contributions []SensitivityItem `json:"contributions"`
}

// Sensitivity computes each contribution's share of the analytic stack
// variance. It draws no samples.
func Sensitivity(st *Stackup, features []Feature) (*SensitivityReport, error) {
	terms, err := resolve("tolerance.Sensitivity", st, features)
	if err != nil {
		return nil, err
	}

	r := &SensitivityReport{StackupID: st.ID, StackupName: st.Name}
	items := make([]SensitivityItem, len(terms))
	for i, t := range terms {
		v := t.m * t.m * Variance(t.feature)
		items[i] = SensitivityItem{
			ComponentID: t.c.ComponentID,
			FeatureID:   t.feature.ID,
			FeatureName: t.feature.Name,
			Multiplier:  t.m,
			Variance:    v,
			StdDev:      math.Sqrt(v),
		}
		r.TotalVariance += v
	}
	r.TotalStdDev = math.Sqrt(r.TotalVariance)

	for i := range items {
		if r.TotalVariance > 0 {
			items[i].Percent = items[i].Variance / r.TotalVariance * 100
		}
		items[i].Impact = classifyImpact(items[i].Percent)
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].Percent > items[b].Percent })
	for i := range items {
		items[i].Rank = i + 1
	}
	r.Contributions = items
	return r, nil
}

// CriticalFeatures returns contributions at or above threshold percent.
func (r *SensitivityReport) CriticalFeatures(threshold float64) []SensitivityItem {
	var out []SensitivityItem
	for _, c := range r.Contributions {
		if c.Percent >= threshold {
			out = append(out, c)
		}
	}
	return out
}

// CumulativePercent sums the shares of the top upToRank contributions.
func (r *SensitivityReport) CumulativePercent(upToRank int) float64 {
	total := 0.0
	for i, c := range r.Contributions {
		if i >= upToRank {
			break
		}
		total += c.Percent
	}
	return total
}

// Suggestion proposes tightening one feature's tolerance.
type Suggestion struct {
	FeatureID         string  `json:"feature_id"`
	FeatureName       string  `json:"feature_name"`
	CurrentPercent    float64 `json:"current_percent"`
	ToleranceFactor   float64 `json:"tolerance_factor"`
	VarianceReduction float64 `json:"variance_reduction"`
}

func (s Suggestion) String() string {
	return fmt.Sprintf("%s: scale tolerance by %.3f (removes %.4g variance)", s.FeatureID, s.ToleranceFactor, s.VarianceReduction)
}

// SuggestImprovements proposes, for every contribution of at least 10 %, the
// tolerance scale factor that cuts its variance by targetReductionPct.
func (r *SensitivityReport) SuggestImprovements(targetReductionPct float64) []Suggestion {
	frac := math.Min(math.Max(targetReductionPct/100, 0), 1)
	var out []Suggestion
	for _, c := range r.Contributions {
		if c.Percent < 10 {
			continue
		}
		out = append(out, Suggestion{
			FeatureID:         c.FeatureID,
			FeatureName:       c.FeatureName,
			CurrentPercent:    c.Percent,
			ToleranceFactor:   math.Sqrt(1 - frac),
			VarianceReduction: frac * c.Variance,
		})
	}
	return out
}
