package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"talentMarket/domain"
)

// weightTolerance absorbs float noise when checking that weights sum to 1.
const weightTolerance = 1e-6

// Weights maps sub-score name to its share of the composite.
type Weights map[string]float64

func DefaultWeights() Weights {
	return Weights{
		domain.SubscoreSkill:    0.4,
		domain.SubscoreCommute:  0.2,
		domain.SubscoreLanguage: 0.2,
		domain.SubscoreBenefits: 0.1,
		domain.SubscoreQuality:  0.1,
	}
}

// ParseWeights reads "skill:0.4,commute:0.2,..." and validates the result.
func ParseWeights(raw string) (Weights, error) {
	w := Weights{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid weight %q, want name:value", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight value for %s: %w", name, err)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := w[name]; dup {
			return nil, fmt.Errorf("duplicate weight %s", name)
		}
		w[name] = f
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate enforces known names, non-negative values and a total of 1.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("no weights configured")
	}
	known := make(map[string]bool, len(domain.SubscoreNames))
	for _, n := range domain.SubscoreNames {
		known[n] = true
	}

	total := 0.0
	for name, v := range w {
		if !known[name] {
			return fmt.Errorf("unknown sub-score %q", name)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight for %s must be a non-negative number", name)
		}
		total += v
	}
	if math.Abs(total-1) > weightTolerance {
		return fmt.Errorf("weights must sum to 1, got %.6f", total)
	}
	return nil
}

// Composite is the weighted sum of sub-scores. Each sub-score is clamped
// to [0,1]; names without a weight contribute nothing.
func (w Weights) Composite(subscores map[string]float64) float64 {
	// fixed order keeps float summation reproducible
	names := make([]string, 0, len(w))
	for n := range w {
		names = append(names, n)
	}
	sort.Strings(names)

	total := 0.0
	for _, n := range names {
		total += w[n] * clamp01(subscores[n])
	}
	return total
}

func (w Weights) String() string {
	names := make([]string, 0, len(w))
	for n := range w {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s:%g", n, w[n]))
	}
	return strings.Join(parts, ",")
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
