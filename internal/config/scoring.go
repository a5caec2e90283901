// Package config defines the scorecard configuration and its validation
// rules. Configurations are validated on construction and on every update;
// an invalid configuration never reaches the scoring engine.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/crediai/crediai/internal/model"
)

// ErrInvalidConfig indicates a scoring configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid scoring configuration")

// weightTolerance is the allowed drift when checking that weights sum to 100.
const weightTolerance = 0.1

// Weights assigns the relative importance of each scorecard factor.
// The five weights must sum to 100.
type Weights struct {
	Age        float64
	Income     float64
	Debt       float64
	History    float64
	Employment float64
}

// Sum returns the total of all factor weights.
func (w Weights) Sum() float64 {
	return w.Age + w.Income + w.Debt + w.History + w.Employment
}

// ScoreRange maps a numeric factor interval [Min, Max] to points.
// Range tables are scanned in order; the first matching interval wins and
// a value outside every interval scores 0.
type ScoreRange struct {
	Min    float64
	Max    float64
	Points float64
}

// Contains reports whether v falls inside the closed interval.
func (r ScoreRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// RateBand maps a total-score interval to an annual interest rate and a
// risk label. Bands are half-open [MinScore, MaxScore) except the top
// band, which also includes MaxScore so a perfect 100 stays covered.
type RateBand struct {
	Label      string
	MinScore   float64
	MaxScore   float64
	AnnualRate float64
}

// Contains reports whether score falls inside the band.
func (b RateBand) Contains(score float64) bool {
	if score < b.MinScore {
		return false
	}
	if score < b.MaxScore {
		return true
	}
	return b.MaxScore >= 100 && score == b.MaxScore
}

// ScoringConfig is the full deterministic-scorecard configuration: factor
// weights, per-factor range tables, categorical tables, rate bands, and
// the approval threshold.
type ScoringConfig struct {
	HistoryScores     map[model.CreditHistory]float64
	EmploymentScores  map[bool]float64
	AgeRanges         []ScoreRange
	IncomeRanges      []ScoreRange
	DebtRatioRanges   []ScoreRange
	RateBands         []RateBand
	Weights           Weights
	ApprovalThreshold float64
}

// Default returns the stock scorecard: weights 15/25/20/25/15, the
// original range tables, six rate bands from AAA down to B, and an
// approval threshold of 60 points.
func Default() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			Age:        15,
			Income:     25,
			Debt:       20,
			History:    25,
			Employment: 15,
		},
		AgeRanges: []ScoreRange{
			{Min: 18, Max: 25, Points: 60},
			{Min: 26, Max: 35, Points: 100},
			{Min: 36, Max: 50, Points: 90},
			{Min: 51, Max: 65, Points: 70},
			{Min: 66, Max: 100, Points: 40},
		},
		IncomeRanges: []ScoreRange{
			{Min: 0, Max: 1500, Points: 40},
			{Min: 1501, Max: 3000, Points: 70},
			{Min: 3001, Max: 5000, Points: 90},
			{Min: 5001, Max: math.Inf(1), Points: 100},
		},
		DebtRatioRanges: []ScoreRange{
			{Min: 0, Max: 0.3, Points: 100},
			{Min: 0.3, Max: 0.5, Points: 80},
			{Min: 0.5, Max: 0.7, Points: 60},
			{Min: 0.7, Max: math.Inf(1), Points: 30},
		},
		HistoryScores: map[model.CreditHistory]float64{
			model.HistoryGood: 100,
			model.HistoryFair: 60,
			model.HistoryPoor: 20,
		},
		EmploymentScores: map[bool]float64{
			true:  100,
			false: 40,
		},
		RateBands: []RateBand{
			{MinScore: 90, MaxScore: 100, AnnualRate: 0.10, Label: "AAA - Excellent"},
			{MinScore: 80, MaxScore: 90, AnnualRate: 0.12, Label: "AA - Very Good"},
			{MinScore: 70, MaxScore: 80, AnnualRate: 0.15, Label: "A - Good"},
			{MinScore: 60, MaxScore: 70, AnnualRate: 0.18, Label: "BBB - Fair"},
			{MinScore: 50, MaxScore: 60, AnnualRate: 0.22, Label: "BB - Moderate"},
			{MinScore: 0, MaxScore: 50, AnnualRate: 0.25, Label: "B - High Risk"},
		},
		ApprovalThreshold: 60,
	}
}

// Validate checks every structural invariant of the configuration:
// non-negative weights summing to 100, rate bands partitioning [0,100]
// with no gaps or overlaps, and a threshold inside [0,100].
func (c *ScoringConfig) Validate() error {
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"age", c.Weights.Age},
		{"income", c.Weights.Income},
		{"debt", c.Weights.Debt},
		{"history", c.Weights.History},
		{"employment", c.Weights.Employment},
	} {
		if w.value < 0 {
			return fmt.Errorf("%w: %s weight must be non-negative, got %.1f", ErrInvalidConfig, w.name, w.value)
		}
	}
	if sum := c.Weights.Sum(); math.Abs(sum-100) > weightTolerance {
		return fmt.Errorf("%w: weights must sum to 100, got %.1f", ErrInvalidConfig, sum)
	}
	if c.ApprovalThreshold < 0 || c.ApprovalThreshold > 100 {
		return fmt.Errorf("%w: approval threshold must be in [0,100], got %.1f", ErrInvalidConfig, c.ApprovalThreshold)
	}
	if err := validateRanges("age", c.AgeRanges); err != nil {
		return err
	}
	if err := validateRanges("income", c.IncomeRanges); err != nil {
		return err
	}
	if err := validateRanges("debt ratio", c.DebtRatioRanges); err != nil {
		return err
	}
	if len(c.HistoryScores) == 0 {
		return fmt.Errorf("%w: history score table is empty", ErrInvalidConfig)
	}
	if len(c.EmploymentScores) == 0 {
		return fmt.Errorf("%w: employment score table is empty", ErrInvalidConfig)
	}
	return c.validateBands()
}

// validateRanges rejects empty or inverted range tables.
func validateRanges(name string, ranges []ScoreRange) error {
	if len(ranges) == 0 {
		return fmt.Errorf("%w: %s range table is empty", ErrInvalidConfig, name)
	}
	for i, r := range ranges {
		if r.Min > r.Max {
			return fmt.Errorf("%w: %s range %d has min %.2f above max %.2f", ErrInvalidConfig, name, i, r.Min, r.Max)
		}
		if r.Points < 0 || r.Points > 100 {
			return fmt.Errorf("%w: %s range %d points must be in [0,100], got %.1f", ErrInvalidConfig, name, i, r.Points)
		}
	}
	return nil
}

// validateBands checks that the rate bands partition [0,100] exactly. A
// naive "fall back to the last band" on lookup would mask a broken table;
// instead the table is rejected up front so selection is always defined.
func (c *ScoringConfig) validateBands() error {
	if len(c.RateBands) == 0 {
		return fmt.Errorf("%w: rate band table is empty", ErrInvalidConfig)
	}

	sorted := make([]RateBand, len(c.RateBands))
	copy(sorted, c.RateBands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for _, b := range sorted {
		if b.MinScore >= b.MaxScore {
			return fmt.Errorf("%w: rate band %q has min score %.1f not below max %.1f",
				ErrInvalidConfig, b.Label, b.MinScore, b.MaxScore)
		}
		if b.AnnualRate < 0 {
			return fmt.Errorf("%w: rate band %q has negative rate", ErrInvalidConfig, b.Label)
		}
	}
	if sorted[0].MinScore != 0 {
		return fmt.Errorf("%w: rate bands must start at 0, got %.1f", ErrInvalidConfig, sorted[0].MinScore)
	}
	if sorted[len(sorted)-1].MaxScore != 100 {
		return fmt.Errorf("%w: rate bands must end at 100, got %.1f", ErrInvalidConfig, sorted[len(sorted)-1].MaxScore)
	}
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if next.MinScore != prev.MaxScore {
			return fmt.Errorf("%w: rate bands %q and %q leave [%.1f, %.1f) uncovered or overlapping",
				ErrInvalidConfig, prev.Label, next.Label, prev.MaxScore, next.MinScore)
		}
	}
	return nil
}

// BandFor returns the rate band containing score. Validation guarantees a
// match for any score in [0,100]; ok is false only for out-of-range input.
func (c *ScoringConfig) BandFor(score float64) (RateBand, bool) {
	for _, b := range c.RateBands {
		if b.Contains(score) {
			return b, true
		}
	}
	return RateBand{}, false
}
