// Package scorecard implements the deterministic weighted-factor scoring
// engine. Evaluation is a pure function of a client profile and the
// current scoring configuration; it makes no external calls.
package scorecard

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/crediai/crediai/internal/config"
	"github.com/crediai/crediai/internal/model"
)

// weakFactorCutoff marks factor scores reported as weak areas on rejection.
const weakFactorCutoff = 70

// highDebtRatioCutoff triggers the debt-ratio warning on approval, in percent.
const highDebtRatioCutoff = 40

// Engine scores client profiles against a validated configuration.
// Configuration swaps go through UpdateConfig so an invalid table can
// never replace a valid one.
type Engine struct {
	logger *slog.Logger
	cfg    config.ScoringConfig
	mu     sync.RWMutex
}

// New creates a scoring engine, validating the initial configuration.
func New(cfg config.ScoringConfig, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() config.ScoringConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// UpdateConfig validates and installs a new configuration. On validation
// failure the active configuration is left untouched.
func (e *Engine) UpdateConfig(cfg config.ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.Info("scoring configuration updated",
		"threshold", cfg.ApprovalThreshold,
		"bands", len(cfg.RateBands))
	return nil
}

// Evaluate scores a profile and returns the full evaluation result.
func (e *Engine) Evaluate(profile model.ClientProfile) (model.EvaluationResult, error) {
	start := time.Now()

	if err := profile.Validate(); err != nil {
		return model.EvaluationResult{}, err
	}
	if profile.MonthlyIncome == 0 {
		return model.EvaluationResult{}, fmt.Errorf("%w: monthly income is zero, debt ratio is undefined", model.ErrValidation)
	}

	cfg := e.Config()

	ageScore := scoreRange(float64(profile.Age), cfg.AgeRanges)
	incomeScore := scoreRange(profile.MonthlyIncome, cfg.IncomeRanges)

	debtRatio := profile.TotalDebt / profile.MonthlyIncome
	debtScore := scoreRange(debtRatio, cfg.DebtRatioRanges)

	// Unknown categories fall through to 0 by design of the lookup tables.
	historyScore := cfg.HistoryScores[profile.CreditHistory]
	employmentScore := cfg.EmploymentScores[profile.StableEmployment]

	total := ageScore*cfg.Weights.Age/100 +
		incomeScore*cfg.Weights.Income/100 +
		debtScore*cfg.Weights.Debt/100 +
		historyScore*cfg.Weights.History/100 +
		employmentScore*cfg.Weights.Employment/100

	// The weight-sum tolerance lets totals drift a fraction past the band
	// scale, so clamp before selection.
	total = math.Min(100, math.Max(0, total))

	band, ok := cfg.BandFor(total)
	if !ok {
		// Unreachable with a validated band table and the clamp above.
		return model.EvaluationResult{}, fmt.Errorf("%w: no rate band covers score %.1f", config.ErrInvalidConfig, total)
	}

	payment := MonthlyPayment(profile.RequestedAmount, band.AnnualRate, profile.TermMonths)
	projectedRatio := ProjectedDebtRatio(payment, profile.TotalDebt, profile.TermMonths, profile.MonthlyIncome)

	decision := model.DecisionRejected
	if total >= cfg.ApprovalThreshold {
		decision = model.DecisionApproved
	}

	employment := "No"
	if profile.StableEmployment {
		employment = "Yes"
	}
	factors := map[string]model.FactorBreakdown{
		"age":        {Value: fmt.Sprintf("%d", profile.Age), Score: ageScore, Weight: cfg.Weights.Age, Contribution: round1(ageScore * cfg.Weights.Age / 100)},
		"income":     {Value: fmt.Sprintf("%.2f", profile.MonthlyIncome), Score: incomeScore, Weight: cfg.Weights.Income, Contribution: round1(incomeScore * cfg.Weights.Income / 100)},
		"debt":       {Value: fmt.Sprintf("%.2f", debtRatio), Score: debtScore, Weight: cfg.Weights.Debt, Contribution: round1(debtScore * cfg.Weights.Debt / 100)},
		"history":    {Value: string(profile.CreditHistory), Score: historyScore, Weight: cfg.Weights.History, Contribution: round1(historyScore * cfg.Weights.History / 100)},
		"employment": {Value: employment, Score: employmentScore, Weight: cfg.Weights.Employment, Contribution: round1(employmentScore * cfg.Weights.Employment / 100)},
	}

	explanation := buildExplanation(cfg, factors, total, decision, band, debtRatio, projectedRatio)

	result := model.EvaluationResult{
		Decision:       decision,
		TotalScore:     round1(total),
		AnnualRate:     band.AnnualRate,
		RateLabel:      band.Label,
		MonthlyPayment: payment,
		DebtRatio:      projectedRatio,
		Explanation:    explanation,
		Factors:        factors,
		LatencyMS:      time.Since(start).Milliseconds(),
	}

	e.logger.Debug("scorecard evaluation complete",
		"score", result.TotalScore,
		"decision", result.Decision,
		"band", band.Label)

	return result, nil
}

// scoreRange returns the points of the first interval containing v, or 0
// when no interval matches. The zero fallback is the documented contract
// for values outside every configured range, not a silent coercion.
func scoreRange(v float64, ranges []config.ScoreRange) float64 {
	for _, r := range ranges {
		if r.Contains(v) {
			return r.Points
		}
	}
	return 0
}

// MonthlyPayment computes the standard amortized payment for a principal
// at an annual rate over term months. A zero rate degenerates to simple
// division; the general formula would divide by zero there.
func MonthlyPayment(principal, annualRate float64, termMonths int) float64 {
	if termMonths <= 0 {
		return 0
	}
	if annualRate == 0 {
		return principal / float64(termMonths)
	}
	r := annualRate / 12
	factor := math.Pow(1+r, float64(termMonths))
	return principal * (r * factor) / (factor - 1)
}

// ProjectedDebtRatio estimates the applicant's post-loan debt burden as a
// percentage of monthly income, rounded to one decimal.
func ProjectedDebtRatio(payment, totalDebt float64, termMonths int, monthlyIncome float64) float64 {
	return round1((payment + totalDebt/float64(termMonths)) / monthlyIncome * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// buildExplanation renders the deterministic explanation template.
func buildExplanation(cfg config.ScoringConfig, factors map[string]model.FactorBreakdown, total float64, decision model.Decision, band config.RateBand, debtRatio, projectedRatio float64) string {
	var b strings.Builder

	b.WriteString("TRADITIONAL SCORECARD EVALUATION\n\n")
	fmt.Fprintf(&b, "Total Score: %.1f/100\n", total)
	fmt.Fprintf(&b, "Risk Classification: %s\n", band.Label)
	fmt.Fprintf(&b, "Assigned Rate: %.1f%% annual\n\n", band.AnnualRate*100)

	b.WriteString("FACTOR SCORES:\n")
	fmt.Fprintf(&b, "- Age: %.0f/100\n", factors["age"].Score)
	fmt.Fprintf(&b, "- Income: %.0f/100\n", factors["income"].Score)
	fmt.Fprintf(&b, "- Debt-to-Income Ratio (%.1f%%): %.0f/100\n", debtRatio*100, factors["debt"].Score)
	fmt.Fprintf(&b, "- Credit History: %.0f/100\n", factors["history"].Score)
	fmt.Fprintf(&b, "- Stable Employment: %.0f/100\n\n", factors["employment"].Score)

	b.WriteString("ANALYSIS:\n")
	if decision == model.DecisionApproved {
		b.WriteString("The applicant meets the minimum required score.\n")
		fmt.Fprintf(&b, "Projected debt ratio: %.1f%%\n", projectedRatio)
		if projectedRatio > highDebtRatioCutoff {
			b.WriteString("Warning: the projected debt ratio is high. Consider a lower amount or a longer term.\n")
		}
	} else {
		fmt.Fprintf(&b, "The applicant does NOT meet the minimum required score (%.0f points).\n", cfg.ApprovalThreshold)
		var weak []string
		for _, f := range []struct{ key, label string }{
			{"age", "age"},
			{"income", "income"},
			{"debt", "debt level"},
			{"history", "credit history"},
			{"employment", "employment stability"},
		} {
			if factors[f.key].Score < weakFactorCutoff {
				weak = append(weak, f.label)
			}
		}
		if len(weak) > 0 {
			fmt.Fprintf(&b, "Areas for improvement: %s\n", strings.Join(weak, ", "))
		}
	}

	return b.String()
}
