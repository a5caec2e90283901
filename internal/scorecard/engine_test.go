package scorecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediai/crediai/internal/config"
	"github.com/crediai/crediai/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New(config.Default(), nil)
	require.NoError(t, err)
	return engine
}

func TestEvaluateApprovedProfile(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(model.ClientProfile{
		Age:              30,
		MonthlyIncome:    3000,
		TotalDebt:        1000,
		RequestedAmount:  5000,
		TermMonths:       12,
		CreditHistory:    model.HistoryGood,
		StableEmployment: true,
	})
	require.NoError(t, err)

	// 15 + 17.5 + 16 + 25 + 15
	assert.InDelta(t, 88.5, result.TotalScore, 0.001)
	assert.Equal(t, model.DecisionApproved, result.Decision)
	assert.Equal(t, "AA - Very Good", result.RateLabel)
	assert.InDelta(t, 0.12, result.AnnualRate, 0.0001)
	assert.InDelta(t, 444.24, result.MonthlyPayment, 0.01)
	assert.InDelta(t, 17.6, result.DebtRatio, 0.001)

	require.Len(t, result.Factors, 5)
	assert.InDelta(t, 100, result.Factors["age"].Score, 0.001)
	assert.InDelta(t, 70, result.Factors["income"].Score, 0.001)
	assert.InDelta(t, 80, result.Factors["debt"].Score, 0.001)
	assert.InDelta(t, 16, result.Factors["debt"].Contribution, 0.001)

	assert.Contains(t, result.Explanation, "TRADITIONAL SCORECARD EVALUATION")
	assert.Contains(t, result.Explanation, "Total Score: 88.5/100")
	assert.Contains(t, result.Explanation, "meets the minimum required score")
}

func TestEvaluateRejectedProfileListsWeakAreas(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Evaluate(model.ClientProfile{
		Age:              70,
		MonthlyIncome:    3000,
		TotalDebt:        1000,
		RequestedAmount:  5000,
		TermMonths:       12,
		CreditHistory:    model.HistoryPoor,
		StableEmployment: false,
	})
	require.NoError(t, err)

	// 6 + 17.5 + 16 + 5 + 6
	assert.InDelta(t, 50.5, result.TotalScore, 0.001)
	assert.Equal(t, model.DecisionRejected, result.Decision)
	assert.Equal(t, "BB - Moderate", result.RateLabel)

	assert.Contains(t, result.Explanation, "does NOT meet the minimum required score")
	assert.Contains(t, result.Explanation, "Areas for improvement: age, credit history, employment stability")
	assert.NotContains(t, result.Explanation, "income,")
}

func TestEvaluateValidation(t *testing.T) {
	engine := newTestEngine(t)

	tests := []struct {
		name    string
		profile model.ClientProfile
	}{
		{
			name: "zero income fails before any scoring",
			profile: model.ClientProfile{
				Age: 30, MonthlyIncome: 0, RequestedAmount: 5000,
				TermMonths: 12, CreditHistory: model.HistoryGood,
			},
		},
		{
			name: "invalid age",
			profile: model.ClientProfile{
				Age: -1, MonthlyIncome: 3000, RequestedAmount: 5000,
				TermMonths: 12, CreditHistory: model.HistoryGood,
			},
		},
		{
			name: "unknown history",
			profile: model.ClientProfile{
				Age: 30, MonthlyIncome: 3000, RequestedAmount: 5000,
				TermMonths: 12, CreditHistory: "Stellar",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Evaluate(tt.profile)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}
}

func TestEvaluateScoreAlwaysBanded(t *testing.T) {
	engine := newTestEngine(t)

	// Sample the profile space; every evaluation must produce a bounded
	// score with a matching rate band.
	histories := []model.CreditHistory{model.HistoryGood, model.HistoryFair, model.HistoryPoor}
	for _, age := range []int{18, 25, 40, 66, 120} {
		for _, income := range []float64{500, 1501, 4000, 9000} {
			for _, debt := range []float64{0, 500, 5000, 20000} {
				for _, history := range histories {
					result, err := engine.Evaluate(model.ClientProfile{
						Age:              age,
						MonthlyIncome:    income,
						TotalDebt:        debt,
						RequestedAmount:  10000,
						TermMonths:       24,
						CreditHistory:    history,
						StableEmployment: debt > 1000,
					})
					require.NoError(t, err)
					assert.GreaterOrEqual(t, result.TotalScore, 0.0)
					assert.LessOrEqual(t, result.TotalScore, 100.0)
					assert.NotEmpty(t, result.RateLabel)
				}
			}
		}
	}
}

func TestEvaluateClampsWeightToleranceDrift(t *testing.T) {
	// Weights summing to 100.1 pass validation, so a perfect profile
	// totals 100.1; selection must clamp it back onto the band scale.
	cfg := config.Default()
	cfg.Weights.Age = 15.1

	engine, err := New(cfg, nil)
	require.NoError(t, err)

	result, err := engine.Evaluate(model.ClientProfile{
		Age: 30, MonthlyIncome: 6000, TotalDebt: 0, RequestedAmount: 5000,
		TermMonths: 12, CreditHistory: model.HistoryGood, StableEmployment: true,
	})
	require.NoError(t, err)

	assert.InDelta(t, 100, result.TotalScore, 0.001)
	assert.Equal(t, "AAA - Excellent", result.RateLabel)
	assert.Equal(t, model.DecisionApproved, result.Decision)
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	engine := newTestEngine(t)

	bad := config.Default()
	bad.Weights.Age = 10 // sum 95

	err := engine.UpdateConfig(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	// Active configuration unchanged.
	assert.InDelta(t, 15, engine.Config().Weights.Age, 0.001)
}

func TestUpdateConfigInstallsValid(t *testing.T) {
	engine := newTestEngine(t)

	cfg := config.Default()
	cfg.ApprovalThreshold = 75
	require.NoError(t, engine.UpdateConfig(cfg))
	assert.InDelta(t, 75, engine.Config().ApprovalThreshold, 0.001)

	// 88.5 clears 60 but also clears 75, so raise further to flip it.
	cfg.ApprovalThreshold = 90
	require.NoError(t, engine.UpdateConfig(cfg))

	result, err := engine.Evaluate(model.ClientProfile{
		Age: 30, MonthlyIncome: 3000, TotalDebt: 1000, RequestedAmount: 5000,
		TermMonths: 12, CreditHistory: model.HistoryGood, StableEmployment: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DecisionRejected, result.Decision)
}

func TestMonthlyPayment(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		term      int
		want      float64
	}{
		{name: "standard amortization", principal: 5000, rate: 0.12, term: 12, want: 444.24},
		{name: "zero rate degenerates to division", principal: 1200, rate: 0, term: 12, want: 100},
		{name: "single month", principal: 1000, rate: 0, term: 1, want: 1000},
		{name: "zero term", principal: 1000, rate: 0.1, term: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MonthlyPayment(tt.principal, tt.rate, tt.term), 0.01)
		})
	}
}

func TestProjectedDebtRatio(t *testing.T) {
	// (444.24 + 1000/12) / 3000 * 100, rounded to one decimal.
	got := ProjectedDebtRatio(444.24, 1000, 12, 3000)
	assert.InDelta(t, 17.6, got, 0.001)
}
