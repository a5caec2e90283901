package model

import "fmt"

// Decision is the outcome of a single evaluation engine.
type Decision string

// Decision constants.
const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// FactorBreakdown records how one scorecard factor contributed to the total.
type FactorBreakdown struct {
	Value        string
	Score        float64
	Weight       float64
	Contribution float64
}

// EvaluationResult is the output of one decision engine for one profile.
type EvaluationResult struct {
	Factors        map[string]FactorBreakdown
	Decision       Decision
	RateLabel      string
	Explanation    string
	KeyFactors     []string
	SimilarCases   []ScoredRecord
	TotalScore     float64
	AnnualRate     float64
	MonthlyPayment float64
	DebtRatio      float64
	LatencyMS      int64
}

// ComparisonResult quantifies disagreement between the two engines.
// Deltas are AI minus scorecard; each carries a formatted signed string.
type ComparisonResult struct {
	ScoreDeltaText   string
	RateDeltaText    string
	LatencyDeltaText string
	ScoreDelta       float64
	RateDelta        float64
	LatencyDelta     int64
}

// SignedNumber formats v with an explicit leading sign and the given
// precision, e.g. "+4.2" or "-12.0".
func SignedNumber(v float64, decimals int) string {
	if v > 0 {
		return fmt.Sprintf("+%.*f", decimals, v)
	}
	return fmt.Sprintf("%.*f", decimals, v)
}
