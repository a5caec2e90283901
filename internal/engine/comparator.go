package engine

import (
	"fmt"

	"github.com/crediai/crediai/internal/model"
)

// Compare quantifies the disagreement between the AI evaluation and the
// scorecard evaluation. Deltas are AI minus scorecard; pure arithmetic
// with no failure modes.
func Compare(ai, scorecard model.EvaluationResult) model.ComparisonResult {
	scoreDelta := ai.TotalScore - scorecard.TotalScore
	rateDelta := (ai.AnnualRate - scorecard.AnnualRate) * 100
	latencyDelta := ai.LatencyMS - scorecard.LatencyMS

	return model.ComparisonResult{
		ScoreDelta:       scoreDelta,
		ScoreDeltaText:   fmt.Sprintf("%s points", model.SignedNumber(scoreDelta, 1)),
		RateDelta:        rateDelta,
		RateDeltaText:    fmt.Sprintf("%s%%", model.SignedNumber(rateDelta, 1)),
		LatencyDelta:     latencyDelta,
		LatencyDeltaText: fmt.Sprintf("%s ms", model.SignedNumber(float64(latencyDelta), 0)),
	}
}
