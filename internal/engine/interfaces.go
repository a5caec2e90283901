package engine

import (
	"context"

	"github.com/crediai/crediai/internal/model"
)

// ScorecardEvaluator is the deterministic decision engine.
type ScorecardEvaluator interface {
	Evaluate(profile model.ClientProfile) (model.EvaluationResult, error)
}

// AIEvaluator is the retrieval-augmented decision engine.
type AIEvaluator interface {
	Evaluate(ctx context.Context, profile model.ClientProfile) (model.EvaluationResult, error)
}

// Recorder writes completed evaluations to the audit ledger.
type Recorder interface {
	LogEvaluation(user string, profile model.ClientProfile, aiResult, scorecardResult *model.EvaluationResult, comparison model.ComparisonResult) (string, error)
}
