// Package engine coordinates a single evaluation request: both decision
// engines run concurrently, their results are compared, and the outcome
// is written to the audit ledger.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crediai/crediai/internal/model"
)

// Evaluation is the combined outcome of one orchestrated request.
type Evaluation struct {
	EntryID    string
	AIResult   model.EvaluationResult
	Scorecard  model.EvaluationResult
	Comparison model.ComparisonResult
}

// Config holds configuration options for the orchestrator.
type Config struct {
	// Timeout bounds the whole request, dominated by provider calls on
	// the retrieval path. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	User    string
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 2 * time.Minute,
		User:    "system",
	}
}

// Orchestrator runs both engines for a profile and records the result.
type Orchestrator struct {
	scorecard ScorecardEvaluator
	ai        AIEvaluator
	recorder  Recorder
	logger    *slog.Logger
	cfg       Config
}

// New creates an orchestrator with the given dependencies.
func New(scorecard ScorecardEvaluator, ai AIEvaluator, recorder Recorder, logger *slog.Logger) *Orchestrator {
	return NewWithConfig(scorecard, ai, recorder, logger, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom configuration.
func NewWithConfig(scorecard ScorecardEvaluator, ai AIEvaluator, recorder Recorder, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		scorecard: scorecard,
		ai:        ai,
		recorder:  recorder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Evaluate runs one full evaluation. The two engines share no mutable
// state and run concurrently; either one failing fails the request, and
// nothing is written to the ledger for a failed request.
func (o *Orchestrator) Evaluate(ctx context.Context, profile model.ClientProfile) (Evaluation, error) {
	if err := profile.Validate(); err != nil {
		return Evaluation{}, err
	}

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	var (
		wg           sync.WaitGroup
		scorecardRes model.EvaluationResult
		aiRes        model.EvaluationResult
		scorecardErr error
		aiErr        error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		scorecardRes, scorecardErr = o.scorecard.Evaluate(profile)
	}()
	go func() {
		defer wg.Done()
		aiRes, aiErr = o.ai.Evaluate(ctx, profile)
	}()
	wg.Wait()

	if scorecardErr != nil {
		return Evaluation{}, fmt.Errorf("scorecard evaluation failed: %w", scorecardErr)
	}
	if aiErr != nil {
		return Evaluation{}, fmt.Errorf("AI evaluation failed: %w", aiErr)
	}

	comparison := Compare(aiRes, scorecardRes)

	entryID, err := o.recorder.LogEvaluation(o.cfg.User, profile, &aiRes, &scorecardRes, comparison)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to record evaluation: %w", err)
	}

	o.logger.Info("evaluation complete",
		"entry_id", entryID,
		"scorecard_decision", scorecardRes.Decision,
		"ai_decision", aiRes.Decision,
		"score_delta", comparison.ScoreDeltaText)

	return Evaluation{
		EntryID:    entryID,
		AIResult:   aiRes,
		Scorecard:  scorecardRes,
		Comparison: comparison,
	}, nil
}
