package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediai/crediai/internal/model"
)

type stubScorecard struct {
	result model.EvaluationResult
	err    error
	delay  time.Duration
}

func (s *stubScorecard) Evaluate(_ model.ClientProfile) (model.EvaluationResult, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.result, s.err
}

type stubAI struct {
	result model.EvaluationResult
	err    error
	delay  time.Duration
}

func (s *stubAI) Evaluate(ctx context.Context, _ model.ClientProfile) (model.EvaluationResult, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return model.EvaluationResult{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.result, s.err
}

type stubRecorder struct {
	mu        sync.Mutex
	calls     int
	lastUser  string
	lastAI    *model.EvaluationResult
	lastScore *model.EvaluationResult
	err       error
}

func (s *stubRecorder) LogEvaluation(user string, _ model.ClientProfile, aiResult, scorecardResult *model.EvaluationResult, _ model.ComparisonResult) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastUser = user
	s.lastAI = aiResult
	s.lastScore = scorecardResult
	if s.err != nil {
		return "", s.err
	}
	return "LOG-1-test", nil
}

func orchestratorProfile() model.ClientProfile {
	return model.ClientProfile{
		Age:              30,
		MonthlyIncome:    3000,
		TotalDebt:        1000,
		RequestedAmount:  5000,
		TermMonths:       12,
		CreditHistory:    model.HistoryGood,
		StableEmployment: true,
	}
}

func TestOrchestratorEvaluate(t *testing.T) {
	scorecard := &stubScorecard{result: model.EvaluationResult{
		Decision: model.DecisionApproved, TotalScore: 88.5, AnnualRate: 0.12, LatencyMS: 3,
	}}
	ai := &stubAI{result: model.EvaluationResult{
		Decision: model.DecisionRejected, TotalScore: 55, AnnualRate: 0.18, LatencyMS: 1203,
	}}
	recorder := &stubRecorder{}

	orchestrator := New(scorecard, ai, recorder, nil)
	evaluation, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
	require.NoError(t, err)

	assert.Equal(t, "LOG-1-test", evaluation.EntryID)
	assert.Equal(t, model.DecisionApproved, evaluation.Scorecard.Decision)
	assert.Equal(t, model.DecisionRejected, evaluation.AIResult.Decision)

	assert.InDelta(t, -33.5, evaluation.Comparison.ScoreDelta, 0.001)
	assert.Equal(t, "-33.5 points", evaluation.Comparison.ScoreDeltaText)
	assert.Equal(t, "+6.0%", evaluation.Comparison.RateDeltaText)
	assert.Equal(t, "+1200 ms", evaluation.Comparison.LatencyDeltaText)

	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, "system", recorder.lastUser)
	require.NotNil(t, recorder.lastAI)
	require.NotNil(t, recorder.lastScore)
}

func TestOrchestratorCustomUser(t *testing.T) {
	recorder := &stubRecorder{}
	cfg := DefaultConfig()
	cfg.User = "analyst1"

	orchestrator := NewWithConfig(&stubScorecard{}, &stubAI{}, recorder, nil, cfg)
	_, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
	require.NoError(t, err)
	assert.Equal(t, "analyst1", recorder.lastUser)
}

func TestOrchestratorFailsWithoutRecording(t *testing.T) {
	tests := []struct {
		name      string
		scorecard *stubScorecard
		ai        *stubAI
	}{
		{
			name:      "scorecard failure",
			scorecard: &stubScorecard{err: errors.New("bad config")},
			ai:        &stubAI{},
		},
		{
			name:      "ai failure",
			scorecard: &stubScorecard{},
			ai:        &stubAI{err: errors.New("provider down")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &stubRecorder{}
			orchestrator := New(tt.scorecard, tt.ai, recorder, nil)

			_, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
			require.Error(t, err)
			assert.Equal(t, 0, recorder.calls, "a failed evaluation must not reach the ledger")
		})
	}
}

func TestOrchestratorRejectsInvalidProfile(t *testing.T) {
	recorder := &stubRecorder{}
	orchestrator := New(&stubScorecard{}, &stubAI{}, recorder, nil)

	profile := orchestratorProfile()
	profile.Age = 0

	_, err := orchestrator.Evaluate(context.Background(), profile)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 0, recorder.calls)
}

func TestOrchestratorPropagatesRecorderFailure(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("disk full")}
	orchestrator := New(&stubScorecard{}, &stubAI{}, recorder, nil)

	_, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record evaluation")
}

func TestOrchestratorEnginesRunConcurrently(t *testing.T) {
	delay := 80 * time.Millisecond
	scorecard := &stubScorecard{delay: delay}
	ai := &stubAI{delay: delay}
	orchestrator := New(scorecard, ai, &stubRecorder{}, nil)

	start := time.Now()
	_, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
	require.NoError(t, err)

	// Sequential execution would take at least twice the single delay.
	assert.Less(t, time.Since(start), 2*delay)
}

func TestOrchestratorTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond

	ai := &stubAI{delay: time.Second}
	recorder := &stubRecorder{}
	orchestrator := NewWithConfig(&stubScorecard{}, ai, recorder, nil, cfg)

	_, err := orchestrator.Evaluate(context.Background(), orchestratorProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, recorder.calls)
}

func TestCompare(t *testing.T) {
	ai := model.EvaluationResult{TotalScore: 82, AnnualRate: 0.12, LatencyMS: 1250}
	scorecard := model.EvaluationResult{TotalScore: 88.5, AnnualRate: 0.12, LatencyMS: 50}

	comparison := Compare(ai, scorecard)
	assert.InDelta(t, -6.5, comparison.ScoreDelta, 0.001)
	assert.Equal(t, "-6.5 points", comparison.ScoreDeltaText)
	assert.InDelta(t, 0, comparison.RateDelta, 0.001)
	assert.Equal(t, "0.0%", comparison.RateDeltaText)
	assert.Equal(t, int64(1200), comparison.LatencyDelta)
	assert.Equal(t, "+1200 ms", comparison.LatencyDeltaText)
}

func TestCompareIdenticalResults(t *testing.T) {
	result := model.EvaluationResult{TotalScore: 70, AnnualRate: 0.15, LatencyMS: 10}

	comparison := Compare(result, result)
	assert.Equal(t, "0.0 points", comparison.ScoreDeltaText)
	assert.Equal(t, "0.0%", comparison.RateDeltaText)
	assert.Equal(t, "0 ms", comparison.LatencyDeltaText)
}
