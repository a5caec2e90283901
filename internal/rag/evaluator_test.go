package rag

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediai/crediai/internal/common"
	"github.com/crediai/crediai/internal/llm"
	"github.com/crediai/crediai/internal/model"
	"github.com/crediai/crediai/internal/scorecard"
)

// fakeGenerator is a scriptable generation provider for evaluator tests.
type fakeGenerator struct {
	generateFn func(call int, prompt string) (string, error)
	calls      int
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.generateFn(f.calls, prompt)
}

const validResponse = `{
	"decision": "Approved",
	"totalScore": 82,
	"rate": "12.0%",
	"explanation": "Solid income and clean history outweigh the moderate debt load.",
	"monthlyPayment": 450.00,
	"debtRatio": "18.0%",
	"keyFactors": ["income", "history"]
}`

func evaluatorProfile() model.ClientProfile {
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

// builtIndex returns an index with two embedded cases; queries embed to [1,0].
func builtIndex(t *testing.T) *Index {
	t.Helper()
	embedder := &fakeEmbedder{
		embedFn: func(string) ([]float64, error) { return []float64{1, 0}, nil },
		batchFn: vectorByText(map[string][]float64{
			"case: first":  {1, 0},
			"case: second": {0, 1},
		}),
	}
	index := NewIndex(embedder, fastIndexConfig(), nil)
	index.Ingest(twoCaseRows())
	_, err := index.BuildIndex(context.Background(), nil)
	require.NoError(t, err)
	return index
}

func TestEvaluateParsesGroundedDecision(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) { return validResponse, nil },
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)

	result, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.NoError(t, err)

	assert.Equal(t, model.DecisionApproved, result.Decision)
	assert.InDelta(t, 82, result.TotalScore, 0.001)
	assert.InDelta(t, 0.12, result.AnnualRate, 0.0001)
	assert.Equal(t, []string{"income", "history"}, result.KeyFactors)
	require.Len(t, result.SimilarCases, 2)
	assert.Equal(t, "case: first", result.SimilarCases[0].Record.Text)

	// Payment and ratio come from the local amortization, not the response.
	assert.InDelta(t, scorecard.MonthlyPayment(5000, 0.15, 12), result.MonthlyPayment, 0.01)
	assert.NotEqual(t, 450.0, result.MonthlyPayment)

	// The prompt carries the applicant and the retrieved context.
	assert.Contains(t, generator.lastPrompt, "Age: 30")
	assert.Contains(t, generator.lastPrompt, "Similar case: case: first")
}

func TestEvaluateStripsMarkdownFences(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) {
			return "```json\n" + validResponse + "\n```", nil
		},
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)

	result, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.NoError(t, err)
	assert.Equal(t, model.DecisionApproved, result.Decision)
}

func TestEvaluateRejectsMalformedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "no JSON object", response: "I cannot evaluate this application."},
		{name: "invalid JSON", response: `{"decision": "Approved",}`},
		{name: "unknown decision", response: `{"decision": "Maybe", "totalScore": 50, "rate": "15%", "explanation": "x", "monthlyPayment": 1, "debtRatio": "10%"}`},
		{name: "missing totalScore", response: `{"decision": "Approved", "rate": "15%", "explanation": "x", "monthlyPayment": 1, "debtRatio": "10%"}`},
		{name: "score out of range", response: `{"decision": "Approved", "totalScore": 140, "rate": "15%", "explanation": "x", "monthlyPayment": 1, "debtRatio": "10%"}`},
		{name: "missing rate", response: `{"decision": "Approved", "totalScore": 50, "explanation": "x", "monthlyPayment": 1, "debtRatio": "10%"}`},
		{name: "missing explanation", response: `{"decision": "Approved", "totalScore": 50, "rate": "15%", "monthlyPayment": 1, "debtRatio": "10%"}`},
		{name: "missing monthlyPayment", response: `{"decision": "Approved", "totalScore": 50, "rate": "15%", "explanation": "x", "debtRatio": "10%"}`},
		{name: "missing debtRatio", response: `{"decision": "Approved", "totalScore": 50, "rate": "15%", "explanation": "x", "monthlyPayment": 1}`},
		{name: "unparseable rate", response: `{"decision": "Approved", "totalScore": 50, "rate": "fifteen", "explanation": "x", "monthlyPayment": 1, "debtRatio": "10%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{
				generateFn: func(int, string) (string, error) { return tt.response, nil },
			}
			evaluator := NewEvaluator(builtIndex(t), generator, nil)

			_, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

func TestEvaluateRetriesRetryableGenerationFailures(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(call int, _ string) (string, error) {
			if call == 1 {
				return "", fmt.Errorf("%w: 503", llm.ErrUnavailable)
			}
			return validResponse, nil
		},
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)
	// Keep the retry schedule fast for the test.
	evaluator.retryOpts.InitialDelay = time.Millisecond

	result, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.NoError(t, err)
	assert.Equal(t, 2, generator.calls)
	assert.Equal(t, model.DecisionApproved, result.Decision)
}

func TestEvaluateDoesNotRetryAuthFailures(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) {
			return "", fmt.Errorf("%w: bad key", llm.ErrAuth)
		},
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)
	evaluator.retryOpts.InitialDelay = time.Millisecond

	_, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrAuth)
	assert.Equal(t, 1, generator.calls)
}

func TestEvaluateExhaustsRetryBudget(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) {
			return "", fmt.Errorf("%w: 503", llm.ErrUnavailable)
		},
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)
	evaluator.retryOpts.InitialDelay = time.Millisecond

	_, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 3, generator.calls)
}

func TestEvaluateValidatesProfile(t *testing.T) {
	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) { return validResponse, nil },
	}
	evaluator := NewEvaluator(builtIndex(t), generator, nil)

	profile := evaluatorProfile()
	profile.MonthlyIncome = 0

	_, err := evaluator.Evaluate(context.Background(), profile)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 0, generator.calls)
}

func TestEvaluateWithEmptyIndex(t *testing.T) {
	embedder := &fakeEmbedder{
		embedFn: func(string) ([]float64, error) { return []float64{1, 0}, nil },
	}
	index := NewIndex(embedder, fastIndexConfig(), nil)

	generator := &fakeGenerator{
		generateFn: func(int, string) (string, error) { return validResponse, nil },
	}
	evaluator := NewEvaluator(index, generator, nil)

	result, err := evaluator.Evaluate(context.Background(), evaluatorProfile())
	require.NoError(t, err)
	assert.Empty(t, result.SimilarCases)
	assert.Contains(t, generator.lastPrompt, "no indexed historical cases available")
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "15.0%", want: 0.15},
		{in: "12%", want: 0.12},
		{in: " 18.5% ", want: 0.185},
		{in: "0.15", want: 0.15},
		{in: "22", want: 0.22},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePercent(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}
