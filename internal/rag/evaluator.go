package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/crediai/crediai/internal/common"
	"github.com/crediai/crediai/internal/llm"
	"github.com/crediai/crediai/internal/model"
	"github.com/crediai/crediai/internal/scorecard"
)

// ErrParse indicates a generation response that could not be turned into
// a structured decision. It fails the single evaluation that produced it.
var ErrParse = errors.New("malformed generation response")

// referenceAnnualRate is the rate used for the payment estimate handed to
// the generation provider before it assigns its own.
const referenceAnnualRate = 0.15

// Evaluator produces a retrieval-grounded evaluation: it finds the most
// similar historical cases, asks the generation provider for a decision
// grounded in them, and parses the response strictly.
type Evaluator struct {
	index     *Index
	generator llm.GenerationClient
	logger    *slog.Logger
	retryOpts common.RetryOptions
	topK      int
}

// NewEvaluator creates a retrieval-augmented evaluator.
func NewEvaluator(index *Index, generator llm.GenerationClient, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		index:     index,
		generator: generator,
		logger:    logger,
		topK:      3,
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// generatedDecision is the strict expected shape of the provider response.
// Pointer fields distinguish "missing" from zero values.
type generatedDecision struct {
	Decision       string   `json:"decision"`
	TotalScore     *float64 `json:"totalScore"`
	Rate           string   `json:"rate"`
	Explanation    string   `json:"explanation"`
	MonthlyPayment *float64 `json:"monthlyPayment"`
	DebtRatio      string   `json:"debtRatio"`
	KeyFactors     []string `json:"keyFactors"`
}

// Evaluate runs the full retrieval-augmented evaluation for a profile.
func (e *Evaluator) Evaluate(ctx context.Context, profile model.ClientProfile) (model.EvaluationResult, error) {
	start := time.Now()

	if err := profile.Validate(); err != nil {
		return model.EvaluationResult{}, err
	}
	if profile.MonthlyIncome == 0 {
		return model.EvaluationResult{}, fmt.Errorf("%w: monthly income is zero, debt ratio is undefined", model.ErrValidation)
	}

	description := profile.Description()

	similar, err := e.index.Search(ctx, description, e.topK)
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("retrieval failed: %w", err)
	}

	payment := scorecard.MonthlyPayment(profile.RequestedAmount, referenceAnnualRate, profile.TermMonths)
	projectedRatio := scorecard.ProjectedDebtRatio(payment, profile.TotalDebt, profile.TermMonths, profile.MonthlyIncome)

	prompt := buildPrompt(description, similar, payment, projectedRatio)

	var raw string
	err = common.WithRetry(ctx, func() error {
		response, genErr := e.generator.Generate(ctx, prompt)
		if genErr != nil {
			e.logger.Warn("generation attempt failed", "error", genErr)
			return &common.RetryableError{Err: genErr, Retryable: llm.IsRetryable(genErr)}
		}
		raw = response
		return nil
	}, e.retryOpts)
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("generation failed: %w", err)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		return model.EvaluationResult{}, err
	}

	annualRate, err := parsePercent(decision.Rate)
	if err != nil {
		return model.EvaluationResult{}, fmt.Errorf("%w: rate %q: %v", ErrParse, decision.Rate, err)
	}

	result := model.EvaluationResult{
		Decision:    model.Decision(decision.Decision),
		TotalScore:  *decision.TotalScore,
		AnnualRate:  annualRate,
		Explanation: decision.Explanation,
		KeyFactors:  decision.KeyFactors,
		// Payment and ratio are computed locally; the provider echoes its
		// own estimates but the deterministic figures go on record.
		MonthlyPayment: payment,
		DebtRatio:      projectedRatio,
		SimilarCases:   similar,
		LatencyMS:      time.Since(start).Milliseconds(),
	}

	e.logger.Info("retrieval-augmented evaluation complete",
		"decision", result.Decision,
		"score", result.TotalScore,
		"similar_cases", len(similar),
		"latency_ms", result.LatencyMS)

	return result, nil
}

// buildPrompt assembles the grounded evaluation prompt.
func buildPrompt(description string, similar []model.ScoredRecord, payment, projectedRatio float64) string {
	var cases strings.Builder
	for _, s := range similar {
		fmt.Fprintf(&cases, "- Similar case: %s\n", s.Record.Text)
	}
	if cases.Len() == 0 {
		cases.WriteString("(no indexed historical cases available)\n")
	}

	return fmt.Sprintf(`Act as an expert credit risk analyst.
Evaluate the following applicant based on their profile and on the historical cases retrieved below.

CURRENT APPLICANT:
%s

FINANCIAL ANALYSIS:
- Estimated monthly payment: %.2f (reference rate %.0f%% annual)
- Projected debt ratio: %.1f%% of monthly income

HISTORICAL CONTEXT:
%s
IMPORTANT: Respond ONLY with a valid JSON object. Do not use markdown code blocks.
Consider the requested term and the monthly payment in your analysis.
Include an estimated "totalScore" from 0-100 based on the risk assessment.
Format:
{
    "decision": "Approved" or "Rejected",
    "totalScore": 75,
    "rate": "15.0%%",
    "explanation": "Detailed text justifying the decision, naming key factors such as age, income, debt, history and employment.",
    "monthlyPayment": %.2f,
    "debtRatio": "%.1f%%",
    "keyFactors": ["Factor 1", "Factor 2", "Factor 3"]
}`, description, payment, referenceAnnualRate*100, projectedRatio, cases.String(), payment, projectedRatio)
}

// parseDecision applies the strict response-handling contract: strip any
// markdown fences, extract the outermost JSON object, unmarshal it, and
// reject responses missing a required field.
func parseDecision(raw string) (generatedDecision, error) {
	content, ok := llm.ExtractJSONObject(raw)
	if !ok {
		return generatedDecision{}, fmt.Errorf("%w: no JSON object in response", ErrParse)
	}

	var decision generatedDecision
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return generatedDecision{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	switch model.Decision(decision.Decision) {
	case model.DecisionApproved, model.DecisionRejected:
	default:
		return generatedDecision{}, fmt.Errorf("%w: unknown decision %q", ErrParse, decision.Decision)
	}
	if decision.TotalScore == nil {
		return generatedDecision{}, fmt.Errorf("%w: missing totalScore", ErrParse)
	}
	if *decision.TotalScore < 0 || *decision.TotalScore > 100 {
		return generatedDecision{}, fmt.Errorf("%w: totalScore %.1f outside [0,100]", ErrParse, *decision.TotalScore)
	}
	if strings.TrimSpace(decision.Rate) == "" {
		return generatedDecision{}, fmt.Errorf("%w: missing rate", ErrParse)
	}
	if strings.TrimSpace(decision.Explanation) == "" {
		return generatedDecision{}, fmt.Errorf("%w: missing explanation", ErrParse)
	}
	if decision.MonthlyPayment == nil {
		return generatedDecision{}, fmt.Errorf("%w: missing monthlyPayment", ErrParse)
	}
	if strings.TrimSpace(decision.DebtRatio) == "" {
		return generatedDecision{}, fmt.Errorf("%w: missing debtRatio", ErrParse)
	}

	return decision, nil
}

// parsePercent converts "15.0%" (or a bare number) to a fractional rate.
func parsePercent(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	hadSuffix := strings.HasSuffix(trimmed, "%")
	trimmed = strings.TrimSuffix(trimmed, "%")

	v, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
	if err != nil {
		return 0, err
	}
	if hadSuffix || v > 1 {
		v /= 100
	}
	return v, nil
}
