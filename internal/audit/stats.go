package audit

import (
	"math"

	"github.com/crediai/crediai/internal/model"
)

// Statistics is an aggregate snapshot of the ledger. Rates are
// percentages rounded to one decimal; agreement and latency averages are
// computed only over entries carrying both evaluation results.
type Statistics struct {
	Total                 int     `json:"total"`
	Approved              int     `json:"approved"`
	Rejected              int     `json:"rejected"`
	Pending               int     `json:"pending"`
	ApprovalRate          float64 `json:"approvalRate"`
	AgreementRate         float64 `json:"agreementRate"`
	DecisionsAI           int     `json:"decisionsAI"`
	DecisionsTraditional  int     `json:"decisionsTraditional"`
	DecisionsAdjusted     int     `json:"decisionsAdjusted"`
	AvgLatencyAIMS        float64 `json:"avgLatencyAIMs"`
	AvgLatencyScorecardMS float64 `json:"avgLatencyScorecardMs"`
}

// Statistics computes the aggregate snapshot over the full log.
func (l *Ledger) Statistics() Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stats Statistics
	stats.Total = len(l.entries)

	complete := 0
	agreeing := 0
	var latencyAI, latencyScorecard int64

	for _, e := range l.entries {
		switch e.Status {
		case model.StatusApproved:
			stats.Approved++
		case model.StatusRejected:
			stats.Rejected++
		case model.StatusPending:
			stats.Pending++
		}

		if e.AIResult != nil && e.ScorecardResult != nil {
			complete++
			if e.AIResult.Decision == e.ScorecardResult.Decision {
				agreeing++
			}
			latencyAI += e.AIResult.LatencyMS
			latencyScorecard += e.ScorecardResult.LatencyMS
		}

		if e.AnalystDecision != nil {
			switch e.AnalystDecision.Method {
			case model.MethodAI:
				stats.DecisionsAI++
			case model.MethodTraditional:
				stats.DecisionsTraditional++
			case model.MethodAdjusted:
				stats.DecisionsAdjusted++
			}
		}
	}

	if stats.Total > 0 {
		stats.ApprovalRate = round1(float64(stats.Approved) / float64(stats.Total) * 100)
	}
	if complete > 0 {
		stats.AgreementRate = round1(float64(agreeing) / float64(complete) * 100)
		stats.AvgLatencyAIMS = round1(float64(latencyAI) / float64(complete))
		stats.AvgLatencyScorecardMS = round1(float64(latencyScorecard) / float64(complete))
	}

	return stats
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
