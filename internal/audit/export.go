package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/crediai/crediai/internal/model"
)

// csvHeaders is the fixed export column order.
var csvHeaders = []string{
	"ID",
	"Date",
	"User",
	"Client_Age",
	"Client_Income",
	"Client_Debt",
	"Client_History",
	"Client_Employment",
	"Requested_Amount",
	"Term_Months",
	"AI_Decision",
	"AI_Score",
	"AI_Rate",
	"Scorecard_Decision",
	"Scorecard_Score",
	"Scorecard_Rate",
	"Score_Delta",
	"Rate_Delta",
	"Final_Method",
	"Final_Decision",
	"Justification",
	"Status",
	"AI_Latency_MS",
	"Scorecard_Latency_MS",
}

// ExportCSV renders the full log in the fixed column order above. Free
// text is double-quoted with internal quotes doubled. An empty log
// exports as an empty string, not a lone header row.
func (l *Ledger) ExportCSV() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return ""
	}

	rows := make([]string, 0, len(l.entries)+1)
	rows = append(rows, strings.Join(csvHeaders, ","))

	for _, e := range l.entries {
		employment := "No"
		if e.Profile.StableEmployment {
			employment = "Yes"
		}

		fields := []string{
			e.ID,
			e.CreatedAt.Format(time.RFC3339),
			csvField(e.User),
			fmt.Sprintf("%d", e.Profile.Age),
			fmt.Sprintf("%.2f", e.Profile.MonthlyIncome),
			fmt.Sprintf("%.2f", e.Profile.TotalDebt),
			string(e.Profile.CreditHistory),
			employment,
			fmt.Sprintf("%.2f", e.Profile.RequestedAmount),
			fmt.Sprintf("%d", e.Profile.TermMonths),
		}
		fields = append(fields, resultColumns(e.AIResult)...)
		fields = append(fields, resultColumns(e.ScorecardResult)...)
		fields = append(fields, e.Comparison.ScoreDeltaText, e.Comparison.RateDeltaText)

		if e.AnalystDecision != nil {
			fields = append(fields,
				string(e.AnalystDecision.Method),
				string(e.AnalystDecision.Decision),
				quoteField(e.AnalystDecision.Justification))
		} else {
			fields = append(fields, "", "", "")
		}

		fields = append(fields, string(e.Status))
		fields = append(fields, latencyColumn(e.AIResult), latencyColumn(e.ScorecardResult))

		rows = append(rows, strings.Join(fields, ","))
	}

	return strings.Join(rows, "\n")
}

// resultColumns renders the decision/score/rate triple for one engine.
func resultColumns(r *model.EvaluationResult) []string {
	if r == nil {
		return []string{"", "", ""}
	}
	return []string{
		string(r.Decision),
		fmt.Sprintf("%.1f", r.TotalScore),
		fmt.Sprintf("%.1f%%", r.AnnualRate*100),
	}
}

func latencyColumn(r *model.EvaluationResult) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%d", r.LatencyMS)
}

// csvField quotes a value only when it would otherwise shift columns.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return quoteField(s)
	}
	return s
}

// quoteField double-quotes free text, doubling any internal quotes.
func quoteField(s string) string {
	if s == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportStatsJSON serializes the current statistics snapshot.
func (l *Ledger) ExportStatsJSON() (string, error) {
	stats := l.Statistics()
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize statistics: %w", err)
	}
	return string(data), nil
}
