package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crediai/crediai/internal/engine"
	"github.com/crediai/crediai/internal/model"
	"github.com/crediai/crediai/internal/rag"
	"github.com/crediai/crediai/internal/scorecard"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a loan application with both engines",
		Long: `Runs the deterministic scorecard and the retrieval-augmented AI engine
against one applicant profile, compares the outcomes, and records the
evaluation in the audit ledger.

The AI engine retrieves similar historical cases from the file given with
--cases; without it the engine reasons from the profile alone.`,
		RunE: runEvaluate,
	}

	cmd.Flags().Int("age", 0, "applicant age in years")
	cmd.Flags().Float64("income", 0, "monthly income")
	cmd.Flags().Float64("debt", 0, "current total debt")
	cmd.Flags().Float64("amount", 0, "requested loan amount")
	cmd.Flags().Int("term", 0, "loan term in months")
	cmd.Flags().String("history", "good", "credit history (good, fair, poor)")
	cmd.Flags().Bool("employment", false, "applicant has stable employment")
	cmd.Flags().String("cases", "", "CSV file of historical cases for retrieval")
	cmd.Flags().String("user", "", "user recorded on the audit entry")
	cmd.Flags().Bool("json", false, "print the full result as JSON")

	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("income")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("term")

	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	profile, err := profileFromFlags(cmd)
	if err != nil {
		return err
	}

	client, err := createProviderClient()
	if err != nil {
		return err
	}

	casesPath, _ := cmd.Flags().GetString("cases")
	var index *rag.Index
	if casesPath != "" {
		index, err = buildCaseIndex(cmd, casesPath, client)
		if err != nil {
			return err
		}
	} else {
		index = rag.NewIndex(client, rag.DefaultIndexConfig(), slog.Default())
	}

	scorecardEngine, err := scorecard.New(loadScoringConfig(), slog.Default())
	if err != nil {
		return fmt.Errorf("invalid scoring configuration: %w", err)
	}
	aiEngine := rag.NewEvaluator(index, client, slog.Default())

	ledger, store, err := initLedger()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orchCfg := engine.DefaultConfig()
	if user, _ := cmd.Flags().GetString("user"); user != "" {
		orchCfg.User = user
	} else if user := viper.GetString("audit.user"); user != "" {
		orchCfg.User = user
	}

	orchestrator := engine.NewWithConfig(scorecardEngine, aiEngine, ledger, slog.Default(), orchCfg)
	evaluation, err := orchestrator.Evaluate(cmd.Context(), profile)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := json.MarshalIndent(evaluation, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printEvaluation(cmd, evaluation)
	return nil
}

func profileFromFlags(cmd *cobra.Command) (model.ClientProfile, error) {
	historyFlag, _ := cmd.Flags().GetString("history")
	history, err := parseHistory(historyFlag)
	if err != nil {
		return model.ClientProfile{}, err
	}

	age, _ := cmd.Flags().GetInt("age")
	income, _ := cmd.Flags().GetFloat64("income")
	debt, _ := cmd.Flags().GetFloat64("debt")
	amount, _ := cmd.Flags().GetFloat64("amount")
	term, _ := cmd.Flags().GetInt("term")
	employment, _ := cmd.Flags().GetBool("employment")

	profile := model.ClientProfile{
		Age:              age,
		MonthlyIncome:    income,
		TotalDebt:        debt,
		RequestedAmount:  amount,
		TermMonths:       term,
		CreditHistory:    history,
		StableEmployment: employment,
	}
	return profile, profile.Validate()
}

func printEvaluation(cmd *cobra.Command, ev engine.Evaluation) {
	cmd.Printf("Audit entry: %s\n\n", ev.EntryID)

	printResult(cmd, "TRADITIONAL SCORECARD", ev.Scorecard)
	cmd.Println()
	printResult(cmd, "AI EVALUATION", ev.AIResult)

	cmd.Println()
	cmd.Println("COMPARISON (AI vs scorecard)")
	cmd.Printf("  Score delta:   %s\n", ev.Comparison.ScoreDeltaText)
	cmd.Printf("  Rate delta:    %s\n", ev.Comparison.RateDeltaText)
	cmd.Printf("  Latency delta: %s\n", ev.Comparison.LatencyDeltaText)
}

func printResult(cmd *cobra.Command, title string, r model.EvaluationResult) {
	cmd.Println(title)
	cmd.Printf("  Decision:        %s\n", r.Decision)
	cmd.Printf("  Score:           %.1f\n", r.TotalScore)
	cmd.Printf("  Rate:            %s (%.1f%% annual)\n", r.RateLabel, r.AnnualRate*100)
	cmd.Printf("  Monthly payment: %s\n", formatMoney(r.MonthlyPayment))
	cmd.Printf("  Debt ratio:      %.1f%%\n", r.DebtRatio)
	cmd.Printf("  Latency:         %d ms\n", r.LatencyMS)
	if len(r.KeyFactors) > 0 {
		cmd.Printf("  Key factors:     %s\n", strings.Join(r.KeyFactors, "; "))
	}
	if len(r.SimilarCases) > 0 {
		cmd.Println("  Similar cases:")
		for _, sc := range r.SimilarCases {
			cmd.Printf("    %.3f  %s\n", sc.Similarity, sc.Record.Text)
		}
	}
	if r.Explanation != "" {
		cmd.Println("  Explanation:")
		for _, line := range strings.Split(r.Explanation, "\n") {
			cmd.Printf("    %s\n", line)
		}
	}
}
