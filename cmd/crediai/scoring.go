package main

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/crediai/crediai/internal/config"
)

func scoringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scoring",
		Short: "Inspect the active scorecard configuration",
	}

	cmd.AddCommand(scoringShowCmd())
	cmd.AddCommand(scoringCheckCmd())

	return cmd
}

func scoringShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the scorecard weights, ranges, and rate bands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadScoringConfig()

			cmd.Println("WEIGHTS")
			cmd.Printf("  age:        %.0f%%\n", cfg.Weights.Age)
			cmd.Printf("  income:     %.0f%%\n", cfg.Weights.Income)
			cmd.Printf("  debt ratio: %.0f%%\n", cfg.Weights.Debt)
			cmd.Printf("  history:    %.0f%%\n", cfg.Weights.History)
			cmd.Printf("  employment: %.0f%%\n", cfg.Weights.Employment)

			cmd.Printf("\nApproval threshold: %.0f points\n", cfg.ApprovalThreshold)

			cmd.Println("\nRATE BANDS")
			for _, b := range cfg.RateBands {
				cmd.Printf("  %-16s score %3.0f-%3.0f  %.0f%% annual\n",
					b.Label, b.MinScore, b.MaxScore, b.AnnualRate*100)
			}

			cmd.Println("\nAGE RANGES")
			printRanges(cmd, cfg.AgeRanges)
			cmd.Println("\nINCOME RANGES")
			printRanges(cmd, cfg.IncomeRanges)
			cmd.Println("\nDEBT RATIO RANGES")
			printRanges(cmd, cfg.DebtRatioRanges)

			return nil
		},
	}
}

func scoringCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the scorecard configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadScoringConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.Println("Scoring configuration is valid.")
			return nil
		},
	}
}

func printRanges(cmd *cobra.Command, ranges []config.ScoreRange) {
	for _, r := range ranges {
		if math.IsInf(r.Max, 1) {
			cmd.Printf("  %g and up       %.0f points\n", r.Min, r.Points)
			continue
		}
		cmd.Printf("  %g to %g        %.0f points\n", r.Min, r.Max, r.Points)
	}
}
