package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crediai/crediai/internal/audit"
	"github.com/crediai/crediai/internal/config"
	"github.com/crediai/crediai/internal/model"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and manage the evaluation audit ledger",
	}

	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditShowCmd())
	cmd.AddCommand(auditStatsCmd())
	cmd.AddCommand(auditExportCmd())
	cmd.AddCommand(auditDecideCmd())
	cmd.AddCommand(auditPurgeCmd())

	return cmd
}

func auditListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, newest first",
		RunE:  runAuditList,
	}

	cmd.Flags().String("status", "", "filter by status (Pending, Approved, Rejected)")
	cmd.Flags().String("method", "", "filter by analyst method (IA, Traditional, Adjusted)")
	cmd.Flags().String("from", "", "only entries on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only entries on or before this date (YYYY-MM-DD)")

	return cmd
}

func runAuditList(cmd *cobra.Command, _ []string) error {
	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return err
	}

	ledger, store, err := initLedger()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries := ledger.Filter(criteria)
	if len(entries) == 0 {
		cmd.Println("No audit entries found.")
		return nil
	}

	for _, e := range entries {
		method := "-"
		if e.AnalystDecision != nil {
			method = string(e.AnalystDecision.Method)
		}
		cmd.Printf("%-32s  %s  %-8s  %-11s  user=%s\n",
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Status,
			method,
			e.User)
	}
	cmd.Printf("\n%d entries\n", len(entries))
	return nil
}

func criteriaFromFlags(cmd *cobra.Command) (audit.FilterCriteria, error) {
	var criteria audit.FilterCriteria

	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status := model.EntryStatus(s)
		switch status {
		case model.StatusPending, model.StatusApproved, model.StatusRejected:
			criteria.Status = &status
		default:
			return criteria, fmt.Errorf("invalid status %q", s)
		}
	}
	if m, _ := cmd.Flags().GetString("method"); m != "" {
		method := model.DecisionMethod(m)
		switch method {
		case model.MethodAI, model.MethodTraditional, model.MethodAdjusted:
			criteria.Method = &method
		default:
			return criteria, fmt.Errorf("invalid method %q", m)
		}
	}
	if s, _ := cmd.Flags().GetString("from"); s != "" {
		from, err := time.Parse("2006-01-02", s)
		if err != nil {
			return criteria, fmt.Errorf("invalid from date %q: %w", s, err)
		}
		criteria.From = &from
	}
	if s, _ := cmd.Flags().GetString("to"); s != "" {
		to, err := time.Parse("2006-01-02", s)
		if err != nil {
			return criteria, fmt.Errorf("invalid to date %q: %w", s, err)
		}
		// Inclusive through the end of the named day.
		to = to.Add(24*time.Hour - time.Nanosecond)
		criteria.To = &to
	}

	return criteria, nil
}

func auditShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show one audit entry in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, store, err := initLedger()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entry, err := ledger.Get(args[0])
			if err != nil {
				return err
			}

			cmd.Printf("Entry:   %s\n", entry.ID)
			cmd.Printf("Date:    %s\n", entry.CreatedAt.Format(time.RFC3339))
			cmd.Printf("User:    %s\n", entry.User)
			cmd.Printf("Status:  %s\n", entry.Status)
			cmd.Printf("Profile: %s\n", entry.Profile.Description())

			if entry.ScorecardResult != nil {
				cmd.Println()
				printResult(cmd, "TRADITIONAL SCORECARD", *entry.ScorecardResult)
			}
			if entry.AIResult != nil {
				cmd.Println()
				printResult(cmd, "AI EVALUATION", *entry.AIResult)
			}

			cmd.Println()
			cmd.Printf("Score delta:   %s\n", entry.Comparison.ScoreDeltaText)
			cmd.Printf("Rate delta:    %s\n", entry.Comparison.RateDeltaText)
			cmd.Printf("Latency delta: %s\n", entry.Comparison.LatencyDeltaText)

			if d := entry.AnalystDecision; d != nil {
				cmd.Println()
				cmd.Println("ANALYST DECISION")
				cmd.Printf("  Decision:      %s\n", d.Decision)
				cmd.Printf("  Method:        %s\n", d.Method)
				cmd.Printf("  Decided at:    %s\n", d.DecidedAt.Format(time.RFC3339))
				cmd.Printf("  Justification: %s\n", d.Justification)
				for k, v := range d.Adjustments {
					cmd.Printf("  Adjusted %s: %s\n", k, v)
				}
			}
			return nil
		},
	}
}

func auditStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics over the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, store, err := initLedger()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				out, err := ledger.ExportStatsJSON()
				if err != nil {
					return err
				}
				cmd.Println(out)
				return nil
			}

			stats := ledger.Statistics()
			cmd.Printf("Total evaluations:  %d\n", stats.Total)
			cmd.Printf("Approved:           %d\n", stats.Approved)
			cmd.Printf("Rejected:           %d\n", stats.Rejected)
			cmd.Printf("Pending:            %d\n", stats.Pending)
			cmd.Printf("Approval rate:      %.1f%%\n", stats.ApprovalRate)
			cmd.Printf("Engine agreement:   %.1f%%\n", stats.AgreementRate)
			cmd.Printf("Decisions (AI):     %d\n", stats.DecisionsAI)
			cmd.Printf("Decisions (trad.):  %d\n", stats.DecisionsTraditional)
			cmd.Printf("Decisions (adj.):   %d\n", stats.DecisionsAdjusted)
			cmd.Printf("Avg AI latency:     %.1f ms\n", stats.AvgLatencyAIMS)
			cmd.Printf("Avg scorecard lat.: %.1f ms\n", stats.AvgLatencyScorecardMS)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print statistics as JSON")
	return cmd
}

func auditExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, store, err := initLedger()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := ledger.ExportCSV()
			if out == "" {
				cmd.Println("Ledger is empty, nothing to export.")
				return nil
			}

			path, _ := cmd.Flags().GetString("output")
			if path == "" {
				cmd.Print(out)
				return nil
			}
			path = config.ExpandPath(path)
			if err := os.WriteFile(path, []byte(out), 0600); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			cmd.Printf("Exported %d entries to %s\n", len(ledger.All()), path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "write CSV to this file instead of stdout")
	return cmd
}

func auditDecideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide <entry-id>",
		Short: "Record the analyst's final decision on an entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runAuditDecide,
	}

	cmd.Flags().String("decision", "", "final decision (approved, rejected)")
	cmd.Flags().String("method", "", "which evaluation was followed (IA, Traditional, Adjusted)")
	cmd.Flags().String("justification", "", "free-text justification")
	cmd.Flags().StringToString("adjust", nil, "adjusted terms as key=value pairs")

	_ = cmd.MarkFlagRequired("decision")
	_ = cmd.MarkFlagRequired("method")

	return cmd
}

func runAuditDecide(cmd *cobra.Command, args []string) error {
	decisionFlag, _ := cmd.Flags().GetString("decision")
	var decision model.Decision
	switch decisionFlag {
	case "approved", "Approved":
		decision = model.DecisionApproved
	case "rejected", "Rejected":
		decision = model.DecisionRejected
	default:
		return fmt.Errorf("invalid decision %q (expected approved or rejected)", decisionFlag)
	}

	methodFlag, _ := cmd.Flags().GetString("method")
	justification, _ := cmd.Flags().GetString("justification")
	adjustments, _ := cmd.Flags().GetStringToString("adjust")

	ledger, store, err := initLedger()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	err = ledger.UpdateAnalystDecision(args[0], model.AnalystDecision{
		DecidedAt:     time.Now(),
		Method:        model.DecisionMethod(methodFlag),
		Decision:      decision,
		Justification: justification,
		Adjustments:   adjustments,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Recorded %s (%s) on %s\n", decision, methodFlag, args[0])
	return nil
}

func auditPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				return fmt.Errorf("retention window must be positive, got %d days", days)
			}

			ledger, store, err := initLedger()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			removed, err := ledger.PurgeOlderThan(days)
			if err != nil {
				return err
			}
			cmd.Printf("Purged %d entries older than %d days\n", removed, days)
			return nil
		},
	}
	cmd.Flags().Int("days", 365, "keep entries newer than this many days")
	return cmd
}
