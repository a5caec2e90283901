package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/crediai/crediai/internal/rag"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed a historical case file and report coverage",
		Long: `Loads a CSV of historical cases, embeds every record through the
configured provider, and reports how much of the knowledge base ended up
searchable. Useful as a dry run before evaluations: it exercises the same
batching, pacing, and retry policy the evaluate command uses.`,
		RunE: runIndex,
	}

	cmd.Flags().String("cases", "", "CSV file of historical cases")
	_ = cmd.MarkFlagRequired("cases")

	return cmd
}

func runIndex(cmd *cobra.Command, _ []string) error {
	casesPath, _ := cmd.Flags().GetString("cases")
	rows, err := loadCases(casesPath)
	if err != nil {
		return err
	}

	client, err := createProviderClient()
	if err != nil {
		return err
	}

	cfg := rag.DefaultIndexConfig()
	index := rag.NewIndex(client, cfg, slog.Default())
	total := index.Ingest(rows)

	batches := (total + cfg.BatchSize - 1) / cfg.BatchSize
	bar := progressbar.NewOptions(batches,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Embedding historical cases..."),
	)

	start := time.Now()
	embedded, err := index.BuildIndex(cmd.Context(), func(status string) {
		switch {
		case strings.HasPrefix(status, "indexed "):
			_ = bar.Add(1)
		case strings.HasPrefix(status, "batch "):
			fmt.Fprintf(os.Stderr, "\n%s\n", status)
			_ = bar.Add(1)
		case strings.HasPrefix(status, "provider limit reached"):
			fmt.Fprintf(os.Stderr, "\n%s\n", status)
		}
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to build case index: %w", err)
	}

	cmd.Printf("Cases loaded:   %d\n", total)
	cmd.Printf("Cases embedded: %d\n", embedded)
	cmd.Printf("Elapsed:        %s\n", time.Since(start).Round(time.Millisecond))
	if embedded < total {
		cmd.Printf("Warning: %d cases could not be embedded and will not be searchable\n", total-embedded)
	}
	return nil
}
