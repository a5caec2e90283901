package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crediai/crediai/internal/audit"
	"github.com/crediai/crediai/internal/common"
	"github.com/crediai/crediai/internal/config"
	"github.com/crediai/crediai/internal/llm"
	"github.com/crediai/crediai/internal/model"
	"github.com/crediai/crediai/internal/rag"
	"github.com/crediai/crediai/internal/storage"
)

// initLedger opens the SQLite-backed audit ledger with proper path expansion.
func initLedger() (*audit.Ledger, *storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/crediai/crediai.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit storage: %w", err)
	}

	ledger, err := audit.NewLedger(store, slog.Default())
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return ledger, store, nil
}

// createProviderClient creates a provider client based on configuration.
// Shared by the commands that need embedding or generation capability.
func createProviderClient() (llm.Client, error) {
	provider := viper.GetString("provider.name")
	if provider == "" {
		provider = "gemini" // default provider
	}

	cfg := llm.Config{
		Provider:       provider,
		Model:          viper.GetString("provider.model"),
		EmbeddingModel: viper.GetString("provider.embedding_model"),
		Temperature:    viper.GetFloat64("provider.temperature"),
		MaxTokens:      viper.GetInt("provider.max_tokens"),
		Timeout:        viper.GetDuration("provider.timeout"),
	}

	// Check viper first, then the provider's conventional environment variable.
	apiKey := viper.GetString("provider.api_key")
	if apiKey == "" {
		switch provider {
		case "gemini":
			apiKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if apiKey == "" {
		return nil, common.NewUserError(
			fmt.Sprintf("%s API key not found; set provider.api_key in the config file or the provider's environment variable", provider), nil)
	}
	cfg.APIKey = apiKey

	return llm.NewClient(cfg)
}

// loadScoringConfig starts from the built-in scorecard and applies any
// overrides from the config file. Validation happens in scorecard.New.
func loadScoringConfig() config.ScoringConfig {
	cfg := config.Default()

	if viper.IsSet("scoring.approval_threshold") {
		cfg.ApprovalThreshold = viper.GetFloat64("scoring.approval_threshold")
	}
	if viper.IsSet("scoring.weights.age") {
		cfg.Weights.Age = viper.GetFloat64("scoring.weights.age")
	}
	if viper.IsSet("scoring.weights.income") {
		cfg.Weights.Income = viper.GetFloat64("scoring.weights.income")
	}
	if viper.IsSet("scoring.weights.debt_ratio") {
		cfg.Weights.Debt = viper.GetFloat64("scoring.weights.debt_ratio")
	}
	if viper.IsSet("scoring.weights.history") {
		cfg.Weights.History = viper.GetFloat64("scoring.weights.history")
	}
	if viper.IsSet("scoring.weights.employment") {
		cfg.Weights.Employment = viper.GetFloat64("scoring.weights.employment")
	}

	return cfg
}

// loadCases reads a CSV of historical cases into knowledge base rows.
// The header row names the columns; every data row becomes one record.
func loadCases(path string) ([][]model.Column, error) {
	f, err := os.Open(config.ExpandPath(path))
	if err != nil {
		return nil, common.NewUserError("failed to open cases file", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse cases file: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cases file needs a header row and at least one case")
	}

	header := records[0]
	rows := make([][]model.Column, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]model.Column, 0, len(rec))
		for i, value := range rec {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			row = append(row, model.Column{Name: name, Value: strings.TrimSpace(value)})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// buildCaseIndex loads the cases file, ingests it, and embeds every record,
// reporting progress to stderr.
func buildCaseIndex(cmd *cobra.Command, casesPath string, client llm.EmbeddingClient) (*rag.Index, error) {
	rows, err := loadCases(casesPath)
	if err != nil {
		return nil, err
	}

	index := rag.NewIndex(client, rag.DefaultIndexConfig(), slog.Default())
	index.Ingest(rows)

	start := time.Now()
	embedded, err := index.BuildIndex(cmd.Context(), func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build case index: %w", err)
	}

	slog.Info("case index ready",
		"cases", index.Len(),
		"embedded", embedded,
		"duration", time.Since(start).Round(time.Millisecond))
	return index, nil
}

// parseHistory maps the CLI flag value onto a credit history category.
func parseHistory(s string) (model.CreditHistory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return model.HistoryGood, nil
	case "fair":
		return model.HistoryFair, nil
	case "poor":
		return model.HistoryPoor, nil
	default:
		return "", fmt.Errorf("invalid credit history %q (expected good, fair, or poor)", s)
	}
}

// formatMoney renders an amount with two decimals for terminal output.
func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
