// Package rag implements the retrieval-augmented evaluation path: an
// in-memory knowledge base of historical cases, rate-limit-aware batch
// embedding, nearest-neighbor search, and the generation-backed evaluator
// that grounds its decision in retrieved cases.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/crediai/crediai/internal/llm"
	"github.com/crediai/crediai/internal/model"
)

// IndexConfig tunes the batch-embedding loop.
type IndexConfig struct {
	BatchSize       int
	PaceInterval    time.Duration
	BackoffInterval time.Duration
	MaxAttempts     int
}

// DefaultIndexConfig returns the stock indexing policy: batches of 10,
// 1s pacing between batches, 5s backoff on throttling, 3 attempts per batch.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		BatchSize:       10,
		PaceInterval:    time.Second,
		BackoffInterval: 5 * time.Second,
		MaxAttempts:     3,
	}
}

// ProgressFunc receives human-readable status updates during indexing.
type ProgressFunc func(status string)

// Index owns the knowledge base of historical records. Ingestion replaces
// the whole base atomically; a concurrent search sees either the old base
// or the new one, never a mix.
type Index struct {
	embedder llm.EmbeddingClient
	logger   *slog.Logger
	records  []model.KnowledgeRecord
	cfg      IndexConfig
	mu       sync.RWMutex
}

// NewIndex creates a retrieval index backed by the given embedding provider.
func NewIndex(embedder llm.EmbeddingClient, cfg IndexConfig, logger *slog.Logger) *Index {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Ingest replaces the entire knowledge base with one record per row and
// returns the new record count. Re-ingestion discards the prior base,
// embeddings included.
func (ix *Index) Ingest(rows [][]model.Column) int {
	records := make([]model.KnowledgeRecord, len(rows))
	for i, row := range rows {
		records[i] = model.NewKnowledgeRecord(row)
	}

	ix.mu.Lock()
	ix.records = records
	ix.mu.Unlock()

	ix.logger.Info("knowledge base replaced", "records", len(records))
	return len(records)
}

// Len returns the number of records in the knowledge base.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// EmbeddedCount returns the number of records carrying an embedding.
func (ix *Index) EmbeddedCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, r := range ix.records {
		if len(r.Embedding) > 0 {
			n++
		}
	}
	return n
}

// Records returns a snapshot copy of the knowledge base.
func (ix *Index) Records() []model.KnowledgeRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]model.KnowledgeRecord, len(ix.records))
	copy(out, ix.records)
	return out
}

// BuildIndex embeds the knowledge base in fixed-size batches, strictly
// sequentially. Sequential processing is the backpressure policy that
// bounds the outbound call rate to the embedding provider.
//
// Per batch: on success the vectors are stored and the loop paces for a
// fixed interval; on a rate-limited or unavailable failure it backs off
// and retries the same batch up to the attempt budget; an exhausted batch
// is skipped with its records left unembedded while later batches still
// run. Auth failures abort the whole build. The embedded base is swapped
// in atomically once the loop finishes, so searches never observe a
// half-built index. Returns the number of records embedded.
func (ix *Index) BuildIndex(ctx context.Context, progress ProgressFunc) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	working := ix.Records()
	total := len(working)
	if total == 0 {
		return 0, nil
	}

	embedded := 0
	for start := 0; start < total; start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := working[start:end]
		progress(fmt.Sprintf("processing batch %d/%d...", end, total))

		texts := make([]string, len(batch))
		for i, rec := range batch {
			texts[i] = rec.Text
		}

		ok, err := ix.embedBatch(ctx, batch, texts, progress)
		if err != nil {
			// Fatal: swap in whatever was embedded so far and surface the error.
			ix.swapIn(working)
			return embedded, err
		}
		if !ok {
			progress(fmt.Sprintf("batch %d/%d failed after %d attempts, skipping", end, total, ix.cfg.MaxAttempts))
			ix.logger.Warn("embedding batch skipped",
				"batch_end", end,
				"total", total,
				"attempts", ix.cfg.MaxAttempts)
			continue
		}

		embedded += len(batch)
		progress(fmt.Sprintf("indexed %d/%d", end, total))

		if end < total {
			if err := ix.wait(ctx, ix.cfg.PaceInterval); err != nil {
				ix.swapIn(working)
				return embedded, err
			}
		}
	}

	ix.swapIn(working)
	ix.logger.Info("index build complete", "embedded", embedded, "total", total)
	return embedded, nil
}

// embedBatch runs the bounded retry loop for a single batch. It returns
// (false, nil) when the attempt budget is exhausted on retryable errors,
// and a non-nil error only for failures that must abort the build.
func (ix *Index) embedBatch(ctx context.Context, batch []model.KnowledgeRecord, texts []string, progress ProgressFunc) (bool, error) {
	for attempt := 1; attempt <= ix.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return true, nil
		}

		if errors.Is(err, llm.ErrAuth) {
			return false, err
		}
		if !llm.IsRetryable(err) {
			ix.logger.Warn("embedding batch failed with non-retryable error", "error", err)
			return false, nil
		}
		if attempt == ix.cfg.MaxAttempts {
			return false, nil
		}

		progress(fmt.Sprintf("provider limit reached, waiting %s...", ix.cfg.BackoffInterval))
		ix.logger.Warn("embedding batch throttled, backing off",
			"attempt", attempt,
			"backoff", ix.cfg.BackoffInterval,
			"error", err)
		if err := ix.wait(ctx, ix.cfg.BackoffInterval); err != nil {
			return false, err
		}
	}
	return false, nil
}

// swapIn atomically replaces the knowledge base with the processed copy.
func (ix *Index) swapIn(records []model.KnowledgeRecord) {
	ix.mu.Lock()
	ix.records = records
	ix.mu.Unlock()
}

// wait sleeps for d, returning early when the context is canceled.
func (ix *Index) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Search embeds the query text and returns the top k records by cosine
// similarity, descending. Records without an embedding, or with a
// zero-magnitude one, are excluded from ranking; ties keep insertion order.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]model.ScoredRecord, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	records := ix.Records()

	scored := make([]model.ScoredRecord, 0, len(records))
	for _, rec := range records {
		sim, ok := CosineSimilarity(queryVector, rec.Embedding)
		if !ok {
			continue
		}
		scored = append(scored, model.ScoredRecord{Record: rec, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// CosineSimilarity returns dot(a,b)/(|a|·|b|). ok is false for empty,
// mismatched, or zero-magnitude vectors, which have no defined similarity.
func CosineSimilarity(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return floats.Dot(a, b) / (normA * normB), true
}
