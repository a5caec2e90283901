package model

import (
	"fmt"
	"strings"
)

// Column is one cell of an ingested historical row. Rows keep their
// original column order so the derived text is deterministic.
type Column struct {
	Name  string
	Value string
}

// KnowledgeRecord is one historical case held by the retrieval index.
// Embedding stays nil until the record has been indexed successfully.
type KnowledgeRecord struct {
	Text      string
	Row       []Column
	Embedding []float64
}

// NewKnowledgeRecord builds a record from an ordered row, deriving the
// text representation used for embedding.
func NewKnowledgeRecord(row []Column) KnowledgeRecord {
	parts := make([]string, len(row))
	for i, col := range row {
		parts[i] = fmt.Sprintf("%s: %s", col.Name, col.Value)
	}
	return KnowledgeRecord{
		Row:  row,
		Text: strings.Join(parts, ", "),
	}
}

// ScoredRecord pairs a knowledge record with its similarity to a query.
type ScoredRecord struct {
	Record     KnowledgeRecord
	Similarity float64
}
