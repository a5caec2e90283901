// Package storage provides the SQLite-backed persistent store for the
// audit ledger.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/crediai/crediai/internal/model"
)

// SQLiteStore implements the audit.Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs any
// pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the full audit log, newest first. Evaluation results and
// the analyst decision are stored as JSON blobs; columns used for
// ordering and filtering have their own fields.
func (s *SQLiteStore) Load() ([]model.AuditLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, user, status, profile, ai_result, scorecard_result, comparison, analyst_decision
		FROM audit_entries
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditLogEntry
	for rows.Next() {
		var (
			id, user, status                      string
			createdAt                             time.Time
			profile, comparison                   []byte
			aiResult, scorecardResult, analystRaw sql.NullString
		)

		if err := rows.Scan(&id, &createdAt, &user, &status, &profile, &aiResult, &scorecardResult, &comparison, &analystRaw); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		entry := model.AuditLogEntry{
			ID:        id,
			CreatedAt: createdAt,
			User:      user,
			Status:    model.EntryStatus(status),
		}
		if err := json.Unmarshal(profile, &entry.Profile); err != nil {
			return nil, fmt.Errorf("failed to decode profile for %s: %w", id, err)
		}
		if err := json.Unmarshal(comparison, &entry.Comparison); err != nil {
			return nil, fmt.Errorf("failed to decode comparison for %s: %w", id, err)
		}
		if aiResult.Valid {
			entry.AIResult = &model.EvaluationResult{}
			if err := json.Unmarshal([]byte(aiResult.String), entry.AIResult); err != nil {
				return nil, fmt.Errorf("failed to decode AI result for %s: %w", id, err)
			}
		}
		if scorecardResult.Valid {
			entry.ScorecardResult = &model.EvaluationResult{}
			if err := json.Unmarshal([]byte(scorecardResult.String), entry.ScorecardResult); err != nil {
				return nil, fmt.Errorf("failed to decode scorecard result for %s: %w", id, err)
			}
		}
		if analystRaw.Valid {
			entry.AnalystDecision = &model.AnalystDecision{}
			if err := json.Unmarshal([]byte(analystRaw.String), entry.AnalystDecision); err != nil {
				return nil, fmt.Errorf("failed to decode analyst decision for %s: %w", id, err)
			}
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

// Save replaces the persisted log wholesale inside one transaction.
func (s *SQLiteStore) Save(entries []model.AuditLogEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM audit_entries`); err != nil {
		return fmt.Errorf("failed to clear audit entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO audit_entries (id, created_at, user, status, profile, ai_result, scorecard_result, comparison, analyst_decision)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		profile, err := json.Marshal(e.Profile)
		if err != nil {
			return fmt.Errorf("failed to encode profile for %s: %w", e.ID, err)
		}
		comparison, err := json.Marshal(e.Comparison)
		if err != nil {
			return fmt.Errorf("failed to encode comparison for %s: %w", e.ID, err)
		}
		aiResult, err := marshalNullable(e.AIResult)
		if err != nil {
			return fmt.Errorf("failed to encode AI result for %s: %w", e.ID, err)
		}
		scorecardResult, err := marshalNullable(e.ScorecardResult)
		if err != nil {
			return fmt.Errorf("failed to encode scorecard result for %s: %w", e.ID, err)
		}
		analystDecision, err := marshalNullable(e.AnalystDecision)
		if err != nil {
			return fmt.Errorf("failed to encode analyst decision for %s: %w", e.ID, err)
		}

		if _, err := stmt.Exec(e.ID, e.CreatedAt, e.User, string(e.Status), profile, aiResult, scorecardResult, comparison, analystDecision); err != nil {
			return fmt.Errorf("failed to insert audit entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}
	return nil
}

// marshalNullable encodes v as JSON, mapping typed nil pointers to SQL NULL.
func marshalNullable[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
