// Package audit implements the append-only ledger of evaluations and the
// analyst decisions recorded against them: logging, exactly-once decision
// updates, filtering, statistics, exports, and retention.
package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crediai/crediai/internal/model"
)

// Ledger errors.
var (
	// ErrNotFound indicates an unknown audit entry id.
	ErrNotFound = errors.New("audit entry not found")
	// ErrDecisionRecorded indicates the entry already carries an analyst
	// decision; the transition from pending happens exactly once.
	ErrDecisionRecorded = errors.New("analyst decision already recorded")
)

// FilterCriteria narrows ledger queries. Nil fields match everything;
// set fields combine with AND.
type FilterCriteria struct {
	Status *model.EntryStatus
	Method *model.DecisionMethod
	From   *time.Time
	To     *time.Time
}

// Ledger holds the evaluation log, newest entry first, and persists every
// mutation through its store collaborator. All mutating operations run
// under a single ledger-wide lock, which makes the read-modify-write in
// UpdateAnalystDecision a proper critical section.
type Ledger struct {
	store   Store
	logger  *slog.Logger
	entries []model.AuditLogEntry
	mu      sync.RWMutex
}

// NewLedger creates a ledger, loading any previously persisted log.
func NewLedger(store Store, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	return &Ledger{
		store:   store,
		logger:  logger,
		entries: entries,
	}, nil
}

// newEntryID generates a process-unique id: millisecond timestamp plus a
// random suffix.
func newEntryID(now time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("LOG-%d-%s", now.UnixMilli(), suffix)
}

// LogEvaluation prepends a new Pending entry for one completed evaluation
// pair and persists the log. It returns the new entry's id.
func (l *Ledger) LogEvaluation(user string, profile model.ClientProfile, aiResult, scorecardResult *model.EvaluationResult, comparison model.ComparisonResult) (string, error) {
	if user == "" {
		user = "system"
	}

	now := time.Now()
	entry := model.AuditLogEntry{
		ID:              newEntryID(now),
		CreatedAt:       now,
		User:            user,
		Profile:         profile,
		AIResult:        aiResult,
		ScorecardResult: scorecardResult,
		Comparison:      comparison,
		Status:          model.StatusPending,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]model.AuditLogEntry{entry}, l.entries...)
	if err := l.store.Save(l.entries); err != nil {
		// Roll back the in-memory prepend so memory and store agree.
		l.entries = l.entries[1:]
		return "", fmt.Errorf("failed to persist audit log: %w", err)
	}

	l.logger.Info("evaluation logged", "id", entry.ID, "user", user)
	return entry.ID, nil
}

// UpdateAnalystDecision records the analyst's final call on an entry.
// Unknown ids return ErrNotFound; an entry that already has a decision
// returns ErrDecisionRecorded and stays unchanged.
func (l *Ledger) UpdateAnalystDecision(id string, decision model.AnalystDecision) error {
	switch decision.Method {
	case model.MethodAI, model.MethodTraditional, model.MethodAdjusted:
	default:
		return fmt.Errorf("%w: unknown decision method %q", model.ErrValidation, decision.Method)
	}
	switch decision.Decision {
	case model.DecisionApproved, model.DecisionRejected:
	default:
		return fmt.Errorf("%w: unknown decision %q", model.ErrValidation, decision.Decision)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.entries {
		if l.entries[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if l.entries[idx].AnalystDecision != nil {
		return fmt.Errorf("%w: %s", ErrDecisionRecorded, id)
	}

	if decision.DecidedAt.IsZero() {
		decision.DecidedAt = time.Now()
	}

	status := model.StatusRejected
	if decision.Decision == model.DecisionApproved {
		status = model.StatusApproved
	}

	prev := l.entries[idx]
	l.entries[idx].AnalystDecision = &decision
	l.entries[idx].Status = status

	if err := l.store.Save(l.entries); err != nil {
		l.entries[idx] = prev
		return fmt.Errorf("failed to persist audit log: %w", err)
	}

	l.logger.Info("analyst decision recorded",
		"id", id,
		"method", decision.Method,
		"decision", decision.Decision)
	return nil
}

// Get returns the entry with the given id.
func (l *Ledger) Get(id string) (model.AuditLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.AuditLogEntry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// All returns a snapshot of the full log, newest first.
func (l *Ledger) All() []model.AuditLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.AuditLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns the entries matching every set criterion.
func (l *Ledger) Filter(criteria FilterCriteria) []model.AuditLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.AuditLogEntry
	for _, e := range l.entries {
		if criteria.Status != nil && e.Status != *criteria.Status {
			continue
		}
		if criteria.From != nil && e.CreatedAt.Before(*criteria.From) {
			continue
		}
		if criteria.To != nil && e.CreatedAt.After(*criteria.To) {
			continue
		}
		if criteria.Method != nil {
			if e.AnalystDecision == nil || e.AnalystDecision.Method != *criteria.Method {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// PurgeOlderThan removes entries older than the given number of days,
// persists the reduced log, and returns the removed count.
func (l *Ledger) PurgeOlderThan(days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]model.AuditLogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}

	removed := len(l.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	prev := l.entries
	l.entries = kept
	if err := l.store.Save(l.entries); err != nil {
		l.entries = prev
		return 0, fmt.Errorf("failed to persist audit log: %w", err)
	}

	l.logger.Info("old audit entries purged", "removed", removed, "cutoff_days", days)
	return removed, nil
}
