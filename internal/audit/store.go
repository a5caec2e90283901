package audit

import "github.com/crediai/crediai/internal/model"

// Store is the persistence collaborator for the ledger. Load returns the
// full log, newest first; Save replaces the persisted log wholesale.
type Store interface {
	Load() ([]model.AuditLogEntry, error)
	Save(entries []model.AuditLogEntry) error
}

// MemoryStore is a Store that keeps the log in memory. Useful in tests
// and as the default when no persistent store is configured.
type MemoryStore struct {
	entries []model.AuditLogEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored entries.
func (s *MemoryStore) Load() ([]model.AuditLogEntry, error) {
	out := make([]model.AuditLogEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Save replaces the stored entries.
func (s *MemoryStore) Save(entries []model.AuditLogEntry) error {
	s.entries = make([]model.AuditLogEntry, len(entries))
	copy(s.entries, entries)
	return nil
}
