package model

import "time"

// EntryStatus tracks where an audit entry sits in the analyst workflow.
type EntryStatus string

// Entry status constants.
const (
	StatusPending  EntryStatus = "Pending"
	StatusApproved EntryStatus = "Approved"
	StatusRejected EntryStatus = "Rejected"
)

// DecisionMethod identifies which evaluation the analyst sided with.
type DecisionMethod string

// Decision method constants.
const (
	MethodAI          DecisionMethod = "IA"
	MethodTraditional DecisionMethod = "Traditional"
	MethodAdjusted    DecisionMethod = "Adjusted"
)

// AnalystDecision is the human analyst's final call on an evaluation.
// It is recorded at most once per audit entry.
type AnalystDecision struct {
	DecidedAt     time.Time
	Adjustments   map[string]string
	Method        DecisionMethod
	Decision      Decision
	Justification string
}

// AuditLogEntry records one evaluation and, eventually, the analyst's
// final call. All fields except AnalystDecision and Status are immutable
// after creation.
type AuditLogEntry struct {
	CreatedAt       time.Time
	AIResult        *EvaluationResult
	ScorecardResult *EvaluationResult
	AnalystDecision *AnalystDecision
	ID              string
	User            string
	Status          EntryStatus
	Comparison      ComparisonResult
	Profile         ClientProfile
}
