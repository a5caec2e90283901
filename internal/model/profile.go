// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
)

// ErrValidation indicates a malformed or out-of-range input value.
// Validation failures surface before any evaluation work begins.
var ErrValidation = errors.New("validation failed")

// CreditHistory categorizes an applicant's repayment track record.
type CreditHistory string

// Credit history constants.
const (
	HistoryGood CreditHistory = "Good"
	HistoryFair CreditHistory = "Fair"
	HistoryPoor CreditHistory = "Poor"
)

// ClientProfile holds the applicant data an evaluation runs against.
// A profile is treated as immutable once an evaluation starts.
type ClientProfile struct {
	CreditHistory    CreditHistory
	MonthlyIncome    float64
	TotalDebt        float64
	RequestedAmount  float64
	Age              int
	TermMonths       int
	StableEmployment bool
}

// Validate checks the profile for malformed or out-of-range fields.
// It never coerces bad input into defaults; a broken profile fails fast.
func (p *ClientProfile) Validate() error {
	if p.Age <= 0 {
		return fmt.Errorf("%w: age must be positive, got %d", ErrValidation, p.Age)
	}
	if p.MonthlyIncome < 0 {
		return fmt.Errorf("%w: monthly income cannot be negative, got %.2f", ErrValidation, p.MonthlyIncome)
	}
	if p.TotalDebt < 0 {
		return fmt.Errorf("%w: total debt cannot be negative, got %.2f", ErrValidation, p.TotalDebt)
	}
	if p.RequestedAmount <= 0 {
		return fmt.Errorf("%w: requested amount must be positive, got %.2f", ErrValidation, p.RequestedAmount)
	}
	if p.TermMonths <= 0 {
		return fmt.Errorf("%w: term must be positive, got %d months", ErrValidation, p.TermMonths)
	}
	switch p.CreditHistory {
	case HistoryGood, HistoryFair, HistoryPoor:
	default:
		return fmt.Errorf("%w: unknown credit history %q", ErrValidation, p.CreditHistory)
	}
	return nil
}

// Description renders the profile as a single line of "label: value" pairs.
// The retrieval path embeds this text to find similar historical cases.
func (p *ClientProfile) Description() string {
	employment := "No"
	if p.StableEmployment {
		employment = "Yes"
	}
	return fmt.Sprintf("Age: %d, Income: %.2f, Debt: %.2f, History: %s, Employment: %s, Requested Amount: %.2f, Term: %d months",
		p.Age, p.MonthlyIncome, p.TotalDebt, p.CreditHistory, employment, p.RequestedAmount, p.TermMonths)
}
