// Package workflow holds the creation rules and state machine for deposits
// and withdrawals: pending → approved | rejected, nothing after that.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/models"
)

const (
	MinDurationDays = 1
	MaxDurationDays = 3650
)

var (
	MinDeposit    = decimal.NewFromInt(500)
	MinWithdrawal = decimal.NewFromInt(500)
)

var (
	// ErrAlreadyDecided is returned when approving or rejecting a record that
	// has already left the pending state.
	ErrAlreadyDecided = errors.New("transaction already decided")
	// ErrForbidden is returned when the principal lacks the capability.
	ErrForbidden = errors.New("forbidden")
	// ErrInsufficientBalance is wrapped by the ValidationError raised when a
	// withdrawal exceeds the withdrawable balance.
	ErrInsufficientBalance = errors.New("insufficient withdrawable balance")
)

// ValidationError reports bad input; the record is not created.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// validateCents rejects amounts finer than a cent; stored amounts have two
// decimal places.
func validateCents(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(2)) {
		return invalid("amount", "amount must have at most two decimal places")
	}
	return nil
}

// ValidateDeposit checks a deposit before it enters pending.
func ValidateDeposit(amount decimal.Decimal, durationDays int) error {
	if err := validateCents(amount); err != nil {
		return err
	}
	if amount.LessThan(MinDeposit) {
		return invalid("amount", fmt.Sprintf("minimum deposit amount is %s", MinDeposit))
	}
	if durationDays < MinDurationDays || durationDays > MaxDurationDays {
		return invalid("duration_days", fmt.Sprintf("duration must be between %d and %d days", MinDurationDays, MaxDurationDays))
	}
	return nil
}

// ValidateWithdrawal checks a withdrawal request against the withdrawable
// balance computed at the same instant.
func ValidateWithdrawal(amount decimal.Decimal, accountInfo string, withdrawable decimal.Decimal) error {
	if strings.TrimSpace(accountInfo) == "" {
		return invalid("account_info", "account number or UPI ID is required")
	}
	if !amount.IsPositive() {
		return invalid("amount", "withdrawal amount must be greater than zero")
	}
	if err := validateCents(amount); err != nil {
		return err
	}
	if amount.LessThan(MinWithdrawal) {
		return invalid("amount", fmt.Sprintf("minimum withdrawal amount is %s", MinWithdrawal))
	}
	if amount.GreaterThan(withdrawable) {
		return &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("you can only withdraw up to your available balance: %s", withdrawable.StringFixed(2)),
			Err:     ErrInsufficientBalance,
		}
	}
	return nil
}

// ParseDecision validates an action name from a request.
func ParseDecision(action string) (models.Decision, error) {
	d := models.Decision(strings.ToLower(strings.TrimSpace(action)))
	if _, ok := d.Target(); !ok {
		return "", invalid("action", "action must be approve or reject")
	}
	return d, nil
}

// Transition returns the status a pending record moves to. Terminal records
// refuse any further decision.
func Transition(current models.Status, d models.Decision) (models.Status, error) {
	target, ok := d.Target()
	if !ok {
		return "", invalid("action", "action must be approve or reject")
	}
	if current.Terminal() {
		return "", fmt.Errorf("%w: status is %s", ErrAlreadyDecided, current)
	}
	if current != models.StatusPending {
		return "", invalid("status", fmt.Sprintf("unknown status %q", current))
	}
	return target, nil
}

// Authorize checks the principal holds capability c.
func Authorize(p auth.Principal, c models.Capability) error {
	if !p.Can(c) {
		return fmt.Errorf("%w: %s required", ErrForbidden, c)
	}
	return nil
}
