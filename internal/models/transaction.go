package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state shared by deposits and withdrawals.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Decision is an administrator's verdict on a pending record.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Target returns the status a decision moves a record into.
func (d Decision) Target() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	}
	return "", false
}

// Deposit is a user's committed principal.
type Deposit struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	DurationDays   int             `json:"duration_days"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	ExpectedReturn decimal.Decimal `json:"expected_return"`
	Status         Status          `json:"status"`
	SubmittedAt    *time.Time      `json:"submitted_at"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
	ScreenshotURL  *string         `json:"screenshot_url,omitempty"`
	ProductID      *string         `json:"product_id,omitempty"`
	Note           string          `json:"note"`
}

// Proof is the proof-of-payment attachment written onto a deposit.
type Proof struct {
	ScreenshotURL string
	ProductID     string
	Note          string
}

// Withdrawal is a request to pay out accrued interest.
type Withdrawal struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note"`
	AccountInfo string          `json:"account_info"`
	Status      Status          `json:"status"`
	RequestedAt time.Time       `json:"requested_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
}

// Owner is the user summary attached to admin listings.
type Owner struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// UnknownOwner is shown when a record's user no longer resolves.
var UnknownOwner = Owner{FullName: "Unknown"}

// DepositView is a deposit with its owner, as listed to administrators.
type DepositView struct {
	Deposit
	User Owner `json:"user"`
}

// WithdrawalView is a withdrawal with its owner, as listed to administrators.
type WithdrawalView struct {
	Withdrawal
	User Owner `json:"user"`
}

// HistoryEntry is one row of a user's merged transaction history.
type HistoryEntry struct {
	Type   string          `json:"type"`
	ID     int64           `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Status Status          `json:"status"`
	Date   *time.Time      `json:"date"`
	Note   string          `json:"note"`
}

const (
	EntryDeposit    = "Deposit"
	EntryWithdrawal = "Withdrawal"
)
