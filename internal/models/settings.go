package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the global, versioned platform configuration.
type Settings struct {
	InterestRate decimal.Decimal `json:"interest_rate"`
	Version      int64           `json:"version"`
	UpdatedAt    time.Time       `json:"updated_at"`
	// Defaulted is set when no stored settings exist and the built-in rate applies.
	Defaulted bool `json:"defaulted"`
}

// Contact is a feedback message left through the public contact form.
type Contact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}
