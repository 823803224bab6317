// Package accrual turns a user's deposits and withdrawals into a wallet
// summary. It holds no state: every call recomputes from its inputs, so a
// balance always reflects the latest rate and elapsed time.
package accrual

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/models"
)

// Model names an interest formula.
type Model string

const (
	// AnnualizedCapped accrues rate percent per year and stops at the
	// deposit's committed duration.
	AnnualizedCapped Model = "annualized-capped"
	// DailyUncapped accrues rate percent per day with no cap.
	DailyUncapped Model = "daily-uncapped"
)

// DefaultRate is the interest rate used when no settings are stored.
const DefaultRate = "8.0"

const day = 24 * time.Hour

var (
	hundred      = decimal.NewFromInt(100)
	yearPercent  = decimal.NewFromInt(365 * 100)
	centDecimals = int32(2)
)

// ParseModel resolves a configured model name. An empty name selects
// AnnualizedCapped.
func ParseModel(name string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(name))) {
	case "", AnnualizedCapped:
		return AnnualizedCapped, nil
	case DailyUncapped:
		return DailyUncapped, nil
	}
	return "", fmt.Errorf("unknown accrual model %q", name)
}

// Policy selects how balances are computed.
type Policy struct {
	Model Model
	// HoldPending reserves pending withdrawals against the balance so that
	// outstanding requests cannot be spent twice.
	HoldPending bool
}

// DefaultPolicy is the canonical policy every call site uses unless
// configured otherwise.
func DefaultPolicy() Policy {
	return Policy{Model: AnnualizedCapped, HoldPending: true}
}

// DefaultSettings returns the settings applied when none are stored.
func DefaultSettings() models.Settings {
	return models.Settings{
		InterestRate: decimal.RequireFromString(DefaultRate),
		Defaulted:    true,
	}
}

// Summary is a user's computed wallet.
type Summary struct {
	TotalDeposit      decimal.Decimal `json:"total_deposit"`
	TotalWithdrawal   decimal.Decimal `json:"total_withdrawal"`
	PendingWithdrawal decimal.Decimal `json:"pending_withdrawal"`
	AccruedInterest   decimal.Decimal `json:"accrued_interest"`
	Withdrawable      decimal.Decimal `json:"withdrawable_balance"`
	Rate              decimal.Decimal `json:"interest_rate"`
	Model             Model           `json:"accrual_model"`
	ComputedAt        time.Time       `json:"computed_at"`
}

// ElapsedDays returns the whole days between start and now, never negative.
func ElapsedDays(start, now time.Time) int {
	elapsed := now.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}

// Interest returns the interest a single deposit has earned at now. Only
// approved deposits with a submission time earn anything.
func Interest(d models.Deposit, rate decimal.Decimal, now time.Time, model Model) decimal.Decimal {
	if d.Status != models.StatusApproved || d.SubmittedAt == nil {
		return decimal.Zero
	}
	elapsed := ElapsedDays(*d.SubmittedAt, now)

	switch model {
	case DailyUncapped:
		return d.Amount.Mul(rate).Mul(decimal.NewFromInt(int64(elapsed))).Div(hundred)
	default:
		if elapsed > d.DurationDays {
			elapsed = d.DurationDays
		}
		if elapsed <= 0 {
			return decimal.Zero
		}
		return d.Amount.Mul(rate).Mul(decimal.NewFromInt(int64(elapsed))).Div(yearPercent)
	}
}

// ExpectedReturn is the informational return quoted when a deposit is
// submitted: amount × rate × (days/365) / 100.
func ExpectedReturn(amount, rate decimal.Decimal, durationDays int) decimal.Decimal {
	return amount.Mul(rate).Mul(decimal.NewFromInt(int64(durationDays))).Div(yearPercent).Round(centDecimals)
}

// Compute folds a user's records into a Summary. Principal never becomes
// withdrawable; only accrued interest minus paid-out (and, under
// HoldPending, reserved) withdrawals does.
func Compute(deposits []models.Deposit, withdrawals []models.Withdrawal, settings models.Settings, now time.Time, policy Policy) Summary {
	model := policy.Model
	if model == "" {
		model = AnnualizedCapped
	}
	out := Summary{
		TotalDeposit:      decimal.Zero,
		TotalWithdrawal:   decimal.Zero,
		PendingWithdrawal: decimal.Zero,
		AccruedInterest:   decimal.Zero,
		Rate:              settings.InterestRate,
		Model:             model,
		ComputedAt:        now,
	}

	interest := decimal.Zero
	for _, d := range deposits {
		if d.Status != models.StatusApproved {
			continue
		}
		out.TotalDeposit = out.TotalDeposit.Add(d.Amount)
		interest = interest.Add(Interest(d, settings.InterestRate, now, model))
	}
	out.AccruedInterest = interest.Truncate(centDecimals)

	for _, w := range withdrawals {
		switch w.Status {
		case models.StatusApproved:
			out.TotalWithdrawal = out.TotalWithdrawal.Add(w.Amount)
		case models.StatusPending:
			out.PendingWithdrawal = out.PendingWithdrawal.Add(w.Amount)
		}
	}

	out.Withdrawable = out.AccruedInterest.Sub(out.TotalWithdrawal)
	if policy.HoldPending {
		out.Withdrawable = out.Withdrawable.Sub(out.PendingWithdrawal)
	}
	return out
}
