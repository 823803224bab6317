package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/accrual"
	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/workflow"
)

const dateLayout = "2006-01-02"

// Overview is the admin dashboard aggregate.
type Overview struct {
	TotalUsers         int64           `json:"total_users"`
	TotalDeposits      decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals   decimal.Decimal `json:"total_withdrawals"`
	NetDeposits        decimal.Decimal `json:"net_deposits"`
	PendingDeposits    decimal.Decimal `json:"pending_deposits"`
	PendingWithdrawals decimal.Decimal `json:"pending_withdrawals"`
}

// ListQuery is the raw filter of an admin listing, as taken from the query
// string. Dates are YYYY-MM-DD; EndDate covers the whole day.
type ListQuery struct {
	Status    string
	StartDate string
	EndDate   string
	User      string
}

// Filter converts q into a storage filter.
func (q ListQuery) Filter() (storage.TxFilter, error) {
	var f storage.TxFilter
	if status := strings.ToLower(strings.TrimSpace(q.Status)); status != "" && status != "all" {
		f.Status = models.Status(status)
		if !f.Status.Valid() {
			return f, &workflow.ValidationError{Field: "status", Message: "status must be pending, approved or rejected"}
		}
	}
	if q.StartDate != "" {
		from, err := time.Parse(dateLayout, q.StartDate)
		if err != nil {
			return f, &workflow.ValidationError{Field: "start_date", Message: "expected YYYY-MM-DD", Err: err}
		}
		f.From = &from
	}
	if q.EndDate != "" {
		end, err := time.Parse(dateLayout, q.EndDate)
		if err != nil {
			return f, &workflow.ValidationError{Field: "end_date", Message: "expected YYYY-MM-DD", Err: err}
		}
		to := end.Add(24 * time.Hour)
		f.To = &to
	}
	f.UserQuery = strings.TrimSpace(q.User)
	return f, nil
}

// UserWallet pairs a user with their computed summary.
type UserWallet struct {
	User   models.User     `json:"user"`
	Wallet accrual.Summary `json:"wallet"`
}

// AdminOverview aggregates totals by status across all users.
func (s *Service) AdminOverview(ctx context.Context, p auth.Principal) (Overview, error) {
	if err := workflow.Authorize(p, models.CapViewReports); err != nil {
		return Overview{}, err
	}
	var (
		out Overview
		err error
	)
	if out.TotalUsers, err = s.store.CountUsers(ctx, false); err != nil {
		return Overview{}, fmt.Errorf("count users: %w", err)
	}
	if out.TotalDeposits, err = s.store.SumDeposits(ctx, models.StatusApproved); err != nil {
		return Overview{}, fmt.Errorf("sum deposits: %w", err)
	}
	if out.PendingDeposits, err = s.store.SumDeposits(ctx, models.StatusPending); err != nil {
		return Overview{}, fmt.Errorf("sum deposits: %w", err)
	}
	if out.TotalWithdrawals, err = s.store.SumWithdrawals(ctx, models.StatusApproved); err != nil {
		return Overview{}, fmt.Errorf("sum withdrawals: %w", err)
	}
	if out.PendingWithdrawals, err = s.store.SumWithdrawals(ctx, models.StatusPending); err != nil {
		return Overview{}, fmt.Errorf("sum withdrawals: %w", err)
	}
	out.NetDeposits = out.TotalDeposits.Sub(out.TotalWithdrawals)
	return out, nil
}

// SearchUsers lists investors whose name, email or phone contains query.
func (s *Service) SearchUsers(ctx context.Context, p auth.Principal, query string) ([]models.User, error) {
	if err := workflow.Authorize(p, models.CapViewReports); err != nil {
		return nil, err
	}
	investors := false
	return s.store.SearchUsers(ctx, storage.UserFilter{Query: strings.TrimSpace(query), Admin: &investors})
}

// ListDeposits returns deposits matching q, newest first.
func (s *Service) ListDeposits(ctx context.Context, p auth.Principal, q ListQuery) ([]models.DepositView, error) {
	if err := workflow.Authorize(p, models.CapViewReports); err != nil {
		return nil, err
	}
	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.store.ListDeposits(ctx, f)
}

// ListWithdrawals returns withdrawals matching q, newest first.
func (s *Service) ListWithdrawals(ctx context.Context, p auth.Principal, q ListQuery) ([]models.WithdrawalView, error) {
	if err := workflow.Authorize(p, models.CapViewReports); err != nil {
		return nil, err
	}
	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.store.ListWithdrawals(ctx, f)
}

// UserWallets computes every matching investor's summary at the same instant.
func (s *Service) UserWallets(ctx context.Context, p auth.Principal, query string) ([]UserWallet, error) {
	users, err := s.SearchUsers(ctx, p, query)
	if err != nil {
		return nil, err
	}
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	now := s.now()
	out := make([]UserWallet, 0, len(users))
	for _, u := range users {
		deposits, withdrawals, err := s.userRecords(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserWallet{
			User:   u,
			Wallet: accrual.Compute(deposits, withdrawals, settings, now, s.policy),
		})
	}
	return out, nil
}

// UpdateSettings stores a new global interest rate. Every balance is
// recomputed with it from the next read on.
func (s *Service) UpdateSettings(ctx context.Context, p auth.Principal, rate decimal.Decimal) (models.Settings, error) {
	if err := workflow.Authorize(p, models.CapManageSettings); err != nil {
		return models.Settings{}, err
	}
	if rate.IsNegative() {
		return models.Settings{}, &workflow.ValidationError{Field: "interest_rate", Message: "interest rate cannot be negative"}
	}
	settings, err := s.store.SaveSettings(ctx, rate, s.now().UTC())
	if err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("interest rate updated",
		zap.String("rate", rate.String()),
		zap.Int64("version", settings.Version),
		zap.Int64("admin_id", p.UserID),
	)
	return settings, nil
}

// SubmitContact stores a public feedback message.
func (s *Service) SubmitContact(ctx context.Context, name, email, message string) (models.Contact, error) {
	c := models.Contact{
		Name:        strings.TrimSpace(name),
		Email:       strings.TrimSpace(email),
		Message:     strings.TrimSpace(message),
		SubmittedAt: s.now().UTC(),
	}
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return models.Contact{}, &workflow.ValidationError{Message: "name, email, and message are required"}
	}
	return s.store.CreateContact(ctx, c)
}

// ListContacts returns feedback messages, newest first.
func (s *Service) ListContacts(ctx context.Context, p auth.Principal) ([]models.Contact, error) {
	if err := workflow.Authorize(p, models.CapViewReports); err != nil {
		return nil, err
	}
	return s.store.ListContacts(ctx)
}
