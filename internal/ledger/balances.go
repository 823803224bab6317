package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/hongminglow/invest-be/internal/accrual"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/models/dto"
)

// Wallet recomputes a user's summary from their records and the current rate.
func (s *Service) Wallet(ctx context.Context, userID int64) (accrual.Summary, error) {
	deposits, withdrawals, err := s.userRecords(ctx, userID)
	if err != nil {
		return accrual.Summary{}, err
	}
	return s.summarize(ctx, deposits, withdrawals)
}

// Dashboard returns the wallet plus the user's records and merged history.
func (s *Service) Dashboard(ctx context.Context, userID int64) (dto.DashboardResponse, error) {
	deposits, withdrawals, err := s.userRecords(ctx, userID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	wallet, err := s.summarize(ctx, deposits, withdrawals)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	return dto.DashboardResponse{
		Wallet:      wallet,
		Deposits:    deposits,
		Withdrawals: withdrawals,
		History:     MergeHistory(deposits, withdrawals),
	}, nil
}

// History returns the user's deposits and withdrawals as one list.
func (s *Service) History(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	deposits, withdrawals, err := s.userRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return MergeHistory(deposits, withdrawals), nil
}

// MergeHistory interleaves deposits and withdrawals newest first. Entries
// without a date sort last.
func MergeHistory(deposits []models.Deposit, withdrawals []models.Withdrawal) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, 0, len(deposits)+len(withdrawals))
	for _, d := range deposits {
		entries = append(entries, models.HistoryEntry{
			Type:   models.EntryDeposit,
			ID:     d.ID,
			Amount: d.Amount,
			Status: d.Status,
			Date:   d.SubmittedAt,
			Note:   d.Note,
		})
	}
	for _, w := range withdrawals {
		requested := w.RequestedAt
		entries = append(entries, models.HistoryEntry{
			Type:   models.EntryWithdrawal,
			ID:     w.ID,
			Amount: w.Amount,
			Status: w.Status,
			Date:   &requested,
			Note:   w.Note,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Date, entries[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return entries
}

func (s *Service) userRecords(ctx context.Context, userID int64) ([]models.Deposit, []models.Withdrawal, error) {
	deposits, err := s.store.UserDeposits(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load deposits: %w", err)
	}
	withdrawals, err := s.store.UserWithdrawals(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("load withdrawals: %w", err)
	}
	return deposits, withdrawals, nil
}

func (s *Service) summarize(ctx context.Context, deposits []models.Deposit, withdrawals []models.Withdrawal) (accrual.Summary, error) {
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return accrual.Summary{}, fmt.Errorf("load settings: %w", err)
	}
	return accrual.Compute(deposits, withdrawals, settings, s.now(), s.policy), nil
}
