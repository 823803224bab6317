package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/accrual"
	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/blob"
	"github.com/hongminglow/invest-be/internal/lock"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/workflow"
)

const (
	kindDeposit    = "deposit"
	kindWithdrawal = "withdrawal"
)

// Upload is a proof-of-payment submission.
type Upload struct {
	Filename  string
	Body      io.Reader
	ProductID string
	Note      string
}

// SubmitDeposit records a pending deposit, snapshotting the current rate and
// the informational expected return.
func (s *Service) SubmitDeposit(ctx context.Context, p auth.Principal, amount decimal.Decimal, durationDays int) (models.Deposit, error) {
	if err := workflow.ValidateDeposit(amount, durationDays); err != nil {
		return models.Deposit{}, err
	}
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return models.Deposit{}, fmt.Errorf("load settings: %w", err)
	}
	now := s.now().UTC()
	d, err := s.store.CreateDeposit(ctx, models.Deposit{
		UserID:         p.UserID,
		Amount:         amount,
		DurationDays:   durationDays,
		InterestRate:   settings.InterestRate,
		ExpectedReturn: accrual.ExpectedReturn(amount, settings.InterestRate, durationDays),
		Status:         models.StatusPending,
		SubmittedAt:    &now,
	})
	if err != nil {
		return models.Deposit{}, fmt.Errorf("create deposit: %w", err)
	}
	s.metrics.Submissions.WithLabelValues(kindDeposit).Inc()
	s.logger.Info("deposit submitted",
		zap.Int64("deposit_id", d.ID),
		zap.Int64("user_id", p.UserID),
		zap.String("amount", amount.String()),
	)
	return d, nil
}

// GetDeposit returns a deposit to its owner or to an administrator. Anyone
// else gets storage.ErrNotFound.
func (s *Service) GetDeposit(ctx context.Context, p auth.Principal, id int64) (models.Deposit, error) {
	d, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return models.Deposit{}, err
	}
	if d.UserID != p.UserID && !p.IsAdmin() {
		return models.Deposit{}, storage.ErrNotFound
	}
	return d, nil
}

// AttachProof stores the screenshot and writes the proof fields onto the
// owner's deposit. A previous screenshot is replaced but kept on disk.
func (s *Service) AttachProof(ctx context.Context, p auth.Principal, id int64, up Upload) (models.Deposit, error) {
	d, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return models.Deposit{}, err
	}
	if d.UserID != p.UserID {
		return models.Deposit{}, storage.ErrNotFound
	}
	productID := strings.TrimSpace(up.ProductID)
	if productID == "" {
		return models.Deposit{}, &workflow.ValidationError{Field: "product_id", Message: "product ID is required"}
	}
	if up.Body == nil || strings.TrimSpace(up.Filename) == "" {
		return models.Deposit{}, &workflow.ValidationError{Field: "screenshot", Message: "no file selected", Err: blob.ErrEmpty}
	}
	if s.blobs == nil {
		return models.Deposit{}, errors.New("no blob store configured")
	}

	ref, err := s.blobs.Put(ctx, up.Filename, up.Body)
	if errors.Is(err, blob.ErrInvalidUpload) {
		return models.Deposit{}, &workflow.ValidationError{Field: "screenshot", Message: err.Error(), Err: err}
	}
	if err != nil {
		return models.Deposit{}, fmt.Errorf("store screenshot: %w", err)
	}
	if d.ScreenshotURL != nil {
		s.logger.Info("replacing deposit proof",
			zap.Int64("deposit_id", id),
			zap.String("previous", *d.ScreenshotURL),
		)
	}

	updated, err := s.store.AttachProof(ctx, id, models.Proof{
		ScreenshotURL: ref,
		ProductID:     productID,
		Note:          strings.TrimSpace(up.Note),
	})
	if err != nil {
		return models.Deposit{}, fmt.Errorf("attach proof: %w", err)
	}
	return updated, nil
}

// RequestWithdrawal validates and records a pending withdrawal. The balance
// check and the insert run under the user's lock and a ledger-version
// compare-and-swap, so concurrent requests cannot overdraw.
func (s *Service) RequestWithdrawal(ctx context.Context, p auth.Principal, amount decimal.Decimal, note, accountInfo string) (models.Withdrawal, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locks.Acquire(lockCtx, userLockKey(p.UserID))
	if errors.Is(err, lock.ErrLocked) {
		return models.Withdrawal{}, ErrBusy
	}
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("acquire ledger lock: %w", err)
	}
	defer release()

	for attempt := 0; attempt < s.casRetries; attempt++ {
		version, err := s.store.LedgerVersion(ctx, p.UserID)
		if err != nil {
			return models.Withdrawal{}, fmt.Errorf("read ledger version: %w", err)
		}
		wallet, err := s.Wallet(ctx, p.UserID)
		if err != nil {
			return models.Withdrawal{}, err
		}
		if err := workflow.ValidateWithdrawal(amount, accountInfo, wallet.Withdrawable); err != nil {
			return models.Withdrawal{}, err
		}

		w, err := s.store.CreateWithdrawal(ctx, models.Withdrawal{
			UserID:      p.UserID,
			Amount:      amount,
			Note:        strings.TrimSpace(note),
			AccountInfo: strings.TrimSpace(accountInfo),
			Status:      models.StatusPending,
			RequestedAt: s.now().UTC(),
		}, version)
		if errors.Is(err, storage.ErrConflict) {
			s.metrics.WithdrawalConflict.Inc()
			s.logger.Warn("withdrawal lost ledger version race",
				zap.Int64("user_id", p.UserID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return models.Withdrawal{}, fmt.Errorf("create withdrawal: %w", err)
		}
		s.metrics.Submissions.WithLabelValues(kindWithdrawal).Inc()
		s.logger.Info("withdrawal requested",
			zap.Int64("withdrawal_id", w.ID),
			zap.Int64("user_id", p.UserID),
			zap.String("amount", amount.String()),
		)
		return w, nil
	}
	return models.Withdrawal{}, ErrBusy
}

// DecideDeposit approves or rejects a pending deposit.
func (s *Service) DecideDeposit(ctx context.Context, p auth.Principal, id int64, action string) (models.Deposit, error) {
	decision, err := s.decision(p, action)
	if err != nil {
		return models.Deposit{}, err
	}
	current, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return models.Deposit{}, err
	}
	target, err := workflow.Transition(current.Status, decision)
	if err != nil {
		return models.Deposit{}, err
	}
	d, err := s.store.DecideDeposit(ctx, id, target, s.now().UTC())
	if errors.Is(err, storage.ErrConflict) {
		return models.Deposit{}, fmt.Errorf("%w: deposit %d", workflow.ErrAlreadyDecided, id)
	}
	if err != nil {
		return models.Deposit{}, err
	}
	s.recordDecision(kindDeposit, id, d.Status, p)
	return d, nil
}

// DecideWithdrawal approves or rejects a pending withdrawal. Approval is a
// status change only; the payout itself happens outside the system.
func (s *Service) DecideWithdrawal(ctx context.Context, p auth.Principal, id int64, action string) (models.Withdrawal, error) {
	decision, err := s.decision(p, action)
	if err != nil {
		return models.Withdrawal{}, err
	}
	current, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return models.Withdrawal{}, err
	}
	target, err := workflow.Transition(current.Status, decision)
	if err != nil {
		return models.Withdrawal{}, err
	}
	w, err := s.store.DecideWithdrawal(ctx, id, target, s.now().UTC())
	if errors.Is(err, storage.ErrConflict) {
		return models.Withdrawal{}, fmt.Errorf("%w: withdrawal %d", workflow.ErrAlreadyDecided, id)
	}
	if err != nil {
		return models.Withdrawal{}, err
	}
	s.recordDecision(kindWithdrawal, id, w.Status, p)
	return w, nil
}

func (s *Service) decision(p auth.Principal, action string) (models.Decision, error) {
	if err := workflow.Authorize(p, models.CapDecideTransactions); err != nil {
		return "", err
	}
	return workflow.ParseDecision(action)
}

func (s *Service) recordDecision(kind string, id int64, status models.Status, p auth.Principal) {
	s.metrics.Transitions.WithLabelValues(kind, string(status)).Inc()
	s.logger.Info(kind+" decided",
		zap.Int64("id", id),
		zap.String("status", string(status)),
		zap.Int64("admin_id", p.UserID),
	)
}

func userLockKey(userID int64) string {
	return "ledger:" + strconv.FormatInt(userID, 10)
}
