package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
)

const depositColumns = `d.id, d.user_id, d.amount, d.duration_days, d.interest_rate, d.expected_return,
	d.status, d.submitted_at, d.decided_at, d.screenshot_url, d.product_id, d.note`

const withdrawalColumns = `w.id, w.user_id, w.amount, w.note, w.account_info, w.status, w.requested_at, w.decided_at`

// CreateDeposit inserts a pending deposit.
func (s *Store) CreateDeposit(ctx context.Context, d models.Deposit) (models.Deposit, error) {
	const query = `
		INSERT INTO deposits AS d (user_id, amount, duration_days, interest_rate, expected_return, status, submitted_at, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + depositColumns
	row := s.pool.QueryRow(ctx, query, d.UserID, d.Amount, d.DurationDays, d.InterestRate, d.ExpectedReturn, d.Status, d.SubmittedAt, d.Note)
	return scanDeposit(row)
}

// GetDeposit fetches a deposit by id.
func (s *Store) GetDeposit(ctx context.Context, id int64) (models.Deposit, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.id = $1`, id)
	return scanDeposit(row)
}

// UserDeposits lists every deposit owned by userID.
func (s *Store) UserDeposits(ctx context.Context, userID int64) ([]models.Deposit, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+depositColumns+` FROM deposits d WHERE d.user_id = $1 ORDER BY d.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDeposits lists deposits with their owners, newest first.
func (s *Store) ListDeposits(ctx context.Context, filter storage.TxFilter) ([]models.DepositView, error) {
	w := txWhere(filter, "d", "submitted_at")
	query := `SELECT ` + depositColumns + `, COALESCE(u.full_name, ''), COALESCE(u.email, ''), u.id IS NOT NULL
		FROM deposits d LEFT JOIN users u ON u.id = d.user_id` + w.String() + `
		ORDER BY d.submitted_at DESC NULLS LAST, d.id DESC`
	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DepositView
	for rows.Next() {
		var v models.DepositView
		var found bool
		if err := rows.Scan(depositDest(&v.Deposit, &v.User.FullName, &v.User.Email, &found)...); err != nil {
			return nil, err
		}
		if !found {
			v.User = models.UnknownOwner
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AttachProof overwrites the proof-of-payment fields of a deposit.
func (s *Store) AttachProof(ctx context.Context, id int64, proof models.Proof) (models.Deposit, error) {
	const query = `
		UPDATE deposits AS d SET screenshot_url = $2, product_id = $3, note = $4
		WHERE d.id = $1
		RETURNING ` + depositColumns
	row := s.pool.QueryRow(ctx, query, id, proof.ScreenshotURL, proof.ProductID, proof.Note)
	return scanDeposit(row)
}

// DecideDeposit moves a pending deposit to status.
func (s *Store) DecideDeposit(ctx context.Context, id int64, status models.Status, at time.Time) (models.Deposit, error) {
	const query = `
		UPDATE deposits AS d SET status = $2, decided_at = $3
		WHERE d.id = $1 AND d.status = 'pending'
		RETURNING ` + depositColumns
	d, err := scanDeposit(s.pool.QueryRow(ctx, query, id, status, at))
	if errors.Is(err, storage.ErrNotFound) {
		if _, getErr := s.GetDeposit(ctx, id); getErr != nil {
			return models.Deposit{}, getErr
		}
		return models.Deposit{}, storage.ErrConflict
	}
	return d, err
}

// CreateWithdrawal bumps the owner's ledger version from expectedVersion and
// inserts the withdrawal in the same transaction.
func (s *Store) CreateWithdrawal(ctx context.Context, wd models.Withdrawal, expectedVersion int64) (models.Withdrawal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE users SET ledger_version = ledger_version + 1 WHERE id = $1 AND ledger_version = $2`,
		wd.UserID, expectedVersion)
	if err != nil {
		return models.Withdrawal{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Withdrawal{}, storage.ErrConflict
	}

	const query = `
		INSERT INTO withdrawals AS w (user_id, amount, note, account_info, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + withdrawalColumns
	created, err := scanWithdrawal(tx.QueryRow(ctx, query, wd.UserID, wd.Amount, wd.Note, wd.AccountInfo, wd.Status, wd.RequestedAt))
	if err != nil {
		return models.Withdrawal{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Withdrawal{}, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// GetWithdrawal fetches a withdrawal by id.
func (s *Store) GetWithdrawal(ctx context.Context, id int64) (models.Withdrawal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.id = $1`, id)
	return scanWithdrawal(row)
}

// UserWithdrawals lists every withdrawal owned by userID.
func (s *Store) UserWithdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals w WHERE w.user_id = $1 ORDER BY w.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Withdrawal
	for rows.Next() {
		wd, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	return out, rows.Err()
}

// ListWithdrawals lists withdrawals with their owners, newest first.
func (s *Store) ListWithdrawals(ctx context.Context, filter storage.TxFilter) ([]models.WithdrawalView, error) {
	w := txWhere(filter, "w", "requested_at")
	query := `SELECT ` + withdrawalColumns + `, COALESCE(u.full_name, ''), COALESCE(u.email, ''), u.id IS NOT NULL
		FROM withdrawals w LEFT JOIN users u ON u.id = w.user_id` + w.String() + `
		ORDER BY w.requested_at DESC, w.id DESC`
	rows, err := s.pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WithdrawalView
	for rows.Next() {
		var v models.WithdrawalView
		var found bool
		if err := rows.Scan(withdrawalDest(&v.Withdrawal, &v.User.FullName, &v.User.Email, &found)...); err != nil {
			return nil, err
		}
		if !found {
			v.User = models.UnknownOwner
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DecideWithdrawal moves a pending withdrawal to status.
func (s *Store) DecideWithdrawal(ctx context.Context, id int64, status models.Status, at time.Time) (models.Withdrawal, error) {
	const query = `
		UPDATE withdrawals AS w SET status = $2, decided_at = $3
		WHERE w.id = $1 AND w.status = 'pending'
		RETURNING ` + withdrawalColumns
	wd, err := scanWithdrawal(s.pool.QueryRow(ctx, query, id, status, at))
	if errors.Is(err, storage.ErrNotFound) {
		if _, getErr := s.GetWithdrawal(ctx, id); getErr != nil {
			return models.Withdrawal{}, getErr
		}
		return models.Withdrawal{}, storage.ErrConflict
	}
	return wd, err
}

// LedgerVersion returns the optimistic-concurrency counter for userID.
func (s *Store) LedgerVersion(ctx context.Context, userID int64) (int64, error) {
	var v int64
	err := s.pool.QueryRow(ctx, `SELECT ledger_version FROM users WHERE id = $1`, userID).Scan(&v)
	return v, mapErr(err)
}

// SumDeposits totals deposit amounts in status.
func (s *Store) SumDeposits(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE status = $1`, status)
}

// SumWithdrawals totals withdrawal amounts in status.
func (s *Store) SumWithdrawals(ctx context.Context, status models.Status) (decimal.Decimal, error) {
	return s.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE status = $1`, status)
}

func (s *Store) sum(ctx context.Context, query string, status models.Status) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := s.pool.QueryRow(ctx, query, status).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func txWhere(filter storage.TxFilter, alias, dateColumn string) *where {
	w := &where{}
	if filter.UserID != nil {
		w.add(alias+".user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		w.add(alias+".status = ?", filter.Status)
	}
	if filter.From != nil {
		w.add(alias+"."+dateColumn+" >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add(alias+"."+dateColumn+" < ?", *filter.To)
	}
	if filter.UserQuery != "" {
		w.add("(u.full_name ILIKE ? OR u.email ILIKE ?)", likePattern(filter.UserQuery))
	}
	return w
}

func depositDest(d *models.Deposit, extra ...any) []any {
	return append([]any{
		&d.ID, &d.UserID, &d.Amount, &d.DurationDays, &d.InterestRate, &d.ExpectedReturn,
		&d.Status, &d.SubmittedAt, &d.DecidedAt, &d.ScreenshotURL, &d.ProductID, &d.Note,
	}, extra...)
}

func withdrawalDest(wd *models.Withdrawal, extra ...any) []any {
	return append([]any{
		&wd.ID, &wd.UserID, &wd.Amount, &wd.Note, &wd.AccountInfo, &wd.Status, &wd.RequestedAt, &wd.DecidedAt,
	}, extra...)
}

func scanDeposit(row pgx.Row) (models.Deposit, error) {
	var d models.Deposit
	if err := row.Scan(depositDest(&d)...); err != nil {
		return models.Deposit{}, mapErr(err)
	}
	return d, nil
}

func scanWithdrawal(row pgx.Row) (models.Withdrawal, error) {
	var wd models.Withdrawal
	if err := row.Scan(withdrawalDest(&wd)...); err != nil {
		return models.Withdrawal{}, mapErr(err)
	}
	return wd, nil
}
