package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrConflict indicates a conditional write lost: the record's status or
// the user's ledger version changed since it was read.
var ErrConflict = errors.New("conditional write conflict")

// UserFilter narrows user listings. Query is a case-insensitive substring
// matched against full name, email and phone.
type UserFilter struct {
	Query string
	Admin *bool
}

// TxFilter narrows deposit and withdrawal listings. From is inclusive, To is
// exclusive. UserQuery is a case-insensitive substring on the owner's name
// or email.
type TxFilter struct {
	UserID    *int64
	Status    models.Status
	From      *time.Time
	To        *time.Time
	UserQuery string
}

// UserStore captures persistence operations for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	SearchUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	CountUsers(ctx context.Context, admin bool) (int64, error)
}

// LedgerStore captures persistence operations for deposits and withdrawals.
type LedgerStore interface {
	CreateDeposit(ctx context.Context, d models.Deposit) (models.Deposit, error)
	GetDeposit(ctx context.Context, id int64) (models.Deposit, error)
	UserDeposits(ctx context.Context, userID int64) ([]models.Deposit, error)
	ListDeposits(ctx context.Context, filter TxFilter) ([]models.DepositView, error)
	AttachProof(ctx context.Context, id int64, proof models.Proof) (models.Deposit, error)
	// DecideDeposit moves a pending deposit to status; ErrConflict if it is
	// no longer pending.
	DecideDeposit(ctx context.Context, id int64, status models.Status, at time.Time) (models.Deposit, error)

	// CreateWithdrawal inserts w only if the owner's ledger version still
	// equals expectedVersion, bumping it atomically; ErrConflict otherwise.
	CreateWithdrawal(ctx context.Context, w models.Withdrawal, expectedVersion int64) (models.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id int64) (models.Withdrawal, error)
	UserWithdrawals(ctx context.Context, userID int64) ([]models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, filter TxFilter) ([]models.WithdrawalView, error)
	DecideWithdrawal(ctx context.Context, id int64, status models.Status, at time.Time) (models.Withdrawal, error)

	LedgerVersion(ctx context.Context, userID int64) (int64, error)
	SumDeposits(ctx context.Context, status models.Status) (decimal.Decimal, error)
	SumWithdrawals(ctx context.Context, status models.Status) (decimal.Decimal, error)
}

// SettingsStore persists the global settings singleton.
type SettingsStore interface {
	// GetSettings returns ErrNotFound when nothing has been saved yet.
	GetSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, rate decimal.Decimal, at time.Time) (models.Settings, error)
}

// ContactStore persists contact-form messages.
type ContactStore interface {
	CreateContact(ctx context.Context, c models.Contact) (models.Contact, error)
	ListContacts(ctx context.Context) ([]models.Contact, error)
}

// Store is the full persistence surface used by the ledger service.
type Store interface {
	UserStore
	LedgerStore
	SettingsStore
	ContactStore
}
