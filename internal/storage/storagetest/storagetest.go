// Package storagetest holds behaviour checks shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
)

// Run exercises store. Emails are made unique per run so it can target a
// shared database.
func Run(t *testing.T, store storage.Store) {
	ctx := context.Background()
	tag := fmt.Sprintf("%d", time.Now().UnixNano())
	base := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	newUser := func(t *testing.T, name string) models.User {
		t.Helper()
		u, err := store.CreateUser(ctx, models.User{
			FullName:     name + " " + tag,
			Email:        fmt.Sprintf("%s.%s@example.com", name, tag),
			Phone:        "555" + tag[len(tag)-7:],
			PasswordHash: "hash",
			CreatedAt:    base,
		})
		require.NoError(t, err)
		return u
	}

	t.Run("users", func(t *testing.T) {
		u := newUser(t, "alpha")
		assert.NotZero(t, u.ID)

		got, err := store.FindByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		_, err = store.CreateUser(ctx, models.User{FullName: "dup", Email: u.Email, Phone: "1", PasswordHash: "x"})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		_, err = store.FindByID(ctx, -1)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		found, err := store.SearchUsers(ctx, storage.UserFilter{Query: "ALPHA " + tag})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, u.ID, found[0].ID)
	})

	t.Run("deposit decisions are conditional", func(t *testing.T) {
		u := newUser(t, "beta")
		submitted := base
		d, err := store.CreateDeposit(ctx, models.Deposit{
			UserID: u.ID, Amount: decimal.NewFromInt(1000), DurationDays: 30,
			InterestRate: decimal.NewFromInt(8), ExpectedReturn: decimal.RequireFromString("6.58"),
			Status: models.StatusPending, SubmittedAt: &submitted,
		})
		require.NoError(t, err)

		decided, err := store.DecideDeposit(ctx, d.ID, models.StatusApproved, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, decided.Status)
		require.NotNil(t, decided.DecidedAt)

		_, err = store.DecideDeposit(ctx, d.ID, models.StatusRejected, base.Add(2*time.Hour))
		assert.ErrorIs(t, err, storage.ErrConflict)
		_, err = store.DecideDeposit(ctx, -1, models.StatusRejected, base)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		withProof, err := store.AttachProof(ctx, d.ID, models.Proof{ScreenshotURL: "/uploads/a.png", ProductID: "P1", Note: "n"})
		require.NoError(t, err)
		require.NotNil(t, withProof.ProductID)
		assert.Equal(t, "P1", *withProof.ProductID)
		assert.Equal(t, models.StatusApproved, withProof.Status)

		mine, err := store.UserDeposits(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.True(t, mine[0].Amount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("withdrawal compare-and-swap", func(t *testing.T) {
		u := newUser(t, "gamma")
		version, err := store.LedgerVersion(ctx, u.ID)
		require.NoError(t, err)

		w := models.Withdrawal{
			UserID: u.ID, Amount: decimal.NewFromInt(500), AccountInfo: "ACC",
			Status: models.StatusPending, RequestedAt: base,
		}
		first, err := store.CreateWithdrawal(ctx, w, version)
		require.NoError(t, err)

		_, err = store.CreateWithdrawal(ctx, w, version)
		assert.ErrorIs(t, err, storage.ErrConflict, "stale version must lose")

		next, err := store.LedgerVersion(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, version+1, next)

		_, err = store.DecideWithdrawal(ctx, first.ID, models.StatusRejected, base.Add(time.Minute))
		require.NoError(t, err)
		_, err = store.DecideWithdrawal(ctx, first.ID, models.StatusApproved, base.Add(time.Minute))
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("listings filter and order", func(t *testing.T) {
		u := newUser(t, "delta")
		for i, offset := range []time.Duration{0, 48 * time.Hour, 24 * time.Hour} {
			at := base.Add(offset)
			_, err := store.CreateDeposit(ctx, models.Deposit{
				UserID: u.ID, Amount: decimal.NewFromInt(int64(600 + i)), DurationDays: 10,
				InterestRate: decimal.NewFromInt(8), ExpectedReturn: decimal.Zero,
				Status: models.StatusPending, SubmittedAt: &at,
			})
			require.NoError(t, err)
		}

		rows, err := store.ListDeposits(ctx, storage.TxFilter{UserQuery: "delta." + tag})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(601)), "newest first")
		assert.True(t, rows[2].Amount.Equal(decimal.NewFromInt(600)))
		assert.Equal(t, u.Email, rows[0].User.Email)

		from, to := base.Add(24*time.Hour), base.Add(48*time.Hour)
		rows, err = store.ListDeposits(ctx, storage.TxFilter{UserID: &u.ID, From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, rows, 1, "To is exclusive")
		assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(602)))

		rows, err = store.ListDeposits(ctx, storage.TxFilter{UserID: &u.ID, Status: models.StatusApproved})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("settings singleton", func(t *testing.T) {
		first, err := store.SaveSettings(ctx, decimal.RequireFromString("7.5"), base)
		require.NoError(t, err)
		second, err := store.SaveSettings(ctx, decimal.RequireFromString("9"), base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, first.Version+1, second.Version)

		got, err := store.GetSettings(ctx)
		require.NoError(t, err)
		assert.True(t, got.InterestRate.Equal(decimal.NewFromInt(9)))
	})

	t.Run("contacts", func(t *testing.T) {
		c, err := store.CreateContact(ctx, models.Contact{Name: "n", Email: "e@example.com", Message: "m " + tag, SubmittedAt: base})
		require.NoError(t, err)
		assert.NotZero(t, c.ID)
		list, err := store.ListContacts(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, list)
	})
}
