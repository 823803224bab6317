package ledger_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/invest-be/internal/auth"
	"github.com/hongminglow/invest-be/internal/blob"
	"github.com/hongminglow/invest-be/internal/ledger"
	"github.com/hongminglow/invest-be/internal/metrics"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
	"github.com/hongminglow/invest-be/internal/storage/memory"
	"github.com/hongminglow/invest-be/internal/workflow"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *ledger.Service
	clock *clock
	admin auth.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := blob.NewLocalStore(t.TempDir(), "/uploads", 1<<20, nil)
	require.NoError(t, err)
	c := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	svc := ledger.New(ledger.Deps{Store: memory.New(), Blobs: blobs, Now: c.Now})

	ctx := context.Background()
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, ledger.AccountInput{
		FullName: "Root Admin",
		Email:    "root@example.com",
		Phone:    "5550000",
		Password: "administrator",
	}))
	admin, err := svc.Login(ctx, "root@example.com", "administrator", true)
	require.NoError(t, err)
	return &fixture{svc: svc, clock: c, admin: principal(admin)}
}

func principal(u models.User) auth.Principal {
	return auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role()}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) investor(t *testing.T, email string) auth.Principal {
	t.Helper()
	u, err := f.svc.Register(context.Background(), ledger.AccountInput{
		FullName: "Investor " + email,
		Email:    email,
		Phone:    "5551234",
		Password: "password123",
	})
	require.NoError(t, err)
	return principal(u)
}

// fund approves a deposit and moves the clock so it has earned interest.
func (f *fixture) fund(t *testing.T, p auth.Principal, amount string, days int) models.Deposit {
	t.Helper()
	ctx := context.Background()
	d, err := f.svc.SubmitDeposit(ctx, p, dec(amount), days)
	require.NoError(t, err)
	_, err = f.svc.DecideDeposit(ctx, f.admin, d.ID, "approve")
	require.NoError(t, err)
	f.clock.Advance(time.Duration(days) * 24 * time.Hour)
	return d
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "Alice@Example.com")

	u, err := f.svc.Login(ctx, "alice@example.com", "password123", false)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = f.svc.Login(ctx, "alice@example.com", "wrong-password", false)
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "alice@example.com", "password123", true)
	assert.ErrorIs(t, err, ledger.ErrInvalidCredentials, "investors cannot use the admin login")

	_, err = f.svc.Register(ctx, ledger.AccountInput{FullName: "Dup", Email: "alice@example.com", Phone: "1", Password: "password123"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, err = f.svc.Register(ctx, ledger.AccountInput{FullName: "Short", Email: "s@example.com", Phone: "1", Password: "short"})
	var verr *workflow.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	investor := f.investor(t, "bob@example.com")
	in := ledger.AccountInput{FullName: "Second", Email: "second@example.com", Phone: "5559876", Password: "password123"}

	_, err := f.svc.CreateAdmin(ctx, investor, in)
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	admin, err := f.svc.CreateAdmin(ctx, f.admin, in)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	in.Email = "third@example.com"
	_, err = f.svc.CreateAdmin(ctx, f.admin, in)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists, "phone already registered")

	in.Phone = "55-12"
	_, err = f.svc.CreateAdmin(ctx, f.admin, in)
	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)
}

func TestSubmitDepositBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "carol@example.com")

	_, err := f.svc.SubmitDeposit(ctx, p, dec("499.99"), 30)
	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	d, err := f.svc.SubmitDeposit(ctx, p, dec("500"), 365)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, d.Status)
	assert.True(t, d.InterestRate.Equal(dec("8")), "default rate snapshot, got %s", d.InterestRate)
	assert.True(t, d.ExpectedReturn.Equal(dec("40")), "got %s", d.ExpectedReturn)
	require.NotNil(t, d.SubmittedAt)
}

func TestDecisionsAreFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "dave@example.com")
	d, err := f.svc.SubmitDeposit(ctx, p, dec("1000"), 30)
	require.NoError(t, err)

	_, err = f.svc.DecideDeposit(ctx, p, d.ID, "approve")
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	_, err = f.svc.DecideDeposit(ctx, f.admin, d.ID, "promote")
	var verr *workflow.ValidationError
	assert.ErrorAs(t, err, &verr)

	approved, err := f.svc.DecideDeposit(ctx, f.admin, d.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.NotNil(t, approved.DecidedAt)

	_, err = f.svc.DecideDeposit(ctx, f.admin, d.ID, "approve")
	assert.ErrorIs(t, err, workflow.ErrAlreadyDecided)
	_, err = f.svc.DecideDeposit(ctx, f.admin, d.ID, "reject")
	assert.ErrorIs(t, err, workflow.ErrAlreadyDecided)

	_, err = f.svc.DecideDeposit(ctx, f.admin, 9999, "approve")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWithdrawalBalanceBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "erin@example.com")
	f.fund(t, p, "10000", 365)

	wallet, err := f.svc.Wallet(ctx, p.UserID)
	require.NoError(t, err)
	require.True(t, wallet.Withdrawable.Equal(dec("800")), "got %s", wallet.Withdrawable)

	_, err = f.svc.RequestWithdrawal(ctx, p, dec("800.01"), "", "ACC-1")
	assert.ErrorIs(t, err, workflow.ErrInsufficientBalance)

	_, err = f.svc.RequestWithdrawal(ctx, p, dec("600"), "", "  ")
	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "account_info", verr.Field)

	w, err := f.svc.RequestWithdrawal(ctx, p, dec("800"), "payout", "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, w.Status)

	wallet, err = f.svc.Wallet(ctx, p.UserID)
	require.NoError(t, err)
	assert.True(t, wallet.Withdrawable.IsZero(), "pending withdrawal is held, got %s", wallet.Withdrawable)

	_, err = f.svc.DecideWithdrawal(ctx, f.admin, w.ID, "reject")
	require.NoError(t, err)
	wallet, err = f.svc.Wallet(ctx, p.UserID)
	require.NoError(t, err)
	assert.True(t, wallet.Withdrawable.Equal(dec("800")), "rejected withdrawal releases the hold")
}

func TestConcurrentWithdrawalsDoNotOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "frank@example.com")
	f.fund(t, p, "12500", 365) // 1000 of interest

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RequestWithdrawal(ctx, p, dec("500"), "", "ACC-1")
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, workflow.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	wallet, err := f.svc.Wallet(ctx, p.UserID)
	require.NoError(t, err)
	assert.False(t, wallet.Withdrawable.IsNegative(), "got %s", wallet.Withdrawable)
}

func TestAttachProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.investor(t, "gina@example.com")
	other := f.investor(t, "hank@example.com")
	d, err := f.svc.SubmitDeposit(ctx, owner, dec("750"), 30)
	require.NoError(t, err)

	upload := func() ledger.Upload {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
		return ledger.Upload{Filename: "receipt.png", Body: &buf, ProductID: "PRD-7", Note: "paid"}
	}

	_, err = f.svc.AttachProof(ctx, other, d.ID, upload())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	missing := upload()
	missing.ProductID = " "
	_, err = f.svc.AttachProof(ctx, owner, d.ID, missing)
	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product_id", verr.Field)

	bad := upload()
	bad.Filename = "receipt.gif"
	_, err = f.svc.AttachProof(ctx, owner, d.ID, bad)
	assert.ErrorIs(t, err, blob.ErrInvalidUpload)

	updated, err := f.svc.AttachProof(ctx, owner, d.ID, upload())
	require.NoError(t, err)
	require.NotNil(t, updated.ScreenshotURL)
	assert.Contains(t, *updated.ScreenshotURL, "receipt.png")
	require.NotNil(t, updated.ProductID)
	assert.Equal(t, "PRD-7", *updated.ProductID)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestSettingsFallbackAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.CurrentSettings(ctx)
	require.NoError(t, err)
	assert.True(t, s.Defaulted)
	assert.True(t, s.InterestRate.Equal(dec("8")))

	_, err = f.svc.UpdateSettings(ctx, f.admin, dec("-1"))
	var verr *workflow.ValidationError
	assert.ErrorAs(t, err, &verr)

	saved, err := f.svc.UpdateSettings(ctx, f.admin, dec("12"))
	require.NoError(t, err)
	assert.False(t, saved.Defaulted)

	p := f.investor(t, "ivy@example.com")
	_, err = f.svc.UpdateSettings(ctx, p, dec("1"))
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	f.fund(t, p, "10000", 365)
	wallet, err := f.svc.Wallet(ctx, p.UserID)
	require.NoError(t, err)
	assert.True(t, wallet.AccruedInterest.Equal(dec("1200")), "current rate applies, got %s", wallet.AccruedInterest)
}

func TestHistoryAndAdminReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.investor(t, "jill@example.com")
	f.fund(t, p, "10000", 365)
	_, err := f.svc.RequestWithdrawal(ctx, p, dec("500"), "first", "ACC-9")
	require.NoError(t, err)

	history, err := f.svc.History(ctx, p.UserID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.EntryWithdrawal, history[0].Type)
	assert.Equal(t, models.EntryDeposit, history[1].Type)

	overview, err := f.svc.AdminOverview(ctx, f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, overview.TotalUsers)
	assert.True(t, overview.TotalDeposits.Equal(dec("10000")))
	assert.True(t, overview.PendingWithdrawals.Equal(dec("500")))

	rows, err := f.svc.ListWithdrawals(ctx, f.admin, ledger.ListQuery{Status: "pending", User: "JILL"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "jill@example.com", rows[0].User.Email)

	day := f.clock.Now().Format("2006-01-02")
	rows, err = f.svc.ListWithdrawals(ctx, f.admin, ledger.ListQuery{StartDate: day, EndDate: day})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "end date covers the whole day")

	_, err = f.svc.ListDeposits(ctx, f.admin, ledger.ListQuery{EndDate: "01/02/2025"})
	var verr *workflow.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.svc.ListDeposits(ctx, p, ledger.ListQuery{})
	assert.ErrorIs(t, err, workflow.ErrForbidden)

	wallets, err := f.svc.UserWallets(ctx, f.admin, "")
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.True(t, wallets[0].Wallet.Withdrawable.Equal(dec("300")))
}

func TestMergeHistoryOrdersNilDatesLast(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	deposits := []models.Deposit{{ID: 1}, {ID: 2, SubmittedAt: &t1}}
	withdrawals := []models.Withdrawal{{ID: 3, RequestedAt: t1.Add(time.Hour)}}

	got := ledger.MergeHistory(deposits, withdrawals)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.Equal(t, int64(1), got[2].ID)
}

func TestContacts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitContact(ctx, " ", "a@b.c", "hi")
	var verr *workflow.ValidationError
	assert.ErrorAs(t, err, &verr)

	c, err := f.svc.SubmitContact(ctx, " Kim ", "kim@example.com", " hello ")
	require.NoError(t, err)
	assert.Equal(t, "Kim", c.Name)
	assert.Equal(t, "hello", c.Message)

	list, err := f.svc.ListContacts(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// versionRaceStore loses every ledger-version compare-and-swap, as if another
// writer always committed first.
type versionRaceStore struct {
	*memory.Store
	attempts int
}

func (s *versionRaceStore) CreateWithdrawal(_ context.Context, _ models.Withdrawal, _ int64) (models.Withdrawal, error) {
	s.attempts++
	return models.Withdrawal{}, storage.ErrConflict
}

func TestRequestWithdrawalGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	store := &versionRaceStore{Store: memory.New()}
	m := metrics.New()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := ledger.New(ledger.Deps{Store: store, Metrics: m, Now: func() time.Time { return now }})

	u, err := svc.Register(ctx, ledger.AccountInput{
		FullName: "Racer", Email: "racer@example.com", Phone: "5551111", Password: "password123",
	})
	require.NoError(t, err)
	p := principal(u)
	admin := auth.Principal{UserID: 999, Role: models.RoleAdmin}

	d, err := svc.SubmitDeposit(ctx, p, dec("10000"), 365)
	require.NoError(t, err)
	_, err = svc.DecideDeposit(ctx, admin, d.ID, "approve")
	require.NoError(t, err)
	now = now.AddDate(1, 0, 0)

	_, err = svc.RequestWithdrawal(ctx, p, dec("800"), "", "ACC-1")
	assert.ErrorIs(t, err, ledger.ErrBusy)
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WithdrawalConflict))

	withdrawals, err := store.UserWithdrawals(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, withdrawals)
}
