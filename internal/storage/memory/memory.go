// Package memory is an in-process implementation of storage.Store. It backs
// tests and the STORAGE=memory development mode; data does not survive a
// restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu          sync.Mutex
	seq         int64
	users       map[int64]models.User
	deposits    map[int64]models.Deposit
	withdrawals map[int64]models.Withdrawal
	contacts    []models.Contact
	settings    *models.Settings
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[int64]models.User),
		deposits:    make(map[int64]models.Deposit),
		withdrawals: make(map[int64]models.Withdrawal),
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// CreateUser inserts a user; email must be unique.
func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	user.ID = s.nextID()
	user.LedgerVersion = 0
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) FindByPhone(_ context.Context, phone string) (models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Phone == phone })
}

func (s *Store) findUser(match func(models.User) bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.sortedUsers() {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (s *Store) sortedUsers() []models.User {
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) SearchUsers(_ context.Context, filter storage.UserFilter) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.sortedUsers() {
		if filter.Admin != nil && u.IsAdmin != *filter.Admin {
			continue
		}
		if filter.Query != "" && !contains(u.FullName, filter.Query) && !contains(u.Email, filter.Query) && !contains(u.Phone, filter.Query) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *Store) CountUsers(_ context.Context, admin bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.IsAdmin == admin {
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateDeposit(_ context.Context, d models.Deposit) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.nextID()
	s.deposits[d.ID] = d
	return d, nil
}

func (s *Store) GetDeposit(_ context.Context, id int64) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return models.Deposit{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) UserDeposits(_ context.Context, userID int64) ([]models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Deposit
	for _, d := range s.deposits {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListDeposits(_ context.Context, filter storage.TxFilter) ([]models.DepositView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.DepositView
	for _, d := range s.deposits {
		owner, ok := s.match(filter, d.UserID, d.Status, d.SubmittedAt)
		if !ok {
			continue
		}
		out = append(out, models.DepositView{Deposit: d, User: owner})
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(out[i].SubmittedAt, out[j].SubmittedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) AttachProof(_ context.Context, id int64, proof models.Proof) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return models.Deposit{}, storage.ErrNotFound
	}
	ref, product := proof.ScreenshotURL, proof.ProductID
	d.ScreenshotURL = &ref
	d.ProductID = &product
	d.Note = proof.Note
	s.deposits[id] = d
	return d, nil
}

func (s *Store) DecideDeposit(_ context.Context, id int64, status models.Status, at time.Time) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deposits[id]
	if !ok {
		return models.Deposit{}, storage.ErrNotFound
	}
	if d.Status != models.StatusPending {
		return models.Deposit{}, storage.ErrConflict
	}
	d.Status = status
	d.DecidedAt = &at
	s.deposits[id] = d
	return d, nil
}

func (s *Store) CreateWithdrawal(_ context.Context, w models.Withdrawal, expectedVersion int64) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[w.UserID]
	if !ok {
		return models.Withdrawal{}, storage.ErrNotFound
	}
	if u.LedgerVersion != expectedVersion {
		return models.Withdrawal{}, storage.ErrConflict
	}
	u.LedgerVersion++
	s.users[u.ID] = u

	w.ID = s.nextID()
	s.withdrawals[w.ID] = w
	return w, nil
}

func (s *Store) GetWithdrawal(_ context.Context, id int64) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return models.Withdrawal{}, storage.ErrNotFound
	}
	return w, nil
}

func (s *Store) UserWithdrawals(_ context.Context, userID int64) ([]models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListWithdrawals(_ context.Context, filter storage.TxFilter) ([]models.WithdrawalView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WithdrawalView
	for _, w := range s.withdrawals {
		requested := w.RequestedAt
		owner, ok := s.match(filter, w.UserID, w.Status, &requested)
		if !ok {
			continue
		}
		out = append(out, models.WithdrawalView{Withdrawal: w, User: owner})
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(&out[i].RequestedAt, &out[j].RequestedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *Store) DecideWithdrawal(_ context.Context, id int64, status models.Status, at time.Time) (models.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.withdrawals[id]
	if !ok {
		return models.Withdrawal{}, storage.ErrNotFound
	}
	if w.Status != models.StatusPending {
		return models.Withdrawal{}, storage.ErrConflict
	}
	w.Status = status
	w.DecidedAt = &at
	s.withdrawals[id] = w
	return w, nil
}

func (s *Store) LedgerVersion(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return u.LedgerVersion, nil
}

func (s *Store) SumDeposits(_ context.Context, status models.Status) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, d := range s.deposits {
		if d.Status == status {
			total = total.Add(d.Amount)
		}
	}
	return total, nil
}

func (s *Store) SumWithdrawals(_ context.Context, status models.Status) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, w := range s.withdrawals {
		if w.Status == status {
			total = total.Add(w.Amount)
		}
	}
	return total, nil
}

func (s *Store) GetSettings(_ context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return models.Settings{}, storage.ErrNotFound
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, rate decimal.Decimal, at time.Time) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := models.Settings{InterestRate: rate, Version: 1, UpdatedAt: at}
	if s.settings != nil {
		next.Version = s.settings.Version + 1
	}
	s.settings = &next
	return next, nil
}

func (s *Store) CreateContact(_ context.Context, c models.Contact) (models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	s.contacts = append(s.contacts, c)
	return c, nil
}

func (s *Store) ListContacts(_ context.Context) ([]models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Contact, len(s.contacts))
	copy(out, s.contacts)
	sort.SliceStable(out, func(i, j int) bool {
		return newer(&out[i].SubmittedAt, &out[j].SubmittedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// match applies filter to one record and resolves its owner.
func (s *Store) match(filter storage.TxFilter, userID int64, status models.Status, at *time.Time) (models.Owner, bool) {
	if filter.UserID != nil && *filter.UserID != userID {
		return models.Owner{}, false
	}
	if filter.Status != "" && filter.Status != status {
		return models.Owner{}, false
	}
	if filter.From != nil && (at == nil || at.Before(*filter.From)) {
		return models.Owner{}, false
	}
	if filter.To != nil && (at == nil || !at.Before(*filter.To)) {
		return models.Owner{}, false
	}
	u, found := s.users[userID]
	if filter.UserQuery != "" && (!found || (!contains(u.FullName, filter.UserQuery) && !contains(u.Email, filter.UserQuery))) {
		return models.Owner{}, false
	}
	if !found {
		return models.UnknownOwner, true
	}
	return models.Owner{FullName: u.FullName, Email: u.Email}, true
}

// newer orders by timestamp descending with missing timestamps last, then id descending.
func newer(a, b *time.Time, aID, bID int64) bool {
	switch {
	case a == nil && b == nil:
		return aID > bID
	case a == nil:
		return false
	case b == nil:
		return true
	case !a.Equal(*b):
		return a.After(*b)
	}
	return aID > bID
}
