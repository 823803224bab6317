// Package ledger is the application core: it loads a user's records, runs
// them through the accrual engine and the transaction workflow, and commits
// the results.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/invest-be/internal/accrual"
	"github.com/hongminglow/invest-be/internal/blob"
	"github.com/hongminglow/invest-be/internal/lock"
	"github.com/hongminglow/invest-be/internal/metrics"
	"github.com/hongminglow/invest-be/internal/models"
	"github.com/hongminglow/invest-be/internal/storage"
)

var (
	// ErrBusy is returned when a withdrawal could not be committed because
	// other requests kept changing the user's ledger.
	ErrBusy = errors.New("ledger busy, retry the request")
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const (
	defaultLockWait   = 5 * time.Second
	defaultCASRetries = 3
)

// Deps are the collaborators a Service is built from.
type Deps struct {
	Store       storage.Store
	Blobs       blob.Store
	Locks       lock.Locker
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Policy      accrual.Policy
	DefaultRate decimal.Decimal
	Now         func() time.Time
}

// Service implements every user and admin operation.
type Service struct {
	store       storage.Store
	blobs       blob.Store
	locks       lock.Locker
	metrics     *metrics.Metrics
	logger      *zap.Logger
	policy      accrual.Policy
	defaultRate decimal.Decimal
	now         func() time.Time
	lockWait    time.Duration
	casRetries  int
}

// New constructs a Service, filling unset optional dependencies.
func New(d Deps) *Service {
	s := &Service{
		store:       d.Store,
		blobs:       d.Blobs,
		locks:       d.Locks,
		metrics:     d.Metrics,
		logger:      d.Logger,
		policy:      d.Policy,
		defaultRate: d.DefaultRate,
		now:         d.Now,
		lockWait:    defaultLockWait,
		casRetries:  defaultCASRetries,
	}
	if s.locks == nil {
		s.locks = lock.NewLocalLocker()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.policy.Model == "" {
		s.policy = accrual.DefaultPolicy()
	}
	if s.defaultRate == (decimal.Decimal{}) {
		s.defaultRate = accrual.DefaultSettings().InterestRate
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Policy returns the accrual policy every balance is computed with.
func (s *Service) Policy() accrual.Policy { return s.policy }

// CurrentSettings returns the stored settings, or the built-in default rate
// when none were ever saved. The fallback is not an error.
func (s *Service) CurrentSettings(ctx context.Context) (models.Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("no settings stored, applying default rate", zap.String("rate", s.defaultRate.String()))
		return models.Settings{InterestRate: s.defaultRate, Defaulted: true}, nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return settings, nil
}
