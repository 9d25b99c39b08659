// Package quota keeps the off-chain proposal bookkeeping: how many proposals
// a user created today and overall, and whether the next one is free.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"echodao-backend/internal/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Store persists the creation history per user. Users are lower-cased addresses.
type Store interface {
	Records(ctx context.Context, user string) ([]model.CreationRecord, error)
	Append(ctx context.Context, user string, record model.CreationRecord) error
}

// Status is the outcome of Check.
type Status struct {
	CanCreate      bool
	IsFree         bool
	ProposalsToday int
	TotalProposals int
	// RequiredFee is zero for a free proposal.
	RequiredFee model.Ether
	Message     string
}

type Limiter struct {
	logger     *zap.Logger
	store      Store
	dailyLimit int
	fee        model.Ether
	now        func() time.Time

	mu    sync.Mutex
	users map[string]*userLock
}

type userLock struct {
	sem  *semaphore.Weighted
	refs int
}

type Option func(*Limiter)

// WithClock replaces time.Now; the day boundary is midnight in the clock's location.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(logger *zap.Logger, store Store, dailyLimit int, fee model.Ether, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("quota store is missing")
	}
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("daily proposal limit must be positive, got %d", dailyLimit)
	}

	l := &Limiter{
		logger:     logger,
		store:      store,
		dailyLimit: dailyLimit,
		fee:        fee,
		now:        time.Now,
		users:      make(map[string]*userLock),
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Lock serializes check and record for one user. It gives up when ctx is
// done; on success the returned func releases the lock.
func (l *Limiter) Lock(ctx context.Context, user string) (func(), error) {
	user = model.NormalizeAddress(user)

	l.mu.Lock()
	ul, ok := l.users[user]
	if !ok {
		ul = &userLock{sem: semaphore.NewWeighted(1)}
		l.users[user] = ul
	}
	ul.refs++
	l.mu.Unlock()

	if err := ul.sem.Acquire(ctx, 1); err != nil {
		l.release(user, ul)
		return nil, err
	}

	return func() {
		ul.sem.Release(1)
		l.release(user, ul)
	}, nil
}

func (l *Limiter) release(user string, ul *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ul.refs--
	if ul.refs == 0 {
		delete(l.users, user)
	}
}

// Check reports whether the user may create a proposal now and what it costs.
// It never modifies the store.
func (l *Limiter) Check(ctx context.Context, user string) (Status, error) {
	user = model.NormalizeAddress(user)

	records, err := l.store.Records(ctx, user)
	if err != nil {
		return Status{}, errors.New("failed to read the proposal history: " + err.Error())
	}

	now := l.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today := lo.CountBy(records, func(r model.CreationRecord) bool {
		return !r.CreatedAt.Before(dayStart)
	})

	status := Status{
		ProposalsToday: today,
		TotalProposals: len(records),
	}

	if today >= l.dailyLimit {
		status.RequiredFee = l.fee
		status.Message = fmt.Sprintf("Daily limit reached. You can only create %d proposals per day.", l.dailyLimit)
		return status, nil
	}

	status.CanCreate = true
	status.IsFree = len(records) == 0
	if status.IsFree {
		status.Message = "Free proposal"
	} else {
		status.RequiredFee = l.fee
		status.Message = l.fee.String() + " CELO fee required"
	}

	return status, nil
}

// Record appends a creation to the user's history. It is the only mutator
// and is called after the creation was confirmed on the ledger.
func (l *Limiter) Record(ctx context.Context, user string, record model.CreationRecord) error {
	user = model.NormalizeAddress(user)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = l.now()
	}

	if err := l.store.Append(ctx, user, record); err != nil {
		return errors.New("failed to record the proposal creation: " + err.Error())
	}

	l.logger.Debug("proposal creation recorded", zap.String("user", user), zap.String("txHash", record.TxHash), zap.Bool("isFree", record.IsFree))
	return nil
}
