package app

import (
	"context"
	"math/big"
	"sync"

	"echodao-backend/internal/model"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProposalState is a proposal seen at a given block height.
type ProposalState struct {
	Proposal     model.Proposal
	CurrentBlock uint64
	Status       model.ProposalStatus
	// CanExecute only accounts for the voting window, the vote count and the
	// executed flag.
	CanExecute bool
}

func (a *App) proposal(ctx context.Context, id uint64) (model.Proposal, error) {
	p, err := a.dao.Proposal(ctx, id)
	if err != nil {
		return model.Proposal{}, err
	}
	if !p.Exists() {
		return model.Proposal{}, ErrProposalNotFound
	}
	return p, nil
}

func (a *App) GetProposal(ctx context.Context, id uint64) (model.Proposal, error) {
	return offload(ctx, a, func(ctx context.Context) (model.Proposal, error) {
		return a.proposal(ctx, id)
	})
}

// FetchMany reads the given proposals concurrently. Ids that fail to read or
// do not exist are left out of the result.
func (a *App) FetchMany(ctx context.Context, ids []uint64) map[uint64]model.Proposal {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.BatchTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		result = make(map[uint64]model.Proposal, len(ids))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.BatchConcurrency)

	for _, id := range lo.Uniq(ids) {
		id := id
		g.Go(func() error {
			p, err := a.dao.Proposal(gctx, id)
			if err != nil {
				a.logger.Warn("failed to read the proposal: "+err.Error(), zap.Uint64("proposalID", id))
				return nil
			}
			if !p.Exists() {
				return nil
			}

			mu.Lock()
			result[id] = p
			mu.Unlock()
			return nil
		})
	}

	// per-id errors are swallowed above, Wait only joins
	_ = g.Wait()

	return result
}

// ListProposals returns every existing proposal ordered by id.
func (a *App) ListProposals(ctx context.Context) ([]model.Proposal, error) {
	return offload(ctx, a, func(ctx context.Context) ([]model.Proposal, error) {
		next, err := a.dao.NextProposalID(ctx)
		if err != nil {
			return nil, err
		}

		ids := lo.Map(lo.Range(int(next)), func(i int, _ int) uint64 { return uint64(i) })
		found := a.FetchMany(ctx, ids)

		return lo.FilterMap(ids, func(id uint64, _ int) (model.Proposal, bool) {
			p, ok := found[id]
			return p, ok
		}), nil
	})
}

// ProposalState reads the proposal together with the current block height.
func (a *App) ProposalState(ctx context.Context, id uint64) (ProposalState, error) {
	return offload(ctx, a, func(ctx context.Context) (ProposalState, error) {
		p, err := a.proposal(ctx, id)
		if err != nil {
			return ProposalState{}, err
		}

		block, err := a.ledger.BlockNumber(ctx)
		if err != nil {
			return ProposalState{}, err
		}

		status := p.Status(block)
		return ProposalState{
			Proposal:     p,
			CurrentBlock: block,
			Status:       status,
			CanExecute:   status == model.ProposalStatusPassed,
		}, nil
	})
}

func (a *App) TreasuryBalance(ctx context.Context) (*big.Int, error) {
	return offload(ctx, a, func(ctx context.Context) (*big.Int, error) {
		return a.treasury.Balance(ctx)
	})
}

func (a *App) TreasuryInfo(ctx context.Context) (model.TreasuryInfo, error) {
	return offload(ctx, a, func(ctx context.Context) (model.TreasuryInfo, error) {
		owner, err := a.treasury.Owner(ctx)
		if err != nil {
			return model.TreasuryInfo{}, err
		}
		balance, err := a.treasury.Balance(ctx)
		if err != nil {
			return model.TreasuryInfo{}, err
		}

		return model.TreasuryInfo{
			Address:           a.treasury.Address(),
			Owner:             owner,
			Balance:           balance,
			OwnedByGovernance: owner == a.dao.Address(),
		}, nil
	})
}
