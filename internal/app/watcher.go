package app

import (
	"context"
	"time"

	"echodao-backend/internal/model"
	"echodao-backend/internal/retry"

	"go.uber.org/zap"
)

// ExecuteWhenReady waits until the voting window of the proposal has closed,
// then executes it. Guards are left to Execute, so a proposal that did not
// pass still fails with its guard error once the window is closed.
func (a *App) ExecuteWhenReady(ctx context.Context, id uint64, interval time.Duration) (model.ExecuteResult, error) {
	p, err := a.proposal(ctx, id)
	if err != nil {
		return model.ExecuteResult{}, err
	}
	if p.Executed {
		return model.ExecuteResult{}, guard(GuardAlreadyExecuted, "Proposal %d has already been executed", id)
	}

	a.logger.Info("waiting for the voting window to close", zap.Uint64("proposalID", id), zap.Uint64("blockEnd", p.BlockEnd))

	policy := retry.Policy{
		Delay: interval,
		OnRetry: func(attempt uint, err error) {
			a.logger.Debug("voting still open: "+err.Error(), zap.Uint64("proposalID", id), zap.Uint("attempt", attempt))
		},
	}
	block, err := retry.Poll(ctx, policy, a.ledger.BlockNumber, p.VotingEnded)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	a.logger.Info("voting window closed", zap.Uint64("proposalID", id), zap.Uint64("block", block))
	return a.Execute(ctx, id)
}
