package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/model"
	"echodao-backend/internal/quota"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// CheckLimit reports the user's quota without changing it.
func (a *App) CheckLimit(ctx context.Context, user string) (quota.Status, error) {
	if !model.IsAddress(user) {
		return quota.Status{}, invalidInput(errors.New("not a valid address: " + user))
	}
	return a.quota.Check(ctx, user)
}

// CreateProposal drives a draft through the quota and fee guards, treasury
// funding, simulation, gas estimation and submission. The quota is only
// recorded once the creation is confirmed on the ledger.
func (a *App) CreateProposal(ctx context.Context, draft model.ProposalDraft) (model.CreateResult, error) {
	draft.Complete()
	if err := draft.Validate(); err != nil {
		return model.CreateResult{}, invalidInput(err)
	}

	// waiting for the user's previous creation must not hold a worker
	unlock, err := a.quota.Lock(ctx, draft.UserAddress)
	if err != nil {
		return model.CreateResult{}, err
	}
	defer unlock()

	return offload(ctx, a, func(ctx context.Context) (model.CreateResult, error) {
		return a.createProposal(ctx, draft)
	})
}

// createProposal runs with the user's quota lock held.
func (a *App) createProposal(ctx context.Context, draft model.ProposalDraft) (model.CreateResult, error) {
	user := draft.UserAddress

	status, err := a.quota.Check(ctx, user)
	if err != nil {
		return model.CreateResult{}, err
	}
	if !status.CanCreate {
		a.logger.Info("proposal quota exceeded", zap.String("user", user), zap.Int("proposalsToday", status.ProposalsToday))
		fee := status.RequiredFee
		return model.CreateResult{}, &GuardError{Kind: GuardQuotaExceeded, Message: status.Message, RequiredFee: &fee}
	}

	amount := draft.Amount.Wei()

	// a no-op proposal never moves funds, so it is never charged
	var feeCharged model.Ether
	if !status.IsFree && amount.Sign() > 0 {
		if draft.FeePaid.Cmp(status.RequiredFee) < 0 {
			a.logger.Info("proposal fee insufficient", zap.String("user", user), zap.String("feePaid", draft.FeePaid.String()))
			fee := status.RequiredFee
			return model.CreateResult{}, &GuardError{
				Kind:        GuardFeeInsufficient,
				Message:     fmt.Sprintf("Fee required: %s CELO. This is not your first proposal.", fee),
				RequiredFee: &fee,
			}
		}
		feeCharged = draft.FeePaid
	}

	if err := a.funder.EnsureFunded(ctx, amount); err != nil {
		return model.CreateResult{}, err
	}

	call, err := a.creationCall(draft, amount)
	if err != nil {
		return model.CreateResult{}, err
	}

	a.logger.Info("creating proposal", zap.String("user", user), zap.String("title", draft.Title), zap.String("recipient", draft.Recipient), zap.String("amount", draft.Amount.String()))

	receipt, err := a.ledger.Transact(ctx, call, a.cfg.GasBuffer)
	if err != nil {
		return model.CreateResult{}, err
	}

	result := model.CreateResult{
		TxHash:     receipt.TxHash.Hex(),
		IsFree:     status.IsFree,
		FeeCharged: feeCharged,
	}

	if id, err := a.dao.CreatedProposalID(receipt); err != nil {
		a.logger.Warn("proposal id unknown: "+err.Error(), zap.String("txHash", result.TxHash))
	} else {
		result.ProposalID = &id
	}

	record := model.CreationRecord{
		ProposalID: result.ProposalID,
		TxHash:     result.TxHash,
		Amount:     amount,
		FeePaid:    feeCharged.Wei(),
		IsFree:     status.IsFree,
	}
	// the creation is final on chain, a failed record only under-counts the user
	if err := a.quota.Record(context.WithoutCancel(ctx), user, record); err != nil {
		a.logger.Error(err.Error(), zap.String("user", user), zap.String("txHash", result.TxHash))
	}

	a.logger.Info("proposal created", zap.String("user", user), zap.String("txHash", result.TxHash), zap.Bool("isFree", result.IsFree))
	return result, nil
}

// creationCall targets the treasury with a releaseFunds payload when the
// proposal disburses funds, and the recipient with no payload otherwise.
func (a *App) creationCall(draft model.ProposalDraft, amount *big.Int) (blockchain.Call, error) {
	recipient := common.HexToAddress(draft.Recipient)

	if amount.Sign() == 0 {
		return a.dao.CreateProposalCall(recipient, new(big.Int), nil, draft.Description)
	}

	callData, err := blockchain.ReleaseCallData(recipient, amount)
	if err != nil {
		return blockchain.Call{}, err
	}
	return a.dao.CreateProposalCall(a.treasury.Address(), new(big.Int), callData, draft.Description)
}

// Vote casts the signing account's vote.
func (a *App) Vote(ctx context.Context, id uint64, support bool) (model.VoteResult, error) {
	return offload(ctx, a, func(ctx context.Context) (model.VoteResult, error) {
		return a.vote(ctx, id, support)
	})
}

func (a *App) vote(ctx context.Context, id uint64, support bool) (model.VoteResult, error) {
	voter := a.ledger.Account()

	// the reads below only save gas, the simulation has the final say
	proposal, err := a.dao.Proposal(ctx, id)
	if err != nil {
		a.logger.Warn("failed to read the proposal before voting: "+err.Error(), zap.Uint64("proposalID", id))
	} else if !proposal.Exists() {
		return model.VoteResult{}, ErrProposalNotFound
	}

	voted, err := a.dao.HasVoted(ctx, id, voter)
	if err != nil {
		a.logger.Warn("failed to check the previous vote: "+err.Error(), zap.Uint64("proposalID", id))
	} else if voted {
		return model.VoteResult{}, guard(GuardAlreadyVoted, "Already voted on proposal %d", id)
	}

	call, err := a.dao.VoteCall(id, support)
	if err != nil {
		return model.VoteResult{}, err
	}

	receipt, err := a.ledger.Transact(ctx, call, a.cfg.GasBuffer)
	if err != nil {
		return model.VoteResult{}, err
	}

	a.logger.Info("vote cast", zap.Uint64("proposalID", id), zap.Bool("support", support), zap.String("txHash", receipt.TxHash.Hex()))
	return model.VoteResult{TxHash: receipt.TxHash.Hex()}, nil
}

// Execute re-validates every execution precondition off-chain, then submits.
func (a *App) Execute(ctx context.Context, id uint64) (model.ExecuteResult, error) {
	return offload(ctx, a, func(ctx context.Context) (model.ExecuteResult, error) {
		return a.execute(ctx, id)
	})
}

func (a *App) execute(ctx context.Context, id uint64) (model.ExecuteResult, error) {
	proposal, err := a.proposal(ctx, id)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	currentBlock, err := a.ledger.BlockNumber(ctx)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	if err := a.checkExecutable(ctx, proposal, currentBlock); err != nil {
		a.logger.Info("execution rejected: "+err.Error(), zap.Uint64("proposalID", id), zap.Uint64("block", currentBlock))
		return model.ExecuteResult{}, err
	}

	call, err := a.dao.ExecuteCall(id)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	receipt, err := a.ledger.Transact(ctx, call, a.cfg.ExecuteGasBuffer)
	if err != nil {
		return model.ExecuteResult{}, err
	}

	result := model.ExecuteResult{TxHash: receipt.TxHash.Hex()}
	if events, err := a.dao.ExecutedEvent(receipt); err != nil {
		a.logger.Warn("failed to decode the execution event: "+err.Error(), zap.String("txHash", result.TxHash))
	} else {
		result.Events = events
	}

	a.logger.Info("proposal executed", zap.Uint64("proposalID", id), zap.String("txHash", result.TxHash))
	return result, nil
}

// checkExecutable applies the guards in order, the first failing one wins.
func (a *App) checkExecutable(ctx context.Context, p model.Proposal, currentBlock uint64) error {
	if p.Executed {
		return guard(GuardAlreadyExecuted, "Proposal %d has already been executed", p.ID)
	}
	// a tie never passes, whatever the block height
	if !p.Passed() {
		return guard(GuardQuorumFailed, "Proposal did not pass: %d yes votes, %d no votes", p.YesVotes, p.NoVotes)
	}
	if !p.VotingEnded(currentBlock) {
		return guard(GuardVotingNotEnded, "Voting period has not ended yet: current block %d, voting ends after block %d", currentBlock, p.BlockEnd)
	}

	owner, err := a.treasury.Owner(ctx)
	if err != nil {
		return err
	}
	if owner != a.dao.Address() {
		return guard(GuardNotOwner, "Treasury is owned by %s, not by the governance contract %s", owner.Hex(), a.dao.Address().Hex())
	}

	if p.Target != a.treasury.Address() {
		return nil
	}

	// only releaseFunds payloads are understood, anything else goes straight to simulation
	release, err := blockchain.DecodeRelease(p.CallData)
	if err != nil {
		a.logger.Warn("skipping the treasury balance check: "+err.Error(), zap.Uint64("proposalID", p.ID))
		return nil
	}

	balance, err := a.treasury.Balance(ctx)
	if err != nil {
		return err
	}
	if balance.Cmp(release.Amount) < 0 {
		return guard(GuardInsufficientTreasury, "Treasury balance %s CELO does not cover the release of %s CELO", model.FormatEther(balance), model.FormatEther(release.Amount))
	}

	return nil
}
