// Package treasury makes sure the pooled treasury holds enough value before
// a disbursing proposal is created.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/model"
	"echodao-backend/internal/retry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Vault is implemented by *blockchain.Treasury.
type Vault interface {
	Address() common.Address
	Balance(ctx context.Context) (*big.Int, error)
	FundingCall(amount *big.Int) blockchain.Call
	ReceivedAmount(receipt *types.Receipt) (*big.Int, error)
}

// Submitter is implemented by *blockchain.Client.
type Submitter interface {
	EstimateGas(ctx context.Context, call blockchain.Call) (uint64, error)
	Commit(ctx context.Context, call blockchain.Call, gasLimit uint64) (*types.Receipt, error)
}

// FundingNotVisibleError means the funding transfer was mined but the
// treasury balance read back never reached the required amount.
type FundingNotVisibleError struct {
	Required     *big.Int
	LastObserved *big.Int
}

func (e *FundingNotVisibleError) Error() string {
	return fmt.Sprintf("treasury funding not yet visible: required %s CELO, last observed balance %s CELO",
		model.FormatEther(e.Required), model.FormatEther(e.LastObserved))
}

type Config struct {
	PollAttempts uint
	PollDelay    time.Duration
	// FallbackGas is used when estimating the transfer fails.
	FallbackGas uint64
}

type Funder struct {
	logger    *zap.Logger
	vault     Vault
	submitter Submitter
	cfg       Config
}

func NewFunder(logger *zap.Logger, vault Vault, submitter Submitter, cfg Config) *Funder {
	return &Funder{
		logger:    logger,
		vault:     vault,
		submitter: submitter,
		cfg:       cfg,
	}
}

// EnsureFunded tops the treasury up to required. Zero never funds and a
// sufficient balance returns right away. Otherwise the deficit is
// transferred from the signing account and the balance is polled until the
// transfer is visible.
func (f *Funder) EnsureFunded(ctx context.Context, required *big.Int) error {
	if required == nil || required.Sign() <= 0 {
		return nil
	}

	balance, err := f.vault.Balance(ctx)
	if err != nil {
		return errors.New("failed to read the treasury balance: " + err.Error())
	}
	if balance.Cmp(required) >= 0 {
		f.logger.Debug("treasury sufficiently funded", zap.String("balance", model.FormatEther(balance)), zap.String("required", model.FormatEther(required)))
		return nil
	}

	deficit := new(big.Int).Sub(required, balance)
	f.logger.Info("funding the treasury",
		zap.String("treasury", f.vault.Address().Hex()),
		zap.String("balance", model.FormatEther(balance)),
		zap.String("required", model.FormatEther(required)),
		zap.String("deficit", model.FormatEther(deficit)))

	if err := f.transfer(ctx, deficit); err != nil {
		return err
	}

	return f.awaitBalance(ctx, required, balance)
}

func (f *Funder) transfer(ctx context.Context, amount *big.Int) error {
	call := f.vault.FundingCall(amount)

	gas, err := f.submitter.EstimateGas(ctx, call)
	if err != nil {
		var simErr *blockchain.SimulationError
		if errors.As(err, &simErr) {
			return fmt.Errorf("treasury funding rejected: %w", err)
		}
		f.logger.Warn("gas estimation for the funding transfer failed, using the fallback: "+err.Error(), zap.Uint64("gas", f.cfg.FallbackGas))
		gas = f.cfg.FallbackGas
	}

	receipt, err := f.submitter.Commit(ctx, call, gas)
	if err != nil {
		return fmt.Errorf("treasury funding failed: %w", err)
	}

	if received, err := f.vault.ReceivedAmount(receipt); err == nil {
		f.logger.Info("treasury funding mined", zap.String("txHash", receipt.TxHash.Hex()), zap.String("received", model.FormatEther(received)))
	} else {
		f.logger.Info("treasury funding mined", zap.String("txHash", receipt.TxHash.Hex()))
	}
	return nil
}

// awaitBalance polls because the node answering reads may lag behind the
// one that mined the transfer.
func (f *Funder) awaitBalance(ctx context.Context, required, observed *big.Int) error {
	policy := retry.Policy{
		Attempts: f.cfg.PollAttempts,
		Delay:    f.cfg.PollDelay,
		OnRetry: func(attempt uint, err error) {
			f.logger.Debug("treasury balance not updated yet", zap.Uint("attempt", attempt+1), zap.Error(err))
		},
	}

	last, err := retry.Poll(ctx, policy, f.vault.Balance, func(balance *big.Int) bool {
		return balance.Cmp(required) >= 0
	})
	if last != nil {
		observed = last
	}
	if err == nil {
		f.logger.Info("treasury funding visible", zap.String("balance", model.FormatEther(observed)))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, retry.ErrExhausted) {
		return &FundingNotVisibleError{Required: new(big.Int).Set(required), LastObserved: new(big.Int).Set(observed)}
	}
	return errors.New("failed to read the treasury balance: " + err.Error())
}
