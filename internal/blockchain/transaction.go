package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// nonceManager serializes "read nonce, build, sign, send" for the signing
// account. It also remembers the next nonce locally because a node may still
// report a stale pending nonce right after a submission.
type nonceManager struct {
	mu    sync.Mutex
	next  uint64
	known bool
}

func (m *nonceManager) withNonce(ctx context.Context, pending func(ctx context.Context) (uint64, error), send func(nonce uint64) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce, err := pending(ctx)
	if err != nil {
		return err
	}
	if m.known && m.next > nonce {
		nonce = m.next
	}

	if err := send(nonce); err != nil {
		// the transaction may or may not have reached the pool, resync next time
		m.known = false
		return err
	}

	m.next, m.known = nonce+1, true
	return nil
}

// forget drops the local nonce so the next send trusts the node again.
func (m *nonceManager) forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known = false
}

// Commit signs the call with the held key, submits it and blocks until the
// receipt is observed. It only succeeds for a receipt with success status;
// a failed status is a *RevertedError, an unanswered wait is ErrNetworkTimeout.
func (c *Client) Commit(ctx context.Context, call Call, gasLimit uint64) (*types.Receipt, error) {
	tx, err := c.send(ctx, call, gasLimit)
	if err != nil {
		return nil, err
	}

	c.logger.Info("transaction sent", zap.String("method", call.Method), zap.String("txHash", tx.Hash().Hex()), zap.Uint64("nonce", tx.Nonce()), zap.Uint64("gas", gasLimit))

	waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.waitMined(waitCtx, tx.Hash())
	if err != nil {
		// a dropped transaction leaves a gap no later nonce can be mined behind
		c.nonces.forget()
		return nil, fmt.Errorf("waiting for the receipt of %s: %w", tx.Hash().Hex(), classify(err))
	}

	c.logger.Info("transaction mined", zap.String("method", call.Method), zap.String("txHash", tx.Hash().Hex()), zap.Uint64("status", receipt.Status), zap.Uint64("gasUsed", receipt.GasUsed))

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertedError{TxHash: tx.Hash(), Reason: c.reasonFromReceipt(ctx, call, receipt)}
	}

	return receipt, nil
}

func (c *Client) send(ctx context.Context, call Call, gasLimit uint64) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the gas price: %w", classify(err))
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	var signed *types.Transaction
	pending := func(ctx context.Context) (uint64, error) {
		nonce, err := c.backend.PendingNonceAt(ctx, c.key.Address)
		if err != nil {
			return 0, fmt.Errorf("failed to get the nonce: %w", classify(err))
		}
		return nonce, nil
	}

	err = c.nonces.withNonce(ctx, pending, func(nonce uint64) error {
		to := call.To
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    value,
			Data:     call.Data,
		})

		var err error
		signed, err = types.SignTx(tx, c.signer, c.key.PrivateKey)
		if err != nil {
			return errors.New("failed to sign the transaction: " + err.Error())
		}

		if err := c.backend.SendTransaction(ctx, signed); err != nil {
			if reason, ok := revertReason(err); ok {
				return fmt.Errorf("node refused %s: %s", call.Method, reason)
			}
			return fmt.Errorf("failed to send the transaction: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return signed, nil
}

// waitMined polls for the receipt until the context is done.
func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("receipt not available yet: "+err.Error(), zap.String("txHash", txHash.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// reasonFromReceipt replays the call at the receipt block to recover the revert reason.
func (c *Client) reasonFromReceipt(ctx context.Context, call Call, receipt *types.Receipt) string {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.backend.CallContract(ctx, call.msg(c.key.Address), receipt.BlockNumber); err != nil {
		if reason, ok := revertReason(err); ok {
			return reason
		}
	}
	return ""
}

// Transact runs the whole submission protocol for a mutating call: simulate,
// estimate, then commit with the estimate plus gasBuffer. A rejected
// simulation stops before any gas is spent; an inconclusive one is logged
// and the estimate decides.
func (c *Client) Transact(ctx context.Context, call Call, gasBuffer uint64) (*types.Receipt, error) {
	result := c.Simulate(ctx, call)
	switch result.Outcome {
	case SimulationRejected:
		c.logger.Info("simulation rejected the call", zap.String("method", call.Method), zap.String("reason", result.Reason))
		return nil, result.Error()
	case SimulationUnknown:
		c.logger.Warn("simulation inconclusive, proceeding", zap.String("method", call.Method), zap.Error(result.Err))
	}

	gas, err := c.EstimateGas(ctx, call)
	if err != nil {
		return nil, err
	}

	return c.Commit(ctx, call, gas+gasBuffer)
}
