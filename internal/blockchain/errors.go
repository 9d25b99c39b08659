package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrNetworkTimeout marks a ledger call that did not answer in time. For
	// mutating operations the outcome is unknown and must not be assumed.
	ErrNetworkTimeout = errors.New("ledger request timed out")

	// ErrDecodeFailure marks best-effort decoding of events or call data.
	ErrDecodeFailure = errors.New("decode failure")

	ErrEventNotFound = errors.New("event not found in receipt")
)

const executionErrorCode = 3

// SimulationError carries the revert reason of a call that the ledger
// rejected without committing it.
type SimulationError struct {
	Method string
	Reason string
}

func (e *SimulationError) Error() string {
	if e.Method == "" {
		return "transaction likely to fail: " + e.Reason
	}
	return fmt.Sprintf("transaction likely to fail: %s: %s", e.Method, e.Reason)
}

// RevertedError is a transaction that was mined with a failure status.
type RevertedError struct {
	TxHash common.Hash
	Reason string
}

func (e *RevertedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted on-chain", e.TxHash.Hex())
	}
	return fmt.Sprintf("transaction %s reverted on-chain: %s", e.TxHash.Hex(), e.Reason)
}

// classify marks deadline errors so callers can tell a timeout from other failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNetworkTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrNetworkTimeout, err)
	}
	return err
}

// revertReason extracts the reason of a JSON-RPC error returned for an
// evaluated call. Transport errors return false.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok && data != "" && data != "0x" {
			if reason, uerr := abi.UnpackRevert(common.FromHex(data)); uerr == nil {
				return reason, true
			}
			// custom error, the selector is all we can report
			return data, true
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, "execution reverted"); i >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[i:], "execution reverted"))
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		if reason == "" {
			reason = "execution reverted"
		}
		return reason, true
	}

	// code 3 is the execution error code; other JSON-RPC errors such as
	// throttling or a missing header say nothing about the call itself
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == executionErrorCode {
		return rpcErr.Error(), true
	}

	return "", false
}
