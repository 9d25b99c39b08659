package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"echodao-backend/internal/signkeys"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const defaultReceiptInterval = time.Second

// Backend is the subset of the JSON-RPC surface the gateway depends on.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Call is a prepared contract interaction or plain value transfer.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	// Method is only used for logging.
	Method string
}

func (c Call) msg(from common.Address) ethereum.CallMsg {
	to := c.To
	return ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: c.Value,
		Data:  c.Data,
	}
}

// Client wraps the ledger RPC endpoint: reads, simulated calls, gas
// estimation and signed submission with receipt confirmation.
type Client struct {
	logger  *zap.Logger
	backend Backend
	key     signkeys.AccountKey
	chainID *big.Int
	signer  types.Signer

	// timeout bounds every single network call and the receipt wait
	timeout         time.Duration
	receiptInterval time.Duration

	nonces *nonceManager
}

type Option func(*Client)

func WithReceiptInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.receiptInterval = interval
	}
}

func NewClient(logger *zap.Logger, backend Backend, key signkeys.AccountKey, chainID *big.Int, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		logger:          logger,
		backend:         backend,
		key:             key,
		chainID:         new(big.Int).Set(chainID),
		signer:          types.LatestSignerForChainID(chainID),
		timeout:         timeout,
		receiptInterval: defaultReceiptInterval,
		nonces:          &nonceManager{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dial connects to the RPC endpoint and reads the chain id once.
func Dial(ctx context.Context, logger *zap.Logger, rpcURL string, key signkeys.AccountKey, timeout time.Duration, opts ...Option) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backend, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.New("failed to connect to the ledger RPC: " + err.Error())
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to read the chain id: %w", classify(err))
	}

	logger.Info("connected to the ledger", zap.String("rpc", rpcURL), zap.String("chainID", chainID.String()), zap.String("account", key.Address.Hex()))

	return NewClient(logger, backend, key, chainID, timeout, opts...), nil
}

// Account is the address every mutating operation is signed by.
func (c *Client) Account() common.Address {
	return c.key.Address
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read the block number: %w", classify(err))
	}
	return n, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read the balance of %s: %w", account.Hex(), classify(err))
	}
	return balance, nil
}

// CallView runs a read-only contract method and returns its unpacked outputs.
func (c *Client) CallView(ctx context.Context, to common.Address, parsed *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.backend.CallContract(ctx, Call{To: to, Data: input}.msg(c.key.Address), nil)
	if err != nil {
		return nil, fmt.Errorf("call %s failed: %w", method, classify(err))
	}

	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}

// EstimateGas returns the node's gas estimate for the call sent from the
// signing account. A revert during estimation is reported as a SimulationError.
func (c *Client) EstimateGas(ctx context.Context, call Call) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	gas, err := c.backend.EstimateGas(ctx, call.msg(c.key.Address))
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return 0, &SimulationError{Method: call.Method, Reason: reason}
		}
		return 0, fmt.Errorf("gas estimation for %s failed: %w", call.Method, classify(err))
	}
	return gas, nil
}

// FilterLogs returns the logs emitted by contract in the inclusive block range.
func (c *Client) FilterLogs(ctx context.Context, contract common.Address, from, to uint64) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs of %s: %w", contract.Hex(), classify(err))
	}
	return logs, nil
}
