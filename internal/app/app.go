package app

import (
	"context"
	"errors"
	"math/big"
	"time"

	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/intelligence"
	"echodao-backend/internal/model"
	"echodao-backend/internal/quota"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Ledger is implemented by *blockchain.Client.
type Ledger interface {
	Account() common.Address
	BlockNumber(ctx context.Context) (uint64, error)
	Transact(ctx context.Context, call blockchain.Call, gasBuffer uint64) (*types.Receipt, error)
}

// Governance is implemented by *blockchain.DAO.
type Governance interface {
	Address() common.Address
	NextProposalID(ctx context.Context) (uint64, error)
	Proposal(ctx context.Context, id uint64) (model.Proposal, error)
	HasVoted(ctx context.Context, id uint64, voter common.Address) (bool, error)
	CreateProposalCall(target common.Address, value *big.Int, callData []byte, description string) (blockchain.Call, error)
	VoteCall(id uint64, support bool) (blockchain.Call, error)
	ExecuteCall(id uint64) (blockchain.Call, error)
	CreatedProposalID(receipt *types.Receipt) (uint64, error)
	ExecutedEvent(receipt *types.Receipt) (map[string]interface{}, error)
}

// Vault is implemented by *blockchain.Treasury.
type Vault interface {
	Address() common.Address
	Owner(ctx context.Context) (common.Address, error)
	Balance(ctx context.Context) (*big.Int, error)
}

// Funder is implemented by *treasury.Funder.
type Funder interface {
	EnsureFunded(ctx context.Context, required *big.Int) error
}

// ContentStore is implemented by *ipfs.Client.
type ContentStore interface {
	Put(ctx context.Context, data []byte, filename string) (string, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
}

// ReportArchive is implemented by mongodb.Repository.
type ReportArchive interface {
	SaveReport(ctx context.Context, report model.Report) error
	FindReport(ctx context.Context, contentID string) (model.Report, error)
}

type Config struct {
	// GasBuffer is added to the estimate of create and vote transactions.
	GasBuffer uint64
	// ExecuteGasBuffer is added to the estimate of execute transactions.
	ExecuteGasBuffer uint64

	BatchConcurrency int
	BatchTimeout     time.Duration

	// MaxLedgerWorkers bounds the ledger operations in flight across all requests.
	MaxLedgerWorkers int64
}

type Deps struct {
	Ledger   Ledger
	DAO      Governance
	Treasury Vault
	Funder   Funder
	Quota    *quota.Limiter

	Content    ContentStore
	Summarizer intelligence.Summarizer
	Scorer     intelligence.TrustScorer
	// Archive is optional.
	Archive ReportArchive
}

type App struct {
	logger *zap.Logger

	ledger   Ledger
	dao      Governance
	treasury Vault
	funder   Funder
	quota    *quota.Limiter

	content    ContentStore
	summarizer intelligence.Summarizer
	scorer     intelligence.TrustScorer
	archive    ReportArchive

	cfg     Config
	workers *semaphore.Weighted
}

func NewApp(logger *zap.Logger, deps Deps, cfg Config) (*App, error) {
	if deps.Ledger == nil || deps.DAO == nil || deps.Treasury == nil || deps.Funder == nil || deps.Quota == nil {
		return nil, errors.New("ledger dependencies are missing")
	}
	if deps.Content == nil || deps.Summarizer == nil || deps.Scorer == nil {
		return nil, errors.New("report dependencies are missing")
	}
	if cfg.BatchConcurrency <= 0 || cfg.MaxLedgerWorkers <= 0 || cfg.BatchTimeout <= 0 {
		return nil, errors.New("invalid app config")
	}

	return &App{
		logger:     logger,
		ledger:     deps.Ledger,
		dao:        deps.DAO,
		treasury:   deps.Treasury,
		funder:     deps.Funder,
		quota:      deps.Quota,
		content:    deps.Content,
		summarizer: deps.Summarizer,
		scorer:     deps.Scorer,
		archive:    deps.Archive,
		cfg:        cfg,
		workers:    semaphore.NewWeighted(cfg.MaxLedgerWorkers),
	}, nil
}

// offload runs blocking ledger work on the bounded worker pool so request
// handling never piles up more ledger calls than the pool allows.
func offload[T any](ctx context.Context, a *App, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := a.workers.Acquire(ctx, 1); err != nil {
		var zero T
		return zero, err
	}
	defer a.workers.Release(1)

	return fn(ctx)
}
