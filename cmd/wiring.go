package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"echodao-backend/internal/app"
	"echodao-backend/internal/blockchain"
	"echodao-backend/internal/blockchain/events"
	"echodao-backend/internal/config"
	"echodao-backend/internal/intelligence"
	"echodao-backend/internal/model"
	"echodao-backend/internal/quota"
	"echodao-backend/internal/repository/mongodb"
	"echodao-backend/internal/signkeys"
	"echodao-backend/internal/storage/ipfs"
	"echodao-backend/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type wiring struct {
	logger *zap.Logger

	app    *app.App
	client *blockchain.Client
	dao    *blockchain.DAO

	closers []func() error
}

func (w *wiring) close() {
	var err error
	for i := len(w.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, w.closers[i]())
	}
	if err != nil {
		w.logger.Error("failed to release resources: " + err.Error())
	}
}

func wire(ctx context.Context, logger *zap.Logger) (_ *wiring, err error) {
	w := &wiring{logger: logger}
	defer func() {
		if err != nil {
			w.close()
		}
	}()

	key, err := signkeys.LoadKey(config.GetPrivateKey())
	if err != nil {
		return nil, errors.New("invalid PRIVATE_KEY: " + err.Error())
	}

	if !model.IsAddress(config.GetDAOAddress()) {
		return nil, fmt.Errorf("invalid DAO_CONTRACT: %q", config.GetDAOAddress())
	}

	w.client, err = blockchain.Dial(ctx, logger, config.GetRPCURL(), key, config.GetRPCTimeout())
	if err != nil {
		return nil, err
	}

	w.dao = blockchain.NewDAO(w.client, common.HexToAddress(config.GetDAOAddress()))

	treasuryAddress, err := resolveTreasury(ctx, w.dao)
	if err != nil {
		return nil, err
	}
	vault := blockchain.NewTreasury(w.client, treasuryAddress)

	funder := treasury.NewFunder(logger, vault, w.client, treasury.Config{
		PollAttempts: uint(config.GetFundingPollAttempts()),
		PollDelay:    config.GetFundingPollDelay(),
		FallbackGas:  config.GetFundingFallbackGas(),
	})

	var repo *mongodb.Repository
	mongoRepo := func() (*mongodb.Repository, error) {
		if repo != nil {
			return repo, nil
		}
		r, err := mongodb.NewConnection(logger, config.GetDbConnectionURI(), config.GetDatabaseName())
		if err != nil {
			return nil, errors.New("failed to connect to mongodb: " + err.Error())
		}
		w.closers = append(w.closers, func() error { r.Disconnect(); return nil })
		repo = &r
		return repo, nil
	}

	store, err := w.quotaStore(ctx, mongoRepo)
	if err != nil {
		return nil, err
	}

	fee, err := model.ParseEther(config.GetProposalFee())
	if err != nil {
		return nil, errors.New("invalid PROPOSAL_FEE: " + err.Error())
	}
	limiter, err := quota.NewLimiter(logger, store, config.GetDailyProposalLimit(), fee)
	if err != nil {
		return nil, err
	}

	var archive app.ReportArchive
	switch config.GetReportArchive() {
	case "mongodb":
		r, err := mongoRepo()
		if err != nil {
			return nil, err
		}
		archive = r
	case "", "none":
	default:
		return nil, fmt.Errorf("unknown REPORT_ARCHIVE: %q", config.GetReportArchive())
	}

	content := ipfs.NewClient(logger, config.GetPinataAPIURL(), config.GetPinataGatewayURL(),
		config.GetPinataAPIKey(), config.GetPinataSecret(), config.GetRequestTimeout())

	w.app, err = app.NewApp(logger, app.Deps{
		Ledger:     w.client,
		DAO:        w.dao,
		Treasury:   vault,
		Funder:     funder,
		Quota:      limiter,
		Content:    content,
		Summarizer: intelligence.NewLeadSummarizer(),
		Scorer:     intelligence.HeuristicScorer{},
		Archive:    archive,
	}, app.Config{
		GasBuffer:        config.GetGasBuffer(),
		ExecuteGasBuffer: config.GetExecuteGasBuffer(),
		BatchConcurrency: config.GetBatchConcurrency(),
		BatchTimeout:     config.GetBatchTimeout(),
		MaxLedgerWorkers: int64(config.GetMaxLedgerWorkers()),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("gateway wired",
		zap.String("dao", w.dao.Address().Hex()),
		zap.String("treasury", treasuryAddress.Hex()),
		zap.String("quotaBackend", config.GetQuotaBackend()),
		zap.String("reportArchive", config.GetReportArchive()),
	)
	return w, nil
}

func resolveTreasury(ctx context.Context, dao *blockchain.DAO) (common.Address, error) {
	if addr := config.GetTreasuryAddress(); addr != "" {
		if !model.IsAddress(addr) {
			return common.Address{}, fmt.Errorf("invalid TREASURY_CONTRACT: %q", addr)
		}
		return common.HexToAddress(addr), nil
	}

	addr, err := dao.TreasuryAddress(ctx)
	if err != nil {
		return common.Address{}, errors.New("failed to read the treasury address from the DAO: " + err.Error())
	}
	return addr, nil
}

func (w *wiring) quotaStore(ctx context.Context, mongoRepo func() (*mongodb.Repository, error)) (quota.Store, error) {
	switch backend := config.GetQuotaBackend(); backend {
	case "", "memory":
		return quota.NewMemoryStore(), nil
	case "file":
		return quota.NewFileStore(config.GetQuotaFile())
	case "redis":
		store, closer, err := quota.DialRedis(ctx, config.GetRedisAddr(), config.GetRedisPassword(), config.GetRedisDB())
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, closer)
		return store, nil
	case "postgres":
		store, closer, err := quota.OpenPostgres(ctx, config.GetPostgresURL())
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, closer)
		return store, nil
	case "mongodb":
		repo, err := mongoRepo()
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown QUOTA_BACKEND: %q", backend)
	}
}

// eventListener logs governance activity. It returns nil when disabled.
func (w *wiring) eventListener(logger *zap.Logger, interval time.Duration) (*events.EventListener, error) {
	if interval <= 0 {
		return nil, nil
	}

	listener := events.NewEventListener(logger, w.client, w.dao.Address(), &blockchain.GovernanceABI, interval)

	handlers := map[string]events.Handler{
		"ProposalCreated": func(_ context.Context, fields map[string]interface{}) error {
			logger.Info("proposal created on chain", zap.Any("id", fields["id"]), zap.Any("proposer", fields["proposer"]), zap.Any("blockEnd", fields["blockEnd"]))
			return nil
		},
		"Voted": func(_ context.Context, fields map[string]interface{}) error {
			logger.Info("vote recorded on chain", zap.Any("id", fields["id"]), zap.Any("voter", fields["voter"]), zap.Any("support", fields["support"]))
			return nil
		},
		"ProposalExecuted": func(_ context.Context, fields map[string]interface{}) error {
			logger.Info("proposal executed on chain", zap.Any("id", fields["id"]), zap.Any("target", fields["target"]), zap.Any("value", fields["value"]))
			return nil
		},
	}
	for name, handler := range handlers {
		if err := listener.SetHandler(name, handler); err != nil {
			return nil, err
		}
	}

	return listener, nil
}
