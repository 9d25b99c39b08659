// Package events follows the governance contract and dispatches every
// decoded event to the handler registered for its name.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"echodao-backend/internal/blockchain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// LogSource is implemented by *blockchain.Client.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, contract common.Address, from, to uint64) ([]types.Log, error)
}

// MaxBlockSpan is the widest block range asked for in one poll. Public
// endpoints refuse wider ones, so a backlog is worked off over several polls.
const MaxBlockSpan = 1000

type Handler func(ctx context.Context, fields map[string]interface{}) error

type EventListener struct {
	log      *zap.Logger
	source   LogSource
	contract common.Address
	parsed   *abi.ABI
	interval time.Duration

	handlers map[string]Handler
	next     uint64

	cancel context.CancelFunc
	done   chan struct{}
	wg     *sync.WaitGroup
}

func NewEventListener(logger *zap.Logger, source LogSource, contract common.Address, parsed *abi.ABI, interval time.Duration) *EventListener {
	return &EventListener{
		log:      logger,
		source:   source,
		contract: contract,
		parsed:   parsed,
		interval: interval,
		handlers: make(map[string]Handler),
		wg:       &sync.WaitGroup{},
	}
}

// SetHandler must be called before Start.
func (e *EventListener) SetHandler(eventName string, handler Handler) error {
	if _, ok := e.parsed.Events[eventName]; !ok {
		return errors.New("unknown event: " + eventName)
	}
	e.handlers[eventName] = handler
	return nil
}

// Start follows the contract from the current head on.
func (e *EventListener) Start(ctx context.Context) error {
	head, err := e.source.BlockNumber(ctx)
	if err != nil {
		return errors.New("failed to read the starting block: " + err.Error())
	}
	e.next = head + 1

	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	go e.listenLoop(ctx)

	e.log.Info("start listening on governance events", zap.String("contract", e.contract.Hex()), zap.Uint64("fromBlock", e.next))
	return nil
}

func (e *EventListener) Stop() error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	<-e.done

	e.log.Info("waiting for all the event handlers to finish...")
	e.wg.Wait()
	e.log.Info("event listener handlers finished")
	return nil
}

func (e *EventListener) listenLoop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.poll(ctx); err != nil && ctx.Err() == nil {
				e.log.Warn("event poll failed: " + err.Error())
			}
		}
	}
}

// poll dispatches the logs of the blocks mined since the previous poll, at
// most MaxBlockSpan of them.
func (e *EventListener) poll(ctx context.Context) error {
	head, err := e.source.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head < e.next {
		return nil
	}

	to := head
	if to-e.next >= MaxBlockSpan {
		to = e.next + MaxBlockSpan - 1
	}

	logs, err := e.source.FilterLogs(ctx, e.contract, e.next, to)
	if err != nil {
		return err
	}
	e.next = to + 1

	for _, l := range logs {
		name, fields, err := blockchain.DecodeLog(e.parsed, l)
		if err != nil {
			e.log.Warn("failed to decode the event: "+err.Error(), zap.String("txHash", l.TxHash.Hex()))
			continue
		}

		e.log.Info("event received: "+name, zap.Uint64("block", l.BlockNumber), zap.String("txHash", l.TxHash.Hex()))

		handler, ok := e.handlers[name]
		if !ok {
			e.log.Debug("handler missing for the event: " + name)
			continue
		}

		e.wg.Add(1)
		go func(name string, fields map[string]interface{}) {
			defer e.wg.Done()

			if err := handler(ctx, fields); err != nil {
				e.log.Error("error when handling the event "+name+": "+err.Error())
			}
		}(name, fields)
	}

	return nil
}
