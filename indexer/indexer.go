package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
	"github.com/lightlink-network/lotto-client/dedup"
	"github.com/lightlink-network/lotto-client/metrics"
	"github.com/lightlink-network/lotto-client/utils"
)

type Mode string

const (
	ModeAuto      Mode = "auto"
	ModeSubscribe Mode = "subscribe"
	ModePoll      Mode = "poll"
)

const (
	defaultPollInterval     = 5 * time.Second
	defaultBatchSize        = uint64(2000)
	defaultResubscribeDelay = 5 * time.Second
)

// Handler receives decoded contract events. Each event is delivered once
// per transaction hash; per-user events only for the bound account.
type Handler interface {
	HandleSpinResult(ctx context.Context, event *lottery.SpinResult)
	HandleTicketPurchased(ctx context.Context, event *lottery.TicketPurchased)
	HandleLotteryDrawn(ctx context.Context, event *lottery.LotteryDrawn)
	HandleWinningsClaimed(ctx context.Context, event *lottery.WinningsClaimed)
}

// LogSource is the chain access the indexer needs.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Checkpoints stores the last block the polling indexer processed.
type Checkpoints interface {
	GetLastIndexedBlock(ctx context.Context, key string) (uint64, error)
	UpdateLastIndexedBlock(ctx context.Context, key string, blockNumber uint64) error
}

type IndexerOpts struct {
	Source      LogSource
	Handler     Handler
	Checkpoints Checkpoints
	Contract    common.Address
	Account     common.Address
	// Endpoint picks the mode when Mode is ModeAuto.
	Endpoint         string
	Mode             Mode
	StartBlock       uint64
	PollInterval     time.Duration
	BatchSize        uint64
	ResubscribeDelay time.Duration
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
}

type Indexer struct {
	source      LogSource
	handler     Handler
	checkpoints Checkpoints
	contract    common.Address
	account     common.Address
	metrics     *metrics.Metrics
	logger      *slog.Logger
	seen        map[common.Hash]*dedup.Set
	Opts        *IndexerOpts
}

func NewIndexer(opts IndexerOpts) (*Indexer, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("indexer requires a log source")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("indexer requires a handler")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeAuto
	}
	if opts.Mode == ModeAuto {
		opts.Mode = ModePoll
		if utils.IsWebsocket(opts.Endpoint) {
			opts.Mode = ModeSubscribe
		}
	}
	if opts.Mode != ModeSubscribe && opts.Mode != ModePoll {
		return nil, fmt.Errorf("unknown subscription mode %q", opts.Mode)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.ResubscribeDelay <= 0 {
		opts.ResubscribeDelay = defaultResubscribeDelay
	}

	seen := make(map[common.Hash]*dedup.Set, len(lottery.EventNames))
	for _, name := range lottery.EventNames {
		seen[lottery.EventID(name)] = dedup.NewSet(dedup.DefaultCapacity)
	}

	return &Indexer{
		source:      opts.Source,
		handler:     opts.Handler,
		checkpoints: opts.Checkpoints,
		contract:    opts.Contract,
		account:     opts.Account,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		seen:        seen,
		Opts:        &opts,
	}, nil
}

func (i *Indexer) Mode() Mode {
	return i.Opts.Mode
}

// Run indexes the four lottery events until ctx is done.
func (i *Indexer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	i.logger.Info("starting lottery indexer", "mode", i.Opts.Mode, "contract", i.contract.Hex(), "account", i.account.Hex())

	switch i.Opts.Mode {
	case ModeSubscribe:
		for _, name := range lottery.EventNames {
			q := i.query(name)
			g.Go(func() error {
				return i.subscribe(ctx, name, q)
			})
		}
	case ModePoll:
		g.Go(func() error {
			return i.poll(ctx)
		})
	}

	return g.Wait()
}

// query filters by contract and event, and by the bound account for
// per-user events.
func (i *Indexer) query(name string) ethereum.FilterQuery {
	topics := [][]common.Hash{{lottery.EventID(name)}}
	if name != lottery.EventLotteryDrawn && (i.account != common.Address{}) {
		topics = append(topics, []common.Hash{common.BytesToHash(i.account.Bytes())})
	}
	return ethereum.FilterQuery{
		Addresses: []common.Address{i.contract},
		Topics:    topics,
	}
}

func (i *Indexer) forAccount(topic common.Hash) bool {
	return common.BytesToAddress(topic.Bytes()) == i.account
}

// dispatch decodes log and hands it to the handler once per transaction
// hash and event type. Removed logs and logs of other accounts are dropped.
func (i *Indexer) dispatch(ctx context.Context, log types.Log) {
	if log.Removed {
		i.logger.Debug("ignoring removed log", "txHash", log.TxHash.Hex())
		return
	}
	if log.Address != i.contract || len(log.Topics) == 0 {
		return
	}

	id := log.Topics[0]
	seen, ok := i.seen[id]
	if !ok {
		return
	}

	switch id {
	case lottery.SpinResultEventABIHash:
		event, err := lottery.ParseSpinResult(log)
		if err != nil {
			i.logger.Warn("failed to parse SpinResult", "txHash", log.TxHash.Hex(), "error", err)
			return
		}
		if !i.forAccount(log.Topics[1]) || !i.first(seen, lottery.EventSpinResult, log) {
			return
		}
		i.handler.HandleSpinResult(ctx, event)

	case lottery.TicketPurchasedEventABIHash:
		event, err := lottery.ParseTicketPurchased(log)
		if err != nil {
			i.logger.Warn("failed to parse TicketPurchased", "txHash", log.TxHash.Hex(), "error", err)
			return
		}
		if !i.forAccount(log.Topics[1]) || !i.first(seen, lottery.EventTicketPurchased, log) {
			return
		}
		i.handler.HandleTicketPurchased(ctx, event)

	case lottery.LotteryDrawnEventABIHash:
		event, err := lottery.ParseLotteryDrawn(log)
		if err != nil {
			i.logger.Warn("failed to parse LotteryDrawn", "txHash", log.TxHash.Hex(), "error", err)
			return
		}
		if !i.first(seen, lottery.EventLotteryDrawn, log) {
			return
		}
		i.handler.HandleLotteryDrawn(ctx, event)

	case lottery.WinningsClaimedEventABIHash:
		event, err := lottery.ParseWinningsClaimed(log)
		if err != nil {
			i.logger.Warn("failed to parse WinningsClaimed", "txHash", log.TxHash.Hex(), "error", err)
			return
		}
		if !i.forAccount(log.Topics[1]) || !i.first(seen, lottery.EventWinningsClaimed, log) {
			return
		}
		i.handler.HandleWinningsClaimed(ctx, event)
	}
}

func (i *Indexer) first(seen *dedup.Set, name string, log types.Log) bool {
	if !seen.Add(log.TxHash) {
		i.logger.Debug("duplicate event", "event", name, "txHash", log.TxHash.Hex())
		return false
	}
	i.metrics.Event(name)
	i.logger.Info("event received", "event", name, "txHash", log.TxHash.Hex(), "block", log.BlockNumber)
	return true
}
