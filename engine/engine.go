// Package engine drives the lottery operations: it gates them on the
// network, tracks each kind through its lifecycle, reconciles spin
// outcomes from events and receipts and animates the wheel.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/lotto-client/guard"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/metrics"
	"github.com/lightlink-network/lotto-client/outcome"
	"github.com/lightlink-network/lotto-client/price"
	"github.com/lightlink-network/lotto-client/query"
	"github.com/lightlink-network/lotto-client/recovery"
	"github.com/lightlink-network/lotto-client/types"
	"github.com/lightlink-network/lotto-client/wheel"
)

var (
	ErrSpinning           = errors.New("wheel is still spinning")
	ErrOutcomeTimeout     = errors.New("no spin result received in time, please try again")
	ErrInvalidQuantity    = errors.New("ticket quantity must be between 1 and 100")
	ErrInvalidLotteryType = errors.New("tickets can only be bought for weekly, biweekly or monthly lotteries")
	ErrInvalidAmount      = errors.New("invalid eth amount")
)

const (
	MinTickets = 1
	MaxTickets = 100

	DefaultAnimationDuration   = 4500 * time.Millisecond
	DefaultConfirmationTimeout = 5 * time.Minute
)

// Network runs the chain guard.
type Network interface {
	EnsureNetwork(ctx context.Context) error
}

// Quoter answers the contract's own cost and credit queries.
type Quoter interface {
	TicketCredits(ctx context.Context, user common.Address, lotteryType uint8) (*big.Int, error)
	EthCost(ctx context.Context, usdAmount *big.Int) (*big.Int, error)
}

type EngineOpts struct {
	Contract common.Address
	Guard    Network
	Signer   lifecycle.Signer
	Receipts lifecycle.ReceiptWaiter
	Reader   query.Reader
	Quoter   Quoter
	Prices   price.Source
	// BufferBps raises spin and ticket quotes. Negative disables the buffer.
	BufferBps           int64
	Mapper              *wheel.Mapper
	History             *history.Book
	Metrics             *metrics.Metrics
	OutcomeTimeout      time.Duration
	AnimationDuration   time.Duration
	ConfirmationTimeout time.Duration
	RoundsInterval      time.Duration
	WinningsInterval    time.Duration
	Logger              *slog.Logger
}

type Engine struct {
	contract   common.Address
	guard      Network
	signer     lifecycle.Signer
	quoter     Quoter
	prices     price.Source
	submitters map[types.OperationKind]*lifecycle.Submitter
	store      *outcome.Store
	correlator *outcome.Correlator
	wheel      *wheel.Wheel
	supervisor *recovery.Supervisor
	rounds     *query.Rounds
	winnings   *query.Winnings
	book       *history.Book
	metrics    *metrics.Metrics
	logger     *slog.Logger
	Opts       *EngineOpts

	// spinMu guards the fields below. Lock order is spinMu, then the
	// supervisor, then the outcome store.
	spinMu      sync.Mutex
	activeSpin  common.Hash
	landed      bool
	lastResult  *outcome.Outcome
	spinErr     error
	finishTimer *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BufferBps == 0 {
		opts.BufferBps = price.DefaultBufferBps
	}
	if opts.BufferBps < 0 {
		opts.BufferBps = 0
	}
	if opts.Prices == nil {
		opts.Prices = price.NewFixed(big.NewRat(price.DefaultFallbackUSD, 1))
	}
	if opts.Mapper == nil {
		opts.Mapper = wheel.NewMapper(wheel.DefaultSegments, 0, nil)
	}
	if opts.History == nil {
		opts.History = history.NewBook(history.BookOpts{Logger: opts.Logger})
	}
	if opts.AnimationDuration <= 0 {
		opts.AnimationDuration = DefaultAnimationDuration
	}
	if opts.ConfirmationTimeout <= 0 {
		opts.ConfirmationTimeout = DefaultConfirmationTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		contract:   opts.Contract,
		guard:      opts.Guard,
		signer:     opts.Signer,
		quoter:     opts.Quoter,
		prices:     opts.Prices,
		submitters: make(map[types.OperationKind]*lifecycle.Submitter, len(types.OperationKinds)),
		store:      outcome.NewStore(outcome.DefaultCapacity),
		wheel:      wheel.New(opts.Mapper),
		supervisor: recovery.NewSupervisor(opts.OutcomeTimeout, opts.Logger.With("component", "recovery")),
		rounds: query.NewRounds(query.RoundsOpts{
			Reader:   opts.Reader,
			Interval: opts.RoundsInterval,
			Logger:   opts.Logger,
		}),
		winnings: query.NewWinnings(query.WinningsOpts{
			Reader:   opts.Reader,
			Account:  opts.Signer.Account(),
			Interval: opts.WinningsInterval,
			Logger:   opts.Logger,
		}),
		book:    opts.History,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		Opts:    &opts,
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, kind := range types.OperationKinds {
		e.submitters[kind] = lifecycle.NewSubmitter(lifecycle.SubmitterOpts{
			Kind:     kind,
			Guard:    opts.Guard,
			Signer:   opts.Signer,
			Receipts: opts.Receipts,
			Logger:   opts.Logger.With("kind", string(kind)),
		})
	}

	e.correlator = outcome.NewCorrelator(opts.Contract, e.store, opts.Logger.With("component", "correlator"))
	e.store.OnInstall(e.outcomeInstalled)

	return e
}

// Run keeps round snapshots and pending winnings fresh until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.rounds.Run(ctx) })
	g.Go(func() error { return e.winnings.Run(ctx) })
	return g.Wait()
}

// Close stops tracking in-flight operations and cancels pending timers.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()

	e.spinMu.Lock()
	defer e.spinMu.Unlock()
	if e.finishTimer != nil {
		e.finishTimer.Stop()
	}
	e.supervisor.Disarm()
}

// EnsureNetwork runs the chain guard on its own.
func (e *Engine) EnsureNetwork(ctx context.Context) error {
	return e.guard.EnsureNetwork(ctx)
}

func (e *Engine) Account() common.Address {
	return e.signer.Account()
}

func (e *Engine) History() *history.Book {
	return e.book
}

func (e *Engine) Round(lt types.LotteryType) (query.Snapshot, bool) {
	return e.rounds.Get(lt)
}

func (e *Engine) Claimable() *big.Int {
	return e.winnings.Get()
}

// Outcome returns the outcome installed for a spin transaction.
func (e *Engine) Outcome(hash common.Hash) (outcome.Outcome, bool) {
	return e.store.Get(hash)
}

type State struct {
	Account      common.Address                          `json:"account"`
	Operations   map[types.OperationKind]lifecycle.State `json:"operations"`
	Wheel        wheel.State                             `json:"wheel"`
	Recovery     string                                  `json:"recovery"`
	ActiveSpin   *common.Hash                            `json:"activeSpin,omitempty"`
	Outcome      *outcome.Outcome                        `json:"outcome,omitempty"`
	LastResult   *outcome.Outcome                        `json:"lastResult,omitempty"`
	SpinError    string                                  `json:"spinError,omitempty"`
	ClaimableWei *big.Int                                `json:"claimableWei"`
	USDPerETH    string                                  `json:"usdPerEth"`
}

func (e *Engine) State() State {
	state := State{
		Account:      e.signer.Account(),
		Operations:   make(map[types.OperationKind]lifecycle.State, len(e.submitters)),
		Wheel:        e.wheel.State(),
		Recovery:     e.supervisor.State().String(),
		ClaimableWei: e.winnings.Get(),
		USDPerETH:    e.prices.USDPerETH().FloatString(2),
	}
	for kind, s := range e.submitters {
		state.Operations[kind] = s.State()
	}

	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if (e.activeSpin != common.Hash{}) {
		hash := e.activeSpin
		state.ActiveSpin = &hash
		if o, ok := e.store.Get(hash); ok {
			state.Outcome = &o
		}
	}
	if e.lastResult != nil {
		o := *e.lastResult
		state.LastResult = &o
	}
	if e.spinErr != nil {
		state.SpinError = e.spinErr.Error()
	}
	return state
}

// track waits for sub in the background and hands the result to done.
func (e *Engine) track(sub lifecycle.Submission, done func(lifecycle.Confirmation, error)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(e.ctx, e.Opts.ConfirmationTimeout)
		defer cancel()

		conf, err := e.submitters[sub.Kind].Track(ctx, sub)
		if err != nil {
			e.metrics.Failed(string(sub.Kind))
			e.logger.Warn("operation failed", "kind", sub.Kind, "txHash", sub.Hash.Hex(), "error", err)
		} else {
			e.metrics.Confirmed(string(sub.Kind))
		}
		done(conf, err)
	}()
}

// submitFailed counts failures that reached the wallet.
func (e *Engine) submitFailed(kind types.OperationKind, err error) {
	if errors.Is(err, guard.ErrWrongNetwork) || errors.Is(err, lifecycle.ErrNoAccount) || errors.Is(err, lifecycle.ErrInFlight) {
		return
	}
	e.metrics.Failed(string(kind))
}
