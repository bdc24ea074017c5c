package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/outcome"
	"github.com/lightlink-network/lotto-client/price"
	"github.com/lightlink-network/lotto-client/recovery"
	"github.com/lightlink-network/lotto-client/types"
	"github.com/lightlink-network/lotto-client/wallet"
)

// Spin pays for an instant spin and starts the wheel. The outcome arrives
// asynchronously; State reports the landing, the result or a timeout.
func (e *Engine) Spin(ctx context.Context) (lifecycle.Submission, error) {
	if e.wheel.State().IsAnimating {
		return lifecycle.Submission{}, ErrSpinning
	}

	data, err := lottery.PackSpinWheel()
	if err != nil {
		return lifecycle.Submission{}, fmt.Errorf("failed to pack spinWheel: %w", err)
	}
	value := price.BufferedWei(types.Instant.TicketPriceUSD(), e.prices.USDPerETH(), e.Opts.BufferBps)

	sub, err := e.submitters[types.Spin].Submit(ctx, wallet.TxRequest{To: e.contract, Data: data, Value: value})
	if err != nil {
		e.submitFailed(types.Spin, err)
		return lifecycle.Submission{}, err
	}
	e.metrics.Submitted(string(types.Spin))

	e.spinMu.Lock()
	e.activeSpin = sub.Hash
	e.landed = false
	e.lastResult = nil
	e.spinErr = nil
	e.supervisor.Disarm()
	start := e.wheel.Start()
	e.logger.Info("wheel spinning", "txHash", sub.Hash.Hex(), "startRotation", start.StartRotation, "valueWei", value)
	// the event may have been delivered before activeSpin was set
	if o, ok := e.store.Get(sub.Hash); ok {
		e.landLocked(o)
	}
	e.spinMu.Unlock()

	e.track(sub, func(conf lifecycle.Confirmation, err error) {
		if err != nil {
			e.spinFailed(sub.Hash, err)
			return
		}
		e.spinConfirmed(conf)
	})

	return sub, nil
}

func (e *Engine) spinConfirmed(conf lifecycle.Confirmation) {
	hash := conf.Hash

	if e.submitters[types.Spin].MarkProcessed(hash) {
		e.book.AppendRecord(e.ctx, history.Record{
			Type:      history.RecordSpin,
			AmountWei: conf.Value,
			TxHash:    hash,
		})
		e.winnings.Invalidate()
	}

	if !e.correlator.Correlate(conf.Receipt, conf.Account) && e.store.Has(hash) {
		e.metrics.OutcomeDuplicate(string(outcome.SourceReceipt))
	}

	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if hash != e.activeSpin || e.landed {
		return
	}
	if o, ok := e.store.Get(hash); ok {
		e.landLocked(o)
		return
	}

	e.logger.Info("spin confirmed without outcome, waiting", "txHash", hash.Hex())
	e.supervisor.Arm(
		func() bool { return e.store.Has(hash) },
		func() { e.outcomeTimedOut(hash) },
	)
}

// outcomeInstalled runs for every first install in the outcome store.
func (e *Engine) outcomeInstalled(o outcome.Outcome) {
	e.metrics.OutcomeInstalled(string(o.Source))

	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if o.SourceHash != e.activeSpin {
		return
	}
	e.landLocked(o)
}

func (e *Engine) landLocked(o outcome.Outcome) {
	if e.landed {
		return
	}
	if prev := e.supervisor.Resolve(); prev == recovery.TimedOut {
		e.logger.Warn("outcome arrived after timeout", "txHash", o.SourceHash.Hex(), "prizeType", o.PrizeType)
		return
	}

	target, err := e.wheel.Land(o.PrizeType)
	if err != nil {
		e.logger.Warn("failed to land wheel", "txHash", o.SourceHash.Hex(), "error", err)
		return
	}
	e.landed = true

	e.logger.Info("wheel landing", "txHash", o.SourceHash.Hex(), "prizeType", o.PrizeType, "source", o.Source, "targetRotation", target)

	hash := o.SourceHash
	e.finishTimer = time.AfterFunc(e.Opts.AnimationDuration, func() { e.finishSpin(hash) })
}

func (e *Engine) finishSpin(hash common.Hash) {
	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if hash != e.activeSpin {
		return
	}
	o, ok := e.store.Get(hash)
	if !ok {
		return
	}

	e.wheel.Stop()
	e.lastResult = &o
	e.finishTimer = nil
	e.winnings.Invalidate()

	e.logger.Info("spin finished", "txHash", hash.Hex(), "prizeType", o.PrizeType, "won", o.Won())
}

func (e *Engine) outcomeTimedOut(hash common.Hash) {
	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if hash != e.activeSpin || e.landed {
		return
	}

	state := e.wheel.Rollback()
	e.spinErr = ErrOutcomeTimeout
	e.metrics.OutcomeTimeout()

	e.logger.Warn("spin outcome timed out, wheel rolled back", "txHash", hash.Hex(), "rotation", state.CurrentRotation)
}

func (e *Engine) spinFailed(hash common.Hash, err error) {
	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	if hash != e.activeSpin || e.landed {
		return
	}

	e.supervisor.Disarm()
	e.wheel.Rollback()
	e.spinErr = err
}
