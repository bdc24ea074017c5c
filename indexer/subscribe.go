package indexer

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// subscribe holds one log subscription for an event type, resubscribing
// after ResubscribeDelay whenever it drops.
func (i *Indexer) subscribe(ctx context.Context, name string, q ethereum.FilterQuery) error {
	for {
		logs := make(chan types.Log, 64)
		sub, err := i.source.SubscribeFilterLogs(ctx, q, logs)
		if err != nil {
			i.logger.Error("failed to subscribe", "event", name, "error", err)
			if !sleep(ctx, i.Opts.ResubscribeDelay) {
				return nil
			}
			continue
		}

		i.logger.Info("subscribed to event", "event", name)

		if done := i.consume(ctx, name, sub, logs); done {
			return nil
		}
		if !sleep(ctx, i.Opts.ResubscribeDelay) {
			return nil
		}
	}
}

// consume reports true when ctx ended and false when the subscription failed.
func (i *Indexer) consume(ctx context.Context, name string, sub ethereum.Subscription, logs <-chan types.Log) bool {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("shutting down subscription", "event", name)
			return true
		case err := <-sub.Err():
			i.logger.Warn("subscription dropped", "event", name, "error", err)
			return false
		case log := <-logs:
			i.dispatch(ctx, log)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
