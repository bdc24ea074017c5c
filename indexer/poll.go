package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
)

func (i *Indexer) checkpointKey() string {
	return "lottery:" + i.contract.Hex()
}

func (i *Indexer) startBlock(ctx context.Context) (uint64, error) {
	if i.checkpoints != nil {
		last, err := i.checkpoints.GetLastIndexedBlock(ctx, i.checkpointKey())
		if err != nil {
			i.logger.Warn("failed to get last indexed block", "error", err)
		} else if last > 0 {
			return last + 1, nil
		}
	}
	if i.Opts.StartBlock > 0 {
		return i.Opts.StartBlock, nil
	}

	head, err := i.source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain head: %w", err)
	}
	return head, nil
}

// poll walks the chain in batches of at most BatchSize blocks, fetching
// every event type per batch and dispatching in chain order.
func (i *Indexer) poll(ctx context.Context) error {
	var start uint64
	for {
		var err error
		if start, err = i.startBlock(ctx); err == nil {
			break
		}
		i.logger.Error("failed to resolve start block", "error", err)
		if !sleep(ctx, i.Opts.PollInterval) {
			return nil
		}
	}

	i.logger.Info("starting log polling", "startBlock", start, "batchSize", i.Opts.BatchSize)

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("shutting down log polling")
			return nil
		default:
		}

		head, err := i.source.BlockNumber(ctx)
		if err != nil {
			i.logger.Error("failed to get chain head", "error", err)
			if !sleep(ctx, i.Opts.PollInterval) {
				return nil
			}
			continue
		}

		if head < start {
			if !sleep(ctx, i.Opts.PollInterval) {
				return nil
			}
			continue
		}

		end := start + i.Opts.BatchSize - 1
		if end > head {
			end = head
		}

		if err := i.indexRange(ctx, start, end); err != nil {
			i.logger.Error("failed to index blocks", "startBlock", start, "endBlock", end, "error", err)
			if !sleep(ctx, i.Opts.PollInterval) {
				return nil
			}
			continue
		}

		if i.checkpoints != nil {
			if err := i.checkpoints.UpdateLastIndexedBlock(ctx, i.checkpointKey(), end); err != nil {
				i.logger.Warn("failed to update last indexed block", "block", end, "error", err)
			}
		}

		start = end + 1
	}
}

func (i *Indexer) indexRange(ctx context.Context, start, end uint64) error {
	var all []types.Log
	for _, name := range lottery.EventNames {
		q := i.query(name)
		q.FromBlock = new(big.Int).SetUint64(start)
		q.ToBlock = new(big.Int).SetUint64(end)

		logs, err := i.source.FilterLogs(ctx, q)
		if err != nil {
			return fmt.Errorf("failed to filter %s logs: %w", name, err)
		}
		all = append(all, logs...)
	}

	sort.SliceStable(all, func(a, b int) bool {
		if all[a].BlockNumber != all[b].BlockNumber {
			return all[a].BlockNumber < all[b].BlockNumber
		}
		return all[a].Index < all[b].Index
	})

	if len(all) > 0 {
		i.logger.Debug("processing logs", "startBlock", start, "endBlock", end, "count", len(all))
	}
	for _, log := range all {
		i.dispatch(ctx, log)
	}
	return nil
}
