// Package query keeps read-only contract state fresh: round snapshots and
// the account's pending winnings. Both refresh on an interval and on
// demand after events that change them.
package query

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
)

// Reader performs the contract reads the trackers need.
type Reader interface {
	GetRoundDetails(ctx context.Context, lotteryType uint8) (lottery.RoundDetails, error)
	PendingWinnings(ctx context.Context, user common.Address) (*big.Int, error)
}

// refresher runs refresh on every tick and whenever it is invalidated.
type refresher struct {
	name       string
	interval   time.Duration
	invalidate chan struct{}
	logger     *slog.Logger
}

func newRefresher(name string, interval time.Duration, logger *slog.Logger) refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return refresher{
		name:       name,
		interval:   interval,
		invalidate: make(chan struct{}, 1),
		logger:     logger,
	}
}

// Invalidate schedules a refresh. Pending requests coalesce.
func (r *refresher) Invalidate() {
	select {
	case r.invalidate <- struct{}{}:
	default:
	}
}

func (r *refresher) run(ctx context.Context, refresh func(context.Context) error) error {
	if err := refresh(ctx); err != nil {
		r.logger.Warn("failed to refresh", "tracker", r.name, "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-r.invalidate:
			r.logger.Debug("refresh requested", "tracker", r.name)
		}
		if err := refresh(ctx); err != nil {
			r.logger.Warn("failed to refresh", "tracker", r.name, "error", err)
		}
	}
}
