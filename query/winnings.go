package query

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const DefaultWinningsInterval = 5 * time.Second

type WinningsOpts struct {
	Reader   Reader
	Account  common.Address
	Interval time.Duration
	Logger   *slog.Logger
}

// Winnings tracks the claimable balance of one account.
type Winnings struct {
	refresher
	reader  Reader
	account common.Address

	mu     sync.RWMutex
	amount *big.Int
}

func NewWinnings(opts WinningsOpts) *Winnings {
	if opts.Interval <= 0 {
		opts.Interval = DefaultWinningsInterval
	}
	return &Winnings{
		refresher: newRefresher("winnings", opts.Interval, opts.Logger),
		reader:    opts.Reader,
		account:   opts.Account,
		amount:    new(big.Int),
	}
}

func (w *Winnings) Run(ctx context.Context) error {
	return w.run(ctx, w.Refresh)
}

func (w *Winnings) Refresh(ctx context.Context) error {
	amount, err := w.reader.PendingWinnings(ctx, w.account)
	if err != nil {
		return fmt.Errorf("failed to get pending winnings: %w", err)
	}

	w.mu.Lock()
	w.amount = new(big.Int).Set(amount)
	w.mu.Unlock()
	return nil
}

// Get returns the last fetched claimable balance in wei.
func (w *Winnings) Get() *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return new(big.Int).Set(w.amount)
}
