// Package history keeps the bounded, most-recent-first activity and
// winner logs shown to the user.
package history

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/types"
)

const (
	MaxRecords         = 50
	MaxWinners         = 20
	DefaultWinnerLimit = 6
)

const (
	RecordSpin  = "Spin"
	RecordClaim = "Claim"
)

type Record struct {
	Type      string      `json:"type"`
	AmountWei *big.Int    `json:"amountWei"`
	Date      time.Time   `json:"date"`
	TxHash    common.Hash `json:"txHash"`
}

type Winner struct {
	Address     common.Address    `json:"address"`
	PrizeWei    *big.Int          `json:"prizeWei"`
	LotteryType types.LotteryType `json:"lotteryType"`
	RoundID     *big.Int          `json:"roundId"`
	Date        time.Time         `json:"date"`
	TxHash      common.Hash       `json:"txHash"`
}

// Sink persists appended entries. Failures are logged and never roll back
// the in-memory log.
type Sink interface {
	SaveRecord(ctx context.Context, r Record) error
	SaveWinners(ctx context.Context, w []Winner) error
}

type BookOpts struct {
	Sink   Sink
	Logger *slog.Logger
}

type Book struct {
	sink   Sink
	logger *slog.Logger

	mu      sync.RWMutex
	records []Record
	winners []Winner
}

func NewBook(opts BookOpts) *Book {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Book{sink: opts.Sink, logger: opts.Logger}
}

// Restore replaces the logs with previously persisted entries, which are
// expected most recent first.
func (b *Book) Restore(records []Record, winners []Winner) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = capped(append([]Record(nil), records...), MaxRecords)
	b.winners = capped(append([]Winner(nil), winners...), MaxWinners)
}

func (b *Book) AppendRecord(ctx context.Context, r Record) {
	if r.Date.IsZero() {
		r.Date = time.Now()
	}

	b.mu.Lock()
	b.records = capped(append([]Record{r}, b.records...), MaxRecords)
	b.mu.Unlock()

	b.logger.Info("history record appended", "type", r.Type, "txHash", r.TxHash.Hex(), "amountWei", r.AmountWei)

	if b.sink != nil {
		if err := b.sink.SaveRecord(ctx, r); err != nil {
			b.logger.Error("failed to persist history record", "txHash", r.TxHash.Hex(), "error", err)
		}
	}
}

// AppendWinners adds winners in the order given, so the first winner of
// the draw ends up first.
func (b *Book) AppendWinners(ctx context.Context, winners []Winner) {
	if len(winners) == 0 {
		return
	}
	now := time.Now()
	entries := make([]Winner, len(winners))
	for i, w := range winners {
		if w.Date.IsZero() {
			w.Date = now
		}
		entries[i] = w
	}

	b.mu.Lock()
	b.winners = capped(append(entries, b.winners...), MaxWinners)
	b.mu.Unlock()

	b.logger.Info("winners appended", "count", len(entries), "lotteryType", entries[0].LotteryType.String())

	if b.sink != nil {
		if err := b.sink.SaveWinners(ctx, entries); err != nil {
			b.logger.Error("failed to persist winners", "error", err)
		}
	}
}

func (b *Book) Records() []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Record(nil), b.records...)
}

func (b *Book) Winners() []Winner {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Winner(nil), b.winners...)
}

// WinnersFor returns up to limit winners of lt. A non-positive limit uses
// DefaultWinnerLimit.
func (b *Book) WinnersFor(lt types.LotteryType, limit int) []Winner {
	if limit <= 0 {
		limit = DefaultWinnerLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := []Winner{}
	for _, w := range b.winners {
		if w.LotteryType != lt {
			continue
		}
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
