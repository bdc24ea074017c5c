package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/lightlink-network/lotto-client/types"
)

const DefaultRoundsInterval = 10 * time.Second

// Snapshot is the last fetched state of one lottery round.
type Snapshot struct {
	LotteryType      types.LotteryType `json:"lotteryType"`
	EndTimeUnix      int64             `json:"endTimeUnix"`
	PoolWei          *big.Int          `json:"poolWei"`
	ParticipantCount int64             `json:"participantCount"`
	TicketPriceWei   *big.Int          `json:"ticketPriceWei"`
	FetchedAt        time.Time         `json:"fetchedAt"`
}

type Countdown struct {
	Days  int64 `json:"days"`
	Hours int64 `json:"hours"`
	Mins  int64 `json:"mins"`
	Secs  int64 `json:"secs"`
}

// Countdown returns the time left until the round ends, zero once it has.
func (s Snapshot) Countdown(now time.Time) Countdown {
	left := s.EndTimeUnix - now.Unix()
	if left <= 0 {
		return Countdown{}
	}
	return Countdown{
		Days:  left / 86400,
		Hours: left % 86400 / 3600,
		Mins:  left % 3600 / 60,
		Secs:  left % 60,
	}
}

// PrizePerWinner splits the pool evenly across the round's winners.
func (s Snapshot) PrizePerWinner() *big.Int {
	if s.PoolWei == nil {
		return new(big.Int)
	}
	return new(big.Int).Quo(s.PoolWei, big.NewInt(s.LotteryType.WinnerCount()))
}

type RoundsOpts struct {
	Reader   Reader
	Interval time.Duration
	Logger   *slog.Logger
}

type Rounds struct {
	refresher
	reader Reader

	mu    sync.RWMutex
	snaps map[types.LotteryType]Snapshot
}

func NewRounds(opts RoundsOpts) *Rounds {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRoundsInterval
	}
	return &Rounds{
		refresher: newRefresher("rounds", opts.Interval, opts.Logger),
		reader:    opts.Reader,
		snaps:     make(map[types.LotteryType]Snapshot),
	}
}

func (r *Rounds) Run(ctx context.Context) error {
	return r.run(ctx, r.Refresh)
}

// Refresh fetches every round. A failed fetch keeps the previous snapshot.
func (r *Rounds) Refresh(ctx context.Context) error {
	var errs []error
	for _, lt := range types.RoundLotteries {
		details, err := r.reader.GetRoundDetails(ctx, uint8(lt))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to get %s round details: %w", lt, err))
			continue
		}

		snap := Snapshot{
			LotteryType:    lt,
			PoolWei:        details.Pool,
			TicketPriceWei: details.TicketPriceWei,
			FetchedAt:      time.Now(),
		}
		if details.EndTime != nil {
			snap.EndTimeUnix = details.EndTime.Int64()
		}
		if details.ParticipantsCount != nil {
			snap.ParticipantCount = details.ParticipantsCount.Int64()
		}

		r.mu.Lock()
		r.snaps[lt] = snap
		r.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (r *Rounds) Get(lt types.LotteryType) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snaps[lt]
	return snap, ok
}
