package engine

import (
	"context"
	"time"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/outcome"
	"github.com/lightlink-network/lotto-client/types"
)

// HandleSpinResult installs the event's outcome unless the receipt got
// there first.
func (e *Engine) HandleSpinResult(_ context.Context, event *lottery.SpinResult) {
	installed := e.store.Install(outcome.Outcome{
		SourceHash:     event.Raw.TxHash,
		Player:         event.Player,
		IsWin:          event.IsWin,
		PrizeType:      event.PrizeType,
		PrizeAmountWei: event.PrizeAmount,
		Source:         outcome.SourceEvent,
	})
	if !installed {
		e.metrics.OutcomeDuplicate(string(outcome.SourceEvent))
		e.logger.Debug("spin outcome already installed", "txHash", event.Raw.TxHash.Hex())
	}
	e.winnings.Invalidate()
}

func (e *Engine) HandleTicketPurchased(ctx context.Context, event *lottery.TicketPurchased) {
	e.book.AppendRecord(ctx, history.Record{
		Type:      types.LotteryType(event.LotteryType).String(),
		AmountWei: event.CostETH,
		Date:      eventTime(event.Timestamp.Int64()),
		TxHash:    event.Raw.TxHash,
	})
	e.rounds.Invalidate()
	e.winnings.Invalidate()
}

// HandleLotteryDrawn records the winners of every draw, not only the
// account's.
func (e *Engine) HandleLotteryDrawn(ctx context.Context, event *lottery.LotteryDrawn) {
	if len(event.Winners) > 0 {
		winners := make([]history.Winner, len(event.Winners))
		for i, addr := range event.Winners {
			winners[i] = history.Winner{
				Address:     addr,
				PrizeWei:    event.PrizePerWinner,
				LotteryType: types.LotteryType(event.LotteryType),
				RoundID:     event.RoundId,
				TxHash:      event.Raw.TxHash,
			}
		}
		e.book.AppendWinners(ctx, winners)
	}
	e.rounds.Invalidate()
	e.winnings.Invalidate()
}

func (e *Engine) HandleWinningsClaimed(ctx context.Context, event *lottery.WinningsClaimed) {
	e.book.AppendRecord(ctx, history.Record{
		Type:      history.RecordClaim,
		AmountWei: event.Amount,
		TxHash:    event.Raw.TxHash,
	})
	e.winnings.Invalidate()
}

func eventTime(unix int64) time.Time {
	if unix <= 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
