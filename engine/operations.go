package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
	"github.com/lightlink-network/lotto-client/lifecycle"
	"github.com/lightlink-network/lotto-client/price"
	"github.com/lightlink-network/lotto-client/types"
	"github.com/lightlink-network/lotto-client/wallet"
)

// TicketOrder describes a ticket purchase. A positive EthAmount is sent
// as-is and decides the quantity; otherwise Quantity tickets are quoted.
type TicketOrder struct {
	LotteryType types.LotteryType `json:"lotteryType"`
	Quantity    int64             `json:"quantity"`
	EthAmount   string            `json:"ethAmount,omitempty"`
}

// resolve returns the ticket count and the value to send.
func (e *Engine) resolve(order TicketOrder) (int64, *big.Int, error) {
	if !order.LotteryType.HasRounds() {
		return 0, nil, ErrInvalidLotteryType
	}
	rate := e.prices.USDPerETH()

	if order.EthAmount != "" {
		amount, ok := price.ParseEther(order.EthAmount)
		if !ok {
			return 0, nil, fmt.Errorf("%w: %q", ErrInvalidAmount, order.EthAmount)
		}
		if amount.Sign() > 0 {
			perTicket := price.ToWei(order.LotteryType.TicketPriceUSD(), rate)
			n := price.TicketsForAmount(amount, perTicket)
			if n < MinTickets || n > MaxTickets {
				return 0, nil, fmt.Errorf("%w: %s ETH buys %d tickets", ErrInvalidQuantity, order.EthAmount, n)
			}
			return n, amount, nil
		}
	}

	if order.Quantity < MinTickets || order.Quantity > MaxTickets {
		return 0, nil, ErrInvalidQuantity
	}
	usd := new(big.Rat).Mul(order.LotteryType.TicketPriceUSD(), new(big.Rat).SetInt64(order.Quantity))
	return order.Quantity, price.BufferedWei(usd, rate, e.Opts.BufferBps), nil
}

func (e *Engine) BuyTicket(ctx context.Context, order TicketOrder) (lifecycle.Submission, error) {
	quantity, value, err := e.resolve(order)
	if err != nil {
		return lifecycle.Submission{}, err
	}

	data, err := lottery.PackBuyTicket(uint8(order.LotteryType), big.NewInt(quantity))
	if err != nil {
		return lifecycle.Submission{}, fmt.Errorf("failed to pack buyTicket: %w", err)
	}

	sub, err := e.submitters[types.BuyTicket].Submit(ctx, wallet.TxRequest{To: e.contract, Data: data, Value: value})
	if err != nil {
		e.submitFailed(types.BuyTicket, err)
		return lifecycle.Submission{}, err
	}
	e.metrics.Submitted(string(types.BuyTicket))

	e.logger.Info("tickets ordered", "txHash", sub.Hash.Hex(), "lotteryType", order.LotteryType.String(), "quantity", quantity, "valueWei", value)

	e.track(sub, func(conf lifecycle.Confirmation, err error) {
		if err != nil || !e.submitters[types.BuyTicket].MarkProcessed(conf.Hash) {
			return
		}
		e.rounds.Invalidate()
		e.winnings.Invalidate()
	})
	return sub, nil
}

func (e *Engine) Claim(ctx context.Context) (lifecycle.Submission, error) {
	data, err := lottery.PackClaimPrize()
	if err != nil {
		return lifecycle.Submission{}, fmt.Errorf("failed to pack claimPrize: %w", err)
	}

	sub, err := e.submitters[types.Claim].Submit(ctx, wallet.TxRequest{To: e.contract, Data: data})
	if err != nil {
		e.submitFailed(types.Claim, err)
		return lifecycle.Submission{}, err
	}
	e.metrics.Submitted(string(types.Claim))

	e.track(sub, func(conf lifecycle.Confirmation, err error) {
		if err != nil || !e.submitters[types.Claim].MarkProcessed(conf.Hash) {
			return
		}
		e.winnings.Invalidate()
	})
	return sub, nil
}

// Quote is the cost of an order at the current rate.
type Quote struct {
	LotteryType  types.LotteryType `json:"lotteryType"`
	Quantity     int64             `json:"quantity"`
	USD          string            `json:"usd"`
	USDPerETH    string            `json:"usdPerEth"`
	PerTicketWei *big.Int          `json:"perTicketWei"`
	RawWei       *big.Int          `json:"rawWei"`
	BufferedWei  *big.Int          `json:"bufferedWei"`
	ContractWei  *big.Int          `json:"contractWei,omitempty"`
	Credits      *big.Int          `json:"credits,omitempty"`
}

var usdScale = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Quote prices quantity entries of lt. The contract's own quote and the
// account's ticket credits are included when the contract answers.
func (e *Engine) Quote(ctx context.Context, lt types.LotteryType, quantity int64) (Quote, error) {
	if !lt.Valid() {
		return Quote{}, ErrInvalidLotteryType
	}
	if lt == types.Instant {
		quantity = 1
	}
	if quantity < MinTickets || quantity > MaxTickets {
		return Quote{}, ErrInvalidQuantity
	}

	rate := e.prices.USDPerETH()
	usd := new(big.Rat).Mul(lt.TicketPriceUSD(), new(big.Rat).SetInt64(quantity))

	q := Quote{
		LotteryType:  lt,
		Quantity:     quantity,
		USD:          usd.FloatString(2),
		USDPerETH:    rate.FloatString(2),
		PerTicketWei: price.ToWei(lt.TicketPriceUSD(), rate),
		RawWei:       price.ToWei(usd, rate),
		BufferedWei:  price.BufferedWei(usd, rate, e.Opts.BufferBps),
	}

	if e.quoter == nil {
		return q, nil
	}

	scaled := new(big.Rat).Mul(usd, usdScale)
	if cost, err := e.quoter.EthCost(ctx, new(big.Int).Quo(scaled.Num(), scaled.Denom())); err != nil {
		e.logger.Debug("failed to get contract quote", "error", err)
	} else {
		q.ContractWei = cost
	}
	if lt.HasRounds() {
		if credits, err := e.quoter.TicketCredits(ctx, e.signer.Account(), uint8(lt)); err != nil {
			e.logger.Debug("failed to get ticket credits", "error", err)
		} else {
			q.Credits = credits
		}
	}
	return q, nil
}
