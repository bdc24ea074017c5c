package types

import (
	"fmt"
	"math/big"
)

// OperationKind is a category of state-changing request to the lottery contract
type OperationKind string

const (
	Spin      OperationKind = "spin"
	BuyTicket OperationKind = "buy_ticket"
	Claim     OperationKind = "claim"
)

// OperationKinds lists every kind in a stable order.
var OperationKinds = []OperationKind{Spin, BuyTicket, Claim}

// Status represents the different states a submitted operation can be in
type Status string

const (
	// Idle - No operation of this kind is live
	Idle Status = "IDLE"

	// AwaitingSignature - The request was handed to the wallet and waits for the user to sign
	AwaitingSignature Status = "AWAITING_SIGNATURE"

	// Submitted - The wallet returned a transaction hash
	Submitted Status = "SUBMITTED"

	// Confirming - The transaction is waiting for inclusion
	Confirming Status = "CONFIRMING"

	// Confirmed - A successful receipt was observed
	Confirmed Status = "CONFIRMED"

	// Failed - Submission or inclusion failed, or the transaction reverted
	Failed Status = "FAILED"
)

// InFlight reports whether a status blocks a new operation of the same kind.
func (s Status) InFlight() bool {
	return s == AwaitingSignature || s == Submitted || s == Confirming
}

// LotteryType is the on-chain uint8 identifying a lottery category
type LotteryType uint8

const (
	Instant  LotteryType = 0
	Weekly   LotteryType = 1
	Biweekly LotteryType = 2
	Monthly  LotteryType = 3
)

// RoundLotteries are the categories that run time-boxed rounds.
var RoundLotteries = []LotteryType{Weekly, Biweekly, Monthly}

// NoWinPrize is the prize type tag the contract emits for a losing spin.
const NoWinPrize = "LOSE"

func (t LotteryType) String() string {
	switch t {
	case Instant:
		return "Instant"
	case Weekly:
		return "Weekly"
	case Biweekly:
		return "Biweekly"
	case Monthly:
		return "Monthly"
	}
	return "Unknown"
}

// Valid reports whether t is a known lottery type.
func (t LotteryType) Valid() bool {
	return t <= Monthly
}

// HasRounds reports whether tickets can be bought for t.
func (t LotteryType) HasRounds() bool {
	return t >= Weekly && t <= Monthly
}

// WinnerCount is the number of winners drawn per round.
func (t LotteryType) WinnerCount() int64 {
	switch t {
	case Weekly:
		return 6
	case Biweekly:
		return 3
	}
	return 1
}

// TicketPriceUSD returns the entry price in USD.
func (t LotteryType) TicketPriceUSD() *big.Rat {
	switch t {
	case Instant:
		return big.NewRat(1, 2)
	case Weekly:
		return big.NewRat(1, 1)
	case Biweekly:
		return big.NewRat(5, 1)
	case Monthly:
		return big.NewRat(20, 1)
	}
	return new(big.Rat)
}

// ParseLotteryType parses a numeric id or a case-insensitive name.
func ParseLotteryType(s string) (LotteryType, error) {
	switch s {
	case "0", "instant", "Instant":
		return Instant, nil
	case "1", "weekly", "Weekly":
		return Weekly, nil
	case "2", "biweekly", "Biweekly":
		return Biweekly, nil
	case "3", "monthly", "Monthly":
		return Monthly, nil
	}
	return 0, fmt.Errorf("unknown lottery type %q", s)
}
