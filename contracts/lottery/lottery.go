package lottery

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	SpinResultEventABI     = "SpinResult(address,bool,uint256,string)"
	SpinResultEventABIHash = crypto.Keccak256Hash([]byte(SpinResultEventABI))

	TicketPurchasedEventABI     = "TicketPurchased(address,uint8,uint256,uint256,uint256)"
	TicketPurchasedEventABIHash = crypto.Keccak256Hash([]byte(TicketPurchasedEventABI))

	LotteryDrawnEventABI     = "LotteryDrawn(uint8,uint256,address[],uint256)"
	LotteryDrawnEventABIHash = crypto.Keccak256Hash([]byte(LotteryDrawnEventABI))

	WinningsClaimedEventABI     = "WinningsClaimed(address,uint256)"
	WinningsClaimedEventABIHash = crypto.Keccak256Hash([]byte(WinningsClaimedEventABI))
)

// Event names as they appear in the ABI.
const (
	EventSpinResult      = "SpinResult"
	EventTicketPurchased = "TicketPurchased"
	EventLotteryDrawn    = "LotteryDrawn"
	EventWinningsClaimed = "WinningsClaimed"
)

// EventNames lists the subscribed events in a stable order.
var EventNames = []string{EventSpinResult, EventTicketPurchased, EventLotteryDrawn, EventWinningsClaimed}

var ErrUnexpectedEvent = errors.New("log does not carry the expected event")

var parsed = mustParse()

func mustParse() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(LotteryABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse lottery abi: %v", err))
	}
	return parsed
}

// ABI returns the parsed lottery ABI.
func ABI() abi.ABI {
	return parsed
}

// EventID returns the topic hash of a named event.
func EventID(name string) common.Hash {
	switch name {
	case EventSpinResult:
		return SpinResultEventABIHash
	case EventTicketPurchased:
		return TicketPurchasedEventABIHash
	case EventLotteryDrawn:
		return LotteryDrawnEventABIHash
	case EventWinningsClaimed:
		return WinningsClaimedEventABIHash
	}
	return common.Hash{}
}

// SpinResult represents a SpinResult event raised by the lottery contract.
type SpinResult struct {
	Player      common.Address
	IsWin       bool
	PrizeAmount *big.Int
	PrizeType   string
	Raw         types.Log
}

// TicketPurchased represents a TicketPurchased event raised by the lottery contract.
type TicketPurchased struct {
	Buyer       common.Address
	LotteryType uint8
	Quantity    *big.Int
	CostETH     *big.Int
	Timestamp   *big.Int
	Raw         types.Log
}

// LotteryDrawn represents a LotteryDrawn event raised by the lottery contract.
type LotteryDrawn struct {
	LotteryType    uint8
	RoundId        *big.Int
	Winners        []common.Address
	PrizePerWinner *big.Int
	Raw            types.Log
}

// WinningsClaimed represents a WinningsClaimed event raised by the lottery contract.
type WinningsClaimed struct {
	User   common.Address
	Amount *big.Int
	Raw    types.Log
}

func checkTopics(log types.Log, id common.Hash, indexed int) error {
	if len(log.Topics) == 0 || log.Topics[0] != id {
		return ErrUnexpectedEvent
	}
	if len(log.Topics) < indexed+1 {
		return fmt.Errorf("expected %d topics, got %d", indexed+1, len(log.Topics))
	}
	return nil
}

func topicUint8(topic common.Hash) uint8 {
	return uint8(new(big.Int).SetBytes(topic.Bytes()).Uint64())
}

// ParseSpinResult decodes a SpinResult log.
func ParseSpinResult(log types.Log) (*SpinResult, error) {
	if err := checkTopics(log, SpinResultEventABIHash, 1); err != nil {
		return nil, err
	}

	event := SpinResult{Player: common.BytesToAddress(log.Topics[1].Bytes()), Raw: log}
	if err := parsed.UnpackIntoInterface(&event, EventSpinResult, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack SpinResult: %w", err)
	}
	return &event, nil
}

// ParseTicketPurchased decodes a TicketPurchased log.
func ParseTicketPurchased(log types.Log) (*TicketPurchased, error) {
	if err := checkTopics(log, TicketPurchasedEventABIHash, 2); err != nil {
		return nil, err
	}

	event := TicketPurchased{
		Buyer:       common.BytesToAddress(log.Topics[1].Bytes()),
		LotteryType: topicUint8(log.Topics[2]),
		Raw:         log,
	}
	if err := parsed.UnpackIntoInterface(&event, EventTicketPurchased, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack TicketPurchased: %w", err)
	}
	return &event, nil
}

// ParseLotteryDrawn decodes a LotteryDrawn log.
func ParseLotteryDrawn(log types.Log) (*LotteryDrawn, error) {
	if err := checkTopics(log, LotteryDrawnEventABIHash, 1); err != nil {
		return nil, err
	}

	event := LotteryDrawn{LotteryType: topicUint8(log.Topics[1]), Raw: log}
	if err := parsed.UnpackIntoInterface(&event, EventLotteryDrawn, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack LotteryDrawn: %w", err)
	}
	return &event, nil
}

// ParseWinningsClaimed decodes a WinningsClaimed log.
func ParseWinningsClaimed(log types.Log) (*WinningsClaimed, error) {
	if err := checkTopics(log, WinningsClaimedEventABIHash, 1); err != nil {
		return nil, err
	}

	event := WinningsClaimed{User: common.BytesToAddress(log.Topics[1].Bytes()), Raw: log}
	if err := parsed.UnpackIntoInterface(&event, EventWinningsClaimed, log.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack WinningsClaimed: %w", err)
	}
	return &event, nil
}

// PackSpinWheel returns the call data for spinWheel().
func PackSpinWheel() ([]byte, error) {
	return parsed.Pack("spinWheel")
}

// PackBuyTicket returns the call data for buyTicket(uint8,uint256).
func PackBuyTicket(lotteryType uint8, quantity *big.Int) ([]byte, error) {
	return parsed.Pack("buyTicket", lotteryType, quantity)
}

// PackClaimPrize returns the call data for claimPrize().
func PackClaimPrize() ([]byte, error) {
	return parsed.Pack("claimPrize")
}

// RoundDetails is the result of getRoundDetails(uint8).
type RoundDetails struct {
	EndTime           *big.Int
	Pool              *big.Int
	ParticipantsCount *big.Int
	TicketPriceWei    *big.Int
}

// Caller is a read-only binding to the lottery contract.
type Caller struct {
	contract *bind.BoundContract
}

// NewCaller creates a read-only binding to a deployed lottery contract.
func NewCaller(address common.Address, caller bind.ContractCaller) *Caller {
	return &Caller{contract: bind.NewBoundContract(address, parsed, caller, nil, nil)}
}

func (c *Caller) GetRoundDetails(opts *bind.CallOpts, lotteryType uint8) (RoundDetails, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, "getRoundDetails", lotteryType); err != nil {
		return RoundDetails{}, err
	}
	if len(out) != 4 {
		return RoundDetails{}, fmt.Errorf("getRoundDetails returned %d values", len(out))
	}

	return RoundDetails{
		EndTime:           *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Pool:              *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		ParticipantsCount: *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		TicketPriceWei:    *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
	}, nil
}

func (c *Caller) PendingWinnings(opts *bind.CallOpts, user common.Address) (*big.Int, error) {
	return c.callUint256(opts, "pendingWinnings", user)
}

func (c *Caller) TicketCredits(opts *bind.CallOpts, user common.Address, lotteryType uint8) (*big.Int, error) {
	return c.callUint256(opts, "ticketCredits", user, lotteryType)
}

func (c *Caller) GetEthCost(opts *bind.CallOpts, usdAmount *big.Int) (*big.Int, error) {
	return c.callUint256(opts, "getEthCost", usdAmount)
}

func (c *Caller) callUint256(opts *bind.CallOpts, method string, params ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(opts, &out, method, params...); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
