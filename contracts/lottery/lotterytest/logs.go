// Package lotterytest builds lottery contract logs for tests.
package lotterytest

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
)

func pack(event string, args ...interface{}) []byte {
	data, err := lottery.ABI().Events[event].Inputs.NonIndexed().Pack(args...)
	if err != nil {
		panic(err)
	}
	return data
}

func SpinResultLog(contract, player common.Address, txHash common.Hash, isWin bool, amount *big.Int, prizeType string) types.Log {
	return types.Log{
		Address: contract,
		Topics:  []common.Hash{lottery.SpinResultEventABIHash, common.BytesToHash(player.Bytes())},
		Data:    pack(lottery.EventSpinResult, isWin, amount, prizeType),
		TxHash:  txHash,
	}
}

func TicketPurchasedLog(contract, buyer common.Address, txHash common.Hash, lotteryType uint8, quantity, cost, timestamp *big.Int) types.Log {
	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			lottery.TicketPurchasedEventABIHash,
			common.BytesToHash(buyer.Bytes()),
			common.BigToHash(big.NewInt(int64(lotteryType))),
		},
		Data:   pack(lottery.EventTicketPurchased, quantity, cost, timestamp),
		TxHash: txHash,
	}
}

func LotteryDrawnLog(contract common.Address, txHash common.Hash, lotteryType uint8, roundID *big.Int, winners []common.Address, prize *big.Int) types.Log {
	return types.Log{
		Address: contract,
		Topics:  []common.Hash{lottery.LotteryDrawnEventABIHash, common.BigToHash(big.NewInt(int64(lotteryType)))},
		Data:    pack(lottery.EventLotteryDrawn, roundID, winners, prize),
		TxHash:  txHash,
	}
}

func WinningsClaimedLog(contract, user common.Address, txHash common.Hash, amount *big.Int) types.Log {
	return types.Log{
		Address: contract,
		Topics:  []common.Hash{lottery.WinningsClaimedEventABIHash, common.BytesToHash(user.Bytes())},
		Data:    pack(lottery.EventWinningsClaimed, amount),
		TxHash:  txHash,
	}
}
