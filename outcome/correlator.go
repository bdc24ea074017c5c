package outcome

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
)

// Correlator extracts spin outcomes from transaction receipts.
type Correlator struct {
	contract common.Address
	store    *Store
	logger   *slog.Logger
}

func NewCorrelator(contract common.Address, store *Store, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{contract: contract, store: store, logger: logger}
}

// Correlate looks for a SpinResult log for player in receipt and installs it
// unless an outcome for the transaction is already known. It reports
// whether this call installed the outcome.
func (c *Correlator) Correlate(receipt *types.Receipt, player common.Address) bool {
	if receipt == nil {
		return false
	}
	if c.store.Has(receipt.TxHash) {
		c.logger.Debug("outcome already known, skipping receipt decode", "txHash", receipt.TxHash.Hex())
		return false
	}

	for _, log := range receipt.Logs {
		if log == nil || log.Address != c.contract {
			continue
		}
		if len(log.Topics) < 2 || log.Topics[0] != lottery.SpinResultEventABIHash {
			continue
		}
		if common.BytesToAddress(log.Topics[1].Bytes()) != player {
			continue
		}

		event, err := lottery.ParseSpinResult(*log)
		if err != nil {
			c.logger.Warn("failed to decode SpinResult from receipt", "txHash", receipt.TxHash.Hex(), "error", err)
			continue
		}

		installed := c.store.Install(Outcome{
			SourceHash:     receipt.TxHash,
			Player:         event.Player,
			IsWin:          event.IsWin,
			PrizeType:      event.PrizeType,
			PrizeAmountWei: event.PrizeAmount,
			Source:         SourceReceipt,
		})
		if installed {
			c.logger.Info("outcome correlated from receipt", "txHash", receipt.TxHash.Hex(), "prizeType", event.PrizeType)
		}
		return installed
	}

	c.logger.Debug("no SpinResult log in receipt", "txHash", receipt.TxHash.Hex())
	return false
}
