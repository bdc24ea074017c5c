package database

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lightlink-network/lotto-client/database/models"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/types"
)

// HistoryStore persists the history of one account. Winners are global.
type HistoryStore struct {
	db      *Database
	account common.Address
}

func (db *Database) History(account common.Address) *HistoryStore {
	return &HistoryStore{db: db, account: account}
}

func (s *HistoryStore) SaveRecord(ctx context.Context, r history.Record) error {
	_, err := s.db.collection(historyCollection).InsertOne(ctx, recordModel(s.account, r))
	if err != nil {
		if onlyDuplicates(err) {
			return nil
		}
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

func (s *HistoryStore) SaveWinners(ctx context.Context, winners []history.Winner) error {
	if len(winners) == 0 {
		return nil
	}

	documents := make([]interface{}, len(winners))
	for i, w := range winners {
		documents[i] = winnerModel(i, w)
	}

	_, err := s.db.collection(winnersCollection).InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if err != nil {
		if onlyDuplicates(err) {
			s.db.logger.Debug("winners already stored", "txHash", winners[0].TxHash.Hex())
			return nil
		}
		return fmt.Errorf("failed to insert winners: %w", err)
	}
	return nil
}

// RecentRecords returns up to limit records of the account, newest first.
func (s *HistoryStore) RecentRecords(ctx context.Context, limit int64) ([]history.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.db.collection(historyCollection).Find(ctx, bson.D{{Key: "account", Value: s.account.Hex()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find history records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Record
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history records: %w", err)
	}

	records := make([]history.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromModel(doc))
	}
	return records, nil
}

// RecentWinners returns up to limit winners of every lottery, newest draw
// first and in draw order within a draw.
func (s *HistoryStore) RecentWinners(ctx context.Context, limit int64) ([]history.Winner, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "tx_hash", Value: 1}, {Key: "position", Value: 1}}).
		SetLimit(limit)

	cursor, err := s.db.collection(winnersCollection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find winners: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Winner
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode winners: %w", err)
	}

	winners := make([]history.Winner, 0, len(docs))
	for _, doc := range docs {
		winners = append(winners, winnerFromModel(doc))
	}
	return winners, nil
}

func recordModel(account common.Address, r history.Record) models.Record {
	return models.Record{
		Account:   account.Hex(),
		Type:      r.Type,
		AmountWei: bigString(r.AmountWei),
		Date:      r.Date.UnixMilli(),
		TxHash:    r.TxHash.Hex(),
	}
}

func recordFromModel(m models.Record) history.Record {
	return history.Record{
		Type:      m.Type,
		AmountWei: parseBig(m.AmountWei),
		Date:      time.UnixMilli(m.Date),
		TxHash:    common.HexToHash(m.TxHash),
	}
}

func winnerModel(position int, w history.Winner) models.Winner {
	return models.Winner{
		Address:     w.Address.Hex(),
		PrizeWei:    bigString(w.PrizeWei),
		LotteryType: uint8(w.LotteryType),
		RoundID:     bigString(w.RoundID),
		Position:    position,
		Date:        w.Date.UnixMilli(),
		TxHash:      w.TxHash.Hex(),
	}
}

func winnerFromModel(m models.Winner) history.Winner {
	return history.Winner{
		Address:     common.HexToAddress(m.Address),
		PrizeWei:    parseBig(m.PrizeWei),
		LotteryType: types.LotteryType(m.LotteryType),
		RoundID:     parseBig(m.RoundID),
		Date:        time.UnixMilli(m.Date),
		TxHash:      common.HexToHash(m.TxHash),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
