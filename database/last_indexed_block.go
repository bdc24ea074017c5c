package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lightlink-network/lotto-client/database/models"
)

// UpdateLastIndexedBlock upserts the checkpoint stored under key.
func (db *Database) UpdateLastIndexedBlock(ctx context.Context, key string, blockNumber uint64) error {
	collection := db.collection(lastIndexedBlockCollection)

	filter := bson.D{{Key: "key", Value: key}}
	update := bson.D{{
		Key: "$set",
		Value: bson.D{{
			Key: "block_number", Value: blockNumber,
		}},
	}}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update last indexed block: %w", err)
	}

	return nil
}

// GetLastIndexedBlock returns 0 when nothing was indexed under key yet.
func (db *Database) GetLastIndexedBlock(ctx context.Context, key string) (uint64, error) {
	collection := db.collection(lastIndexedBlockCollection)

	var result models.LastIndexedBlock
	err := collection.FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get last indexed block: %w", err)
	}

	db.logger.Debug("last indexed block", "key", key, "block", result.BlockNumber)

	return result.BlockNumber, nil
}
