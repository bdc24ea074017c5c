package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database struct {
	client       *mongo.Client
	databaseName string
	logger       *slog.Logger
}

type DatabaseOpts struct {
	URI          string
	DatabaseName string
	Logger       *slog.Logger
}

const (
	DefaultDatabaseName = "lotto"

	historyCollection          = "history"
	winnersCollection          = "winners"
	lastIndexedBlockCollection = "last_indexed_block"

	defaultTimeout = 10 * time.Second

	// duplicateKeyCode is MongoDB's duplicate key error code
	duplicateKeyCode = 11000
)

func NewDatabase(opts DatabaseOpts) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DatabaseName == "" {
		opts.DatabaseName = DefaultDatabaseName
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(20).
		SetMinPoolSize(2).
		SetMaxConnecting(5).
		SetServerSelectionTimeout(5 * time.Second).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		client:       client,
		databaseName: opts.DatabaseName,
		logger:       opts.Logger,
	}, nil
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.databaseName).Collection(name)
}

func (db *Database) CreateIndexes(ctx context.Context) error {
	_, err := db.collection(historyCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_hash", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "account", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}

	_, err = db.collection(winnersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tx_hash", Value: 1}, {Key: "position", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "lottery_type", Value: 1}, {Key: "date", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create winners indexes: %w", err)
	}

	_, err = db.collection(lastIndexedBlockCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create last_indexed_block index: %w", err)
	}

	return nil
}

// onlyDuplicates reports whether every write error in err is a duplicate
// key error. Re-delivered events hit the unique indexes and are not failures.
func onlyDuplicates(err error) bool {
	if bulkErr, ok := err.(mongo.BulkWriteException); ok {
		if len(bulkErr.WriteErrors) == 0 || bulkErr.WriteConcernError != nil {
			return false
		}
		for _, writeErr := range bulkErr.WriteErrors {
			if writeErr.Code != duplicateKeyCode {
				return false
			}
		}
		return true
	}
	return mongo.IsDuplicateKeyError(err)
}
