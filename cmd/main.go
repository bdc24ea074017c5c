package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/lightlink-network/lotto-client/api"
	"github.com/lightlink-network/lotto-client/chain"
	"github.com/lightlink-network/lotto-client/config"
	"github.com/lightlink-network/lotto-client/database"
	"github.com/lightlink-network/lotto-client/engine"
	"github.com/lightlink-network/lotto-client/guard"
	"github.com/lightlink-network/lotto-client/history"
	"github.com/lightlink-network/lotto-client/indexer"
	"github.com/lightlink-network/lotto-client/metrics"
	"github.com/lightlink-network/lotto-client/price"
	"github.com/lightlink-network/lotto-client/wallet"
	"github.com/lightlink-network/lotto-client/wheel"
)

// Version will be set at build time
var Version = "development"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	Logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(Logger)

	Logger.Info("Starting lotto-client ("+Version+")",
		"Go Version", runtime.Version(),
		"Operating System", runtime.GOOS,
		"Architecture", runtime.GOARCH)

	// Create context that will be canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, chain.ClientOpts{
		Endpoint:        cfg.RPCURL,
		ContractAddress: cfg.ContractAddress,
		Logger:          Logger.With("component", "chain"),
	})
	if err != nil {
		log.Fatalf("failed to create chain client: %v", err)
	}
	defer client.Close()

	w, err := wallet.NewKeyedWallet(ctx, wallet.KeyedWalletOpts{
		PrivateKey: cfg.PrivateKey,
		Endpoint:   cfg.RPCURL,
		Endpoints:  cfg.ChainEndpoints,
		SpendCap:   cfg.SpendCapWei,
		Logger:     Logger.With("component", "wallet"),
	})
	if err != nil {
		log.Fatalf("failed to create wallet: %v", err)
	}

	m := metrics.New()

	var (
		sink        history.Sink
		checkpoints indexer.Checkpoints
		restore     func(context.Context, *history.Book)
	)
	if cfg.DatabaseURI != "" {
		db, err := database.NewDatabase(database.DatabaseOpts{
			URI:          cfg.DatabaseURI,
			DatabaseName: cfg.DatabaseName,
			Logger:       Logger.With("component", "database"),
		})
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close(context.Background())

		if err := db.CreateIndexes(ctx); err != nil {
			log.Fatalf("failed to create indexes: %v", err)
		}

		store := db.History(w.Account())
		sink, checkpoints = store, db
		restore = func(ctx context.Context, book *history.Book) {
			records, err := store.RecentRecords(ctx, history.MaxRecords)
			if err != nil {
				Logger.Error("failed to restore history", "error", err)
				return
			}
			winners, err := store.RecentWinners(ctx, history.MaxWinners)
			if err != nil {
				Logger.Error("failed to restore winners", "error", err)
				return
			}
			book.Restore(records, winners)
			Logger.Info("history restored", "records", len(records), "winners", len(winners))
		}
	}

	book := history.NewBook(history.BookOpts{
		Sink:   sink,
		Logger: Logger.With("component", "history"),
	})
	if restore != nil {
		restore(ctx, book)
	}

	var (
		prices price.Source = price.NewFixed(cfg.FixedPriceUSD)
		feed   *price.Feed
	)
	if cfg.PriceFeedURL != "" {
		feed = price.NewFeed(price.FeedOpts{
			URL:      cfg.PriceFeedURL,
			Interval: cfg.PriceRefreshInterval,
			Fallback: cfg.FixedPriceUSD,
			Logger:   Logger.With("component", "price-feed"),
		})
		prices = feed
	}

	eng := engine.New(engine.EngineOpts{
		Contract:            cfg.ContractAddress,
		Guard:               guard.New(w, cfg.ChainID, Logger.With("component", "guard")),
		Signer:              w,
		Receipts:            client,
		Reader:              client,
		Quoter:              client,
		Prices:              prices,
		BufferBps:           cfg.PriceBufferBps,
		Mapper:              wheel.NewMapper(cfg.WheelSegments, cfg.PointerOffset, nil),
		History:             book,
		Metrics:             m,
		OutcomeTimeout:      cfg.OutcomeTimeout,
		AnimationDuration:   cfg.AnimationDuration,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		RoundsInterval:      cfg.RoundsInterval,
		WinningsInterval:    cfg.WinningsInterval,
		Logger:              Logger.With("component", "engine"),
	})
	defer eng.Close()

	idx, err := indexer.NewIndexer(indexer.IndexerOpts{
		Source:       client,
		Handler:      eng,
		Checkpoints:  checkpoints,
		Contract:     cfg.ContractAddress,
		Account:      w.Account(),
		Endpoint:     cfg.RPCURL,
		Mode:         cfg.SubscriptionMode,
		StartBlock:   cfg.StartBlock,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		Metrics:      m,
		Logger:       Logger.With("component", "indexer"),
	})
	if err != nil {
		log.Fatalf("failed to create indexer: %v", err)
	}

	server, err := api.NewServer(api.ServerOpts{
		Logger:  Logger.With("component", "api-server"),
		Port:    cfg.APIPort,
		Engine:  eng,
		Metrics: m,
	})
	if err != nil {
		log.Fatalf("failed to create api server: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(ctx) })
	g.Go(func() error { return idx.Run(ctx) })
	g.Go(func() error { return server.StartServer(ctx) })
	if feed != nil {
		g.Go(func() error { return feed.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		Logger.Error("shutting down with error", "error", err)
		return
	}
	Logger.Info("Shut down gracefully")
}
