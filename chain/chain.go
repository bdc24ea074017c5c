package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
	"github.com/lightlink-network/lotto-client/utils"
)

const (
	defaultMaxRetries          = 5
	defaultRetryDelay          = 2 * time.Second
	defaultReceiptPollInterval = time.Second
)

// RPC is the subset of ethclient.Client the client uses.
type RPC interface {
	bind.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

type Client struct {
	rpc     RPC
	chainId *big.Int
	lottery *lottery.Caller
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	Endpoint            string
	ContractAddress     common.Address
	Logger              *slog.Logger
	MaxRetries          int
	RetryDelay          time.Duration
	ReceiptPollInterval time.Duration
}

// NewClient dials opts.Endpoint, which may be http(s) or ws(s).
func NewClient(ctx context.Context, opts ClientOpts) (*Client, error) {
	client, err := ethclient.DialContext(ctx, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}

	c, err := NewClientWithRPC(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// NewClientWithRPC wraps an existing connection.
func NewClientWithRPC(ctx context.Context, rpc RPC, opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.ReceiptPollInterval <= 0 {
		opts.ReceiptPollInterval = defaultReceiptPollInterval
	}

	chainId, err := rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	opts.Logger.Info("connected to rpc", "chainId", chainId, "endpoint", opts.Endpoint)

	// Warn user if the contract is not found at the given address.
	if ok, _ := utils.IsContract(ctx, rpc, opts.ContractAddress); !ok {
		opts.Logger.Warn("contract not found for lottery at given address", "address", opts.ContractAddress.Hex(), "endpoint", opts.Endpoint)
	}

	return &Client{
		rpc:     rpc,
		chainId: chainId,
		lottery: lottery.NewCaller(opts.ContractAddress, rpc),
		logger:  opts.Logger,
		Opts:    &opts,
	}, nil
}

func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainId)
}

func (c *Client) Contract() common.Address {
	return c.Opts.ContractAddress
}

// Close releases the connection when it was dialed by NewClient.
func (c *Client) Close() {
	if closer, ok := c.rpc.(interface{ Close() }); ok {
		closer.Close()
	}
}

// withRetry calls fn up to MaxRetries times, waiting RetryDelay between
// attempts, and gives up early when ctx is done.
func withRetry[T any](ctx context.Context, c *Client, what string, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt < c.Opts.MaxRetries; attempt++ {
		if v, err := fn(); err == nil {
			return v, nil
		} else {
			lastErr = err
		}

		if attempt < c.Opts.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("failed to %s: %w", what, ctx.Err())
			case <-time.After(c.Opts.RetryDelay):
			}
		}
	}

	return zero, fmt.Errorf("failed to %s after %d attempts: %w", what, c.Opts.MaxRetries, lastErr)
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return withRetry(ctx, c, "get block number", func() (uint64, error) {
		return c.rpc.BlockNumber(ctx)
	})
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.rpc.TransactionReceipt(ctx, txHash)
}

// WaitReceipt polls until the receipt for txHash is available or ctx is done.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.Opts.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			c.logger.Warn("failed to get transaction receipt", "txHash", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to wait for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return withRetry(ctx, c, "filter logs", func() ([]types.Log, error) {
		return c.rpc.FilterLogs(ctx, q)
	})
}

func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	sub, err := c.rpc.SubscribeFilterLogs(ctx, q, ch)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to logs: %w", err)
	}
	return sub, nil
}

func (c *Client) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

func (c *Client) GetRoundDetails(ctx context.Context, lotteryType uint8) (lottery.RoundDetails, error) {
	return withRetry(ctx, c, "get round details", func() (lottery.RoundDetails, error) {
		return c.lottery.GetRoundDetails(c.callOpts(ctx), lotteryType)
	})
}

func (c *Client) PendingWinnings(ctx context.Context, user common.Address) (*big.Int, error) {
	return withRetry(ctx, c, "get pending winnings", func() (*big.Int, error) {
		return c.lottery.PendingWinnings(c.callOpts(ctx), user)
	})
}

func (c *Client) TicketCredits(ctx context.Context, user common.Address, lotteryType uint8) (*big.Int, error) {
	return withRetry(ctx, c, "get ticket credits", func() (*big.Int, error) {
		return c.lottery.TicketCredits(c.callOpts(ctx), user, lotteryType)
	})
}

// EthCost asks the contract what usdAmount costs in wei.
func (c *Client) EthCost(ctx context.Context, usdAmount *big.Int) (*big.Int, error) {
	return withRetry(ctx, c, "get eth cost", func() (*big.Int, error) {
		return c.lottery.GetEthCost(c.callOpts(ctx), usdAmount)
	})
}
