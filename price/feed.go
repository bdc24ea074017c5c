package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultFallbackUSD     = 3000
)

type FeedOpts struct {
	URL      string
	Interval time.Duration
	// Fallback is served until the first successful fetch.
	Fallback *big.Rat
	Client   *http.Client
	Logger   *slog.Logger
}

// Feed polls a CoinGecko style simple price endpoint and keeps the last
// good rate.
type Feed struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger

	mu      sync.RWMutex
	rate    *big.Rat
	updated time.Time
}

func NewFeed(opts FeedOpts) *Feed {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Fallback == nil {
		opts.Fallback = big.NewRat(DefaultFallbackUSD, 1)
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Feed{
		url:      opts.URL,
		interval: opts.Interval,
		client:   opts.Client,
		logger:   opts.Logger,
		rate:     new(big.Rat).Set(opts.Fallback),
	}
}

func (f *Feed) USDPerETH() *big.Rat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return new(big.Rat).Set(f.rate)
}

// Updated returns when the rate was last fetched, zero if never.
func (f *Feed) Updated() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

// Run refreshes the rate until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	if err := f.Refresh(ctx); err != nil {
		f.logger.Warn("failed to refresh eth price", "error", err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.Refresh(ctx); err != nil {
				f.logger.Warn("failed to refresh eth price", "error", err)
			}
		}
	}
}

func (f *Feed) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Ethereum struct {
			USD json.Number `json:"usd"`
		} `json:"ethereum"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	rate, ok := new(big.Rat).SetString(result.Ethereum.USD.String())
	if !ok || rate.Sign() <= 0 {
		return fmt.Errorf("invalid eth price %q", result.Ethereum.USD)
	}

	f.mu.Lock()
	f.rate = rate
	f.updated = time.Now()
	f.mu.Unlock()

	f.logger.Debug("eth price refreshed", "usd", rate.FloatString(2))
	return nil
}
