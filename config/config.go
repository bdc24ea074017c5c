// Package config reads the client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/database"
	"github.com/lightlink-network/lotto-client/engine"
	"github.com/lightlink-network/lotto-client/indexer"
	"github.com/lightlink-network/lotto-client/price"
	"github.com/lightlink-network/lotto-client/query"
	"github.com/lightlink-network/lotto-client/recovery"
)

const (
	DefaultChainID         = 1946
	DefaultContractAddress = "0x5799fe0F34BAeab3D1c756023E46D3019FDFE6D8"
	DefaultAPIPort         = "8080"
)

type Config struct {
	RPCURL          string
	ChainID         uint64
	ChainEndpoints  map[uint64]string
	ContractAddress common.Address
	PrivateKey      string
	SpendCapWei     *big.Int

	DatabaseURI  string
	DatabaseName string
	APIPort      string

	SubscriptionMode indexer.Mode
	StartBlock       uint64
	PollInterval     time.Duration
	BatchSize        uint64

	PriceFeedURL         string
	FixedPriceUSD        *big.Rat
	PriceRefreshInterval time.Duration
	PriceBufferBps       int64

	OutcomeTimeout      time.Duration
	AnimationDuration   time.Duration
	ConfirmationTimeout time.Duration
	RoundsInterval      time.Duration
	WinningsInterval    time.Duration

	WheelSegments []string
	PointerOffset float64

	LogLevel slog.Level
}

// Load reads the configuration from the environment. Unset variables take
// their defaults; malformed ones are reported together.
func Load() (Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := Config{
		RPCURL:          os.Getenv("RPC_URL"),
		ChainID:         p.uint64("CHAIN_ID", DefaultChainID),
		ChainEndpoints:  p.endpoints("CHAIN_ENDPOINTS"),
		ContractAddress: p.address("CONTRACT_ADDRESS", DefaultContractAddress),
		PrivateKey:      os.Getenv("PRIVATE_KEY"),
		SpendCapWei:     p.bigInt("SPEND_CAP_WEI"),

		DatabaseURI:  os.Getenv("DATABASE_URI"),
		DatabaseName: p.string("DATABASE_NAME", database.DefaultDatabaseName),
		APIPort:      p.string("API_PORT", DefaultAPIPort),

		SubscriptionMode: indexer.Mode(p.string("SUBSCRIPTION_MODE", string(indexer.ModeAuto))),
		StartBlock:       p.uint64("START_BLOCK", 0),
		PollInterval:     p.duration("POLL_INTERVAL", 5*time.Second),
		BatchSize:        p.uint64("BATCH_SIZE", 2000),

		PriceFeedURL:         os.Getenv("PRICE_FEED_URL"),
		FixedPriceUSD:        p.rat("FIXED_PRICE_USD", big.NewRat(price.DefaultFallbackUSD, 1)),
		PriceRefreshInterval: p.duration("PRICE_REFRESH_INTERVAL", price.DefaultRefreshInterval),
		PriceBufferBps:       p.int64("PRICE_BUFFER_BPS", price.DefaultBufferBps),

		OutcomeTimeout:      p.duration("OUTCOME_TIMEOUT", recovery.DefaultTimeout),
		AnimationDuration:   p.duration("ANIMATION_DURATION", engine.DefaultAnimationDuration),
		ConfirmationTimeout: p.duration("CONFIRMATION_TIMEOUT", engine.DefaultConfirmationTimeout),
		RoundsInterval:      p.duration("ROUNDS_INTERVAL", query.DefaultRoundsInterval),
		WinningsInterval:    p.duration("WINNINGS_INTERVAL", query.DefaultWinningsInterval),

		WheelSegments: p.list("WHEEL_SEGMENTS"),
		PointerOffset: p.float64("POINTER_OFFSET", 0),

		LogLevel: p.level("LOG_LEVEL", slog.LevelDebug),
	}

	if cfg.RPCURL == "" {
		errs = append(errs, errors.New("RPC_URL is required"))
	}
	if cfg.PrivateKey == "" {
		errs = append(errs, errors.New("PRIVATE_KEY is required"))
	}
	switch cfg.SubscriptionMode {
	case indexer.ModeAuto, indexer.ModeSubscribe, indexer.ModePoll:
	default:
		errs = append(errs, fmt.Errorf("SUBSCRIPTION_MODE must be auto, subscribe or poll, got %q", cfg.SubscriptionMode))
	}
	if cfg.PriceBufferBps == 0 {
		// zero in the environment means no buffer
		cfg.PriceBufferBps = -1
	}

	return cfg, errors.Join(errs...)
}

type parser struct {
	errs *[]error
}

func (p parser) fail(key string, err error) {
	*p.errs = append(*p.errs, fmt.Errorf("failed to parse %s: %w", key, err))
}

func (p parser) string(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (p parser) uint64(key string, def uint64) uint64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p parser) int64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p parser) float64(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return v
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, err)
		return def
	}
	if v <= 0 {
		p.fail(key, errors.New("must be positive"))
		return def
	}
	return v
}

func (p parser) bigInt(key string) *big.Int {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() < 0 {
		p.fail(key, fmt.Errorf("invalid wei amount %q", raw))
		return nil
	}
	return v
}

func (p parser) rat(key string, def *big.Rat) *big.Rat {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, ok := new(big.Rat).SetString(raw)
	if !ok || v.Sign() <= 0 {
		p.fail(key, fmt.Errorf("invalid price %q", raw))
		return def
	}
	return v
}

func (p parser) address(key, def string) common.Address {
	raw := p.string(key, def)
	if !common.IsHexAddress(raw) {
		p.fail(key, fmt.Errorf("invalid address %q", raw))
		return common.HexToAddress(def)
	}
	return common.HexToAddress(raw)
}

func (p parser) list(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// endpoints parses "1946=https://...,1891=https://...".
func (p parser) endpoints(key string) map[uint64]string {
	out := map[uint64]string{}
	for _, pair := range p.list(key) {
		id, url, ok := strings.Cut(pair, "=")
		if !ok || url == "" {
			p.fail(key, fmt.Errorf("expected id=url, got %q", pair))
			continue
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			p.fail(key, err)
			continue
		}
		out[chainID] = strings.TrimSpace(url)
	}
	return out
}

func (p parser) level(key string, def slog.Level) slog.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		p.fail(key, err)
		return def
	}
	return level
}
