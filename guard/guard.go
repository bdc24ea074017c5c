// Package guard keeps the wallet on the network the lottery contract lives on.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrWrongNetwork = errors.New("wallet is not on the required network")

// Network is the part of the wallet the guard talks to.
type Network interface {
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
}

type Guard struct {
	network  Network
	required uint64
	logger   *slog.Logger
}

func New(network Network, required uint64, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{network: network, required: required, logger: logger}
}

// Required returns the chain id the guard enforces.
func (g *Guard) Required() uint64 {
	return g.required
}

// EnsureNetwork returns nil when the wallet is on the required network,
// requesting a switch first if it is not. Any error means the caller must
// not submit.
func (g *Guard) EnsureNetwork(ctx context.Context) error {
	current, err := g.network.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to read current network: %w", ErrWrongNetwork, err)
	}
	if current == g.required {
		return nil
	}

	g.logger.Info("requesting network switch", "current", current, "required", g.required)

	if err := g.network.SwitchChain(ctx, g.required); err != nil {
		g.logger.Error("failed to switch network", "error", err)
		return fmt.Errorf("%w: switch from %d to %d: %w", ErrWrongNetwork, current, g.required, err)
	}
	return nil
}
