package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/lightlink-network/lotto-client/types"
	"github.com/lightlink-network/lotto-client/wallet"
)

var (
	ErrNoAccount = errors.New("no active account")
	ErrReverted  = errors.New("transaction reverted")
)

// NetworkGuard must succeed before anything reaches the wallet.
type NetworkGuard interface {
	EnsureNetwork(ctx context.Context) error
}

// Signer submits requests on behalf of the bound account.
type Signer interface {
	Account() common.Address
	SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
}

// ReceiptWaiter blocks until a transaction is included.
type ReceiptWaiter interface {
	WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Submission is the context an accepted operation was submitted with.
type Submission struct {
	Kind    types.OperationKind
	Hash    common.Hash
	Account common.Address
	Value   *big.Int
}

// Confirmation is emitted once a submission is included successfully.
type Confirmation struct {
	Submission
	Receipt *ethtypes.Receipt
}

// Submitter wraps a single operation kind.
type Submitter struct {
	kind      types.OperationKind
	lifecycle *Lifecycle
	guard     NetworkGuard
	signer    Signer
	receipts  ReceiptWaiter
	logger    *slog.Logger
}

type SubmitterOpts struct {
	Kind     types.OperationKind
	Guard    NetworkGuard
	Signer   Signer
	Receipts ReceiptWaiter
	Logger   *slog.Logger
}

func NewSubmitter(opts SubmitterOpts) *Submitter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Submitter{
		kind:      opts.Kind,
		lifecycle: New(opts.Kind, opts.Logger),
		guard:     opts.Guard,
		signer:    opts.Signer,
		receipts:  opts.Receipts,
		logger:    opts.Logger,
	}
}

func (s *Submitter) Kind() types.OperationKind {
	return s.kind
}

func (s *Submitter) State() State {
	return s.lifecycle.Snapshot()
}

// MarkProcessed reports whether the terminal effects of hash may be applied now.
func (s *Submitter) MarkProcessed(hash common.Hash) bool {
	return s.lifecycle.MarkProcessed(hash)
}

// Submit hands req to the wallet. It returns without side effects when the
// guard fails, no account is bound or a same-kind operation is in flight.
func (s *Submitter) Submit(ctx context.Context, req wallet.TxRequest) (Submission, error) {
	if s.lifecycle.InFlight() {
		return Submission{}, ErrInFlight
	}

	if err := s.guard.EnsureNetwork(ctx); err != nil {
		return Submission{}, err
	}

	account := s.signer.Account()
	if (account == common.Address{}) {
		return Submission{}, ErrNoAccount
	}

	if err := s.lifecycle.Begin(); err != nil {
		return Submission{}, err
	}

	hash, err := s.signer.SendTransaction(ctx, req)
	if err != nil {
		s.lifecycle.Fail(err)
		s.logger.Warn("submission failed", "kind", s.kind, "error", err)
		return Submission{}, fmt.Errorf("failed to submit %s: %w", s.kind, err)
	}

	if err := s.lifecycle.Submitted(hash); err != nil {
		return Submission{}, err
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	s.logger.Info("operation submitted", "kind", s.kind, "txHash", hash.Hex(), "value", value)

	return Submission{Kind: s.kind, Hash: hash, Account: account, Value: value}, nil
}

// Track waits for sub to be included and reports the confirmation. Inclusion
// errors and reverts leave the lifecycle in Failed.
func (s *Submitter) Track(ctx context.Context, sub Submission) (Confirmation, error) {
	if err := s.lifecycle.Confirming(sub.Hash); err != nil {
		return Confirmation{}, err
	}

	receipt, err := s.receipts.WaitReceipt(ctx, sub.Hash)
	if err != nil {
		err = fmt.Errorf("failed to confirm %s %s: %w", s.kind, sub.Hash.Hex(), err)
		s.lifecycle.Fail(err)
		return Confirmation{}, err
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		err := fmt.Errorf("%w: %s", ErrReverted, sub.Hash.Hex())
		s.lifecycle.Fail(err)
		return Confirmation{}, err
	}

	if err := s.lifecycle.Confirm(sub.Hash); err != nil {
		return Confirmation{}, err
	}

	s.logger.Info("operation confirmed", "kind", s.kind, "txHash", sub.Hash.Hex(), "block", receipt.BlockNumber)

	return Confirmation{Submission: sub, Receipt: receipt}, nil
}
