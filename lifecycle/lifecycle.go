package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/dedup"
	"github.com/lightlink-network/lotto-client/types"
)

var (
	ErrInFlight          = errors.New("an operation of this kind is already in flight")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrHashMismatch      = errors.New("transaction hash does not belong to the live operation")
)

// transitions lists the statuses reachable from each status.
var transitions = map[types.Status][]types.Status{
	types.Idle:              {types.AwaitingSignature},
	types.AwaitingSignature: {types.Submitted, types.Failed},
	types.Submitted:         {types.Confirming, types.Failed},
	types.Confirming:        {types.Confirmed, types.Failed},
	types.Confirmed:         {types.AwaitingSignature},
	types.Failed:            {types.AwaitingSignature, types.Idle},
}

func allowed(from, to types.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// State is a point-in-time copy of a lifecycle.
type State struct {
	Kind      types.OperationKind `json:"kind"`
	Status    types.Status        `json:"status"`
	Hash      common.Hash         `json:"hash"`
	Processed bool                `json:"processed"`
	Error     string              `json:"error,omitempty"`
}

// Lifecycle is the state machine of one operation kind. At most one
// operation per kind is live at a time; transitions are the only way its
// state changes.
type Lifecycle struct {
	mu        sync.Mutex
	kind      types.OperationKind
	status    types.Status
	hash      common.Hash
	processed bool
	err       error
	seen      *dedup.Set
	logger    *slog.Logger
}

func New(kind types.OperationKind, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		kind:   kind,
		status: types.Idle,
		seen:   dedup.NewSet(dedup.DefaultCapacity),
		logger: logger,
	}
}

func (l *Lifecycle) transition(to types.Status) error {
	if !allowed(l.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, l.status, to)
	}
	l.logger.Debug("lifecycle transition", "kind", l.kind, "from", l.status, "to", to, "txHash", l.hash.Hex())
	l.status = to
	return nil
}

// InFlight reports whether an operation of this kind is live.
func (l *Lifecycle) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status.InFlight()
}

// Begin claims the lifecycle for a new operation. It fails with ErrInFlight
// while another operation of the same kind is live.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status.InFlight() {
		return ErrInFlight
	}
	if err := l.transition(types.AwaitingSignature); err != nil {
		return err
	}
	l.hash = common.Hash{}
	l.processed = false
	l.err = nil
	return nil
}

// Submitted assigns the operation's hash. The hash cannot change afterwards.
func (l *Lifecycle) Submitted(hash common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.transition(types.Submitted); err != nil {
		return err
	}
	l.hash = hash
	l.processed = l.seen.Contains(hash)
	return nil
}

func (l *Lifecycle) Confirming(hash common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if hash != l.hash {
		return ErrHashMismatch
	}
	return l.transition(types.Confirming)
}

func (l *Lifecycle) Confirm(hash common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if hash != l.hash {
		return ErrHashMismatch
	}
	return l.transition(types.Confirmed)
}

// Fail moves the live operation to Failed. Failures before a hash was
// assigned (rejection, broadcast errors) reset straight to Idle.
func (l *Lifecycle) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.status.InFlight() {
		return
	}

	beforeHash := l.status == types.AwaitingSignature
	if terr := l.transition(types.Failed); terr != nil {
		l.logger.Error("failed to mark lifecycle failed", "kind", l.kind, "error", terr)
		return
	}
	l.err = err
	if beforeHash {
		_ = l.transition(types.Idle)
	}
}

// MarkProcessed flips processed for hash and reports whether this call did
// it. It returns true at most once per hash.
func (l *Lifecycle) MarkProcessed(hash common.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.seen.Add(hash) {
		return false
	}
	if hash == l.hash {
		l.processed = true
	}
	return true
}

func (l *Lifecycle) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := State{
		Kind:      l.kind,
		Status:    l.status,
		Hash:      l.hash,
		Processed: l.processed,
	}
	if l.err != nil {
		state.Error = l.err.Error()
	}
	return state
}
