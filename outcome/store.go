package outcome

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/lotto-client/types"
)

// Source names the producer that delivered an outcome.
type Source string

const (
	SourceEvent   Source = "event"
	SourceReceipt Source = "receipt"
)

const DefaultCapacity = 256

// Outcome is the authoritative result of one spin.
type Outcome struct {
	SourceHash     common.Hash    `json:"sourceHash"`
	Player         common.Address `json:"player"`
	IsWin          bool           `json:"isWin"`
	PrizeType      string         `json:"prizeType"`
	PrizeAmountWei *big.Int       `json:"prizeAmountWei"`
	Source         Source         `json:"source"`
}

// Won reports whether the outcome carries a prize.
func (o Outcome) Won() bool {
	return o.PrizeType != types.NoWinPrize
}

// Store is a write-once-per-hash outcome table shared by the event and
// receipt producers. The first writer for a hash wins.
type Store struct {
	mu       sync.Mutex
	capacity int
	outcomes map[common.Hash]Outcome
	order    []common.Hash
	hooks    []func(Outcome)
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		outcomes: make(map[common.Hash]Outcome, capacity),
	}
}

// OnInstall registers fn to run after every first install. Hooks run
// outside the store lock, on the installing goroutine.
func (s *Store) OnInstall(fn func(Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Install stores o unless an outcome already exists for o.SourceHash and
// reports whether it did.
func (s *Store) Install(o Outcome) bool {
	if o.PrizeAmountWei == nil {
		o.PrizeAmountWei = new(big.Int)
	}

	s.mu.Lock()
	if _, ok := s.outcomes[o.SourceHash]; ok {
		s.mu.Unlock()
		return false
	}
	if len(s.order) == s.capacity {
		delete(s.outcomes, s.order[0])
		s.order = s.order[1:]
	}
	s.outcomes[o.SourceHash] = o
	s.order = append(s.order, o.SourceHash)
	hooks := append([]func(Outcome){}, s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(o)
	}
	return true
}

func (s *Store) Get(hash common.Hash) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[hash]
	return o, ok
}

func (s *Store) Has(hash common.Hash) bool {
	_, ok := s.Get(hash)
	return ok
}
