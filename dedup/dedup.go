// Package dedup provides a bounded set of processed transaction hashes.
package dedup

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const DefaultCapacity = 256

// Set remembers up to capacity hashes; the oldest entry is evicted first.
type Set struct {
	mu       sync.Mutex
	capacity int
	seen     map[common.Hash]struct{}
	order    []common.Hash
}

func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Set{
		capacity: capacity,
		seen:     make(map[common.Hash]struct{}, capacity),
		order:    make([]common.Hash, 0, capacity),
	}
}

// Add records hash and reports whether it was not already present.
func (s *Set) Add(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[hash]; ok {
		return false
	}
	if len(s.order) == s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	s.seen[hash] = struct{}{}
	s.order = append(s.order, hash)
	return true
}

func (s *Set) Contains(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[hash]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
