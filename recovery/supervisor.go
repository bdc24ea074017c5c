// Package recovery resolves spins whose outcome the wallet never reported.
package recovery

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is how long an armed supervisor waits for an outcome.
const DefaultTimeout = 30 * time.Second

type State int

const (
	Dormant State = iota
	Armed
	Resolved
	TimedOut
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Armed:
		return "armed"
	case Resolved:
		return "resolved"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Supervisor waits for an outcome after a confirmation that carried none.
// At most one timer is pending at a time.
type Supervisor struct {
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	timer *time.Timer
	// gen invalidates timers that fired after Disarm or a new Arm.
	gen uint64
}

func NewSupervisor(timeout time.Duration, logger *slog.Logger) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{timeout: timeout, logger: logger}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm starts the timeout. When it elapses, check is called under the
// supervisor lock; if it reports false the supervisor times out and
// onTimeout runs outside the lock. Arming an armed supervisor restarts it.
func (s *Supervisor) Arm(check func() bool, onTimeout func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.state = Armed
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.timeout, func() { s.fire(gen, check, onTimeout) })
	s.logger.Debug("recovery armed", "timeout", s.timeout)
}

// Resolve records that the outcome arrived. It returns the state before
// the call; only an armed supervisor moves to Resolved.
func (s *Supervisor) Resolve() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	if prev == Armed {
		s.stopLocked()
		s.state = Resolved
	}
	return prev
}

// Disarm cancels any pending timer and returns to Dormant.
func (s *Supervisor) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	s.state = Dormant
}

func (s *Supervisor) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Supervisor) fire(gen uint64, check func() bool, onTimeout func()) {
	s.mu.Lock()
	if s.gen != gen || s.state != Armed {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	if check != nil && check() {
		s.state = Resolved
		s.mu.Unlock()
		s.logger.Debug("outcome found at recovery deadline")
		return
	}

	s.state = TimedOut
	s.mu.Unlock()

	s.logger.Warn("no outcome before recovery deadline", "timeout", s.timeout)
	if onTimeout != nil {
		onTimeout()
	}
}
