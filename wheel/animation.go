package wheel

import (
	"math"
	"sync"
)

// State is a copy of the wheel's animation state.
type State struct {
	CurrentRotation float64 `json:"currentRotationDegrees"`
	StartRotation   float64 `json:"startRotationDegrees"`
	IsAnimating     bool    `json:"isAnimating"`
	Landed          bool    `json:"landed"`
}

// Wheel holds the rotation of the visual wheel. CurrentRotation never
// decreases except through Rollback.
type Wheel struct {
	mu     sync.Mutex
	mapper *Mapper
	state  State
}

func New(mapper *Mapper) *Wheel {
	return &Wheel{mapper: mapper}
}

func (w *Wheel) Mapper() *Mapper {
	return w.mapper
}

func (w *Wheel) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start begins an animation and snapshots the rotation to roll back to.
func (w *Wheel) Start() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.StartRotation = w.state.CurrentRotation
	w.state.IsAnimating = true
	w.state.Landed = false
	return w.state
}

// Land sets the target rotation for prizeType and returns it. The target
// is the start rounded down to a whole turn plus WholeTurns plus the
// segment angle, so the stop position matches prizeType no matter where
// earlier spins left the wheel.
func (w *Wheel) Land(prizeType string) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.IsAnimating {
		return 0, ErrNotAnimating
	}
	if w.state.Landed {
		return w.state.CurrentRotation, nil
	}

	base := math.Floor(w.state.StartRotation/fullCircle) * fullCircle
	target := base + WholeTurns + w.mapper.AngleFor(prizeType)

	w.state.CurrentRotation = target
	w.state.Landed = true
	return target, nil
}

// Stop ends the animation at the current rotation.
func (w *Wheel) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.IsAnimating = false
}

// Rollback ends the animation and restores the rotation captured by Start.
func (w *Wheel) Rollback() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state.CurrentRotation = w.state.StartRotation
	w.state.IsAnimating = false
	w.state.Landed = false
	return w.state
}
