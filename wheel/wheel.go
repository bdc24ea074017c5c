// Package wheel maps spin outcomes onto wheel rotations.
package wheel

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
)

const (
	// WholeTurns is added to every landing so the wheel visibly spins.
	WholeTurns = 3600.0

	fullCircle = 360.0
)

var ErrNotAnimating = errors.New("wheel is not animating")

// DefaultSegments is the wheel layout, clockwise from the top.
var DefaultSegments = []string{"LOSE", "$2", "LOSE", "FREE_TICKET", "LOSE", "$5", "LOSE", "BONUS_TICKET", "LOSE", "$10"}

// Mapper turns prize types into rotations for a fixed segment layout.
type Mapper struct {
	segments      []string
	pointerOffset float64
	mu            sync.Mutex
	rng           *rand.Rand
}

// NewMapper builds a mapper for segments. A nil rng uses a randomly seeded one.
func NewMapper(segments []string, pointerOffset float64, rng *rand.Rand) *Mapper {
	if len(segments) == 0 {
		segments = DefaultSegments
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Mapper{
		segments:      append([]string(nil), segments...),
		pointerOffset: pointerOffset,
		rng:           rng,
	}
}

func (m *Mapper) Segments() []string {
	return append([]string(nil), m.segments...)
}

func (m *Mapper) segmentAngle() float64 {
	return fullCircle / float64(len(m.segments))
}

// AngleFor returns a rotation in [0,360) that leaves the pointer on a
// segment tagged prizeType. Unknown tags get a random angle.
func (m *Mapper) AngleFor(prizeType string) float64 {
	var matches []int
	for i, tag := range m.segments {
		if tag == prizeType {
			matches = append(matches, i)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(matches) == 0 {
		return m.rng.Float64() * fullCircle
	}

	index := matches[m.rng.IntN(len(matches))]
	center := float64(index)*m.segmentAngle() + m.segmentAngle()/2
	return normalize(fullCircle - center + m.pointerOffset)
}

// SegmentAt returns the index of the segment under the pointer after the
// wheel has been rotated by rotation degrees.
func (m *Mapper) SegmentAt(rotation float64) int {
	angle := normalize(m.pointerOffset - rotation)
	index := int(angle / m.segmentAngle())
	if index >= len(m.segments) {
		index = len(m.segments) - 1
	}
	return index
}

// TagAt returns the prize type under the pointer for rotation.
func (m *Mapper) TagAt(rotation float64) string {
	return m.segments[m.SegmentAt(rotation)]
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, fullCircle)
	if deg < 0 {
		deg += fullCircle
	}
	if deg >= fullCircle {
		deg = 0
	}
	return deg
}
