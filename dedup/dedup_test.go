package dedup

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestSetAddOnce(t *testing.T) {
	s := NewSet(4)
	h := common.HexToHash("0xaa")

	assert.True(t, s.Add(h))
	assert.False(t, s.Add(h))
	assert.True(t, s.Contains(h))
	assert.Equal(t, 1, s.Len())
}

func TestSetEvictsOldest(t *testing.T) {
	s := NewSet(2)
	a, b, c := common.HexToHash("0x1"), common.HexToHash("0x2"), common.HexToHash("0x3")

	s.Add(a)
	s.Add(b)
	s.Add(c)

	assert.False(t, s.Contains(a))
	assert.True(t, s.Contains(b))
	assert.True(t, s.Contains(c))
	assert.Equal(t, 2, s.Len())
}

func TestSetDefaultCapacity(t *testing.T) {
	s := NewSet(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		s.Add(common.BigToHash(big.NewInt(int64(i))))
	}
	assert.Equal(t, DefaultCapacity, s.Len())
}
