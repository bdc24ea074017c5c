package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetwork struct {
	chainID     uint64
	chainErr    error
	switchErr   error
	switchCalls []uint64
}

func (f *fakeNetwork) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, f.chainErr
}

func (f *fakeNetwork) SwitchChain(ctx context.Context, chainID uint64) error {
	f.switchCalls = append(f.switchCalls, chainID)
	if f.switchErr != nil {
		return f.switchErr
	}
	f.chainID = chainID
	return nil
}

func TestEnsureNetworkAlreadyCorrect(t *testing.T) {
	n := &fakeNetwork{chainID: 1946}
	g := New(n, 1946, nil)

	require.NoError(t, g.EnsureNetwork(context.Background()))
	require.NoError(t, g.EnsureNetwork(context.Background()))
	assert.Empty(t, n.switchCalls)
}

func TestEnsureNetworkSwitches(t *testing.T) {
	n := &fakeNetwork{chainID: 1}
	g := New(n, 1946, nil)

	require.NoError(t, g.EnsureNetwork(context.Background()))
	assert.Equal(t, []uint64{1946}, n.switchCalls)
	assert.Equal(t, uint64(1946), n.chainID)
}

func TestEnsureNetworkSwitchRejected(t *testing.T) {
	rejected := errors.New("user rejected")
	n := &fakeNetwork{chainID: 1, switchErr: rejected}
	g := New(n, 1946, nil)

	err := g.EnsureNetwork(context.Background())
	require.ErrorIs(t, err, ErrWrongNetwork)
	require.ErrorIs(t, err, rejected)
	assert.Equal(t, uint64(1), n.chainID)
}

func TestEnsureNetworkReadFailure(t *testing.T) {
	disconnected := errors.New("disconnected")
	n := &fakeNetwork{chainErr: disconnected}
	g := New(n, 1946, nil)

	err := g.EnsureNetwork(context.Background())
	require.ErrorIs(t, err, ErrWrongNetwork)
	require.ErrorIs(t, err, disconnected)
	assert.Empty(t, n.switchCalls)
}
