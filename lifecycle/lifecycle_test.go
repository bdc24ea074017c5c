package lifecycle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/lotto-client/types"
)

func TestLifecycleHappyPath(t *testing.T) {
	l := New(types.Spin, nil)
	hash := common.HexToHash("0x01")

	require.NoError(t, l.Begin())
	assert.Equal(t, types.AwaitingSignature, l.Snapshot().Status)

	require.NoError(t, l.Submitted(hash))
	require.NoError(t, l.Confirming(hash))
	require.NoError(t, l.Confirm(hash))

	state := l.Snapshot()
	assert.Equal(t, types.Confirmed, state.Status)
	assert.Equal(t, hash, state.Hash)
	assert.False(t, state.Processed)
}

func TestLifecycleRejectsSecondBegin(t *testing.T) {
	l := New(types.Claim, nil)
	require.NoError(t, l.Begin())

	require.ErrorIs(t, l.Begin(), ErrInFlight)
	require.NoError(t, l.Submitted(common.HexToHash("0x02")))
	require.ErrorIs(t, l.Begin(), ErrInFlight)
	require.NoError(t, l.Confirming(common.HexToHash("0x02")))
	require.ErrorIs(t, l.Begin(), ErrInFlight)

	assert.Equal(t, common.HexToHash("0x02"), l.Snapshot().Hash)
}

func TestLifecycleNewOperationAfterTerminal(t *testing.T) {
	l := New(types.BuyTicket, nil)
	first := common.HexToHash("0x01")

	require.NoError(t, l.Begin())
	require.NoError(t, l.Submitted(first))
	require.NoError(t, l.Confirming(first))
	require.NoError(t, l.Confirm(first))
	require.True(t, l.MarkProcessed(first))

	require.NoError(t, l.Begin())
	state := l.Snapshot()
	assert.Equal(t, common.Hash{}, state.Hash)
	assert.False(t, state.Processed)
}

func TestLifecycleFailBeforeHashResetsToIdle(t *testing.T) {
	l := New(types.Spin, nil)
	require.NoError(t, l.Begin())

	l.Fail(errors.New("user rejected"))

	state := l.Snapshot()
	assert.Equal(t, types.Idle, state.Status)
	assert.Equal(t, "user rejected", state.Error)
	require.NoError(t, l.Begin())
}

func TestLifecycleFailAfterHashStaysFailed(t *testing.T) {
	l := New(types.Spin, nil)
	hash := common.HexToHash("0x03")
	require.NoError(t, l.Begin())
	require.NoError(t, l.Submitted(hash))
	require.NoError(t, l.Confirming(hash))

	l.Fail(ErrReverted)

	state := l.Snapshot()
	assert.Equal(t, types.Failed, state.Status)
	assert.Equal(t, hash, state.Hash)
	require.NoError(t, l.Begin())
}

func TestLifecycleInvalidTransitions(t *testing.T) {
	l := New(types.Spin, nil)

	require.ErrorIs(t, l.Submitted(common.HexToHash("0x01")), ErrInvalidTransition)
	require.ErrorIs(t, l.Confirm(common.Hash{}), ErrInvalidTransition)

	require.NoError(t, l.Begin())
	require.NoError(t, l.Submitted(common.HexToHash("0x01")))
	require.ErrorIs(t, l.Confirming(common.HexToHash("0x02")), ErrHashMismatch)
	require.ErrorIs(t, l.Confirm(common.HexToHash("0x01")), ErrInvalidTransition)
}

func TestLifecycleFailWhenIdleIsNoop(t *testing.T) {
	l := New(types.Spin, nil)
	l.Fail(errors.New("late"))
	assert.Equal(t, types.Idle, l.Snapshot().Status)
	assert.Empty(t, l.Snapshot().Error)
}

func TestMarkProcessedOncePerHash(t *testing.T) {
	l := New(types.Spin, nil)
	hash := common.HexToHash("0x04")
	require.NoError(t, l.Begin())
	require.NoError(t, l.Submitted(hash))

	for i := 0; i < 5; i++ {
		got := l.MarkProcessed(hash)
		assert.Equal(t, i == 0, got)
	}
	assert.True(t, l.Snapshot().Processed)
}
