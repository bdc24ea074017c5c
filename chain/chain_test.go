package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/lotto-client/contracts/lottery"
)

var contract = common.HexToAddress("0x5799fe0F34BAeab3D1c756023E46D3019FDFE6D8")

type fakeRPC struct {
	mu sync.Mutex

	head          uint64
	headFailures  int
	receipt       *types.Receipt
	receiptMisses int
	logs          []types.Log
	calls         map[string][]byte
	receiptCalls  int
	blockCalls    int
}

func (f *fakeRPC) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60, 0x80}, nil
}

func (f *fakeRPC) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed := lottery.ABI()
	method, err := parsed.MethodById(call.Data)
	if err != nil {
		return nil, err
	}
	out, ok := f.calls[method.Name]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeRPC) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(1946), nil
}

func (f *fakeRPC) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	if f.headFailures > 0 {
		f.headFailures--
		return 0, errors.New("connection reset")
	}
	return f.head, nil
}

func (f *fakeRPC) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	if f.receiptMisses > 0 || f.receipt == nil {
		f.receiptMisses--
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeRPC) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return f.logs, nil
}

func (f *fakeRPC) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("notifications not supported")
}

func newTestClient(t *testing.T, rpc *fakeRPC) *Client {
	t.Helper()
	c, err := NewClientWithRPC(context.Background(), rpc, ClientOpts{
		ContractAddress:     contract,
		RetryDelay:          time.Millisecond,
		ReceiptPollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientReadsChainID(t *testing.T) {
	c := newTestClient(t, &fakeRPC{})
	assert.Equal(t, int64(1946), c.ChainID().Int64())
	assert.Equal(t, contract, c.Contract())
}

func TestBlockNumberRetries(t *testing.T) {
	rpc := &fakeRPC{head: 42, headFailures: 2}
	c := newTestClient(t, rpc)

	head, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), head)
	assert.Equal(t, 3, rpc.blockCalls)
}

func TestBlockNumberGivesUp(t *testing.T) {
	rpc := &fakeRPC{headFailures: 100}
	c := newTestClient(t, rpc)

	_, err := c.BlockNumber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 5 attempts")
	assert.Equal(t, 5, rpc.blockCalls)
}

func TestWaitReceiptPollsUntilMined(t *testing.T) {
	hash := common.HexToHash("0x01")
	rpc := &fakeRPC{receipt: &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, receiptMisses: 3}
	c := newTestClient(t, rpc)

	receipt, err := c.WaitReceipt(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)
	assert.Equal(t, 4, rpc.receiptCalls)
}

func TestWaitReceiptHonoursContext(t *testing.T) {
	c := newTestClient(t, &fakeRPC{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.WaitReceipt(ctx, common.HexToHash("0x02"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContractReads(t *testing.T) {
	methods := lottery.ABI().Methods
	details, err := methods["getRoundDetails"].Outputs.Pack(big.NewInt(1_700_000_000), big.NewInt(600), big.NewInt(12), big.NewInt(333))
	require.NoError(t, err)
	winnings, err := methods["pendingWinnings"].Outputs.Pack(big.NewInt(77))
	require.NoError(t, err)
	credits, err := methods["ticketCredits"].Outputs.Pack(big.NewInt(2))
	require.NoError(t, err)
	cost, err := methods["getEthCost"].Outputs.Pack(big.NewInt(1_000))
	require.NoError(t, err)

	c := newTestClient(t, &fakeRPC{calls: map[string][]byte{
		"getRoundDetails": details,
		"pendingWinnings": winnings,
		"ticketCredits":   credits,
		"getEthCost":      cost,
	}})
	ctx := context.Background()
	user := common.HexToAddress("0xa1")

	rd, err := c.GetRoundDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), rd.EndTime.Int64())
	assert.Equal(t, int64(600), rd.Pool.Int64())
	assert.Equal(t, int64(12), rd.ParticipantsCount.Int64())
	assert.Equal(t, int64(333), rd.TicketPriceWei.Int64())

	w, err := c.PendingWinnings(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(77), w.Int64())

	n, err := c.TicketCredits(ctx, user, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.Int64())

	wei, err := c.EthCost(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), wei.Int64())
}

func TestSubscribeFilterLogsError(t *testing.T) {
	c := newTestClient(t, &fakeRPC{})
	_, err := c.SubscribeFilterLogs(context.Background(), ethereum.FilterQuery{}, make(chan types.Log))
	require.Error(t, err)
}
