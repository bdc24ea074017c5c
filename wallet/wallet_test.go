package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu      sync.Mutex
	chainId int64
	nonce   uint64
	sent    []*types.Transaction
	sendErr error
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(f.chainId), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func (f *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(10), BaseFee: big.NewInt(500)}, nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 90_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func newTestWallet(t *testing.T, backends map[string]*fakeBackend, opts KeyedWalletOpts) *KeyedWallet {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	opts.PrivateKey = "0x" + hex.EncodeToString(crypto.FromECDSA(key))
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Dial = func(ctx context.Context, endpoint string) (Backend, error) {
		b, ok := backends[endpoint]
		if !ok {
			return nil, errors.New("dial failed")
		}
		return b, nil
	}

	w, err := NewKeyedWallet(context.Background(), opts)
	require.NoError(t, err)
	return w
}

func TestSendTransactionSignsForCurrentChain(t *testing.T) {
	backend := &fakeBackend{chainId: 1946, nonce: 7}
	w := newTestWallet(t, map[string]*fakeBackend{"http://minato": backend}, KeyedWalletOpts{Endpoint: "http://minato"})

	to := common.HexToAddress("0x5799fe0F34BAeab3D1c756023E46D3019FDFE6D8")
	hash, err := w.SendTransaction(context.Background(), TxRequest{To: to, Data: []byte{1, 2, 3, 4}, Value: big.NewInt(1234)})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, tx.Hash(), hash)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, int64(1234), tx.Value().Int64())
	assert.Equal(t, int64(1_000_000+1000), tx.GasFeeCap().Int64())
	assert.Equal(t, &to, tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1946)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Account(), sender)
}

func TestSendTransactionSpendCapRejects(t *testing.T) {
	backend := &fakeBackend{chainId: 1946}
	w := newTestWallet(t, map[string]*fakeBackend{"http://minato": backend}, KeyedWalletOpts{
		Endpoint: "http://minato",
		SpendCap: big.NewInt(100),
	})

	_, err := w.SendTransaction(context.Background(), TxRequest{Value: big.NewInt(101)})
	require.ErrorIs(t, err, ErrUserRejected)
	assert.Empty(t, backend.sent)
}

func TestSendTransactionBroadcastError(t *testing.T) {
	backend := &fakeBackend{chainId: 1946, sendErr: errors.New("insufficient funds")}
	w := newTestWallet(t, map[string]*fakeBackend{"http://minato": backend}, KeyedWalletOpts{Endpoint: "http://minato"})

	_, err := w.SendTransaction(context.Background(), TxRequest{Value: big.NewInt(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserRejected)
}

func TestSwitchChain(t *testing.T) {
	mainnet := &fakeBackend{chainId: 1}
	minato := &fakeBackend{chainId: 1946}
	w := newTestWallet(t, map[string]*fakeBackend{
		"http://mainnet": mainnet,
		"http://minato":  minato,
	}, KeyedWalletOpts{
		Endpoint:  "http://mainnet",
		Endpoints: map[uint64]string{1946: "http://minato"},
	})

	id, err := w.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.NoError(t, w.SwitchChain(context.Background(), 1946))
	id, err = w.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1946), id)

	// already there
	require.NoError(t, w.SwitchChain(context.Background(), 1946))

	_, err = w.SendTransaction(context.Background(), TxRequest{Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Len(t, minato.sent, 1)
	assert.Empty(t, mainnet.sent)
}

func TestSwitchChainUnknown(t *testing.T) {
	w := newTestWallet(t, map[string]*fakeBackend{"http://mainnet": {chainId: 1}}, KeyedWalletOpts{Endpoint: "http://mainnet"})

	err := w.SwitchChain(context.Background(), 1946)
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestSwitchChainMismatchedEndpoint(t *testing.T) {
	w := newTestWallet(t, map[string]*fakeBackend{
		"http://mainnet": {chainId: 1},
		"http://wrong":   {chainId: 5},
	}, KeyedWalletOpts{
		Endpoint:  "http://mainnet",
		Endpoints: map[uint64]string{1946: "http://wrong"},
	})

	require.Error(t, w.SwitchChain(context.Background(), 1946))
	id, _ := w.ChainID(context.Background())
	assert.Equal(t, uint64(1), id)
}
