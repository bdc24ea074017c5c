package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrUserRejected is returned when the signer declines a request.
	ErrUserRejected = errors.New("request rejected by wallet")

	ErrUnknownChain = errors.New("no endpoint configured for chain")
)

// TxRequest is an unsigned contract call handed to the wallet.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Wallet is the account provider the client submits through. It owns the
// keys; callers only ever see addresses and transaction hashes.
type Wallet interface {
	Account() common.Address
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
}

// Backend is the subset of ethclient.Client the keyed wallet needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// DialFunc connects a backend to an endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Backend, error)

func dialEthclient(ctx context.Context, endpoint string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

var _ Wallet = &KeyedWallet{}

// KeyedWallet signs with a local private key against one of a set of
// per-chain endpoints.
type KeyedWallet struct {
	mu        sync.Mutex
	key       *ecdsa.PrivateKey
	account   common.Address
	backend   Backend
	chainId   *big.Int
	endpoints map[uint64]string
	spendCap  *big.Int
	dial      DialFunc
	logger    *slog.Logger
}

type KeyedWalletOpts struct {
	// PrivateKey is the hex encoded secp256k1 key, with or without 0x.
	PrivateKey string
	// Endpoint is dialled first; its chain becomes the current network.
	Endpoint string
	// Endpoints maps chain ids the wallet can switch to onto RPC urls.
	Endpoints map[uint64]string
	// SpendCap rejects requests whose value exceeds it. Nil disables the cap.
	SpendCap *big.Int
	Dial     DialFunc
	Logger   *slog.Logger
}

func NewKeyedWallet(ctx context.Context, opts KeyedWalletOpts) (*KeyedWallet, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dial == nil {
		opts.Dial = dialEthclient
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(opts.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	backend, err := opts.Dial(ctx, opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect wallet backend: %w", err)
	}

	chainId, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	endpoints := make(map[uint64]string, len(opts.Endpoints)+1)
	for id, endpoint := range opts.Endpoints {
		endpoints[id] = endpoint
	}
	if _, ok := endpoints[chainId.Uint64()]; !ok {
		endpoints[chainId.Uint64()] = opts.Endpoint
	}

	w := &KeyedWallet{
		key:       key,
		account:   crypto.PubkeyToAddress(key.PublicKey),
		backend:   backend,
		chainId:   chainId,
		endpoints: endpoints,
		spendCap:  opts.SpendCap,
		dial:      opts.Dial,
		logger:    opts.Logger,
	}

	w.logger.Info("wallet ready", "account", w.account.Hex(), "chainId", chainId)

	return w, nil
}

func (w *KeyedWallet) Account() common.Address {
	return w.account
}

func (w *KeyedWallet) ChainID(ctx context.Context) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainId.Uint64(), nil
}

// SwitchChain reconnects the wallet to the endpoint registered for chainID.
func (w *KeyedWallet) SwitchChain(ctx context.Context, chainID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.chainId.Uint64() == chainID {
		return nil
	}

	endpoint, ok := w.endpoints[chainID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}

	backend, err := w.dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to chain %d: %w", chainID, err)
	}

	remote, err := backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chainId: %w", err)
	}
	if remote.Uint64() != chainID {
		return fmt.Errorf("endpoint for chain %d reports chain %d", chainID, remote.Uint64())
	}

	w.logger.Info("switched network", "from", w.chainId, "to", chainID)
	w.backend = backend
	w.chainId = remote
	return nil
}

// SendTransaction builds, signs and broadcasts a dynamic fee transaction.
func (w *KeyedWallet) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	if w.spendCap != nil && value.Cmp(w.spendCap) > 0 {
		return common.Hash{}, fmt.Errorf("%w: value %s exceeds spend cap %s", ErrUserRejected, value, w.spendCap)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.account)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas tip: %w", err)
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := req.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.account,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainId,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      req.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainId), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.logger.Debug("transaction sent", "txHash", signed.Hash().Hex(), "nonce", nonce, "value", value)

	return signed.Hash(), nil
}
