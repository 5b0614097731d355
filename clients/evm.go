package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	hoptypes "github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// Backend is the subset of ethclient.Client the EVM wallet needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var (
	_ Wallet          = (*EVMWallet)(nil)
	_ ChainReader     = (*EVMWallet)(nil)
	_ NetworkNotifier = (*EVMWallet)(nil)
)

const defaultNetworkPollInterval = 5 * time.Second

// EVMWallet signs with a local key and submits through a JSON-RPC node.
type EVMWallet struct {
	backend Backend
	closer  func()
	key     *ecdsa.PrivateKey
	address common.Address

	pollInterval time.Duration
}

// NewEVMWallet dials rpcURL and signs with the hex encoded private key.
func NewEVMWallet(rpcURL, privateKeyHex string) (*EVMWallet, error) {
	key, err := utils.PrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return nil, hoptypes.NewError(hoptypes.ErrConfigError, "invalid signer key", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, hoptypes.NewError(hoptypes.ErrWalletUnavailable, "failed to connect to RPC", err)
	}

	w := NewEVMWalletWithBackend(client, key)
	w.closer = client.Close
	return w, nil
}

// NewEVMWalletWithBackend wraps an existing backend.
func NewEVMWalletWithBackend(backend Backend, key *ecdsa.PrivateKey) *EVMWallet {
	return &EVMWallet{
		backend:      backend,
		key:          key,
		address:      utils.AddressFromPrivateKey(key),
		pollInterval: defaultNetworkPollInterval,
	}
}

// SetNetworkPollInterval changes how often NetworkChanges asks the node for its chain id.
func (w *EVMWallet) SetNetworkPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

func (w *EVMWallet) Address() common.Address { return w.address }

func (w *EVMWallet) ChainID(ctx context.Context) (int64, error) {
	id, err := w.backend.ChainID(ctx)
	if err != nil {
		return 0, hoptypes.NewError(hoptypes.ErrWalletUnavailable, "chain id fetch failed", err)
	}
	return id.Int64(), nil
}

func (w *EVMWallet) Addresses(context.Context) ([]common.Address, error) {
	return []common.Address{w.address}, nil
}

// SendTransaction estimates, signs and broadcasts call. London chains get a
// dynamic fee transaction, older ones a legacy EIP-155 one.
func (w *EVMWallet) SendTransaction(ctx context.Context, call hoptypes.Call) (common.Hash, error) {
	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain id fetch failed: %w", err)
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	gasLimit, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas failed: %w", err)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce failed: %w", err)
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header failed: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := w.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas tip failed: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      call.Data,
		})
	} else {
		gasPrice, err := w.backend.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("suggest gas price failed: %w", err)
		}
		tx = types.NewTransaction(nonce, to, value, gasLimit, gasPrice, call.Data)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx failed: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx failed: %w", err)
	}

	return signed.Hash(), nil
}

func (w *EVMWallet) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return w.backend.TransactionReceipt(ctx, hash)
}

// NetworkChanges polls the node's chain id and reports every change.
func (w *EVMWallet) NetworkChanges(ctx context.Context) (<-chan int64, error) {
	current, err := w.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan int64, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			id, err := w.ChainID(ctx)
			if err != nil || id == current {
				continue
			}
			current = id
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (w *EVMWallet) Close() {
	if w.closer != nil {
		w.closer()
	}
}

// IsNotFound reports whether err means the receipt is not available yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}
