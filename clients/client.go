package clients

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	hoptypes "github.com/tkeith/wallet-hopper-2/types"
)

// Wallet is the payer's signing capability on the currently selected chain.
type Wallet interface {
	ChainID(ctx context.Context) (int64, error)

	// Addresses requests account access; the first entry is the active account.
	Addresses(ctx context.Context) ([]common.Address, error)

	SendTransaction(ctx context.Context, call hoptypes.Call) (common.Hash, error)
}

// ChainReader reads transaction receipts. It returns ethereum.NotFound while a
// transaction is not yet mined.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// NetworkNotifier is implemented by wallets that can report a network switch.
// The channel carries the new chain id and is closed when ctx ends.
type NetworkNotifier interface {
	NetworkChanges(ctx context.Context) (<-chan int64, error)
}

// Submitter sends a single write. WalletActor is the production implementation.
type Submitter interface {
	Submit(ctx context.Context, call hoptypes.Call) (common.Hash, error)
}
