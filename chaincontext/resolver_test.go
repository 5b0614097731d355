package chaincontext

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkeith/wallet-hopper-2/types"
)

const registryAddr = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

type fakeWallet struct {
	chainID      atomic.Int64
	addressCalls atomic.Int32
	accounts     []common.Address
	err          error
	gate         chan struct{}
	changes      chan int64
}

func newFakeWallet(chainID int64) *fakeWallet {
	w := &fakeWallet{accounts: []common.Address{common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")}}
	w.chainID.Store(chainID)
	return w
}

func (w *fakeWallet) ChainID(context.Context) (int64, error) { return w.chainID.Load(), nil }

func (w *fakeWallet) Addresses(context.Context) ([]common.Address, error) {
	w.addressCalls.Add(1)
	if w.gate != nil {
		<-w.gate
	}
	if w.err != nil {
		return nil, w.err
	}
	return w.accounts, nil
}

func (w *fakeWallet) SendTransaction(context.Context, types.Call) (common.Hash, error) {
	return common.Hash{}, errors.New("not used")
}

type notifyingWallet struct {
	*fakeWallet
}

func (w notifyingWallet) NetworkChanges(context.Context) (<-chan int64, error) {
	return w.changes, nil
}

func TestResolve_ConcurrentCallersShareOneAccountRequest(t *testing.T) {
	wallet := newFakeWallet(137)
	wallet.gate = make(chan struct{})
	r := NewResolver(wallet, map[int64]string{137: registryAddr}, nil)

	const callers = 8
	results := make([]*types.ChainContext, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := r.Resolve(context.Background())
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}

	// let the callers pile up behind the first account request
	time.Sleep(20 * time.Millisecond)
	close(wallet.gate)
	wg.Wait()

	assert.Equal(t, int32(1), wallet.addressCalls.Load())
	for _, c := range results {
		assert.Same(t, results[0], c)
	}

	c, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], c)
	assert.Equal(t, int32(1), wallet.addressCalls.Load())

	assert.Equal(t, types.ChainPolygon, c.Chain.Name)
	assert.Equal(t, "https://polygonscan.com", c.Chain.ExplorerURL)
	require.NotNil(t, c.Contract)
	assert.Equal(t, common.HexToAddress(registryAddr), *c.Contract)
	assert.True(t, c.CanWrite())
}

func TestResolve_LateFlightReusesCachedContext(t *testing.T) {
	wallet := newFakeWallet(137)
	r := NewResolver(wallet, map[int64]string{137: registryAddr}, nil)

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), wallet.addressCalls.Load())

	// a caller that saw an empty cache before the first flight finished
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	late, err := r.flight(context.Background(), session)
	require.NoError(t, err)

	assert.Same(t, first, late)
	assert.Equal(t, int32(1), wallet.addressCalls.Load())
}

func TestResolve_UnsupportedChainHasNoContract(t *testing.T) {
	r := NewResolver(newFakeWallet(1), map[int64]string{137: registryAddr}, nil)

	c, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.ChainEthereum, c.Chain.Name)
	assert.Nil(t, c.Contract)
	assert.False(t, c.CanWrite())
}

func TestResolve_UnknownNetwork(t *testing.T) {
	r := NewResolver(newFakeWallet(31337), nil, nil)

	c, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "chain-31337", c.Chain.Name)
	assert.Empty(t, c.Chain.ExplorerURL)
}

func TestResolve_WalletUnavailable(t *testing.T) {
	r := NewResolver(nil, nil, nil)
	_, err := r.Resolve(context.Background())
	assert.True(t, types.IsCode(err, types.ErrWalletUnavailable))

	wallet := newFakeWallet(137)
	wallet.accounts = nil
	r = NewResolver(wallet, nil, nil)
	_, err = r.Resolve(context.Background())
	assert.True(t, types.IsCode(err, types.ErrWalletUnavailable))
}

func TestResolve_FailuresAreNotCached(t *testing.T) {
	wallet := newFakeWallet(137)
	wallet.err = errors.New("wallet locked")
	r := NewResolver(wallet, nil, nil)

	_, err := r.Resolve(context.Background())
	require.Error(t, err)

	wallet.err = nil
	c, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, int32(2), wallet.addressCalls.Load())
}

func TestInvalidate_StartsNewSession(t *testing.T) {
	wallet := newFakeWallet(137)
	r := NewResolver(wallet, nil, nil)

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)

	wallet.chainID.Store(1)
	r.Invalidate()

	second, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, int64(1), second.ChainID)
	assert.Equal(t, int64(137), first.ChainID)
	assert.Equal(t, int32(2), wallet.addressCalls.Load())
}

func TestWatch_InvalidatesOnNetworkChange(t *testing.T) {
	inner := newFakeWallet(137)
	inner.changes = make(chan int64)
	wallet := notifyingWallet{inner}
	r := NewResolver(wallet, nil, nil)

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- r.Watch(context.Background()) }()

	inner.chainID.Store(1)
	inner.changes <- 1
	close(inner.changes)
	require.NoError(t, <-done)

	second, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, types.ChainEthereum, second.Chain.Name)
}

func TestWatch_WithoutNotifier(t *testing.T) {
	r := NewResolver(newFakeWallet(137), nil, nil)
	assert.NoError(t, r.Watch(context.Background()))
}

func TestNewResolver_SkipsInvalidRegistryAddress(t *testing.T) {
	r := NewResolver(newFakeWallet(137), map[int64]string{137: "not-an-address"}, nil)

	c, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.False(t, c.CanWrite())
}
