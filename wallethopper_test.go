package wallethopper

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkeith/wallet-hopper-2/pipeline"
	"github.com/tkeith/wallet-hopper-2/remediation"
	"github.com/tkeith/wallet-hopper-2/types"
)

var (
	payer     = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	recipient = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	registry  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	router    = common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582")
)

// testWallet is a wallet on a fixed chain whose transactions are mined at once.
type testWallet struct {
	chainID int64

	mu   sync.Mutex
	sent []types.Call
}

func (w *testWallet) ChainID(context.Context) (int64, error) { return w.chainID, nil }

func (w *testWallet) Addresses(context.Context) ([]common.Address, error) {
	return []common.Address{payer}, nil
}

func (w *testWallet) SendTransaction(_ context.Context, call types.Call) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, call)
	return common.BigToHash(big.NewInt(int64(len(w.sent)))), nil
}

func (w *testWallet) TransactionReceipt(_ context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(1)}, nil
}

func (w *testWallet) calls() []types.Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]types.Call(nil), w.sent...)
}

type stubQuoter struct{}

func (stubQuoter) Quote(_ context.Context, req remediation.QuoteRequest) (*remediation.Quote, error) {
	return &remediation.Quote{
		URL:      "https://aggregator.test/1/swap",
		ToAmount: big.NewInt(1_650_000),
		Tx:       types.Call{To: router, Data: []byte{0x12, 0xaa}, Value: req.Amount},
	}, nil
}

// services serves the lookup and store endpoints. Documents are keyed by user address.
type services struct {
	mu     sync.Mutex
	docs   map[string]string
	stored []string
}

func (s *services) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/api/wallet-meta":
		data, ok := s.docs[r.URL.Query().Get("userAddress")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"data": data})
	case "/api/store":
		var body struct {
			Data string `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.stored = append(s.stored, body.Data)
		_ = json.NewEncoder(w).Encode(map[string]string{"cid": "bafy-test"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newHopper(t *testing.T, svc *services, wallet *testWallet, opts ...Option) *Hopper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(svc.handler))
	t.Cleanup(srv.Close)

	config := types.DefaultConfig()
	config.LookupURL = srv.URL + "/api/wallet-meta"
	config.StoreURL = srv.URL + "/api/store"
	config.CacheTTL = 0
	config.PointerRegistry = map[int64]string{1: registry.Hex()}

	noSleep := func(context.Context, time.Duration) error { return nil }
	opts = append([]Option{
		WithWallet(wallet),
		WithQuoteClient(stubQuoter{}),
		WithClock(noSleep, func() time.Time { return time.Unix(1_694_347_200, 0) }),
	}, opts...)

	h, err := New(config, opts...)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func recipientDoc(chain, symbol string) string {
	return `{"timestamp":"2023-09-10T12:00:00.000Z","primaryAddress":"` + recipient.Hex() +
		`","primaryChain":"` + chain + `","preferredAssets":[{"chain":"` + chain + `","address":"` + recipient.Hex() +
		`","symbol":"` + symbol + `"}],"addresses":[],"attestations":{}}`
}

func TestCheckAndRemediateSwap(t *testing.T) {
	svc := &services{docs: map[string]string{recipient.Hex(): recipientDoc("ethereum", "USDC")}}
	wallet := &testWallet{chainID: 1}

	var mu sync.Mutex
	var events []pipeline.Event
	h := newHopper(t, svc, wallet, WithEventSink(func(e pipeline.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))

	intent := types.PaymentIntent{DestinationAddress: recipient.Hex(), Asset: "ETH", Amount: "0.001"}
	result, err := h.Check(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, types.StatusNonCompliant, result.Status)
	assert.Equal(t, types.ReasonWrongAsset, result.Reason)
	require.NotNil(t, result.Action)
	assert.Equal(t, types.ActionSwap, result.Action.Kind)

	outcome, err := h.Remediate(context.Background(), intent, result)
	require.NoError(t, err)
	require.Len(t, outcome.Transactions, 2)
	for _, tx := range outcome.Transactions {
		assert.Equal(t, types.TxConfirmed, tx.State)
		assert.Equal(t, "ethereum", tx.Chain)
	}
	assert.Equal(t, "https://aggregator.test/1/swap", outcome.Action.Swap.AggregatorQuoteURL)

	sent := wallet.calls()
	require.Len(t, sent, 2)
	assert.Equal(t, router, sent[0].To)
	usdc, _ := types.LookupToken("USDC", "ethereum")
	assert.Equal(t, usdc.Address, sent[1].To)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, events)
	assert.Equal(t, types.TxConfirmed, events[len(events)-1].State)
}

func TestCheckUnknownRecipientThenSend(t *testing.T) {
	svc := &services{docs: map[string]string{}}
	wallet := &testWallet{chainID: 137}
	h := newHopper(t, svc, wallet)

	intent := types.PaymentIntent{DestinationAddress: recipient.Hex(), Asset: "USDC", Amount: "2"}
	result, err := h.Check(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, types.StatusUnknown, result.Status)
	assert.Nil(t, result.Action)

	_, err = h.Remediate(context.Background(), intent, result)
	assert.True(t, types.IsCode(err, types.ErrInvalidIntent))

	handle, err := h.Send(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, handle.State)
	assert.Equal(t, int64(137), handle.ChainID)
	require.Len(t, wallet.calls(), 1)
}

func TestCheckRejectsInvalidIntent(t *testing.T) {
	h := newHopper(t, &services{}, &testWallet{chainID: 1})

	_, err := h.Check(context.Background(), types.PaymentIntent{DestinationAddress: recipient.Hex(), Asset: "USDC", Amount: "-1"})
	assert.True(t, types.IsCode(err, types.ErrInvalidIntent))
}

func TestDraftAndPublish(t *testing.T) {
	svc := &services{docs: map[string]string{}}
	wallet := &testWallet{chainID: 1}
	h := newHopper(t, svc, wallet)

	draft, err := h.Draft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, payer.Hex(), draft.PrimaryAddress)
	assert.Equal(t, "ethereum", draft.PrimaryChain)

	text, err := json.Marshal(draft)
	require.NoError(t, err)

	result, err := h.Publish(context.Background(), string(text))
	require.NoError(t, err)
	assert.Equal(t, "ipfs:bafy-test", result.Pointer)
	assert.Contains(t, result.ExplorerURL, "https://etherscan.io/tx/")

	require.Len(t, svc.stored, 1)
	sent := wallet.calls()
	require.Len(t, sent, 1)
	assert.Equal(t, registry, sent[0].To)
}

func TestPublishOnChainWithoutRegistry(t *testing.T) {
	svc := &services{docs: map[string]string{}}
	wallet := &testWallet{chainID: 137}
	h := newHopper(t, svc, wallet)

	_, err := h.Publish(context.Background(), recipientDoc("polygon", "USDC"))
	assert.True(t, types.IsCode(err, types.ErrUnsupportedChain))
	assert.Empty(t, svc.stored)
	assert.Empty(t, wallet.calls())
}

func TestNewRequiresWallet(t *testing.T) {
	_, err := New(types.DefaultConfig())
	assert.True(t, types.IsCode(err, types.ErrWalletUnavailable))

	bad := types.DefaultConfig()
	bad.LookupURL = ""
	_, err = New(bad, WithWallet(&testWallet{chainID: 1}))
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}
