package remediation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/types"
	"golang.org/x/time/rate"
)

// QuoteRequest asks the aggregator to route Amount of Src into Dst.
type QuoteRequest struct {
	ChainID  int64
	Src      common.Address
	Dst      common.Address
	Amount   *big.Int
	From     common.Address
	Slippage float64
}

// Quote is a ready to submit swap.
type Quote struct {
	URL      string
	ToAmount *big.Int
	Tx       types.Call
}

// Quoter returns swap quotes.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

// QuoteClient talks to a 1inch v5.2 compatible aggregator.
type QuoteClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	metrics metrics.Recorder
}

// NewQuoteClient limits outgoing requests to ratePerSecond; zero means no limit.
func NewQuoteClient(baseURL, apiKey string, ratePerSecond float64, timeout time.Duration, rec metrics.Recorder) *QuoteClient {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &QuoteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		metrics: rec,
	}
}

type swapResponse struct {
	ToAmount string `json:"toAmount"`
	Tx       struct {
		From  string `json:"from"`
		To    string `json:"to"`
		Data  string `json:"data"`
		Value string `json:"value"`
	} `json:"tx"`
}

// SwapURL builds the aggregator swap request URL.
func (c *QuoteClient) SwapURL(req QuoteRequest) string {
	params := url.Values{}
	params.Set("src", req.Src.Hex())
	params.Set("dst", req.Dst.Hex())
	params.Set("amount", req.Amount.String())
	params.Set("from", req.From.Hex())
	params.Set("slippage", strconv.FormatFloat(req.Slippage, 'f', -1, 64))
	params.Set("disableEstimate", "false")
	params.Set("includeTokensInfo", "true")
	params.Set("includeProtocols", "true")
	params.Set("compatibility", "true")
	params.Set("allowPartialFill", "false")
	return fmt.Sprintf("%s/%d/swap?%s", c.baseURL, req.ChainID, params.Encode())
}

func (c *QuoteClient) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	labels := map[string]string{"chain": strconv.FormatInt(req.ChainID, 10)}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrQuoteUnavailable, "quote rate limit wait aborted", err)
	}

	start := time.Now()
	q, err := c.quote(ctx, req)
	c.metrics.ObserveLatency(metrics.QuoteRequest, time.Since(start), labels)
	if err != nil {
		labels["outcome"] = "failed"
		c.metrics.IncCounter(metrics.QuoteRequest, labels)
		return nil, err
	}
	labels["outcome"] = "ok"
	c.metrics.IncCounter(metrics.QuoteRequest, labels)
	return q, nil
}

func (c *QuoteClient) quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	u := c.SwapURL(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.NewError(types.ErrQuoteUnavailable, "failed to build quote request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, types.NewError(types.ErrQuoteUnavailable, "quote request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, types.Errorf(types.ErrQuoteUnavailable, "aggregator returned %d", resp.StatusCode)
	}

	var out swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewError(types.ErrQuoteUnavailable, "invalid quote response", err)
	}

	toAmount, ok := new(big.Int).SetString(out.ToAmount, 10)
	if !ok || toAmount.Sign() <= 0 {
		return nil, types.Errorf(types.ErrQuoteUnavailable, "quote has no output amount")
	}
	if !common.IsHexAddress(out.Tx.To) {
		return nil, types.Errorf(types.ErrQuoteUnavailable, "quote has no transaction target")
	}
	data, err := hexutil.Decode(out.Tx.Data)
	if err != nil {
		return nil, types.NewError(types.ErrQuoteUnavailable, "quote calldata is not hex", err)
	}
	value := new(big.Int)
	if out.Tx.Value != "" {
		if _, ok := value.SetString(out.Tx.Value, 0); !ok {
			return nil, types.Errorf(types.ErrQuoteUnavailable, "quote value %q is not a number", out.Tx.Value)
		}
	}

	return &Quote{
		URL:      u,
		ToAmount: toAmount,
		Tx: types.Call{
			To:    common.HexToAddress(out.Tx.To),
			Data:  data,
			Value: value,
		},
	}, nil
}
