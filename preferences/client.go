// Package preferences fetches and publishes recipient preference documents.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tkeith/wallet-hopper-2/logger"
	"github.com/tkeith/wallet-hopper-2/metrics"
	"github.com/tkeith/wallet-hopper-2/types"
	"github.com/tkeith/wallet-hopper-2/utils"
)

// maximum size of a lookup response body
const maxResponseBytes = 1 << 20

// LookupQuery selects a preference document. Blockchain and TokenAddress
// narrow the lookup to one registry deployment.
type LookupQuery struct {
	UserAddress  string
	Blockchain   string
	TokenAddress string
}

func (q LookupQuery) cacheKey() string {
	return strings.ToLower(q.UserAddress) + "|" + strings.ToLower(q.Blockchain) + "|" + strings.ToLower(q.TokenAddress)
}

// Client talks to the preference lookup service and a ContentStore.
type Client struct {
	lookupURL string
	http      *http.Client
	store     ContentStore
	cache     Cache
	log       logger.Logger
	metrics   metrics.Recorder
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func WithCache(c Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.metrics = r
		}
	}
}

// NewClient builds a client for lookupURL persisting through store.
func NewClient(lookupURL string, store ContentStore, opts ...Option) *Client {
	c := &Client{
		lookupURL: lookupURL,
		http:      &http.Client{Timeout: 30 * time.Second},
		store:     store,
		log:       logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type lookupResponse struct {
	Data string `json:"data"`
}

// Fetch returns the document for q. A missing or undecodable document is
// PREFERENCES_NOT_FOUND; transport failures are STORAGE_UNAVAILABLE.
func (c *Client) Fetch(ctx context.Context, q LookupQuery) (*types.PreferenceDocument, error) {
	if strings.TrimSpace(q.UserAddress) == "" {
		return nil, types.Errorf(types.ErrInvalidIntent, "user address is required")
	}

	if c.cache != nil {
		if doc, ok := c.cache.Get(ctx, q.cacheKey()); ok {
			c.metrics.IncCounter(metrics.PreferenceFetch, map[string]string{"outcome": "cache_hit"})
			return doc, nil
		}
	}

	start := time.Now()
	doc, err := c.fetch(ctx, q)
	outcome := "found"
	if err != nil {
		outcome = strings.ToLower(types.CodeOf(err))
	}
	c.metrics.IncCounter(metrics.PreferenceFetch, map[string]string{"outcome": outcome})
	c.metrics.ObserveLatency(metrics.PreferenceFetch, time.Since(start), map[string]string{"outcome": outcome})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, q.cacheKey(), doc)
	}
	return doc, nil
}

func (c *Client) fetch(ctx context.Context, q LookupQuery) (*types.PreferenceDocument, error) {
	u, err := url.Parse(c.lookupURL)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, "invalid lookup url", err)
	}
	params := u.Query()
	params.Set("userAddress", q.UserAddress)
	if q.Blockchain != "" {
		params.Set("blockchain", q.Blockchain)
	}
	if q.TokenAddress != "" {
		params.Set("tokenAddress", q.TokenAddress)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.NewError(types.ErrStorageUnavailable, "failed to build lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("preference lookup failed", map[string]any{"error": err})
		return nil, types.NewError(types.ErrStorageUnavailable, "preference lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.Errorf(types.ErrPreferencesNotFound, "no preferences for %s", q.UserAddress)
	}
	if resp.StatusCode >= 300 {
		return nil, types.Errorf(types.ErrStorageUnavailable, "lookup service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, types.NewError(types.ErrStorageUnavailable, "failed to read lookup response", err)
	}

	var out lookupResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Data == "" {
		return nil, types.Errorf(types.ErrPreferencesNotFound, "no preferences for %s", q.UserAddress)
	}

	var doc types.PreferenceDocument
	if err := json.Unmarshal([]byte(out.Data), &doc); err != nil {
		c.log.Debug("undecodable preference payload", map[string]any{"user": q.UserAddress, "error": err})
		return nil, types.NewError(types.ErrPreferencesNotFound, fmt.Sprintf("no preferences for %s", q.UserAddress), err)
	}
	if doc.Timestamp == "" {
		return nil, types.Errorf(types.ErrPreferencesNotFound, "no preferences for %s", q.UserAddress)
	}
	return &doc, nil
}

// Publish serializes doc and persists it, returning the content handle.
func (c *Client) Publish(ctx context.Context, doc *types.PreferenceDocument) (string, error) {
	if c.store == nil {
		return "", types.Errorf(types.ErrConfigError, "no content store configured")
	}

	data, err := utils.SerializePreferenceDocument(doc)
	if err != nil {
		return "", types.NewError(types.ErrInvalidDocument, "failed to serialize document", err)
	}

	start := time.Now()
	handle, err := c.store.Put(ctx, data)
	outcome := "stored"
	if err != nil {
		outcome = "failed"
	}
	c.metrics.ObserveLatency(metrics.PreferencePublish, time.Since(start), map[string]string{"outcome": outcome})
	if err != nil {
		c.log.Error("preference publish failed", map[string]any{"error": err})
		if types.CodeOf(err) != "" {
			return "", err
		}
		return "", types.NewError(types.ErrStorageUnavailable, "failed to store document", err)
	}

	c.Evict(ctx, LookupQuery{UserAddress: doc.PrimaryAddress})
	c.log.Info("preference document stored", map[string]any{"handle": handle, "user": doc.PrimaryAddress})
	return handle, nil
}

// Evict drops the cached document for q.
func (c *Client) Evict(ctx context.Context, q LookupQuery) {
	if c.cache != nil {
		c.cache.Delete(ctx, q.cacheKey())
	}
}
