package preferences

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tkeith/wallet-hopper-2/types"
)

// ContentStore persists serialized documents durably and returns a handle
// that can later be anchored on-chain.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// HTTPContentStore posts documents to the storage service, which pins them
// and answers with a content id.
type HTTPContentStore struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPContentStore(storeURL string, timeout time.Duration) *HTTPContentStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPContentStore{URL: storeURL, HTTP: &http.Client{Timeout: timeout}}
}

func (s *HTTPContentStore) Put(ctx context.Context, data []byte) (string, error) {
	body, err := json.Marshal(map[string]string{"data": string(data)})
	if err != nil {
		return "", fmt.Errorf("encode store request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return "", types.NewError(types.ErrStorageUnavailable, "failed to build store request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrStorageUnavailable, "storage service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", types.Errorf(types.ErrStorageUnavailable, "storage service returned %d", resp.StatusCode)
	}

	var out struct {
		CID string `json:"cid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewError(types.ErrStorageUnavailable, "invalid storage response", err)
	}
	if out.CID == "" {
		return "", types.Errorf(types.ErrStorageUnavailable, "storage service returned no content id")
	}
	return out.CID, nil
}
