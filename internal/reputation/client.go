package reputation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opencomm/shrike/internal/domain"
)

// HTTPBackend implements domain.ReputationBackend against the shared
// community reputation service.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend client. The request timeout must stay
// well under the screening pipeline timeout so a slow backend degrades to
// a cache miss instead of a pipeline stall.
func NewHTTPBackend(cfg domain.BackendConfig) *HTTPBackend {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &HTTPBackend{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Lookup fetches the community verdict for a number. A 404 means the
// backend has never seen the number.
func (b *HTTPBackend) Lookup(ctx context.Context, number string) (*domain.NumberInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/v1/lookup/"+url.PathEscape(number), nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
		var info domain.NumberInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return nil, fmt.Errorf("failed to decode lookup response: %w", err)
		}
		return &info, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: lookup returned status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}
}

// ReportSpam submits one spam report upstream.
func (b *HTTPBackend) ReportSpam(ctx context.Context, number string, reason string) error {
	body, err := json.Marshal(map[string]string{
		"number": number,
		"reason": reason,
	})
	if err != nil {
		return err
	}

	return b.post(ctx, "/v1/spam/report", body)
}

// GetBlocklist fetches the shared blocklist.
func (b *HTTPBackend) GetBlocklist(ctx context.Context) ([]domain.BlockEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/blocklist", nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: blocklist returned status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}

	var entries []domain.BlockEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode blocklist: %w", err)
	}
	return entries, nil
}

// AddBlock adds a number to the shared blocklist.
func (b *HTTPBackend) AddBlock(ctx context.Context, number string, note string) error {
	body, err := json.Marshal(map[string]string{
		"number": number,
		"note":   note,
	})
	if err != nil {
		return err
	}

	return b.post(ctx, "/v1/blocklist", body)
}

// RemoveBlock removes a number from the shared blocklist.
func (b *HTTPBackend) RemoveBlock(ctx context.Context, number string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		b.baseURL+"/v1/blocklist/"+url.PathEscape(number), nil)
	if err != nil {
		return err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: remove block returned status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}
	return nil
}

func (b *HTTPBackend) post(ctx context.Context, path string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %s returned status %d", domain.ErrBackendUnavailable, path, resp.StatusCode)
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
