package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/bookedly/replica/internal/models"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxTries = 3
)

// HTTPClient implements Store over a JSON HTTP API. Request bodies are
// zstd-compressed; transient failures are retried with exponential backoff
// inside the caller's deadline.
type HTTPClient struct {
	baseURL  string
	token    string
	client   *http.Client
	timeout  time.Duration
	maxTries uint
	encoder  *zstd.Encoder
}

// HTTPOption customizes the client.
type HTTPOption func(*HTTPClient)

// WithTimeout bounds every remote call. A stalled remote must not wedge a
// Pushing/Pulling state forever.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.timeout = d }
}

// WithMaxTries caps retry attempts per call.
func WithMaxTries(n uint) HTTPOption {
	return func(c *HTTPClient) { c.maxTries = n }
}

// NewHTTPClient creates a client for the remote store at baseURL. token is
// sent as a bearer credential when non-empty.
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) (*HTTPClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	c := &HTTPClient{
		baseURL:  baseURL,
		token:    token,
		client:   &http.Client{},
		timeout:  defaultTimeout,
		maxTries: defaultMaxTries,
		encoder:  encoder,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Push uploads the record for its (tenant, data type) pair, overwriting
// the previous one.
func (c *HTTPClient) Push(ctx context.Context, rec models.SyncRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	compressed := c.encoder.EncodeAll(body, nil)
	endpoint := fmt.Sprintf("%s/v1/tenants/%s/records/%s",
		c.baseURL, url.PathEscape(rec.TenantID), url.PathEscape(rec.DataType.String()))

	operation := func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(compressed))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "zstd")
		c.authorize(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return struct{}{}, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			// Client errors will not heal on retry
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode))
		default:
			return struct{}{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
	}

	if _, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries)); err != nil {
		return err
	}

	log.Debug().
		Str("tenant_id", rec.TenantID).
		Str("data_type", rec.DataType.String()).
		Int("payload_bytes", len(rec.Payload)).
		Msg("record pushed")

	return nil
}

// Pull lists the newest record per data type for the tenant, newest-first.
func (c *HTTPClient) Pull(ctx context.Context, tenantID string) ([]models.SyncRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/tenants/%s/records", c.baseURL, url.PathEscape(tenantID))

	operation := func() ([]models.SyncRecord, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		c.authorize(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, resp.Body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode))
			}
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}

		var records []models.SyncRecord
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode records: %w", err)
		}

		return records, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries))
}

// Ping implements Pinger via the health endpoint.
func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
