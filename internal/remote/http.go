package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/comptoirlabs/comptoir-backend/pkg/config"
	"github.com/comptoirlabs/comptoir-backend/pkg/logger"
	"github.com/comptoirlabs/comptoir-backend/pkg/state"
)

const transientRetries = 2

// HTTPClient talks to the remote state service's REST surface.
type HTTPClient struct {
	base    string
	token   string
	client  *http.Client
	logg    *logger.Logger
	backoff time.Duration
}

type stateEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// NewHTTPClient builds a remote client from the device configuration.
func NewHTTPClient(cfg config.RemoteConfig, deviceToken string, logg *logger.Logger) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("remote base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid remote base url: %w", err)
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		base:    base,
		token:   deviceToken,
		client:  &http.Client{Timeout: timeout},
		logg:    logg,
		backoff: 500 * time.Millisecond,
	}, nil
}

// Fetch reads the full canonical document.
func (c *HTTPClient) Fetch(ctx context.Context, restaurantID string) (*state.AppState, error) {
	var doc *state.AppState

	backoff := retry.WithMaxRetries(transientRetries, retry.NewConstant(c.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodGet, c.stateURL(restaurantID), nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("fetching state: unexpected status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: reading body: %v", ErrUnavailable, err))
		}
		var envelope stateEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("decoding state envelope: %w", err)
		}
		decoded, err := state.Decode(envelope.Data)
		if err != nil {
			return fmt.Errorf("decoding state document: %w", err)
		}
		doc = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Upsert writes the full document; the server applies a blind overwrite.
func (c *HTTPClient) Upsert(ctx context.Context, restaurantID string, doc *state.AppState) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding state document: %w", err)
	}

	backoff := retry.WithMaxRetries(transientRetries, retry.NewConstant(c.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := c.newRequest(ctx, http.MethodPut, c.stateURL(restaurantID), bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode))
		case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent:
			return fmt.Errorf("upserting state: unexpected status %d", resp.StatusCode)
		}
		return nil
	})
}

func (c *HTTPClient) stateURL(restaurantID string) string {
	return c.base + "/v1/state/" + url.PathEscape(restaurantID)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
