// Package farcaster is a Neynar REST client for cast and user lookups and for
// publishing reply casts.
package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/montip/tipbot-middleware/pkg/config"
)

// ErrNotFound is returned when Neynar has no record of the requested entity.
var ErrNotFound = errors.New("farcaster: not found")

// Client talks to the Neynar API. All outbound calls go through a circuit
// breaker so a Neynar outage degrades fast instead of piling up goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	signerUUID string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a Neynar client.
func NewClient(cfg *config.FarcasterConfig, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "neynar",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Missing entities are an answer, not an outage.
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		signerUUID: cfg.SignerUUID,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    breaker,
		logger:     logger,
	}
}

// Cast fetches a cast by hash, including its author's verified addresses.
func (c *Client) Cast(ctx context.Context, hash string) (*Cast, error) {
	query := url.Values{}
	query.Set("identifier", hash)
	query.Set("type", "hash")

	var resp castResponse
	if err := c.get(ctx, "/v2/farcaster/cast", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch cast %s: %w", hash, err)
	}
	return &resp.Cast, nil
}

// User fetches a user by FID.
func (c *Client) User(ctx context.Context, fid int64) (*User, error) {
	query := url.Values{}
	query.Set("fids", fmt.Sprintf("%d", fid))

	var resp bulkUsersResponse
	if err := c.get(ctx, "/v2/farcaster/user/bulk", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", fid, err)
	}
	if len(resp.Users) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Users[0], nil
}

// PostReply publishes a reply cast under the given parent.
func (c *Client) PostReply(ctx context.Context, parentHash, text string) error {
	payload := publishCastRequest{
		SignerUUID: c.signerUUID,
		Text:       text,
		Parent:     parentHash,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cast: %w", err)
	}

	if err := c.do(ctx, http.MethodPost, "/v2/farcaster/cast", nil, body, nil); err != nil {
		return fmt.Errorf("failed to publish reply: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		endpoint := c.baseURL + path
		if len(query) > 0 {
			endpoint += "?" + query.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("neynar returned %d: %s", resp.StatusCode, string(data))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}
