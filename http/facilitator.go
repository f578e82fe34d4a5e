// Package http provides HTTP plumbing for the payment extension: the
// facilitator client and extension-activation middleware adapters for common
// routers.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	x402 "github.com/google-a2a/a2a-x402-go"
	"github.com/google-a2a/a2a-x402-go/facilitator"
)

// FacilitatorRequest is the request body for facilitator verify and settle
// calls.
type FacilitatorRequest struct {
	X402Version         int                      `json:"x402Version"`
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}

// FacilitatorClient talks to a remote facilitator service over HTTP. It
// implements facilitator.Interface.
type FacilitatorClient struct {
	// BaseURL is the facilitator service base URL (required).
	BaseURL string

	// Client is the HTTP client; http.DefaultClient when nil.
	Client *http.Client

	// Timeouts bound verify and settle calls; DefaultTimeouts when zero.
	Timeouts x402.TimeoutConfig

	// Authorization is a static Authorization header value.
	Authorization string

	// AuthorizationProvider generates per-request Authorization header
	// values, overriding Authorization when set.
	AuthorizationProvider func(ctx context.Context) (string, error)

	// Logger receives request logs; slog.Default() when nil.
	Logger *slog.Logger
}

var _ facilitator.Interface = (*FacilitatorClient)(nil)

// NewFacilitatorClient creates a facilitator client with default timeouts.
func NewFacilitatorClient(baseURL string) *FacilitatorClient {
	return &FacilitatorClient{
		BaseURL:  baseURL,
		Client:   &http.Client{Timeout: x402.DefaultTimeouts.RequestTimeout},
		Timeouts: x402.DefaultTimeouts,
	}
}

// Verify submits a payment for verification.
func (c *FacilitatorClient) Verify(ctx context.Context, payload x402.PaymentPayload, req x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	timeout := c.Timeouts.VerifyTimeout
	if timeout <= 0 {
		timeout = x402.DefaultTimeouts.VerifyTimeout
	}
	var out x402.VerifyResponse
	if err := c.post(ctx, "/verify", timeout, payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle submits a payment for settlement.
func (c *FacilitatorClient) Settle(ctx context.Context, payload x402.PaymentPayload, req x402.PaymentRequirements) (*x402.SettleResponse, error) {
	timeout := c.Timeouts.SettleTimeout
	if timeout <= 0 {
		timeout = x402.DefaultTimeouts.SettleTimeout
	}
	var out x402.SettleResponse
	if err := c.post(ctx, "/settle", timeout, payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FacilitatorClient) post(ctx context.Context, path string, timeout time.Duration, payload x402.PaymentPayload, req x402.PaymentRequirements, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(FacilitatorRequest{
		X402Version:         x402.X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: req,
	})
	if err != nil {
		return fmt.Errorf("facilitator: marshal request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("facilitator: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	auth := c.Authorization
	if c.AuthorizationProvider != nil {
		auth, err = c.AuthorizationProvider(ctx)
		if err != nil {
			return fmt.Errorf("facilitator: authorization: %w", err)
		}
	}
	if auth != "" {
		httpReq.Header.Set("Authorization", auth)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger().DebugContext(ctx, "facilitator request",
		"path", path,
		"status", resp.StatusCode,
		"network", payload.Network,
		"scheme", payload.Scheme,
		"duration", time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", x402.ErrFacilitatorUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d: %s", x402.ErrFacilitatorUnavailable, path, resp.StatusCode, truncate(data, 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", x402.ErrFacilitatorUnavailable, err)
	}
	return nil
}

func (c *FacilitatorClient) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}
