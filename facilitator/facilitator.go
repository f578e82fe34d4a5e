// Package facilitator defines the settlement backend contract. A facilitator
// verifies signed payment authorizations and executes settlement on the
// payment network; the server middleware talks to one through this interface
// so that HTTP facilitators, in-process settlers, and test fakes are
// interchangeable.
package facilitator

import (
	"context"
	"time"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// Interface is the facilitator contract.
type Interface interface {
	// Verify checks a payment payload against the requirement it claims to
	// satisfy, without moving funds.
	Verify(ctx context.Context, payload x402.PaymentPayload, req x402.PaymentRequirements) (*x402.VerifyResponse, error)

	// Settle executes the payment. A non-nil response with Success false is
	// a settlement rejection, not a transport failure.
	Settle(ctx context.Context, payload x402.PaymentPayload, req x402.PaymentRequirements) (*x402.SettleResponse, error)
}

// Verify calls f.Verify under the configured verify timeout. A zero timeout
// falls back to the protocol default.
func Verify(ctx context.Context, f Interface, timeout time.Duration, payload x402.PaymentPayload, req x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if timeout <= 0 {
		timeout = x402.DefaultTimeouts.VerifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.Verify(ctx, payload, req)
}

// Settle calls f.Settle under the configured settle timeout and normalizes
// transport errors into a failed SettleResponse, so callers always have a
// receipt to record.
func Settle(ctx context.Context, f Interface, timeout time.Duration, payload x402.PaymentPayload, req x402.PaymentRequirements) *x402.SettleResponse {
	if timeout <= 0 {
		timeout = x402.DefaultTimeouts.SettleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.Settle(ctx, payload, req)
	if err != nil {
		return &x402.SettleResponse{
			Success:     false,
			ErrorReason: err.Error(),
			Network:     payload.Network,
		}
	}
	if resp == nil {
		return &x402.SettleResponse{
			Success:     false,
			ErrorReason: "facilitator returned no settlement response",
			Network:     payload.Network,
		}
	}
	if resp.Network == "" {
		resp.Network = payload.Network
	}
	return resp
}
