package x402

import (
	"fmt"
	"time"
)

// TimeoutConfig holds timeout configuration for payment operations.
type TimeoutConfig struct {
	// VerifyTimeout is the maximum time to wait for payment verification.
	VerifyTimeout time.Duration

	// SettleTimeout is the maximum time to wait for payment settlement.
	// Settlement may take tens of seconds for on-chain confirmation.
	SettleTimeout time.Duration

	// RequestTimeout is the overall timeout for facilitator HTTP requests.
	RequestTimeout time.Duration
}

// DefaultTimeouts provides the protocol defaults: verification is bounded at
// 15 seconds, settlement is facilitator-dependent.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  15 * time.Second,
	SettleTimeout:  60 * time.Second,
	RequestTimeout: 120 * time.Second,
}

// WithVerifyTimeout returns a new TimeoutConfig with updated verify timeout.
func (tc TimeoutConfig) WithVerifyTimeout(d time.Duration) TimeoutConfig {
	tc.VerifyTimeout = d
	return tc
}

// WithSettleTimeout returns a new TimeoutConfig with updated settle timeout.
func (tc TimeoutConfig) WithSettleTimeout(d time.Duration) TimeoutConfig {
	tc.SettleTimeout = d
	return tc
}

// Validate ensures timeout values are reasonable.
func (tc TimeoutConfig) Validate() error {
	if tc.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %v", tc.VerifyTimeout)
	}
	if tc.SettleTimeout <= 0 {
		return fmt.Errorf("settle timeout must be positive, got %v", tc.SettleTimeout)
	}
	if tc.SettleTimeout < tc.VerifyTimeout {
		return fmt.Errorf("settle timeout (%v) should be >= verify timeout (%v)",
			tc.SettleTimeout, tc.VerifyTimeout)
	}
	return nil
}
