package x402

import (
	"errors"
	"fmt"
)

// Sentinel errors for x402 payment operations.
var (
	// ErrInvalidAmount indicates an amount string that is not a valid decimal.
	ErrInvalidAmount = errors.New("x402: invalid amount")

	// ErrAmountExceeded indicates the payment amount exceeds the configured budget.
	ErrAmountExceeded = errors.New("x402: payment amount exceeds budget")

	// ErrUnsupportedScheme indicates a scheme/network combination this helper
	// cannot sign. Spark and Cashu payments must be built with their
	// transport-specific helpers; the engine refuses to fabricate
	// out-of-band settlement evidence.
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")

	// ErrUnsupportedNetwork indicates a network with no registered configuration.
	ErrUnsupportedNetwork = errors.New("x402: invalid or unsupported network")

	// ErrUnsupportedVersion indicates an unknown x402 protocol version.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrInvalidRequirements indicates a payment requirement that violates its
	// schema (missing recipient, fractional satoshi amount, empty mints).
	ErrInvalidRequirements = errors.New("x402: invalid payment requirements")

	// ErrSigningFailed indicates the wallet failed to produce a signature.
	ErrSigningFailed = errors.New("x402: payment signing failed")

	// ErrInvalidKey indicates an invalid private key.
	ErrInvalidKey = errors.New("x402: invalid private key")

	// ErrInvalidMnemonic indicates an invalid BIP39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("x402: invalid mnemonic phrase")

	// ErrInvalidKeystore indicates an invalid or corrupted keystore file.
	ErrInvalidKeystore = errors.New("x402: invalid keystore file")

	// ErrFacilitatorUnavailable indicates the facilitator service could not be reached.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator service unavailable")

	// ErrVerificationFailed indicates payment verification failed.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrSettlementFailed indicates payment settlement failed.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")

	// ErrMalformedMetadata indicates task or message metadata that does not
	// decode into the expected payment structure.
	ErrMalformedMetadata = errors.New("x402: malformed payment metadata")

	// ErrInvalidState indicates a payment status transition not allowed by
	// the state machine.
	ErrInvalidState = errors.New("x402: invalid payment state transition")
)

// ErrorCode is a stable payment error code recorded in task metadata under
// the x402.payment.error key. The set is fixed by the protocol.
type ErrorCode string

const (
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidSignature  ErrorCode = "INVALID_SIGNATURE"
	ErrCodeExpiredPayment    ErrorCode = "EXPIRED_PAYMENT"
	ErrCodeDuplicateNonce    ErrorCode = "DUPLICATE_NONCE"
	ErrCodeNetworkMismatch   ErrorCode = "NETWORK_MISMATCH"
	ErrCodeInvalidAmount     ErrorCode = "INVALID_AMOUNT"
	ErrCodeSettlementFailed  ErrorCode = "SETTLEMENT_FAILED"
)

// PaymentError provides structured error information with a protocol code.
type PaymentError struct {
	// Code is the stable error code for programmatic handling.
	Code ErrorCode

	// Message is the human-readable error message.
	Message string

	// Details contains additional error context.
	Details map[string]interface{}

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds additional context to the error.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// CodeOf extracts the protocol error code from an error chain. Errors that
// carry no explicit code map to SETTLEMENT_FAILED.
func CodeOf(err error) ErrorCode {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	switch {
	case errors.Is(err, ErrAmountExceeded), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrUnsupportedVersion):
		return ErrCodeInvalidAmount
	case errors.Is(err, ErrSigningFailed), errors.Is(err, ErrInvalidRequirements):
		return ErrCodeInvalidSignature
	case errors.Is(err, ErrUnsupportedNetwork):
		return ErrCodeNetworkMismatch
	default:
		return ErrCodeSettlementFailed
	}
}

// PaymentRequiredError is the typed interrupt business logic returns to
// demand payment before the service is rendered. It is not a failure: the
// server middleware is the only component that handles it, translating it
// into a payment-required task state.
type PaymentRequiredError struct {
	// Accepts is the ordered list of acceptable payment requirements.
	// Always non-empty after construction.
	Accepts []PaymentRequirements

	// Message is the human-readable payment prompt.
	Message string

	// Code optionally refines why payment is being demanded.
	Code ErrorCode
}

// Error implements the error interface.
func (e *PaymentRequiredError) Error() string {
	if e.Message != "" {
		return "payment required: " + e.Message
	}
	return "payment required"
}

// Response converts the interrupt into the wire-level payment demand.
func (e *PaymentRequiredError) Response() *PaymentRequiredResponse {
	return &PaymentRequiredResponse{
		X402Version: X402Version,
		Accepts:     e.Accepts,
		Error:       e.Message,
	}
}

// RequirePayment builds a PaymentRequiredError from one or more explicit
// requirement alternatives.
func RequirePayment(message string, accepts ...PaymentRequirements) *PaymentRequiredError {
	return &PaymentRequiredError{
		Accepts: accepts,
		Message: message,
	}
}

// ServiceOption customizes RequirePaymentForService.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	network     string
	description string
	message     string
}

// WithServiceNetwork selects the settlement network (default "base").
func WithServiceNetwork(network string) ServiceOption {
	return func(c *serviceConfig) { c.network = network }
}

// WithServiceDescription sets the requirement description.
func WithServiceDescription(description string) ServiceOption {
	return func(c *serviceConfig) { c.description = description }
}

// WithServiceMessage sets the human-readable payment prompt.
func WithServiceMessage(message string) ServiceOption {
	return func(c *serviceConfig) { c.message = message }
}

// RequirePaymentForService builds the common single-option interrupt: a USD
// price payable in USDC to payTo for the named resource.
func RequirePaymentForService(price, payTo, resource string, opts ...ServiceOption) (*PaymentRequiredError, error) {
	cfg := serviceConfig{network: "base"}
	for _, opt := range opts {
		opt(&cfg)
	}

	req, err := NewEVMPaymentRequirements(EVMRequirementsConfig{
		Price:       price,
		Network:     cfg.network,
		PayTo:       payTo,
		Resource:    resource,
		Description: cfg.description,
	})
	if err != nil {
		return nil, err
	}

	message := cfg.message
	if message == "" {
		message = fmt.Sprintf("Payment of %s required for %s", price, resource)
	}

	return &PaymentRequiredError{
		Accepts: []PaymentRequirements{req},
		Message: message,
	}, nil
}
