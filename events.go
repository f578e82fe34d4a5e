package x402

import "time"

// PaymentEventType represents the type of payment lifecycle event.
type PaymentEventType string

const (
	// PaymentEventRequired indicates a payment demand was issued or observed.
	PaymentEventRequired PaymentEventType = "required"

	// PaymentEventAttempt indicates a payment is being signed or verified.
	PaymentEventAttempt PaymentEventType = "attempt"

	// PaymentEventSuccess indicates a payment settled successfully.
	PaymentEventSuccess PaymentEventType = "success"

	// PaymentEventFailure indicates a payment failed terminally.
	PaymentEventFailure PaymentEventType = "failure"
)

// PaymentEvent is a payment lifecycle notification emitted by the server and
// client middlewares for logging and monitoring.
type PaymentEvent struct {
	// Type is the event type.
	Type PaymentEventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// TaskID correlates the event with its A2A task.
	TaskID string

	// Amount is the payment amount in atomic units.
	Amount string

	// Asset is the token or asset identifier.
	Asset string

	// Network is the settlement network identifier.
	Network string

	// Scheme is the payment scheme.
	Scheme string

	// Payer is the paying address, when known.
	Payer string

	// Transaction is the settlement transaction reference, when known.
	Transaction string

	// Code is the protocol error code on failure.
	Code ErrorCode

	// Error contains error details on failure.
	Error error
}

// PaymentCallback handles payment events. Callbacks run synchronously inside
// the payment flow and should return quickly.
type PaymentCallback func(PaymentEvent)
