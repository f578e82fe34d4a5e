// Package client implements the buyer-side payment middleware: an A2A
// executor wrapper that watches for payment demands on outgoing task updates
// and answers them by signing with a configured wallet.
package client

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	x402 "github.com/google-a2a/a2a-x402-go"
	"github.com/google-a2a/a2a-x402-go/a2a"
)

// Config configures the auto-pay executor.
type Config struct {
	// Wallet signs payment authorizations (required when AutoPay is on).
	Wallet x402.Wallet

	// AutoPay enables automatic signing of payment demands. When off, the
	// executor surfaces demands untouched for a human or caller to handle.
	AutoPay bool

	// MaxValue caps the atomic amount a single auto-payment may authorize.
	// Nil means no cap.
	MaxValue *big.Int

	// OnPaymentEvent receives lifecycle events for logging and monitoring.
	OnPaymentEvent x402.PaymentCallback

	// Logger receives structured logs; slog.Default() when nil.
	Logger *slog.Logger
}

// AutoPayExecutor wraps a consumer-side executor and pays its way through
// payment-required interruptions.
type AutoPayExecutor struct {
	delegate a2a.Executor
	cfg      Config
	log      *slog.Logger
}

var _ a2a.Executor = (*AutoPayExecutor)(nil)

// NewAutoPayExecutor wraps delegate with automatic payment handling.
func NewAutoPayExecutor(delegate a2a.Executor, cfg Config) (*AutoPayExecutor, error) {
	if delegate == nil {
		return nil, errors.New("client: nil delegate executor")
	}
	if cfg.AutoPay && cfg.Wallet == nil {
		return nil, errors.New("client: auto-pay requires a wallet")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AutoPayExecutor{delegate: delegate, cfg: cfg, log: log}, nil
}

// capturingQueue forwards events while remembering the last task seen, so
// the wrapper can inspect the outcome of the delegate run.
type capturingQueue struct {
	inner a2a.EventQueue
	task  *a2a.Task
}

func (q *capturingQueue) Enqueue(ctx context.Context, event a2a.Event) error {
	if t, ok := event.(*a2a.Task); ok {
		q.task = t
	}
	return q.inner.Enqueue(ctx, event)
}

// Execute runs the delegate and, when its final task demands payment, signs
// and submits a payment message. Signing failures become a payment-failed
// task state; the demand is never silently dropped.
func (e *AutoPayExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue a2a.EventQueue) error {
	capture := &capturingQueue{inner: queue}
	if err := e.delegate.Execute(ctx, rc, capture); err != nil {
		return err
	}

	task := capture.task
	if task == nil || x402.GetTaskPaymentStatus(task) != x402.PaymentStatusRequired {
		return nil
	}

	required, err := x402.GetPaymentRequirements(task)
	if err != nil {
		// A demand that cannot be decoded cannot be answered or surfaced
		// for manual handling. Fail the payment rather than drop it.
		e.log.WarnContext(ctx, "payment demanded with unreadable requirements", "task", task.ID, "err", err)
		return e.failPayment(ctx, task, queue, err)
	}
	if required == nil {
		e.log.WarnContext(ctx, "payment demanded without requirements", "task", task.ID)
		return nil
	}
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventRequired,
		Timestamp: time.Now(),
		TaskID:    task.ID,
	})
	if !e.cfg.AutoPay {
		return nil
	}

	payload, err := x402.ProcessPaymentRequired(required, e.cfg.Wallet, e.cfg.MaxValue)
	if err != nil {
		return e.failPayment(ctx, task, queue, err)
	}

	payloadObj, err := x402.ToMetadataValue(payload)
	if err != nil {
		return e.failPayment(ctx, task, queue, err)
	}
	msg := a2a.NewUserMessage(task.ID, task.ContextID)
	msg.Metadata = map[string]interface{}{
		x402.MetadataStatusKey:  string(x402.PaymentStatusSubmitted),
		x402.MetadataPayloadKey: payloadObj,
	}

	e.log.InfoContext(ctx, "payment signed",
		"task", task.ID,
		"network", payload.Network,
		"scheme", payload.Scheme)
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventAttempt,
		Timestamp: time.Now(),
		TaskID:    task.ID,
		Network:   payload.Network,
		Scheme:    payload.Scheme,
	})
	return queue.Enqueue(ctx, msg)
}

// Cancel forwards cancellation to the delegate.
func (e *AutoPayExecutor) Cancel(ctx context.Context, rc *a2a.RequestContext, queue a2a.EventQueue) error {
	return e.delegate.Cancel(ctx, rc, queue)
}

// failPayment marks the task payment-failed after a local signing problem.
// No facilitator was involved, so the receipt is synthesized.
func (e *AutoPayExecutor) failPayment(ctx context.Context, task *a2a.Task, queue a2a.EventQueue, cause error) error {
	receipt := &x402.SettleResponse{
		Success:     false,
		ErrorReason: cause.Error(),
	}
	if err := x402.RecordPaymentFailure(task, x402.ErrCodeInvalidSignature, receipt); err != nil {
		e.log.ErrorContext(ctx, "recording payment failure", "task", task.ID, "err", err)
	}
	task.SetStatus(a2a.TaskStateFailed, task.Status.Message)

	e.log.WarnContext(ctx, "auto-pay failed", "task", task.ID, "err", cause)
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		TaskID:    task.ID,
		Code:      x402.ErrCodeInvalidSignature,
		Error:     cause,
	})
	return queue.Enqueue(ctx, task)
}

func (e *AutoPayExecutor) emit(event x402.PaymentEvent) {
	if e.cfg.OnPaymentEvent != nil {
		e.cfg.OnPaymentEvent(event)
	}
}
