// Package server implements the merchant-side payment middleware: an A2A
// executor that wraps business logic, intercepts its payment demands, and
// runs the verify-execute-settle pipeline for submitted payments.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	x402 "github.com/google-a2a/a2a-x402-go"
	"github.com/google-a2a/a2a-x402-go/a2a"
	"github.com/google-a2a/a2a-x402-go/facilitator"
)

// PaymentVerifiedKey is set to true in the request context metadata before
// the delegate runs for a verified payment, so business logic can distinguish
// the paid invocation from the initial one.
const PaymentVerifiedKey = "x402_payment_verified"

// Config configures the payment executor.
type Config struct {
	// Facilitator verifies and settles payments (required unless
	// FacilitatorURL is set).
	Facilitator facilitator.Interface

	// FacilitatorURL builds an HTTP facilitator client when Facilitator is
	// nil. There is no default URL; one of the two must be provided.
	FacilitatorURL string

	// Timeouts bound verification and settlement; DefaultTimeouts when zero.
	Timeouts x402.TimeoutConfig

	// Required enforces payment handling even when the caller did not
	// activate the extension. When false, unactivated requests bypass the
	// middleware entirely.
	Required bool

	// MatchRequirement overrides the default scheme+network matching of a
	// submitted payment against the stored payment options.
	MatchRequirement func(payload *x402.PaymentPayload, accepts []x402.PaymentRequirements) (*x402.PaymentRequirements, bool)

	// OnPaymentEvent receives lifecycle events for logging and monitoring.
	OnPaymentEvent x402.PaymentCallback

	// Logger receives structured logs; slog.Default() when nil.
	Logger *slog.Logger
}

// PaymentExecutor wraps a business-logic executor with the payment pipeline.
type PaymentExecutor struct {
	delegate a2a.Executor
	fac      facilitator.Interface
	store    RequirementsStore
	cfg      Config
	log      *slog.Logger
}

var _ a2a.Executor = (*PaymentExecutor)(nil)

// NewPaymentExecutor wraps delegate with payment handling.
func NewPaymentExecutor(delegate a2a.Executor, cfg Config, opts ...Option) (*PaymentExecutor, error) {
	if delegate == nil {
		return nil, errors.New("server: nil delegate executor")
	}
	fac := cfg.Facilitator
	if fac == nil {
		if cfg.FacilitatorURL == "" {
			return nil, errors.New("server: a facilitator or facilitator URL is required")
		}
		fac = newHTTPFacilitator(cfg.FacilitatorURL, cfg.Timeouts)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &PaymentExecutor{
		delegate: delegate,
		fac:      fac,
		store:    NewMemoryRequirementsStore(),
		cfg:      cfg,
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Option customizes a PaymentExecutor.
type Option func(*PaymentExecutor)

// WithRequirementsStore replaces the default in-memory requirements store.
func WithRequirementsStore(store RequirementsStore) Option {
	return func(e *PaymentExecutor) { e.store = store }
}

// Execute runs one invocation through the payment pipeline. Payment failures
// are reported as payment-failed task states, never as returned errors; a
// returned error means the event queue or the unpaid delegate failed.
func (e *PaymentExecutor) Execute(ctx context.Context, rc *a2a.RequestContext, queue a2a.EventQueue) error {
	if !e.cfg.Required && !rc.ExtensionActivated(x402.ExtensionURI) {
		return e.delegate.Execute(ctx, rc, queue)
	}

	task := rc.CurrentTask
	if task == nil {
		task = a2a.NewTask(rc.Message)
		rc.CurrentTask = task
		rc.TaskID = task.ID
	}

	if e.isPaymentSubmission(rc, task) {
		return e.handleSubmission(ctx, rc, task, queue)
	}
	return e.handleInitial(ctx, rc, task, queue)
}

// Cancel forwards cancellation to the delegate and drops any pending payment
// requirements for the task.
func (e *PaymentExecutor) Cancel(ctx context.Context, rc *a2a.RequestContext, queue a2a.EventQueue) error {
	if rc.TaskID != "" {
		e.store.Delete(rc.TaskID)
	}
	return e.delegate.Cancel(ctx, rc, queue)
}

// isPaymentSubmission reports whether this invocation carries a payment: the
// inbound message or the task is marked payment-submitted.
func (e *PaymentExecutor) isPaymentSubmission(rc *a2a.RequestContext, task *a2a.Task) bool {
	if x402.GetMessagePaymentStatus(rc.Message) == x402.PaymentStatusSubmitted {
		return true
	}
	return x402.GetTaskPaymentStatus(task) == x402.PaymentStatusSubmitted
}

// handleInitial runs the delegate and translates a payment demand into the
// payment-required task state.
func (e *PaymentExecutor) handleInitial(ctx context.Context, rc *a2a.RequestContext, task *a2a.Task, queue a2a.EventQueue) error {
	if task.Status.State == a2a.TaskStateSubmitted {
		task.SetStatus(a2a.TaskStateWorking, nil)
	}
	err := e.delegate.Execute(ctx, rc, queue)
	if err == nil {
		return nil
	}

	var demand *x402.PaymentRequiredError
	if !errors.As(err, &demand) {
		return err
	}
	if len(demand.Accepts) == 0 {
		return fmt.Errorf("server: payment demanded with no accepted options")
	}

	e.store.Put(task.ID, demand.Accepts)
	if err := x402.CreatePaymentRequiredTask(task, demand.Response()); err != nil {
		e.store.Delete(task.ID)
		return err
	}

	e.log.InfoContext(ctx, "payment required",
		"task", task.ID,
		"options", len(demand.Accepts))
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventRequired,
		Timestamp: time.Now(),
		TaskID:    task.ID,
	})
	return queue.Enqueue(ctx, task)
}

// handleSubmission runs the verify-execute-settle pipeline for a submitted
// payment. Every failure path records a payment-failed state on the task and
// enqueues it; errors escape only when the queue itself fails.
func (e *PaymentExecutor) handleSubmission(ctx context.Context, rc *a2a.RequestContext, task *a2a.Task, queue a2a.EventQueue) error {
	if task.Status.State != a2a.TaskStateWorking {
		task.SetStatus(a2a.TaskStateWorking, nil)
	}

	payload, err := e.locatePayload(rc, task)
	if err != nil || payload == nil {
		return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidSignature, "Missing payment data", "")
	}

	accepts, ok := e.store.Get(task.ID)
	if !ok {
		return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidSignature, "Missing payment requirements", payload.Network)
	}
	req, ok := e.matchRequirement(payload, accepts)
	if !ok {
		return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidAmount, "No matching payment requirements", payload.Network)
	}

	if x402.GetTaskPaymentStatus(task) != x402.PaymentStatusSubmitted {
		if err := x402.RecordPaymentSubmission(task, payload); err != nil {
			return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidSignature, err.Error(), payload.Network)
		}
	}
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventAttempt,
		Timestamp: time.Now(),
		TaskID:    task.ID,
		Amount:    req.MaxAmountRequired,
		Asset:     req.Asset,
		Network:   req.Network,
		Scheme:    req.Scheme,
	})

	verify, err := facilitator.Verify(ctx, e.fac, e.cfg.Timeouts.VerifyTimeout, *payload, *req)
	if err != nil {
		e.log.ErrorContext(ctx, "payment verification error", "task", task.ID, "err", err)
		return e.failPayment(ctx, task, queue, x402.ErrCodeSettlementFailed, "Verification error: "+err.Error(), req.Network)
	}
	if !verify.IsValid {
		reason := verify.InvalidReason
		if reason == "" {
			reason = "Payment verification failed"
		}
		return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidSignature, reason, req.Network)
	}
	if err := x402.RecordPaymentVerified(task); err != nil {
		return e.failPayment(ctx, task, queue, x402.ErrCodeInvalidSignature, err.Error(), req.Network)
	}
	if err := queue.Enqueue(ctx, task); err != nil {
		return err
	}

	if rc.Message != nil {
		if rc.Message.Metadata == nil {
			rc.Message.Metadata = make(map[string]interface{})
		}
		rc.Message.Metadata[PaymentVerifiedKey] = true
	}
	if err := e.delegate.Execute(ctx, rc, queue); err != nil {
		e.log.ErrorContext(ctx, "paid service execution failed", "task", task.ID, "err", err)
		return e.failPayment(ctx, task, queue, x402.ErrCodeSettlementFailed, "Service failed: "+err.Error(), req.Network)
	}

	receipt := facilitator.Settle(ctx, e.fac, e.cfg.Timeouts.SettleTimeout, *payload, *req)
	if !receipt.Success {
		code := x402.ErrCodeSettlementFailed
		if strings.Contains(strings.ToLower(receipt.ErrorReason), "insufficient") {
			code = x402.ErrCodeInsufficientFunds
		}
		return e.failWithReceipt(ctx, task, queue, code, receipt)
	}

	if err := x402.RecordPaymentSuccess(task, receipt); err != nil {
		return e.failWithReceipt(ctx, task, queue, x402.ErrCodeSettlementFailed, receipt)
	}
	e.store.Delete(task.ID)
	if task.Status.State == a2a.TaskStateWorking {
		task.SetStatus(a2a.TaskStateCompleted, task.Status.Message)
	}

	e.log.InfoContext(ctx, "payment settled",
		"task", task.ID,
		"network", receipt.Network,
		"tx", receipt.Transaction)
	e.emit(x402.PaymentEvent{
		Type:        x402.PaymentEventSuccess,
		Timestamp:   time.Now(),
		TaskID:      task.ID,
		Amount:      req.MaxAmountRequired,
		Asset:       req.Asset,
		Network:     receipt.Network,
		Scheme:      req.Scheme,
		Payer:       receipt.Payer,
		Transaction: receipt.Transaction,
	})
	return queue.Enqueue(ctx, task)
}

// locatePayload finds the submitted payment payload, preferring the task
// metadata and falling back to the inbound message.
func (e *PaymentExecutor) locatePayload(rc *a2a.RequestContext, task *a2a.Task) (*x402.PaymentPayload, error) {
	payload, err := x402.GetTaskPaymentPayload(task)
	if err != nil || payload != nil {
		return payload, err
	}
	return x402.GetMessagePaymentPayload(rc.Message)
}

// matchRequirement pairs the submitted payload with the stored option it
// satisfies, by scheme and network unless the config overrides matching.
func (e *PaymentExecutor) matchRequirement(payload *x402.PaymentPayload, accepts []x402.PaymentRequirements) (*x402.PaymentRequirements, bool) {
	if e.cfg.MatchRequirement != nil {
		return e.cfg.MatchRequirement(payload, accepts)
	}
	for i := range accepts {
		if accepts[i].Scheme == payload.Scheme && accepts[i].Network == payload.Network {
			return &accepts[i], true
		}
	}
	return nil, false
}

// failPayment records a terminal payment failure with a synthesized receipt.
func (e *PaymentExecutor) failPayment(ctx context.Context, task *a2a.Task, queue a2a.EventQueue, code x402.ErrorCode, reason, network string) error {
	receipt := &x402.SettleResponse{
		Success:     false,
		ErrorReason: reason,
		Network:     network,
	}
	return e.failWithReceipt(ctx, task, queue, code, receipt)
}

func (e *PaymentExecutor) failWithReceipt(ctx context.Context, task *a2a.Task, queue a2a.EventQueue, code x402.ErrorCode, receipt *x402.SettleResponse) error {
	if err := x402.RecordPaymentFailure(task, code, receipt); err != nil {
		e.log.ErrorContext(ctx, "recording payment failure", "task", task.ID, "err", err)
	}
	e.store.Delete(task.ID)
	task.SetStatus(a2a.TaskStateFailed, task.Status.Message)

	e.log.WarnContext(ctx, "payment failed",
		"task", task.ID,
		"code", code,
		"reason", receipt.ErrorReason)
	e.emit(x402.PaymentEvent{
		Type:      x402.PaymentEventFailure,
		Timestamp: time.Now(),
		TaskID:    task.ID,
		Network:   receipt.Network,
		Code:      code,
		Error:     errors.New(receipt.ErrorReason),
	})
	return queue.Enqueue(ctx, task)
}

func (e *PaymentExecutor) emit(event x402.PaymentEvent) {
	if e.cfg.OnPaymentEvent != nil {
		e.cfg.OnPaymentEvent(event)
	}
}
