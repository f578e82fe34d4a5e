package x402

import (
	"encoding/json"
	"fmt"

	"github.com/google-a2a/a2a-x402-go/a2a"
)

// PaymentStatus tracks where a task sits in the payment lifecycle. It is
// orthogonal to the A2A task state and recorded in metadata.
type PaymentStatus string

const (
	// PaymentStatusRequired means the merchant demanded payment and is
	// waiting for the client.
	PaymentStatusRequired PaymentStatus = "payment-required"

	// PaymentStatusSubmitted means the client sent a signed authorization
	// that has not been verified yet.
	PaymentStatusSubmitted PaymentStatus = "payment-submitted"

	// PaymentStatusPending means verification succeeded and settlement is in
	// flight.
	PaymentStatusPending PaymentStatus = "payment-pending"

	// PaymentStatusCompleted means settlement succeeded. Terminal.
	PaymentStatusCompleted PaymentStatus = "payment-completed"

	// PaymentStatusFailed means verification or settlement failed. Terminal.
	PaymentStatusFailed PaymentStatus = "payment-failed"

	// PaymentStatusRejected means the client declined to pay. Terminal.
	PaymentStatusRejected PaymentStatus = "payment-rejected"
)

// Terminal reports whether the status ends the payment lifecycle.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRejected:
		return true
	}
	return false
}

// Reserved metadata keys. All payment state travels under the "x402.payment."
// prefix in task and message metadata bags.
const (
	// MetadataStatusKey holds the PaymentStatus string.
	MetadataStatusKey = "x402.payment.status"

	// MetadataRequiredKey holds the PaymentRequiredResponse object.
	MetadataRequiredKey = "x402.payment.required"

	// MetadataPayloadKey holds the client's PaymentPayload object.
	MetadataPayloadKey = "x402.payment.payload"

	// MetadataReceiptsKey holds the array of SettleResponse receipts.
	MetadataReceiptsKey = "x402.payment.receipts"

	// MetadataReceiptLegacyKey is the deprecated singular receipt key. It is
	// read for compatibility but never written.
	MetadataReceiptLegacyKey = "x402.payment.receipt"

	// MetadataErrorKey holds the protocol error code string on failure.
	MetadataErrorKey = "x402.payment.error"
)

// paymentTransitions is the allowed edge set of the payment state machine.
// The empty key covers tasks with no payment state yet. Failure is reachable
// from there too: a submission arriving after a restart has no recorded state
// but must still end payment-failed with its error code and receipt.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	"":                     {PaymentStatusRequired, PaymentStatusFailed},
	PaymentStatusRequired:  {PaymentStatusSubmitted, PaymentStatusRejected, PaymentStatusFailed},
	PaymentStatusSubmitted: {PaymentStatusPending, PaymentStatusFailed},
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
}

func canTransition(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GetTaskPaymentStatus reads the payment status of a task, checking the task
// metadata first and the current status message's metadata second. Returns
// the empty status when no payment state is recorded.
func GetTaskPaymentStatus(task *a2a.Task) PaymentStatus {
	if task == nil {
		return ""
	}
	if s, ok := statusFromMetadata(task.Metadata); ok {
		return s
	}
	if task.Status.Message != nil {
		if s, ok := statusFromMetadata(task.Status.Message.Metadata); ok {
			return s
		}
	}
	return ""
}

// GetMessagePaymentStatus reads the payment status recorded on a message.
func GetMessagePaymentStatus(msg *a2a.Message) PaymentStatus {
	if msg == nil {
		return ""
	}
	s, _ := statusFromMetadata(msg.Metadata)
	return s
}

func statusFromMetadata(meta map[string]interface{}) (PaymentStatus, bool) {
	raw, ok := meta[MetadataStatusKey]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return PaymentStatus(s), true
}

// CreatePaymentRequiredTask moves a task into the input-required state with a
// payment demand attached. The demand and status are written to both the task
// metadata and a fresh agent status message, so either object alone carries
// the full payment context.
func CreatePaymentRequiredTask(task *a2a.Task, required *PaymentRequiredResponse) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidState)
	}
	current := GetTaskPaymentStatus(task)
	if !canTransition(current, PaymentStatusRequired) {
		return fmt.Errorf("%w: cannot demand payment from status %q", ErrInvalidState, current)
	}
	requiredObj, err := ToMetadataValue(required)
	if err != nil {
		return err
	}

	text := required.Error
	if text == "" {
		text = "Payment required to continue."
	}
	msg := a2a.NewAgentMessage(task.ID, task.ContextID, a2a.TextPart(text))
	msg.Metadata = map[string]interface{}{
		MetadataStatusKey:   string(PaymentStatusRequired),
		MetadataRequiredKey: requiredObj,
	}

	setMetadata(task, MetadataStatusKey, string(PaymentStatusRequired))
	setMetadata(task, MetadataRequiredKey, requiredObj)
	task.SetStatus(a2a.TaskStateInputRequired, msg)
	return nil
}

// RecordPaymentSubmission records the client's signed payload on the task and
// transitions to payment-submitted. The stale demand is cleared from both
// metadata bags.
func RecordPaymentSubmission(task *a2a.Task, payload *PaymentPayload) error {
	if err := transition(task, PaymentStatusSubmitted); err != nil {
		return err
	}
	payloadObj, err := ToMetadataValue(payload)
	if err != nil {
		return err
	}
	setMetadata(task, MetadataPayloadKey, payloadObj)
	delete(task.Metadata, MetadataRequiredKey)
	if task.Status.Message != nil {
		delete(task.Status.Message.Metadata, MetadataRequiredKey)
	}
	return nil
}

// RecordPaymentVerified transitions a submitted payment to payment-pending.
func RecordPaymentVerified(task *a2a.Task) error {
	return transition(task, PaymentStatusPending)
}

// RecordPaymentSuccess appends the settlement receipt and transitions to
// payment-completed. The consumed payload and any stale demand are cleared.
func RecordPaymentSuccess(task *a2a.Task, receipt *SettleResponse) error {
	if err := transition(task, PaymentStatusCompleted); err != nil {
		return err
	}
	if err := appendReceipt(task, receipt); err != nil {
		return err
	}
	delete(task.Metadata, MetadataPayloadKey)
	delete(task.Metadata, MetadataRequiredKey)
	if task.Status.Message != nil {
		delete(task.Status.Message.Metadata, MetadataRequiredKey)
	}
	return nil
}

// RecordPaymentFailure transitions to payment-failed, records the protocol
// error code, and appends the failure receipt when one is given.
func RecordPaymentFailure(task *a2a.Task, code ErrorCode, receipt *SettleResponse) error {
	if err := transition(task, PaymentStatusFailed); err != nil {
		return err
	}
	setMetadata(task, MetadataErrorKey, string(code))
	if receipt != nil {
		if err := appendReceipt(task, receipt); err != nil {
			return err
		}
	}
	delete(task.Metadata, MetadataPayloadKey)
	delete(task.Metadata, MetadataRequiredKey)
	if task.Status.Message != nil {
		delete(task.Status.Message.Metadata, MetadataRequiredKey)
	}
	return nil
}

// RecordPaymentRejection marks a payment demand as declined by the client.
func RecordPaymentRejection(task *a2a.Task) error {
	if err := transition(task, PaymentStatusRejected); err != nil {
		return err
	}
	delete(task.Metadata, MetadataRequiredKey)
	return nil
}

func transition(task *a2a.Task, to PaymentStatus) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", ErrInvalidState)
	}
	from := GetTaskPaymentStatus(task)
	if !canTransition(from, to) {
		return fmt.Errorf("%w: invalid payment transition %q -> %q", ErrInvalidState, from, to)
	}
	setMetadata(task, MetadataStatusKey, string(to))
	return nil
}

// GetPaymentRequirements reads the payment demand from a task, checking the
// task metadata and then the status message. Absence is not an error; callers
// receive nil when no demand is recorded.
func GetPaymentRequirements(task *a2a.Task) (*PaymentRequiredResponse, error) {
	if task == nil {
		return nil, nil
	}
	if raw, ok := task.Metadata[MetadataRequiredKey]; ok {
		return fromMetadataValue[PaymentRequiredResponse](raw)
	}
	if task.Status.Message != nil {
		if raw, ok := task.Status.Message.Metadata[MetadataRequiredKey]; ok {
			return fromMetadataValue[PaymentRequiredResponse](raw)
		}
	}
	return nil, nil
}

// GetTaskPaymentPayload reads the submitted payment payload from a task's
// metadata. Returns nil when absent.
func GetTaskPaymentPayload(task *a2a.Task) (*PaymentPayload, error) {
	if task == nil {
		return nil, nil
	}
	raw, ok := task.Metadata[MetadataPayloadKey]
	if !ok {
		return nil, nil
	}
	return fromMetadataValue[PaymentPayload](raw)
}

// GetMessagePaymentPayload reads a payment payload carried on a message.
func GetMessagePaymentPayload(msg *a2a.Message) (*PaymentPayload, error) {
	if msg == nil {
		return nil, nil
	}
	raw, ok := msg.Metadata[MetadataPayloadKey]
	if !ok {
		return nil, nil
	}
	return fromMetadataValue[PaymentPayload](raw)
}

// GetPaymentReceipts returns the settlement receipts recorded on a task,
// newest last. The deprecated singular receipt key is read when the plural
// key is absent.
func GetPaymentReceipts(task *a2a.Task) ([]SettleResponse, error) {
	if task == nil {
		return nil, nil
	}
	if raw, ok := task.Metadata[MetadataReceiptsKey]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
		}
		var receipts []SettleResponse
		if err := json.Unmarshal(data, &receipts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
		}
		return receipts, nil
	}
	if raw, ok := task.Metadata[MetadataReceiptLegacyKey]; ok {
		receipt, err := fromMetadataValue[SettleResponse](raw)
		if err != nil {
			return nil, err
		}
		return []SettleResponse{*receipt}, nil
	}
	return nil, nil
}

func appendReceipt(task *a2a.Task, receipt *SettleResponse) error {
	if receipt == nil {
		return fmt.Errorf("%w: nil receipt", ErrInvalidState)
	}
	receipts, err := GetPaymentReceipts(task)
	if err != nil {
		return err
	}
	receipts = append(receipts, *receipt)
	obj, err := ToMetadataValue(receipts)
	if err != nil {
		return err
	}
	setMetadata(task, MetadataReceiptsKey, obj)
	return nil
}

func setMetadata(task *a2a.Task, key string, value interface{}) {
	if task.Metadata == nil {
		task.Metadata = make(map[string]interface{})
	}
	task.Metadata[key] = value
}

// ToMetadataValue converts a struct into the generic JSON shape metadata bags
// hold, so a task survives serialization without type loss.
func ToMetadataValue(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return out, nil
}

func fromMetadataValue[T any](raw interface{}) (*T, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return out, nil
}
