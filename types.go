// Package x402 implements the x402 payment extension for agent-to-agent (A2A)
// task messaging. It provides the payment data model, the task-correlated
// payment state machine, requirement builders, and signing helpers shared by
// the server and client middlewares.
package x402

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
)

// X402Version is the protocol version this engine speaks.
const X402Version = 1

// Payment scheme identifiers.
const (
	// SchemeExact is the exact-amount scheme used for EVM (EIP-3009) and
	// Spark payments.
	SchemeExact = "exact"

	// SchemeCashuToken is the Cashu ecash token scheme.
	SchemeCashuToken = "cashu-token"
)

// NetworkSpark is the network identifier for Spark payments. Combined with
// SchemeExact it selects the SparkPayload shape.
const NetworkSpark = "spark"

// PaymentRequirements is a merchant's offer: one acceptable way to pay for a
// resource.
type PaymentRequirements struct {
	// Scheme is the payment scheme identifier (e.g., "exact", "cashu-token").
	Scheme string `json:"scheme"`

	// Network is the settlement network identifier (e.g., "base", "spark").
	Network string `json:"network"`

	// Asset is the token contract address or identifier. Optional for Cashu.
	Asset string `json:"asset,omitempty"`

	// PayTo is the recipient identifier for the payment.
	PayTo string `json:"payTo"`

	// MaxAmountRequired is the payment amount in atomic units as a decimal string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the URI of the service being paid for.
	Resource string `json:"resource"`

	// Description is an optional human-readable payment description.
	Description string `json:"description,omitempty"`

	// MimeType is the content type of the paid resource.
	MimeType string `json:"mimeType,omitempty"`

	// MaxTimeoutSeconds is the validity window for the payment authorization.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty"`

	// OutputSchema optionally describes the structure of the paid response.
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`

	// Extra carries scheme-specific data: the EIP-712 domain for EVM, mint
	// URLs and unit for Cashu.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// PaymentRequiredResponse is the merchant's payment demand: an ordered,
// non-empty list of acceptable requirements. Clients select exactly one.
type PaymentRequiredResponse struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Accepts is the ordered list of payment options the merchant accepts.
	Accepts []PaymentRequirements `json:"accepts"`

	// Error is an optional human-readable explanation.
	Error string `json:"error,omitempty"`
}

// PaymentPayload is a client's signed payment authorization. The inner
// Payload is a tagged union selected by (Scheme, Network): ExactEvmPayload,
// SparkPayload, or CashuPayload.
type PaymentPayload struct {
	// X402Version is the protocol version (currently 1).
	X402Version int `json:"x402Version"`

	// Scheme is the payment scheme identifier.
	Scheme string `json:"scheme"`

	// Network is the settlement network identifier.
	Network string `json:"network"`

	// Payload contains the scheme-specific signed payment data.
	Payload interface{} `json:"payload"`
}

// DecimalString is a decimal integer that travels as a JSON string but also
// accepts bare JSON numbers on decode. Wire values such as validAfter and
// validBefore are emitted as strings and coerced to integers before signing
// or verification.
type DecimalString string

// UnmarshalJSON accepts both string and numeric encodings.
func (d *DecimalString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DecimalString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*d = DecimalString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return err
	}
	*d = DecimalString(strconv.FormatInt(int64(f), 10))
	return nil
}

// Int64 parses the decimal string as an int64.
func (d DecimalString) Int64() (int64, error) {
	return strconv.ParseInt(string(d), 10, 64)
}

// BigInt parses the decimal string as a big integer.
func (d DecimalString) BigInt() (*big.Int, error) {
	v, ok := new(big.Int).SetString(string(d), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, string(d))
	}
	return v, nil
}

// ExactEvmPayload is an exact-scheme EVM payment: an EIP-3009
// transferWithAuthorization signed with EIP-712.
type ExactEvmPayload struct {
	// Signature is the 65-byte hex-encoded ECDSA signature.
	Signature string `json:"signature"`

	// Authorization contains the transferWithAuthorization parameters.
	Authorization EIP3009Authorization `json:"authorization"`
}

// EIP3009Authorization represents EIP-3009 transferWithAuthorization
// parameters. Numeric values are decimal strings on the wire; the nonce is a
// 32-byte hex string.
type EIP3009Authorization struct {
	// From is the payer's address.
	From string `json:"from"`

	// To is the recipient's address.
	To string `json:"to"`

	// Value is the payment amount in atomic units.
	Value DecimalString `json:"value"`

	// ValidAfter is the unix timestamp after which the authorization is valid.
	ValidAfter DecimalString `json:"validAfter"`

	// ValidBefore is the unix timestamp before which the authorization is valid.
	ValidBefore DecimalString `json:"validBefore"`

	// Nonce is a unique 32-byte hex string preventing replay.
	Nonce string `json:"nonce"`
}

// SparkPaymentType selects the Spark transport used to complete a payment.
type SparkPaymentType string

// Spark transports. Each requires exactly one settlement identifier:
// SPARK a transfer id, LIGHTNING a preimage, L1 a transaction id.
const (
	SparkPaymentTypeSpark     SparkPaymentType = "SPARK"
	SparkPaymentTypeLightning SparkPaymentType = "LIGHTNING"
	SparkPaymentTypeL1        SparkPaymentType = "L1"
)

// SparkPayload references an externally completed Spark transfer. The field
// names are fixed by the Spark wire format and must not be renamed.
type SparkPayload struct {
	// PaymentType is the Spark transport (SPARK, LIGHTNING, L1).
	PaymentType SparkPaymentType `json:"paymentType"`

	// TransferID identifies a native Spark transfer (SPARK transport).
	TransferID string `json:"transfer_id,omitempty"`

	// Preimage proves a settled Lightning invoice (LIGHTNING transport).
	Preimage string `json:"preimage,omitempty"`

	// TxID identifies an on-chain Bitcoin transaction (L1 transport).
	TxID string `json:"txid,omitempty"`
}

// SettlementID returns the transport-specific settlement identifier.
func (p *SparkPayload) SettlementID() string {
	switch p.PaymentType {
	case SparkPaymentTypeSpark:
		return p.TransferID
	case SparkPaymentTypeLightning:
		return p.Preimage
	case SparkPaymentTypeL1:
		return p.TxID
	}
	return ""
}

// CashuProof is a single ecash proof signed by a mint.
type CashuProof struct {
	// ID is the keyset id the proof was signed under.
	ID string `json:"id"`

	// Amount is the proof denomination in the token's unit.
	Amount int64 `json:"amount"`

	// Secret is the blinded secret string.
	Secret string `json:"secret"`

	// C is the mint's signature over the secret.
	C string `json:"C"`
}

// CashuToken is a bundle of proofs from a single mint.
type CashuToken struct {
	// Mint is the issuing mint URL.
	Mint string `json:"mint"`

	// Proofs are the ecash proofs carried by this token.
	Proofs []CashuProof `json:"proofs"`
}

// CashuPayload is a Cashu ecash payment: parallel arrays of structured tokens
// and their serialized encodings, len(Tokens) == len(Encoded).
type CashuPayload struct {
	Tokens  []CashuToken           `json:"tokens"`
	Encoded []string               `json:"encoded"`
	Memo    string                 `json:"memo,omitempty"`
	Unit    string                 `json:"unit,omitempty"`
	Locks   map[string]interface{} `json:"locks,omitempty"`
	Payer   string                 `json:"payer,omitempty"`
	Expiry  int64                  `json:"expiry,omitempty"`
}

// VerifyResponse is the facilitator's answer to a verification request.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to a settlement request. A
// serialized SettleResponse appended to a task's receipts is called a receipt.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

// ExactEvmPayload decodes the inner payload as an exact-EVM payment. It
// tolerates the map form produced by JSON metadata round-trips and coerces
// numeric timestamp fields to decimal strings.
func (p *PaymentPayload) ExactEvmPayload() (*ExactEvmPayload, error) {
	if p.Scheme != SchemeExact || p.Network == NetworkSpark {
		return nil, fmt.Errorf("%w: %s/%s is not an exact-EVM payment", ErrUnsupportedScheme, p.Scheme, p.Network)
	}
	var out ExactEvmPayload
	if err := decodeInner(p.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SparkPayload decodes the inner payload as a Spark payment.
func (p *PaymentPayload) SparkPayload() (*SparkPayload, error) {
	if p.Network != NetworkSpark {
		return nil, fmt.Errorf("%w: %s/%s is not a spark payment", ErrUnsupportedScheme, p.Scheme, p.Network)
	}
	var out SparkPayload
	if err := decodeInner(p.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CashuPayload decodes the inner payload as a Cashu payment.
func (p *PaymentPayload) CashuPayload() (*CashuPayload, error) {
	if p.Scheme != SchemeCashuToken {
		return nil, fmt.Errorf("%w: %s/%s is not a cashu payment", ErrUnsupportedScheme, p.Scheme, p.Network)
	}
	var out CashuPayload
	if err := decodeInner(p.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// decodeInner converts an inner payload (typed struct or metadata map) into
// the concrete payload type via a JSON round-trip.
func decodeInner(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return nil
}

// AmountToAtomic converts a decimal amount string to atomic units.
// For example, "1.5" with 6 decimals becomes 1500000.
func AmountToAtomic(amount string, decimals int) (*big.Int, error) {
	value := new(big.Float)
	if _, ok := value.SetString(amount); !ok {
		return nil, ErrInvalidAmount
	}

	multiplier := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value.Mul(value, multiplier)

	result, accuracy := value.Int(nil)
	if accuracy != big.Exact {
		return nil, ErrInvalidAmount
	}
	return result, nil
}

// AtomicToAmount converts atomic units to a decimal string.
// For example, 1500000 with 6 decimals becomes "1.500000".
func AtomicToAmount(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}

	f := new(big.Float).SetInt(value)
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, divisor)

	return f.Text('f', decimals)
}
