// Package encoding provides base64 wire encodings for x402 payment
// structures: the generic JSON envelopes used in metadata transport and the
// canonical Spark X-PAYMENT header format.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// EncodePayment serializes a payment payload to base64-encoded JSON.
func EncodePayment(payload *x402.PaymentPayload) (string, error) {
	return encode(payload)
}

// DecodePayment deserializes a payment payload from base64-encoded JSON.
func DecodePayment(encoded string) (*x402.PaymentPayload, error) {
	var payload x402.PaymentPayload
	if err := decode(encoded, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// EncodeRequirements serializes a payment demand to base64-encoded JSON.
func EncodeRequirements(required *x402.PaymentRequiredResponse) (string, error) {
	return encode(required)
}

// DecodeRequirements deserializes a payment demand from base64-encoded JSON.
func DecodeRequirements(encoded string) (*x402.PaymentRequiredResponse, error) {
	var required x402.PaymentRequiredResponse
	if err := decode(encoded, &required); err != nil {
		return nil, err
	}
	return &required, nil
}

// EncodeSettlement serializes a settlement receipt to base64-encoded JSON.
func EncodeSettlement(receipt *x402.SettleResponse) (string, error) {
	return encode(receipt)
}

// DecodeSettlement deserializes a settlement receipt from base64-encoded JSON.
func DecodeSettlement(encoded string) (*x402.SettleResponse, error) {
	var receipt x402.SettleResponse
	if err := decode(encoded, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func encode(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding: marshal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decode(encoded string, v interface{}) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return fmt.Errorf("encoding: base64 decode: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("encoding: unmarshal: %w", err)
	}
	return nil
}

// EncodeSparkPaymentHeader encodes a Spark payment payload for the X-PAYMENT
// HTTP header: canonical JSON with lexicographically sorted keys, then
// URL-safe base64. Canonical key order makes the header value deterministic
// for a given payload.
func EncodeSparkPaymentHeader(payload *x402.PaymentPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("encoding: nil payload")
	}
	if _, err := payload.SparkPayload(); err != nil {
		return "", err
	}
	data, err := canonicalJSON(payload)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeSparkPaymentHeader decodes an X-PAYMENT header back into a Spark
// payment payload.
func DecodeSparkPaymentHeader(header string) (*x402.PaymentPayload, error) {
	data, err := base64.URLEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return nil, fmt.Errorf("encoding: base64 decode: %w", err)
	}
	var payload x402.PaymentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("encoding: unmarshal: %w", err)
	}
	if _, err := payload.SparkPayload(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// canonicalJSON marshals v with object keys sorted at every nesting level.
func canonicalJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding: marshal: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("encoding: unmarshal: %w", err)
	}
	var b strings.Builder
	if err := writeCanonical(&b, generic); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func writeCanonical(b *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyData, err := json.Marshal(k)
			if err != nil {
				return err
			}
			b.Write(keyData)
			b.WriteByte(':')
			if err := writeCanonical(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case []interface{}:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return err
		}
		b.Write(data)
	}
	return nil
}
