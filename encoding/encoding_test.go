package encoding

import (
	"encoding/base64"
	"testing"

	x402 "github.com/google-a2a/a2a-x402-go"
)

func TestPaymentRoundTrip(t *testing.T) {
	payload := &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     "base",
		Payload: &x402.ExactEvmPayload{
			Signature: "0xsig",
			Authorization: x402.EIP3009Authorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          "0x2222222222222222222222222222222222222222",
				Value:       "1000000",
				ValidAfter:  "100",
				ValidBefore: "700",
				Nonce:       "0xabc",
			},
		},
	}

	encoded, err := EncodePayment(payload)
	if err != nil {
		t.Fatalf("EncodePayment: %v", err)
	}
	decoded, err := DecodePayment(encoded)
	if err != nil {
		t.Fatalf("DecodePayment: %v", err)
	}
	inner, err := decoded.ExactEvmPayload()
	if err != nil {
		t.Fatalf("ExactEvmPayload: %v", err)
	}
	if inner.Authorization.Value != "1000000" || inner.Signature != "0xsig" {
		t.Errorf("round trip mismatch: %+v", inner)
	}
}

func TestRequirementsRoundTrip(t *testing.T) {
	required := &x402.PaymentRequiredResponse{
		X402Version: x402.X402Version,
		Accepts: []x402.PaymentRequirements{{
			Scheme:            x402.SchemeExact,
			Network:           "base",
			PayTo:             "0x2222222222222222222222222222222222222222",
			MaxAmountRequired: "1000000",
		}},
		Error: "Payment required",
	}

	encoded, err := EncodeRequirements(required)
	if err != nil {
		t.Fatalf("EncodeRequirements: %v", err)
	}
	decoded, err := DecodeRequirements(encoded)
	if err != nil {
		t.Fatalf("DecodeRequirements: %v", err)
	}
	if len(decoded.Accepts) != 1 || decoded.Accepts[0].MaxAmountRequired != "1000000" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodePayment("not base64!!!"); err == nil {
		t.Error("expected base64 error")
	}
	garbage := base64.StdEncoding.EncodeToString([]byte("{invalid json"))
	if _, err := DecodePayment(garbage); err == nil {
		t.Error("expected JSON error")
	}
}

func TestSparkPaymentHeaderRoundTrip(t *testing.T) {
	payload, err := x402.NewSparkPaymentPayload(x402.SparkPaymentTypeLightning, "", "preimage-1", "")
	if err != nil {
		t.Fatal(err)
	}

	header, err := EncodeSparkPaymentHeader(payload)
	if err != nil {
		t.Fatalf("EncodeSparkPaymentHeader: %v", err)
	}

	// The canonical encoding is deterministic.
	header2, err := EncodeSparkPaymentHeader(payload)
	if err != nil {
		t.Fatal(err)
	}
	if header != header2 {
		t.Error("header encoding is not deterministic")
	}

	decoded, err := DecodeSparkPaymentHeader(header)
	if err != nil {
		t.Fatalf("DecodeSparkPaymentHeader: %v", err)
	}
	spark, err := decoded.SparkPayload()
	if err != nil {
		t.Fatal(err)
	}
	if spark.PaymentType != x402.SparkPaymentTypeLightning || spark.Preimage != "preimage-1" {
		t.Errorf("round trip mismatch: %+v", spark)
	}
	if decoded.X402Version != x402.X402Version {
		t.Errorf("version = %d", decoded.X402Version)
	}
}

func TestSparkPaymentHeaderCanonicalOrder(t *testing.T) {
	payload, err := x402.NewSparkPaymentPayload(x402.SparkPaymentTypeSpark, "tr-1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	header, err := EncodeSparkPaymentHeader(payload)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.URLEncoding.DecodeString(header)
	if err != nil {
		t.Fatal(err)
	}
	// Top-level keys sorted: network < payload < scheme < x402Version.
	want := `{"network":"spark","payload":{"paymentType":"SPARK","transfer_id":"tr-1"},"scheme":"exact","x402Version":1}`
	if string(raw) != want {
		t.Errorf("canonical JSON:\n got %s\nwant %s", raw, want)
	}
}

func TestSparkHeaderRejectsNonSpark(t *testing.T) {
	evm := &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     "base",
		Payload:     &x402.ExactEvmPayload{Signature: "0xsig"},
	}
	if _, err := EncodeSparkPaymentHeader(evm); err == nil {
		t.Error("expected error encoding non-spark payload")
	}
}
