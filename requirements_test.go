package x402

import (
	"errors"
	"testing"
)

func TestParseUSDPrice(t *testing.T) {
	tests := []struct {
		price   string
		want    string
		wantErr bool
	}{
		{"$1.50", "1500000", false},
		{"1.50", "1500000", false},
		{"$0.001", "1000", false},
		{"$10", "10000000", false},
		{"", "", true},
		{"$", "", true},
		{"$-1", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUSDPrice(tt.price)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseUSDPrice(%q): expected error", tt.price)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUSDPrice(%q): %v", tt.price, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseUSDPrice(%q) = %s, want %s", tt.price, got, tt.want)
		}
	}
}

func TestNewEVMPaymentRequirements(t *testing.T) {
	req, err := NewEVMPaymentRequirements(EVMRequirementsConfig{
		Price:    "$1.50",
		Network:  "base",
		PayTo:    "0x1111111111111111111111111111111111111111",
		Resource: "https://api.example.com/report",
	})
	if err != nil {
		t.Fatalf("NewEVMPaymentRequirements: %v", err)
	}
	if req.Scheme != SchemeExact {
		t.Errorf("Scheme = %q, want exact", req.Scheme)
	}
	if req.MaxAmountRequired != "1500000" {
		t.Errorf("MaxAmountRequired = %q, want 1500000", req.MaxAmountRequired)
	}
	if req.Asset != BaseMainnet.USDCAddress {
		t.Errorf("Asset = %q, want base USDC", req.Asset)
	}
	if req.MaxTimeoutSeconds != 600 {
		t.Errorf("MaxTimeoutSeconds = %d, want 600", req.MaxTimeoutSeconds)
	}
	if req.MimeType != "application/json" {
		t.Errorf("MimeType = %q, want application/json", req.MimeType)
	}
	if req.Extra["name"] != "USD Coin" || req.Extra["version"] != "2" {
		t.Errorf("Extra = %v, want base EIP-712 domain", req.Extra)
	}
}

func TestNewEVMPaymentRequirementsRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  EVMRequirementsConfig
		want error
	}{
		{
			"unknown network",
			EVMRequirementsConfig{Price: "$1", Network: "unknown", PayTo: "0x1"},
			ErrUnsupportedNetwork,
		},
		{
			"non-EVM network",
			EVMRequirementsConfig{Price: "$1", Network: "sui", PayTo: "0x1"},
			ErrUnsupportedNetwork,
		},
		{
			"missing payTo",
			EVMRequirementsConfig{Price: "$1", Network: "base"},
			ErrInvalidRequirements,
		},
		{
			"bad price",
			EVMRequirementsConfig{Price: "free", Network: "base", PayTo: "0x1"},
			ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEVMPaymentRequirements(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewEVMPaymentRequirementsCustomToken(t *testing.T) {
	req, err := NewEVMPaymentRequirements(EVMRequirementsConfig{
		Amount:  &TokenAmount{Amount: "250000000000000000", Asset: "0xCustomToken"},
		Network: "base",
		PayTo:   "0x1111111111111111111111111111111111111111",
	})
	if err != nil {
		t.Fatalf("NewEVMPaymentRequirements: %v", err)
	}
	if req.Asset != "0xCustomToken" {
		t.Errorf("Asset = %q, want custom token", req.Asset)
	}
	if req.MaxAmountRequired != "250000000000000000" {
		t.Errorf("MaxAmountRequired = %q", req.MaxAmountRequired)
	}
}

func TestNewCashuPaymentRequirements(t *testing.T) {
	req, err := NewCashuPaymentRequirements(CashuRequirementsConfig{
		AmountSats: "21",
		Network:    "bitcoin",
		PayTo:      "merchant-pubkey",
	})
	if err != nil {
		t.Fatalf("NewCashuPaymentRequirements: %v", err)
	}
	if req.Scheme != SchemeCashuToken {
		t.Errorf("Scheme = %q, want cashu-token", req.Scheme)
	}
	mints, ok := req.Extra["mints"].([]string)
	if !ok || len(mints) == 0 {
		t.Fatalf("Extra mints = %v, want default bitcoin mints", req.Extra["mints"])
	}
	if req.Extra["unit"] != "sat" {
		t.Errorf("unit = %v, want sat", req.Extra["unit"])
	}
}

func TestNewCashuPaymentRequirementsRejects(t *testing.T) {
	// Fractional satoshis are not a thing.
	if _, err := NewCashuPaymentRequirements(CashuRequirementsConfig{
		AmountSats: "21.5",
		Network:    "bitcoin",
		PayTo:      "merchant",
	}); !errors.Is(err, ErrInvalidRequirements) {
		t.Errorf("fractional sats: got %v, want ErrInvalidRequirements", err)
	}

	// A network with no default mints needs explicit mints.
	if _, err := NewCashuPaymentRequirements(CashuRequirementsConfig{
		AmountSats: "21",
		Network:    "bitcoin-regtest",
		PayTo:      "merchant",
	}); !errors.Is(err, ErrInvalidRequirements) {
		t.Errorf("no mints: got %v, want ErrInvalidRequirements", err)
	}
}

func TestNewSparkPaymentRequirements(t *testing.T) {
	req, err := NewSparkPaymentRequirements(SparkRequirementsConfig{
		AmountSats: "1000",
		PayTo:      "spark-address",
	})
	if err != nil {
		t.Fatalf("NewSparkPaymentRequirements: %v", err)
	}
	if req.Network != NetworkSpark || req.Scheme != SchemeExact {
		t.Errorf("got %s/%s, want exact/spark", req.Scheme, req.Network)
	}

	if _, err := NewSparkPaymentRequirements(SparkRequirementsConfig{
		AmountSats: "-5",
		PayTo:      "spark-address",
	}); !errors.Is(err, ErrInvalidRequirements) {
		t.Errorf("negative amount: got %v, want ErrInvalidRequirements", err)
	}
}
