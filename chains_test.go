package x402

import (
	"errors"
	"testing"
)

func TestChainConfigFor(t *testing.T) {
	tests := []struct {
		network string
		chainID int64
		evm     bool
	}{
		{"base", 8453, true},
		{"base-sepolia", 84532, true},
		{"avalanche", 43114, true},
		{"avalanche-fuji", 43113, true},
		{"sui", 0, false},
		{"sui-testnet", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			cfg, err := ChainConfigFor(tt.network)
			if err != nil {
				t.Fatalf("ChainConfigFor(%q): %v", tt.network, err)
			}
			if cfg.IsEVM() != tt.evm {
				t.Errorf("IsEVM() = %v, want %v", cfg.IsEVM(), tt.evm)
			}
			if tt.evm && cfg.ChainID.Int64() != tt.chainID {
				t.Errorf("ChainID = %d, want %d", cfg.ChainID.Int64(), tt.chainID)
			}
			if cfg.Decimals != 6 {
				t.Errorf("Decimals = %d, want 6", cfg.Decimals)
			}
			if cfg.USDCAddress == "" {
				t.Error("missing USDC address")
			}
		})
	}
}

func TestChainConfigForUnknown(t *testing.T) {
	if _, err := ChainConfigFor("dogecoin"); !errors.Is(err, ErrUnsupportedNetwork) {
		t.Errorf("got %v, want ErrUnsupportedNetwork", err)
	}
}

func TestIsEVMNetwork(t *testing.T) {
	if !IsEVMNetwork("base") {
		t.Error("base should be EVM")
	}
	if IsEVMNetwork("sui") {
		t.Error("sui should not be EVM")
	}
	if IsEVMNetwork("spark") {
		t.Error("spark should not be EVM")
	}
}
