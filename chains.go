package x402

import "math/big"

// ChainConfig contains network-specific configuration for the default USDC
// asset and, for EVM chains, the EIP-712 signing domain.
type ChainConfig struct {
	// NetworkID is the x402 network identifier (e.g., "base", "sui").
	NetworkID string

	// ChainID is the EVM chain id, nil for non-EVM networks.
	ChainID *big.Int

	// USDCAddress is the USDC contract address or coin type identifier.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals int

	// EIP712Name is the EIP-712 domain parameter "name" (empty for non-EVM).
	EIP712Name string

	// EIP712Version is the EIP-712 domain parameter "version" (empty for non-EVM).
	EIP712Version string
}

// IsEVM reports whether the network is an EVM chain.
func (c ChainConfig) IsEVM() bool {
	return c.ChainID != nil
}

// Known network configurations. USDC addresses follow the verified registry
// carried by the wider x402 SDK family.
var (
	// BaseMainnet is the configuration for Base mainnet.
	BaseMainnet = ChainConfig{
		NetworkID:     "base",
		ChainID:       big.NewInt(8453),
		USDCAddress:   "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:      6,
		EIP712Name:    "USD Coin",
		EIP712Version: "2",
	}

	// BaseSepolia is the configuration for the Base Sepolia testnet.
	BaseSepolia = ChainConfig{
		NetworkID:     "base-sepolia",
		ChainID:       big.NewInt(84532),
		USDCAddress:   "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:      6,
		EIP712Name:    "USDC",
		EIP712Version: "2",
	}

	// AvalancheMainnet is the configuration for the Avalanche C-Chain.
	AvalancheMainnet = ChainConfig{
		NetworkID:     "avalanche",
		ChainID:       big.NewInt(43114),
		USDCAddress:   "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		Decimals:      6,
		EIP712Name:    "USD Coin",
		EIP712Version: "2",
	}

	// AvalancheFuji is the configuration for the Avalanche Fuji testnet.
	AvalancheFuji = ChainConfig{
		NetworkID:     "avalanche-fuji",
		ChainID:       big.NewInt(43113),
		USDCAddress:   "0x5425890298aed601595a70AB815c96711a31Bc65",
		Decimals:      6,
		EIP712Name:    "USD Coin",
		EIP712Version: "2",
	}

	// SuiMainnet is the configuration for Sui mainnet. Sui is not an EVM
	// chain; requirements built for it carry no EIP-712 domain.
	SuiMainnet = ChainConfig{
		NetworkID:   "sui",
		USDCAddress: "0xdba34672e30cb065b1f93e3ab55318768fd6fef66c15942c9f7cb846e2f900e7::usdc::USDC",
		Decimals:    6,
	}

	// SuiTestnet is the configuration for Sui testnet.
	SuiTestnet = ChainConfig{
		NetworkID:   "sui-testnet",
		USDCAddress: "0xa1ec7fc00a6f40db9693ad1415d0c193ad3906494428cf252621037bd7117e29::usdc::USDC",
		Decimals:    6,
	}
)

var chainRegistry = map[string]ChainConfig{
	BaseMainnet.NetworkID:      BaseMainnet,
	BaseSepolia.NetworkID:      BaseSepolia,
	AvalancheMainnet.NetworkID: AvalancheMainnet,
	AvalancheFuji.NetworkID:    AvalancheFuji,
	SuiMainnet.NetworkID:       SuiMainnet,
	SuiTestnet.NetworkID:       SuiTestnet,
}

// ChainConfigFor returns the configuration for a network identifier.
// Unknown networks are an error, never a silent default.
func ChainConfigFor(networkID string) (ChainConfig, error) {
	cfg, ok := chainRegistry[networkID]
	if !ok {
		return ChainConfig{}, ErrUnsupportedNetwork
	}
	return cfg, nil
}

// IsEVMNetwork reports whether the network identifier names a registered EVM
// chain.
func IsEVMNetwork(networkID string) bool {
	cfg, ok := chainRegistry[networkID]
	return ok && cfg.IsEVM()
}

// DefaultCashuMints maps Cashu network identifiers to default mint URLs used
// when a merchant configures none explicitly.
var DefaultCashuMints = map[string][]string{
	"bitcoin":         {"https://mint.minibits.cash/Bitcoin"},
	"bitcoin-testnet": {"https://testnut.cashu.space"},
}
