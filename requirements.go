package x402

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Builder defaults applied when the caller leaves fields zero.
const (
	defaultMaxTimeoutSeconds = 600
	defaultMimeType          = "application/json"
)

// TokenAmount is an explicit price in atomic units of a named asset, used
// when a requirement should not be derived from a USD price.
type TokenAmount struct {
	// Amount is the atomic amount as a decimal string.
	Amount string

	// Asset is the token contract address or identifier.
	Asset string
}

// ParseUSDPrice converts a human-readable USD price ("$1.50", "1.50") into
// atomic USDC units (6 decimals).
func ParseUSDPrice(price string) (*big.Int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(price), "$"))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty price", ErrInvalidAmount)
	}
	atomic, err := AmountToAtomic(trimmed, 6)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, price)
	}
	if atomic.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative price %q", ErrInvalidAmount, price)
	}
	return atomic, nil
}

// EVMRequirementsConfig configures NewEVMPaymentRequirements.
type EVMRequirementsConfig struct {
	// Price is a USD price string ("$1.50" or "1.50"). Ignored when Amount
	// is set.
	Price string

	// Amount optionally prices the requirement directly in atomic units of
	// an explicit asset, bypassing the USDC default.
	Amount *TokenAmount

	// Network is the EVM network identifier (required).
	Network string

	// PayTo is the receiving address (required).
	PayTo string

	// Resource is the URI being paid for.
	Resource string

	// Description is an optional human-readable description.
	Description string

	// MimeType defaults to "application/json".
	MimeType string

	// MaxTimeoutSeconds defaults to 600.
	MaxTimeoutSeconds int
}

// NewEVMPaymentRequirements builds an exact-scheme EVM requirement. The
// network resolves to its default USDC asset and EIP-712 domain; unknown
// networks fail rather than defaulting.
func NewEVMPaymentRequirements(cfg EVMRequirementsConfig) (PaymentRequirements, error) {
	chain, err := ChainConfigFor(cfg.Network)
	if err != nil {
		return PaymentRequirements{}, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, cfg.Network)
	}
	if !chain.IsEVM() {
		return PaymentRequirements{}, fmt.Errorf("%w: %q is not an EVM network", ErrUnsupportedNetwork, cfg.Network)
	}
	if cfg.PayTo == "" {
		return PaymentRequirements{}, fmt.Errorf("%w: payTo is required", ErrInvalidRequirements)
	}

	asset := chain.USDCAddress
	var amount *big.Int
	if cfg.Amount != nil {
		asset = cfg.Amount.Asset
		amount, err = DecimalString(cfg.Amount.Amount).BigInt()
		if err != nil {
			return PaymentRequirements{}, err
		}
	} else {
		amount, err = ParseUSDPrice(cfg.Price)
		if err != nil {
			return PaymentRequirements{}, err
		}
	}

	req := PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           cfg.Network,
		Asset:             asset,
		PayTo:             cfg.PayTo,
		MaxAmountRequired: amount.String(),
		Resource:          cfg.Resource,
		Description:       cfg.Description,
		MimeType:          cfg.MimeType,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
	}
	if req.MimeType == "" {
		req.MimeType = defaultMimeType
	}
	if req.MaxTimeoutSeconds == 0 {
		req.MaxTimeoutSeconds = defaultMaxTimeoutSeconds
	}
	req.Extra = map[string]interface{}{
		"name":    chain.EIP712Name,
		"version": chain.EIP712Version,
	}
	return req, nil
}

// CashuRequirementsConfig configures NewCashuPaymentRequirements.
type CashuRequirementsConfig struct {
	// AmountSats is the price as a whole number of satoshis. Fractional
	// values are rejected.
	AmountSats string

	// Network is the Cashu network identifier (e.g., "bitcoin").
	Network string

	// PayTo is the receiving identifier (required).
	PayTo string

	// Mints are acceptable mint URLs. When empty, the network's default
	// mints apply; a network with no defaults is rejected.
	Mints []string

	// Unit is the ecash unit, defaulting to "sat".
	Unit string

	// KeysetIDs optionally pins acceptable keysets.
	KeysetIDs []string

	// FacilitatorURL optionally names the facilitator redeeming the tokens.
	FacilitatorURL string

	// NUT10 optionally carries a spending-condition descriptor.
	NUT10 map[string]interface{}

	// Resource is the URI being paid for.
	Resource string

	// Description is an optional human-readable description.
	Description string

	// MaxTimeoutSeconds defaults to 600.
	MaxTimeoutSeconds int
}

// NewCashuPaymentRequirements builds a cashu-token requirement. Amounts are
// whole satoshis; a fractional or non-numeric amount fails.
func NewCashuPaymentRequirements(cfg CashuRequirementsConfig) (PaymentRequirements, error) {
	if cfg.PayTo == "" {
		return PaymentRequirements{}, fmt.Errorf("%w: payTo is required", ErrInvalidRequirements)
	}

	amount := strings.TrimSpace(cfg.AmountSats)
	sats, err := strconv.ParseInt(amount, 10, 64)
	if err != nil || sats < 0 {
		return PaymentRequirements{}, fmt.Errorf("%w: cashu amount must be a whole satoshi count, got %q", ErrInvalidRequirements, cfg.AmountSats)
	}

	mints := cfg.Mints
	if len(mints) == 0 {
		mints = DefaultCashuMints[cfg.Network]
	}
	if len(mints) == 0 {
		return PaymentRequirements{}, fmt.Errorf("%w: no mints configured for network %q", ErrInvalidRequirements, cfg.Network)
	}

	unit := cfg.Unit
	if unit == "" {
		unit = "sat"
	}

	extra := map[string]interface{}{
		"mints": mints,
		"unit":  unit,
	}
	if len(cfg.KeysetIDs) > 0 {
		extra["keysetIds"] = cfg.KeysetIDs
	}
	if cfg.FacilitatorURL != "" {
		extra["facilitatorUrl"] = cfg.FacilitatorURL
	}
	if cfg.NUT10 != nil {
		extra["nut10"] = cfg.NUT10
	}

	req := PaymentRequirements{
		Scheme:            SchemeCashuToken,
		Network:           cfg.Network,
		PayTo:             cfg.PayTo,
		MaxAmountRequired: strconv.FormatInt(sats, 10),
		Resource:          cfg.Resource,
		Description:       cfg.Description,
		MimeType:          defaultMimeType,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
		Extra:             extra,
	}
	if req.MaxTimeoutSeconds == 0 {
		req.MaxTimeoutSeconds = defaultMaxTimeoutSeconds
	}
	return req, nil
}

// SparkRequirementsConfig configures NewSparkPaymentRequirements. The caller
// supplies network metadata; the builder validates only the essentials.
type SparkRequirementsConfig struct {
	// AmountSats is the price as a whole number of satoshis.
	AmountSats string

	// PayTo is the receiving identifier (required).
	PayTo string

	// Resource is the URI being paid for.
	Resource string

	// Description is an optional human-readable description.
	Description string

	// Extra carries caller-supplied Spark metadata verbatim.
	Extra map[string]interface{}

	// MaxTimeoutSeconds defaults to 600.
	MaxTimeoutSeconds int
}

// NewSparkPaymentRequirements builds an exact-scheme Spark requirement.
func NewSparkPaymentRequirements(cfg SparkRequirementsConfig) (PaymentRequirements, error) {
	if cfg.PayTo == "" {
		return PaymentRequirements{}, fmt.Errorf("%w: payTo is required", ErrInvalidRequirements)
	}
	amount := strings.TrimSpace(cfg.AmountSats)
	if sats, err := strconv.ParseInt(amount, 10, 64); err != nil || sats < 0 {
		return PaymentRequirements{}, fmt.Errorf("%w: spark amount must be a non-negative integer, got %q", ErrInvalidRequirements, cfg.AmountSats)
	}

	req := PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           NetworkSpark,
		PayTo:             cfg.PayTo,
		MaxAmountRequired: amount,
		Resource:          cfg.Resource,
		Description:       cfg.Description,
		MimeType:          defaultMimeType,
		MaxTimeoutSeconds: cfg.MaxTimeoutSeconds,
		Extra:             cfg.Extra,
	}
	if req.MaxTimeoutSeconds == 0 {
		req.MaxTimeoutSeconds = defaultMaxTimeoutSeconds
	}
	return req, nil
}
