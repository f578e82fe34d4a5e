package x402

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// validAfterSkew backdates authorizations to tolerate clock drift between the
// payer and the verifying chain.
const validAfterSkew = 60 * time.Second

// ProcessPayment signs a payment authorization for a single requirement.
// Only exact-scheme EVM requirements can be signed locally; Spark and Cashu
// payments reference external settlement and must be constructed with
// NewSparkPaymentPayload or ProcessCashuPayment.
//
// maxValue caps the atomic amount the wallet will authorize; nil means no cap.
func ProcessPayment(req PaymentRequirements, wallet Wallet, maxValue *big.Int) (*PaymentPayload, error) {
	if wallet == nil {
		return nil, fmt.Errorf("%w: no wallet configured", ErrSigningFailed)
	}
	if req.Scheme != SchemeExact || req.Network == NetworkSpark {
		return nil, fmt.Errorf("%w: cannot sign %s/%s locally", ErrUnsupportedScheme, req.Scheme, req.Network)
	}

	amount, err := DecimalString(req.MaxAmountRequired).BigInt()
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, req.MaxAmountRequired)
	}
	if maxValue != nil && amount.Cmp(maxValue) > 0 {
		return nil, fmt.Errorf("%w: %s > budget %s", ErrAmountExceeded, amount, maxValue)
	}

	chain, err := ChainConfigFor(req.Network)
	if err != nil {
		return nil, err
	}
	if !chain.IsEVM() {
		return nil, fmt.Errorf("%w: %q is not an EVM network", ErrUnsupportedNetwork, req.Network)
	}

	auth, err := newEIP3009Authorization(wallet.Address().Hex(), req.PayTo, amount, req.MaxTimeoutSeconds)
	if err != nil {
		return nil, err
	}

	typedData, err := transferAuthorizationTypedData(req, chain, auth)
	if err != nil {
		return nil, err
	}
	sig, err := wallet.SignTypedData(typedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return &PaymentPayload{
		X402Version: X402Version,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: &ExactEvmPayload{
			Signature:     "0x" + hex.EncodeToString(sig),
			Authorization: *auth,
		},
	}, nil
}

// newEIP3009Authorization builds transferWithAuthorization parameters with a
// fresh random nonce and a validity window derived from the requirement's
// timeout.
func newEIP3009Authorization(from, to string, value *big.Int, maxTimeoutSeconds int) (*EIP3009Authorization, error) {
	if maxTimeoutSeconds <= 0 {
		maxTimeoutSeconds = defaultMaxTimeoutSeconds
	}
	now := time.Now()
	validAfter := now.Add(-validAfterSkew).Unix()
	validBefore := now.Add(time.Duration(maxTimeoutSeconds) * time.Second).Unix()

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("%w: nonce generation: %v", ErrSigningFailed, err)
	}

	return &EIP3009Authorization{
		From:        from,
		To:          to,
		Value:       DecimalString(value.String()),
		ValidAfter:  DecimalString(strconv.FormatInt(validAfter, 10)),
		ValidBefore: DecimalString(strconv.FormatInt(validBefore, 10)),
		Nonce:       "0x" + hex.EncodeToString(nonce),
	}, nil
}

// transferAuthorizationTypedData builds the EIP-712 typed data for an
// EIP-3009 TransferWithAuthorization. The domain name and version come from
// the requirement's extra data when present, falling back to the chain
// registry.
func transferAuthorizationTypedData(req PaymentRequirements, chain ChainConfig, auth *EIP3009Authorization) (apitypes.TypedData, error) {
	name := chain.EIP712Name
	version := chain.EIP712Version
	if v, ok := req.Extra["name"].(string); ok && v != "" {
		name = v
	}
	if v, ok := req.Extra["version"].(string); ok && v != "" {
		version = v
	}

	value, err := auth.Value.BigInt()
	if err != nil {
		return apitypes.TypedData{}, err
	}
	validAfter, err := auth.ValidAfter.BigInt()
	if err != nil {
		return apitypes.TypedData{}, err
	}
	validBefore, err := auth.ValidBefore.BigInt()
	if err != nil {
		return apitypes.TypedData{}, err
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           math.NewHexOrDecimal256(chain.ChainID.Int64()),
			VerifyingContract: req.Asset,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       value.String(),
			"validAfter":  validAfter.String(),
			"validBefore": validBefore.String(),
			"nonce":       auth.Nonce,
		},
	}, nil
}

// ProcessPaymentRequired selects one option from a payment demand and signs
// it. Selection prefers exact-scheme EVM options the wallet can sign, in the
// merchant's order; Spark and Cashu options cannot be auto-signed and are
// skipped. When every affordable option needs external settlement the caller
// gets ErrUnsupportedScheme; when no option fits the budget, ErrAmountExceeded.
func ProcessPaymentRequired(required *PaymentRequiredResponse, wallet Wallet, maxValue *big.Int) (*PaymentPayload, error) {
	if required == nil || len(required.Accepts) == 0 {
		return nil, fmt.Errorf("%w: empty payment demand", ErrInvalidRequirements)
	}
	if required.X402Version != X402Version {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, required.X402Version)
	}

	var affordable []PaymentRequirements
	for _, req := range required.Accepts {
		amount, err := DecimalString(req.MaxAmountRequired).BigInt()
		if err != nil {
			continue
		}
		if maxValue != nil && amount.Cmp(maxValue) > 0 {
			continue
		}
		affordable = append(affordable, req)
	}
	if len(affordable) == 0 {
		return nil, fmt.Errorf("%w: no option within budget", ErrAmountExceeded)
	}

	sawExternal := false
	for _, req := range affordable {
		if req.Scheme != SchemeExact || !IsEVMNetwork(req.Network) {
			sawExternal = true
			continue
		}
		return ProcessPayment(req, wallet, maxValue)
	}
	if sawExternal {
		return nil, fmt.Errorf("%w: only externally settled options offered", ErrUnsupportedScheme)
	}
	return nil, fmt.Errorf("%w: no signable option", ErrUnsupportedNetwork)
}

// NewSparkPaymentPayload wraps completed Spark settlement evidence in a
// payment payload. Exactly the identifier matching the transport must be set:
// a transfer id for SPARK, a preimage for LIGHTNING, a txid for L1.
func NewSparkPaymentPayload(paymentType SparkPaymentType, transferID, preimage, txid string) (*PaymentPayload, error) {
	spark := SparkPayload{
		PaymentType: paymentType,
		TransferID:  transferID,
		Preimage:    preimage,
		TxID:        txid,
	}

	set := 0
	for _, id := range []string{transferID, preimage, txid} {
		if id != "" {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: spark payload needs exactly one settlement identifier, got %d", ErrInvalidRequirements, set)
	}
	switch paymentType {
	case SparkPaymentTypeSpark, SparkPaymentTypeLightning, SparkPaymentTypeL1:
	default:
		return nil, fmt.Errorf("%w: unknown spark payment type %q", ErrInvalidRequirements, paymentType)
	}
	if spark.SettlementID() == "" {
		return nil, fmt.Errorf("%w: identifier does not match payment type %q", ErrInvalidRequirements, paymentType)
	}

	return &PaymentPayload{
		X402Version: X402Version,
		Scheme:      SchemeExact,
		Network:     NetworkSpark,
		Payload:     &spark,
	}, nil
}

// ProcessCashuPayment validates a caller-minted Cashu payload against a
// cashu-token requirement. Every token's mint must appear in the
// requirement's mint list, and the parallel token arrays must align.
func ProcessCashuPayment(req PaymentRequirements, payload *CashuPayload) (*PaymentPayload, error) {
	if req.Scheme != SchemeCashuToken {
		return nil, fmt.Errorf("%w: requirement is %s, not %s", ErrUnsupportedScheme, req.Scheme, SchemeCashuToken)
	}
	if payload == nil || len(payload.Tokens) == 0 {
		return nil, fmt.Errorf("%w: empty cashu payload", ErrInvalidRequirements)
	}
	if len(payload.Encoded) != len(payload.Tokens) {
		return nil, fmt.Errorf("%w: %d tokens but %d encodings", ErrInvalidRequirements, len(payload.Tokens), len(payload.Encoded))
	}

	allowed := make(map[string]bool)
	if raw, ok := req.Extra["mints"]; ok {
		switch mints := raw.(type) {
		case []string:
			for _, m := range mints {
				allowed[m] = true
			}
		case []interface{}:
			for _, m := range mints {
				if s, ok := m.(string); ok {
					allowed[s] = true
				}
			}
		}
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: requirement lists no acceptable mints", ErrInvalidRequirements)
	}
	for _, token := range payload.Tokens {
		if !allowed[token.Mint] {
			return nil, fmt.Errorf("%w: mint %q not accepted", ErrInvalidRequirements, token.Mint)
		}
	}

	return &PaymentPayload{
		X402Version: X402Version,
		Scheme:      SchemeCashuToken,
		Network:     req.Network,
		Payload:     payload,
	}, nil
}
