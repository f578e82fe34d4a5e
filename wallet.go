package x402

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet is the signing capability used to authorize payments. It exposes
// only what EIP-191 and EIP-712 require and never key material, so
// in-process keys, remote wallet services, and HSMs slot in unchanged.
//
// Implementations live under signers/.
type Wallet interface {
	// Address returns the wallet's ethereum address.
	Address() common.Address

	// SignMessage signs a raw message per EIP-191 (personal_sign).
	// The returned signature is 65 bytes with the recovery id adjusted to
	// the Ethereum convention (v = 27 or 28).
	SignMessage(message []byte) ([]byte, error)

	// SignTypedData signs EIP-712 typed data. The returned signature is 65
	// bytes with v = 27 or 28.
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}
