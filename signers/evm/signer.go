// Package evm provides a local-key wallet for EVM payment signing. Keys load
// from raw hex, encrypted keystore files, or BIP39 mnemonics.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// Signer is an in-process wallet backed by an ECDSA private key. It
// implements x402.Wallet.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var _ x402.Wallet = (*Signer)(nil)

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// NewSigner creates a wallet from the given options. Exactly one key source
// option must be supplied.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.privateKey == nil {
		return nil, x402.ErrInvalidKey
	}
	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey sets the private key from a hex string.
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		hexKey = strings.TrimPrefix(hexKey, "0x")
		privateKey, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return x402.ErrInvalidKey
		}
		s.privateKey = privateKey
		return nil
	}
}

// Address returns the wallet's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignMessage signs a raw message per EIP-191 (personal_sign).
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	hash := accounts.TextHash(message)
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}
	sig[64] += 27
	return sig, nil
}

// SignTypedData signs EIP-712 typed data.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}
	sig[64] += 27
	return sig, nil
}
