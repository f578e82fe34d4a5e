package evm

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// WithKeystore loads the signing key from a geth-encrypted keystore file.
func WithKeystore(path, password string) SignerOption {
	return func(s *Signer) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKeystore, err)
		}
		key, err := decryptKeystore(data, password)
		if err != nil {
			return err
		}
		s.privateKey = key
		return nil
	}
}

func decryptKeystore(data []byte, password string) (*ecdsa.PrivateKey, error) {
	var file struct {
		Crypto keystore.CryptoJSON `json:"crypto"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: not a keystore JSON file", x402.ErrInvalidKeystore)
	}
	raw, err := keystore.DecryptDataV3(file.Crypto, password)
	if err != nil {
		return nil, fmt.Errorf("%w: decryption failed", x402.ErrInvalidKeystore)
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypted data is not a secp256k1 key", x402.ErrInvalidKeystore)
	}
	return key, nil
}

// WithMnemonic derives the signing key from a BIP39 phrase at the standard
// Ethereum path m/44'/60'/0'/0/{index}. Index 0 is the usual first account.
func WithMnemonic(mnemonic string, index uint32) SignerOption {
	return func(s *Signer) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return x402.ErrInvalidMnemonic
		}
		key, err := deriveAccountKey(bip39.NewSeed(mnemonic, ""), index)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidMnemonic, err)
		}
		s.privateKey = key
		return nil
	}
}

// deriveAccountKey walks the BIP44 Ethereum path down to the external
// address at the given index.
func deriveAccountKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	path := []uint32{
		bip32.FirstHardenedChild + 44, // purpose
		bip32.FirstHardenedChild + 60, // ether
		bip32.FirstHardenedChild,      // account 0
		0,                             // external chain
		index,
	}
	for _, child := range path {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, err
		}
	}
	return crypto.ToECDSA(key.Key)
}
