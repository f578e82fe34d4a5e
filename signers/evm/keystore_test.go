package evm

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/google-a2a/a2a-x402-go"
)

func writeTestKeystore(t *testing.T, password string) string {
	t.Helper()
	key, err := crypto.HexToECDSA(testPrivateKey[2:])
	if err != nil {
		t.Fatal(err)
	}
	cryptoJSON, err := keystore.EncryptDataV3(crypto.FromECDSA(key), []byte(password), keystore.LightScryptN, keystore.LightScryptP)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(map[string]interface{}{"crypto": cryptoJSON})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "keystore.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWithKeystore(t *testing.T) {
	path := writeTestKeystore(t, "hunter2")

	signer, err := NewSigner(WithKeystore(path, "hunter2"))
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	if signer.Address().Hex() != testAddress {
		t.Errorf("Address = %s, want %s", signer.Address().Hex(), testAddress)
	}
}

func TestWithKeystoreWrongPassword(t *testing.T) {
	path := writeTestKeystore(t, "hunter2")
	if _, err := NewSigner(WithKeystore(path, "wrong")); !errors.Is(err, x402.ErrInvalidKeystore) {
		t.Errorf("got %v, want ErrInvalidKeystore", err)
	}
}

func TestWithKeystoreMissingFile(t *testing.T) {
	if _, err := NewSigner(WithKeystore("/nonexistent/keystore.json", "pw")); !errors.Is(err, x402.ErrInvalidKeystore) {
		t.Errorf("got %v, want ErrInvalidKeystore", err)
	}
}

func TestWithKeystoreGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSigner(WithKeystore(path, "pw")); !errors.Is(err, x402.ErrInvalidKeystore) {
		t.Errorf("got %v, want ErrInvalidKeystore", err)
	}
}
