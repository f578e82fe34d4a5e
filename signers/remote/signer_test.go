package remote

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/square/go-jose.v2/jwt"
)

func testPEMKey(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func TestNewServiceAuth(t *testing.T) {
	pemKey := testPEMKey(t)
	if _, err := NewServiceAuth("key-1", pemKey, "wallet.example.com"); err != nil {
		t.Fatalf("NewServiceAuth: %v", err)
	}
	if _, err := NewServiceAuth("", pemKey, "wallet.example.com"); err == nil {
		t.Error("expected error for empty key id")
	}
	if _, err := NewServiceAuth("key-1", "not pem", "wallet.example.com"); err == nil {
		t.Error("expected error for invalid PEM")
	}
}

func TestBearerTokenClaims(t *testing.T) {
	auth, err := NewServiceAuth("key-1", testPEMKey(t), "wallet.example.com")
	if err != nil {
		t.Fatal(err)
	}

	token, err := auth.BearerToken(http.MethodPost, "/sign/typed-data", []byte(`{"address":"0x1"}`))
	if err != nil {
		t.Fatalf("BearerToken: %v", err)
	}

	parsed, err := jwt.ParseSigned(token)
	if err != nil {
		t.Fatalf("ParseSigned: %v", err)
	}
	var claims authClaims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims.Subject != "key-1" {
		t.Errorf("sub = %q", claims.Subject)
	}
	if claims.URI != "POST wallet.example.com/sign/typed-data" {
		t.Errorf("uri = %q", claims.URI)
	}
	if claims.ReqHash == "" {
		t.Error("missing body hash binding")
	}
}

func TestRemoteSignerSigns(t *testing.T) {
	wantSig := "0x" + strings.Repeat("ab", 65)
	var gotPath, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"signature": wantSig})
	}))
	defer srv.Close()

	auth, err := NewServiceAuth("key-1", testPEMKey(t), "wallet.example.com")
	if err != nil {
		t.Fatal(err)
	}
	signer, err := NewSigner(Config{
		BaseURL: srv.URL,
		Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Auth:    auth,
	})
	if err != nil {
		t.Fatal(err)
	}

	sig, err := signer.SignMessage([]byte("hello"))
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if hex.EncodeToString(sig) != strings.Repeat("ab", 65) {
		t.Errorf("signature = %x", sig)
	}
	if gotPath != "/sign/message" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestRemoteSignerRejectsMalformedSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"signature": "0xdead"})
	}))
	defer srv.Close()

	auth, err := NewServiceAuth("key-1", testPEMKey(t), "wallet.example.com")
	if err != nil {
		t.Fatal(err)
	}
	signer, err := NewSigner(Config{
		BaseURL: srv.URL,
		Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Auth:    auth,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := signer.SignMessage([]byte("hello")); err == nil {
		t.Error("expected error for short signature")
	}
}

func TestRemoteSignerConfigValidation(t *testing.T) {
	auth, err := NewServiceAuth("key-1", testPEMKey(t), "wallet.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewSigner(Config{Address: "0x1", Auth: auth}); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewSigner(Config{BaseURL: "http://x", Address: "nope", Auth: auth}); err == nil {
		t.Error("expected error for bad address")
	}
	if _, err := NewSigner(Config{BaseURL: "http://x", Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"}); err == nil {
		t.Error("expected error for missing auth")
	}
}
