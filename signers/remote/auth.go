package remote

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// ServiceAuth generates short-lived JWT bearer tokens for a wallet service.
// The PEM-encoded private key is parsed once at construction; ServiceAuth is
// immutable afterwards and safe for concurrent use.
type ServiceAuth struct {
	keyID      string
	audience   string
	privateKey interface{}
}

// authClaims extends the standard JWT claims with the request binding the
// wallet service verifies.
type authClaims struct {
	*jwt.Claims
	// URI is the bound request in "{METHOD} {host}{path}" form.
	URI string `json:"uri"`
	// ReqHash is the hex-encoded SHA-256 hash of the request body.
	ReqHash string `json:"reqHash,omitempty"`
}

// NewServiceAuth parses the PEM-encoded ECDSA or Ed25519 private key and
// returns an authenticator issuing tokens for the given audience host.
func NewServiceAuth(keyID, pemKey, audience string) (*ServiceAuth, error) {
	if keyID == "" {
		return nil, fmt.Errorf("remote: key id must not be empty")
	}

	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("remote: invalid PEM private key")
	}

	privateKey, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		var pkcs8 interface{}
		pkcs8, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("remote: parse private key: %w", err)
		}
		switch k := pkcs8.(type) {
		case *ecdsa.PrivateKey:
			return &ServiceAuth{keyID: keyID, audience: audience, privateKey: k}, nil
		case crypto.Signer:
			return &ServiceAuth{keyID: keyID, audience: audience, privateKey: k}, nil
		default:
			return nil, fmt.Errorf("remote: unsupported private key type")
		}
	}
	return &ServiceAuth{keyID: keyID, audience: audience, privateKey: privateKey}, nil
}

// BearerToken issues a token bound to one request. Tokens live two minutes;
// the body hash binds the token to the exact payload when given.
func (a *ServiceAuth) BearerToken(method, path string, body []byte) (string, error) {
	alg := jose.EdDSA
	if _, ok := a.privateKey.(*ecdsa.PrivateKey); ok {
		alg = jose.ES256
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: alg, Key: a.privateKey},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", a.keyID),
	)
	if err != nil {
		return "", fmt.Errorf("remote: create JWT signer: %w", err)
	}

	var reqHash string
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		reqHash = hex.EncodeToString(sum[:])
	}

	now := time.Now()
	claims := &authClaims{
		Claims: &jwt.Claims{
			Subject:   a.keyID,
			Issuer:    "a2a-x402",
			NotBefore: jwt.NewNumericDate(now),
			Expiry:    jwt.NewNumericDate(now.Add(2 * time.Minute)),
		},
		URI:     fmt.Sprintf("%s %s%s", method, a.audience, path),
		ReqHash: reqHash,
	}

	token, err := jwt.Signed(sig).Claims(claims).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("remote: serialize JWT: %w", err)
	}
	return token, nil
}
