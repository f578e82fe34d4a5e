// Package remote provides a wallet backed by an external wallet service: key
// material never enters this process, each signing request is authorized with
// a short-lived JWT.
package remote

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// Signer signs through a remote wallet service. It implements x402.Wallet.
type Signer struct {
	baseURL string
	address common.Address
	auth    *ServiceAuth
	client  *http.Client
}

var _ x402.Wallet = (*Signer)(nil)

// Config configures a remote Signer.
type Config struct {
	// BaseURL is the wallet service base URL (required).
	BaseURL string

	// Address is the wallet's Ethereum address (required). The service holds
	// the matching key.
	Address string

	// Auth issues request tokens (required).
	Auth *ServiceAuth

	// Client is the HTTP client; a 30s-timeout client when nil.
	Client *http.Client
}

// NewSigner creates a remote wallet signer.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if !common.IsHexAddress(cfg.Address) {
		return nil, fmt.Errorf("%w: %q", x402.ErrInvalidKey, cfg.Address)
	}
	if cfg.Auth == nil {
		return nil, fmt.Errorf("remote: service auth is required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Signer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		address: common.HexToAddress(cfg.Address),
		auth:    cfg.Auth,
		client:  client,
	}, nil
}

// Address returns the wallet's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

type signMessageRequest struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

type signTypedDataRequest struct {
	Address   string             `json:"address"`
	TypedData apitypes.TypedData `json:"typedData"`
}

type signResponse struct {
	Signature string `json:"signature"`
}

// SignMessage signs a raw message per EIP-191 via the wallet service.
func (s *Signer) SignMessage(message []byte) ([]byte, error) {
	return s.sign("/sign/message", signMessageRequest{
		Address: s.address.Hex(),
		Message: "0x" + hex.EncodeToString(message),
	})
}

// SignTypedData signs EIP-712 typed data via the wallet service.
func (s *Signer) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	return s.sign("/sign/typed-data", signTypedDataRequest{
		Address:   s.address.Hex(),
		TypedData: typedData,
	})
}

func (s *Signer) sign(path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", x402.ErrSigningFailed, err)
	}

	token, err := s.auth.BearerToken(http.MethodPost, path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrSigningFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", x402.ErrSigningFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: wallet service returned %d", x402.ErrSigningFailed, resp.StatusCode)
	}

	var out signResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", x402.ErrSigningFailed, err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(out.Signature, "0x"))
	if err != nil || len(sig) != 65 {
		return nil, fmt.Errorf("%w: malformed signature from wallet service", x402.ErrSigningFailed)
	}
	return sig, nil
}
