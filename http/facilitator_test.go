package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	x402 "github.com/google-a2a/a2a-x402-go"
)

func fixturePayload() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: x402.X402Version,
		Scheme:      x402.SchemeExact,
		Network:     "base",
		Payload:     map[string]interface{}{"signature": "0xsig"},
	}
}

func fixtureRequirement() x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           "base",
		PayTo:             "0x2222222222222222222222222222222222222222",
		MaxAmountRequired: "1000000",
	}
}

func TestFacilitatorClientVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("path = %s, want /verify", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}

		var req FacilitatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.X402Version != x402.X402Version {
			t.Errorf("x402Version = %d", req.X402Version)
		}
		if req.PaymentRequirements.MaxAmountRequired != "1000000" {
			t.Errorf("requirements not forwarded: %+v", req.PaymentRequirements)
		}

		json.NewEncoder(w).Encode(x402.VerifyResponse{IsValid: true, Payer: "0xpayer"})
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL)
	resp, err := client.Verify(context.Background(), fixturePayload(), fixtureRequirement())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !resp.IsValid || resp.Payer != "0xpayer" {
		t.Errorf("response = %+v", resp)
	}
}

func TestFacilitatorClientSettle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("path = %s, want /settle", r.URL.Path)
		}
		json.NewEncoder(w).Encode(x402.SettleResponse{
			Success:     true,
			Transaction: "0xtx",
			Network:     "base",
		})
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL)
	resp, err := client.Settle(context.Background(), fixturePayload(), fixtureRequirement())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !resp.Success || resp.Transaction != "0xtx" {
		t.Errorf("response = %+v", resp)
	}
}

func TestFacilitatorClientAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(x402.VerifyResponse{IsValid: true})
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL)
	client.AuthorizationProvider = func(ctx context.Context) (string, error) {
		return "Bearer token-123", nil
	}
	if _, err := client.Verify(context.Background(), fixturePayload(), fixtureRequirement()); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestFacilitatorClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewFacilitatorClient(srv.URL)
	if _, err := client.Verify(context.Background(), fixturePayload(), fixtureRequirement()); !errors.Is(err, x402.ErrFacilitatorUnavailable) {
		t.Errorf("got %v, want ErrFacilitatorUnavailable", err)
	}
}

func TestFacilitatorClientUnreachable(t *testing.T) {
	client := NewFacilitatorClient("http://127.0.0.1:1")
	if _, err := client.Settle(context.Background(), fixturePayload(), fixtureRequirement()); !errors.Is(err, x402.ErrFacilitatorUnavailable) {
		t.Errorf("got %v, want ErrFacilitatorUnavailable", err)
	}
}
