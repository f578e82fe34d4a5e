package server

import (
	x402 "github.com/google-a2a/a2a-x402-go"
	"github.com/google-a2a/a2a-x402-go/facilitator"
	x402http "github.com/google-a2a/a2a-x402-go/http"
)

func newHTTPFacilitator(baseURL string, timeouts x402.TimeoutConfig) facilitator.Interface {
	client := x402http.NewFacilitatorClient(baseURL)
	if timeouts != (x402.TimeoutConfig{}) {
		client.Timeouts = timeouts
	}
	return client
}
