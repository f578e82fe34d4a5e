package x402

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google-a2a/a2a-x402-go/a2a"
)

// ExtensionURI identifies the x402 payment extension in agent cards and
// activation headers.
const ExtensionURI = "https://github.com/google-a2a/a2a-x402/v0.1"

// ExtensionHeader is the HTTP header clients use to activate extensions and
// servers echo to confirm activation.
const ExtensionHeader = "X-A2A-Extensions"

// ExtensionDeclaration builds the agent-card entry advertising the payment
// extension. Agents that refuse to serve unpaid traffic set required.
func ExtensionDeclaration(description string, required bool) a2a.AgentExtension {
	if description == "" {
		description = "Supports payments using the x402 protocol."
	}
	return a2a.AgentExtension{
		URI:         ExtensionURI,
		Description: description,
		Required:    required,
	}
}

// CheckExtensionActivation reports whether the request headers activate the
// payment extension. The header is a comma-separated list of extension URIs.
func CheckExtensionActivation(h http.Header) bool {
	for _, value := range h.Values(ExtensionHeader) {
		for _, uri := range strings.Split(value, ",") {
			if strings.TrimSpace(uri) == ExtensionURI {
				return true
			}
		}
	}
	return false
}

// AgentCardHandler serves an agent card as JSON at the well-known discovery
// path.
type AgentCardHandler struct {
	Card a2a.AgentCard
}

// ServeHTTP implements http.Handler.
func (h *AgentCardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Card)
}

// AddExtensionActivationHeader appends the payment extension URI to the
// activation header, preserving any extensions already listed.
func AddExtensionActivationHeader(h http.Header) {
	existing := h.Get(ExtensionHeader)
	if existing == "" {
		h.Set(ExtensionHeader, ExtensionURI)
		return
	}
	for _, uri := range strings.Split(existing, ",") {
		if strings.TrimSpace(uri) == ExtensionURI {
			return
		}
	}
	h.Set(ExtensionHeader, existing+", "+ExtensionURI)
}
