// Package chi provides payment-extension middleware for chi routers.
package chi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	x402 "github.com/google-a2a/a2a-x402-go"
)

type contextKey struct{}

// ExtensionMiddleware detects payment-extension activation on each request
// and echoes the activation header on the response, per the A2A extension
// handshake. Handlers read the activation flag with Activated.
func ExtensionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activated := x402.CheckExtensionActivation(r.Header)
		if activated {
			w.Header().Set(x402.ExtensionHeader, x402.ExtensionURI)
		}
		ctx := context.WithValue(r.Context(), contextKey{}, activated)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Activated reports whether the request activated the payment extension.
func Activated(ctx context.Context) bool {
	activated, _ := ctx.Value(contextKey{}).(bool)
	return activated
}

// NewRouter creates a chi router with the extension middleware mounted and
// the agent card served at the well-known discovery path.
func NewRouter(card *x402.AgentCardHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(ExtensionMiddleware)
	if card != nil {
		r.Get("/.well-known/agent-card.json", card.ServeHTTP)
	}
	return r
}
