// Package gin provides payment-extension middleware for the Gin router.
package gin

import (
	"github.com/gin-gonic/gin"

	x402 "github.com/google-a2a/a2a-x402-go"
)

// ContextKey is the Gin context key under which the middleware records
// whether the caller activated the payment extension.
const ContextKey = "x402_extension_activated"

// ExtensionMiddleware detects payment-extension activation on each request
// and echoes the activation header on the response, per the A2A extension
// handshake. Handlers read the activation flag with Activated.
func ExtensionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		activated := x402.CheckExtensionActivation(c.Request.Header)
		c.Set(ContextKey, activated)
		if activated {
			c.Header(x402.ExtensionHeader, x402.ExtensionURI)
		}
		c.Next()
	}
}

// Activated reports whether the current request activated the payment
// extension.
func Activated(c *gin.Context) bool {
	v, ok := c.Get(ContextKey)
	if !ok {
		return false
	}
	activated, _ := v.(bool)
	return activated
}
