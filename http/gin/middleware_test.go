package gin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	x402 "github.com/google-a2a/a2a-x402-go"
)

func newTestRouter(activated *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ExtensionMiddleware())
	r.POST("/", func(c *gin.Context) {
		*activated = Activated(c)
		c.Status(http.StatusOK)
	})
	return r
}

func TestExtensionMiddleware(t *testing.T) {
	var activated bool
	r := newTestRouter(&activated)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(x402.ExtensionHeader, x402.ExtensionURI)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if !activated {
		t.Error("activation not visible to handler")
	}
	if got := rec.Header().Get(x402.ExtensionHeader); got != x402.ExtensionURI {
		t.Errorf("echo header = %q", got)
	}
}

func TestExtensionMiddlewareInactive(t *testing.T) {
	var activated bool
	r := newTestRouter(&activated)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if activated {
		t.Error("activation reported without header")
	}
	if rec.Header().Get(x402.ExtensionHeader) != "" {
		t.Error("echo header set without activation")
	}
}
