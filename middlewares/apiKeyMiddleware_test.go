package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func guardedRouter(accessKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", APIKeyMiddleware(accessKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func request(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyMiddleware_CorrectKeyPasses(t *testing.T) {
	if w := request(guardedRouter("s3cret"), "s3cret"); w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
}

func TestAPIKeyMiddleware_WrongKeyIs401(t *testing.T) {
	if w := request(guardedRouter("s3cret"), "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestAPIKeyMiddleware_MissingKeyIs401(t *testing.T) {
	if w := request(guardedRouter("s3cret"), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestKeyMatches_EmptyConfiguredKeyNeverMatches(t *testing.T) {
	if KeyMatches("", "") {
		t.Fatal("an unconfigured key must not match anything")
	}
	if KeyMatches("", "anything") {
		t.Fatal("an unconfigured key must not match anything")
	}
}

func TestKeyMatches_PrefixDoesNotMatch(t *testing.T) {
	if KeyMatches("s3cret", "s3c") {
		t.Fatal("partial key must not match")
	}
	if KeyMatches("s3cret", "s3cret-and-more") {
		t.Fatal("longer key must not match")
	}
}
