package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-product-voting/internal/auth"
)

func newAuthEngine(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(v))
	r.GET("/who", func(c *gin.Context) {
		caller, _ := auth.CallerFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": UserID(c), "ctx": string(caller)})
	})
	return r
}

func TestAuthenticate_HeaderIdentity(t *testing.T) {
	r := newAuthEngine(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(HeaderUserID, "  alice ")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gin":"alice","ctx":"alice"}`, w.Body.String())
}

func TestAuthenticate_AnonymousPassesThrough(t *testing.T) {
	r := newAuthEngine(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gin":"","ctx":""}`, w.Body.String())
}

func TestAuthenticate_BearerToken(t *testing.T) {
	v := auth.NewVerifier("secret", "voting")
	r := newAuthEngine(v)

	tok, err := v.Sign("bob", time.Hour, time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	// The development header is ignored once tokens are configured.
	req.Header.Set(HeaderUserID, "mallory")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"gin":"bob","ctx":"bob"}`, w.Body.String())
}

func TestAuthenticate_InvalidToken401(t *testing.T) {
	r := newAuthEngine(auth.NewVerifier("secret", "voting"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"unauthorized"`)
}
