package middlewares

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func runThroughAuth(t *testing.T, verifyURL string, token string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	os.Setenv("AUTH_VERIFY_URL", verifyURL)
	defer os.Unsetenv("AUTH_VERIFY_URL")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth())

	var seenSub string
	router.GET("/whoami", func(c *gin.Context) {
		seenSub = c.Request.Header.Get("sub")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w, seenSub
}

func TestAuthInjectsVerifiedSubject(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"sub": "user-42"}`))
	}))
	defer provider.Close()

	w, sub := runThroughAuth(t, provider.URL, "Bearer token-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-42", sub)
}

func TestAuthMissingToken(t *testing.T) {
	w, _ := runThroughAuth(t, "http://localhost:0", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthProviderRejection(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer provider.Close()

	w, _ := runThroughAuth(t, provider.URL, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthIgnoresCallerSuppliedSubject(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sub": "verified-user"}`))
	}))
	defer provider.Close()

	os.Setenv("AUTH_VERIFY_URL", provider.URL)
	defer os.Unsetenv("AUTH_VERIFY_URL")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth())
	var seenSub string
	router.GET("/whoami", func(c *gin.Context) {
		seenSub = c.Request.Header.Get("sub")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	req.Header.Set("sub", "forged-user")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "verified-user", seenSub)
}
