package middlewares

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// verifyClient calls the external identity provider. Sessions, plans and
// user records all live there; this service only ever sees the subject id.
var verifyClient = &http.Client{Timeout: 5 * time.Second}

type verifyResponse struct {
	Sub string `json:"sub"`
}

// Auth middleware delegates token verification to the identity provider
// endpoint configured via AUTH_VERIFY_URL. On success it replaces the
// client-supplied token with a trusted "sub" header carrying the user id.
// It returns 401 on a missing token or a provider rejection.
func Auth() gin.HandlerFunc {
	verifyURL := os.Getenv("AUTH_VERIFY_URL")

	return func(c *gin.Context) {
		token := c.Request.Header.Get("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, verifyURL, nil)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		req.Header.Set("Authorization", token)

		resp, err := verifyClient.Do(req)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token rejected by identity provider"})
			c.Abort()
			return
		}

		var verified verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil || verified.Sub == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "malformed identity provider response"})
			c.Abort()
			return
		}

		// Never trust a caller-supplied subject, only the verified one.
		c.Request.Header.Del("Authorization")
		c.Request.Header.Set("sub", verified.Sub)

		c.Next()
	}
}
