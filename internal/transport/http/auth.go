package httptransport

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"snapquiz-server-go/internal/domain/auth"
)

// AuthMiddleware validates the shared bearer token on API routes. A missing
// or invalid token gets a 401 with the usual envelope.
func AuthMiddleware(token *auth.AccessToken) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		ok, clientID, err := token.Verify(raw)
		if err != nil || !ok {
			RespondError(c, http.StatusUnauthorized, "invalid token", nil)
			c.Abort()
			return
		}

		c.Set("client_id", clientID)
		c.Next()
	}
}

type tokenIssueRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// TokenIssueHandler exchanges the configured auth secret for a signed access
// token so the web page can unlock the guarded routes. It sits on the open
// API group; everything else stays behind the middleware.
func TokenIssueHandler(token *auth.AccessToken, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req tokenIssueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid request body", nil)
			return
		}

		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(secret)) != 1 {
			RespondError(c, http.StatusUnauthorized, "invalid secret", nil)
			return
		}

		signed, err := token.Generate(uuid.NewString())
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "failed to issue token", nil)
			return
		}
		RespondSuccess(c, http.StatusOK, gin.H{"token": signed}, "token issued")
	}
}
