package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventpool/lottery-api/internal/handler"
	"github.com/eventpool/lottery-api/pkg/auth"
	apperrors "github.com/eventpool/lottery-api/pkg/errors"
	"github.com/eventpool/lottery-api/pkg/httputil"
)

// Auth validates the Bearer token and stores the member identifier for
// downstream handlers. Requests without a valid token are rejected.
func Auth(jwtService auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header")
			return
		}

		memberID, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(handler.ContextUserIDKey, memberID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	httputil.RespondWithError(c, apperrors.Unauthorized(errors.New(msg)))
	c.Abort()
}
