package middleware

import (
	"net/http"

	"suki-be/internal/apperror"
	"suki-be/internal/auth"
	"suki-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenParser resolves a session token to its principal.
type TokenParser interface {
	ParseToken(token string) (*auth.Principal, error)
}

var (
	errUnauthenticated = apperror.Unauthorized("authentication required")
	errInvalidSession  = apperror.Unauthorized("invalid or expired session")
	errAdminOnly       = apperror.Forbidden("admin access required")
	errCustomerOnly    = apperror.Forbidden("customer session required")
)

// Authenticate attaches the caller's principal when a token is present.
// Requests without a token continue anonymously; a bad token is rejected.
func Authenticate(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractToken(c.Request)
		if token == "" {
			c.Next()
			return
		}

		p, err := parser.ParseToken(token)
		if err != nil {
			logger.FromCtx(c.Request.Context()).Info("rejected session token", zap.Error(err))
			Abort(c, errInvalidSession)
			return
		}

		c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if !ok {
			Abort(c, errUnauthenticated)
			return
		}
		if p.Role != auth.RoleCustomer {
			Abort(c, errCustomerOnly)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if !ok {
			Abort(c, errUnauthenticated)
			return
		}
		if !p.IsAdmin() {
			Abort(c, errAdminOnly)
			return
		}
		c.Next()
	}
}

// Abort stops the chain and writes err as {"error": message}.
func Abort(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperror.PublicMessage(err)})
}
