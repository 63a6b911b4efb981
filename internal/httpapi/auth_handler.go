package httpapi

import (
	"net/http"
	"strings"
	"time"

	"suki-be/internal/apperror"
	"suki-be/internal/auth"
	"suki-be/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

var errBadCredentials = apperror.Unauthorized("invalid email or password")

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		fail(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailOK := h.Admin.Email != "" && email == strings.ToLower(h.Admin.Email)
	// compare the hash even when the email is wrong
	passwordOK := auth.CheckPassword(h.Admin.PasswordHash, req.Password)
	if !emailOK || !passwordOK {
		logger.FromCtx(c.Request.Context()).Warn("admin login failed", zap.String("email", email))
		fail(c, errBadCredentials)
		return
	}

	token, exp, err := h.Tokens.Issue(auth.Principal{Subject: email, Email: email, Role: auth.RoleAdmin})
	if err != nil {
		fail(c, apperror.Internal("could not issue token", err))
		return
	}

	h.setSessionCookie(c, token, int(time.Until(exp).Seconds()))
	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: exp})
}

func (h *handler) logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (h *handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", h.SecureCookies, true)
}
