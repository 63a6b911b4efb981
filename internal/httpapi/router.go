package httpapi

import (
	"context"
	"net/http"
	"time"

	"suki-be/internal/address"
	"suki-be/internal/auth"
	"suki-be/internal/courier"
	"suki-be/internal/customer"
	"suki-be/internal/email"
	"suki-be/internal/ledgersync"
	"suki-be/internal/logger"
	"suki-be/internal/metrics"
	"suki-be/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const loginPath = "/api/admin/login"

// TokenService issues and verifies session tokens.
type TokenService interface {
	middleware.TokenParser
	Issue(p auth.Principal) (string, time.Time, error)
}

// AdminCredentials is the single administrator account.
type AdminCredentials struct {
	Email        string
	PasswordHash string
}

type Deps struct {
	Customers customer.Service
	Addresses address.Service
	Sync      ledgersync.Service
	Couriers  courier.Service
	Email     email.Service

	Tokens  TokenService
	Admin   AdminCredentials
	Metrics *metrics.Metrics
	Limiter *middleware.Limiter

	// Ready reports whether dependencies such as the database are reachable.
	Ready func(ctx context.Context) error

	CORSOrigins   []string
	SecureCookies bool
}

type handler struct {
	Deps
}

func NewRouter(d Deps) *gin.Engine {
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(logger.AccessLog())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")

	// session routes tolerate a stale token
	session := api.Group("/admin", h.rateLimit()...)
	session.POST("/login", h.login)
	session.POST("/logout", h.logout)

	authed := api.Group("", append([]gin.HandlerFunc{middleware.Authenticate(d.Tokens)}, h.rateLimit()...)...)

	cust := authed.Group("", middleware.RequireCustomer())
	{
		cust.POST("/customers", h.register)
		cust.GET("/couriers", h.listActiveCouriers)

		cust.GET("/me", h.getMe)
		cust.PATCH("/me", h.updateMe)
		cust.DELETE("/me", h.deleteMe)

		cust.GET("/me/addresses", h.listMyAddresses)
		cust.POST("/me/addresses", h.addMyAddress)
		cust.PATCH("/me/addresses/:addressId", h.updateMyAddress)
		cust.DELETE("/me/addresses/:addressId", h.deleteMyAddress)
		cust.POST("/me/addresses/:addressId/default", h.setMyDefault)
	}

	admin := authed.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/customers", h.listCustomers)
		admin.GET("/customers/:id", h.getCustomer)
		admin.PATCH("/customers/:id", h.updateCustomer)
		admin.DELETE("/customers/:id", h.deleteCustomer)

		admin.GET("/customers/:id/addresses", h.listAddresses)
		admin.POST("/customers/:id/addresses", h.addAddress)
		admin.PATCH("/customers/:id/addresses/:addressId", h.updateAddress)
		admin.DELETE("/customers/:id/addresses/:addressId", h.deleteAddress)
		admin.POST("/customers/:id/addresses/:addressId/default", h.setDefault)

		admin.POST("/customers/:id/sync", h.triggerSync)
		admin.POST("/customers/:id/sync/profile", h.syncProfile)
		admin.POST("/customers/:id/sync/reset", h.resetSync)
		admin.PUT("/customers/:id/sync/link", h.linkContact)
		admin.DELETE("/customers/:id/sync/link", h.unlinkContact)
		admin.GET("/customers/:id/invoices", h.listInvoices)
		admin.POST("/sync/process", h.processQueue)

		admin.GET("/couriers", h.listCouriers)
		admin.POST("/couriers", h.createCourier)
		admin.PATCH("/couriers/:id", h.updateCourier)
		admin.DELETE("/couriers/:id", h.deleteCourier)

		admin.GET("/email-templates", h.listTemplates)
		admin.POST("/email-templates", h.createTemplate)
		admin.PATCH("/email-templates/:id", h.updateTemplate)
		admin.DELETE("/email-templates/:id", h.deleteTemplate)

		admin.POST("/emails", h.sendEmail)
		admin.GET("/emails", h.listEmails)
		admin.GET("/emails/rate-limit", h.emailRateLimit)
		admin.POST("/emails/flush", h.flushEmails)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader, "X-Device-ID"},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func (h *handler) rateLimit() []gin.HandlerFunc {
	if h.Limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimit(h.Limiter)}
}

// StrictPaths are the routes limited to the strict rate tier.
func StrictPaths() []string {
	return []string{loginPath}
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) readyz(c *gin.Context) {
	if h.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
