// Package admin registers the authenticated operator API.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/backup"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/http/api/admin/handlers"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/models"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/progress"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/security"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/shopify"
)

// Deps bundles the collaborators the admin API needs.
type Deps struct {
	DB            *gorm.DB
	JWT           config.JWTConfig
	Requests      *request.Service
	Engine        *progress.Engine
	Approvals     *approval.Service
	Auditor       *audit.Recorder
	Dispatcher    *notify.Dispatcher
	ProgressCache *cache.ProgressCache
	Uploader      *backup.Uploader
	Shop          *shopify.Client
}

// RegisterAdminRoutes registers login and authenticated operator routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT)
	group.POST("/auth/login", authHandler.Login)
	group.POST("/auth/login/totp", authHandler.LoginTOTP)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT))

	mfaHandler := handlers.NewMFAHandler(deps.DB)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	requestHandler := handlers.NewRequestHandler(deps.DB, deps.Requests, deps.Engine, deps.Auditor, deps.Dispatcher, deps.ProgressCache)
	authed.GET("/requests", requestHandler.List)
	authed.GET("/requests/:id", requestHandler.Get)
	authed.PATCH("/requests/:id/status", requestHandler.UpdateStatus)
	authed.PUT("/requests/:id/step/:stepNumber", requestHandler.Transition)
	authed.GET("/requests/:id/step/:stepNumber/detail", requestHandler.Detail)
	authed.GET("/requests/:id/history", requestHandler.History)
	authed.GET("/requests/:id/notifications", requestHandler.Notifications)

	approvalHandler := handlers.NewApprovalHandler(deps.Approvals, deps.Auditor, deps.Dispatcher)
	authed.POST("/approvals", approvalHandler.Create)
	authed.GET("/approvals", approvalHandler.List)
	authed.GET("/approvals/:key", approvalHandler.Get)

	messageHandler := handlers.NewMessageHandler(deps.DB, deps.Dispatcher)
	authed.GET("/messages", messageHandler.List)
	authed.POST("/messages", messageHandler.Create)
	authed.POST("/messages/:id/read", messageHandler.MarkRead)

	contactHandler := handlers.NewContactHandler(deps.DB)
	authed.GET("/contacts", contactHandler.List)
	authed.POST("/contacts/:id/answered", contactHandler.MarkAnswered)

	statsHandler := handlers.NewStatsHandler(deps.Requests)
	authed.GET("/stats", statsHandler.Get)

	logsHandler := handlers.NewLogsHandler(deps.Auditor)
	authed.GET("/logs", logsHandler.List)

	settingsHandler := handlers.NewSettingsHandler(deps.DB, deps.Auditor)
	authed.GET("/settings", settingsHandler.Get)
	authed.PUT("/settings", settingsHandler.Update)

	backupHandler := handlers.NewBackupHandler(deps.Uploader, deps.Auditor)
	authed.POST("/backup/run", backupHandler.Run)

	customerHandler := handlers.NewCustomerHandler(deps.Shop)
	authed.GET("/customers/lookup", customerHandler.Lookup)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		c.Set(handlers.ContextAdminIDKey, admin.ID)
		c.Set(handlers.ContextAdminEmailKey, admin.Email)
		c.Next()
	}
}
