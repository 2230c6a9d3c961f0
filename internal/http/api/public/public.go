// Package public registers the unauthenticated customer-facing API.
package public

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/approval"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/cache"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/http/api/public/handlers"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/request"
)

// RegisterPublicRoutes registers the customer-facing routes.
func RegisterPublicRoutes(r *gin.Engine, db *gorm.DB, requests *request.Service, approvals *approval.Service, dispatcher *notify.Dispatcher, progressCache *cache.ProgressCache) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/public")

	requestHandler := handlers.NewRequestHandler(db, requests, dispatcher, progressCache)
	group.POST("/requests", requestHandler.Create)
	group.GET("/progress/:publicId", requestHandler.Progress)

	approvalHandler := handlers.NewApprovalHandler(approvals)
	group.GET("/approvals/:key", approvalHandler.Get)
	group.POST("/approvals/:key/response", approvalHandler.Respond)

	contactHandler := handlers.NewContactHandler(db)
	group.POST("/contacts", contactHandler.Create)

	group.GET("/site", handlers.GetSiteInfo)
}
