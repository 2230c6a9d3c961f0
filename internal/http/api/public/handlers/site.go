package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/settings"
)

// GetSiteInfo returns the public site name and any maintenance banner.
func GetSiteInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"siteName":          settings.SiteName(),
		"maintenanceNotice": settings.MaintenanceNotice(),
	})
}
