package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/backup"
)

// BackupHandler triggers on-demand database snapshots.
type BackupHandler struct {
	uploader *backup.Uploader
	auditor  *audit.Recorder
}

// NewBackupHandler constructs a BackupHandler.
func NewBackupHandler(uploader *backup.Uploader, auditor *audit.Recorder) *BackupHandler {
	return &BackupHandler{uploader: uploader, auditor: auditor}
}

// Run uploads a snapshot immediately and returns the remote path.
func (h *BackupHandler) Run(c *gin.Context) {
	remote, errRun := h.uploader.Run(c.Request.Context())
	if errRun != nil {
		switch {
		case errors.Is(errRun, backup.ErrDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backup not configured"})
		case errors.Is(errRun, backup.ErrUnsupported):
			c.JSON(http.StatusConflict, gin.H{"error": "database has no local snapshot file"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "backup failed"})
		}
		return
	}

	h.auditor.Record(readAdminEmailFromContext(c), "backup.manual", "", map[string]string{"remotePath": remote})
	c.JSON(http.StatusOK, gin.H{"remotePath": remote})
}
