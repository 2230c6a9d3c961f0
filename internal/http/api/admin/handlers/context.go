package handlers

import "github.com/gin-gonic/gin"

// Context keys set by the admin auth middleware.
const (
	ContextAdminIDKey    = "adminID"
	ContextAdminEmailKey = "adminEmail"
)

// readAdminIDFromContext returns the authenticated admin's ID.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(ContextAdminIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// readAdminEmailFromContext returns the authenticated admin's email, used as
// the actor identity on audit entries and step transitions.
func readAdminEmailFromContext(c *gin.Context) string {
	value, ok := c.Get(ContextAdminEmailKey)
	if !ok {
		return ""
	}
	email, _ := value.(string)
	return email
}
