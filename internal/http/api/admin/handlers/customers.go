package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/shopify"
)

// CustomerHandler looks up customer data in the linked Shopify shop.
type CustomerHandler struct {
	shop *shopify.Client
}

// NewCustomerHandler constructs a CustomerHandler.
func NewCustomerHandler(shop *shopify.Client) *CustomerHandler {
	return &CustomerHandler{shop: shop}
}

// Lookup resolves a Shopify customer by email.
func (h *CustomerHandler) Lookup(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	customer, errLookup := h.shop.CustomerByEmail(c.Request.Context(), email)
	if errLookup != nil {
		switch {
		case errors.Is(errLookup, shopify.ErrDisabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shopify integration not configured"})
		case errors.Is(errLookup, shopify.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "customer not found"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "shopify lookup failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}
