package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"koko-storefront/internal/service/dashboard"
)

func (h *handlers) listOrders(c *gin.Context) {
	filter := dashboard.OrderFilter{Status: c.Query("status")}
	orders, err := h.dashboard.Orders(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list orders", err)
		return
	}
	h.privateCache(c)
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) listCustomers(c *gin.Context) {
	customers, err := h.dashboard.Customers(c.Request.Context())
	if err != nil {
		h.writeError(c, "list customers", err)
		return
	}
	h.privateCache(c)
	c.JSON(http.StatusOK, customers)
}

// privateCache lets the admin's own browser reuse a listing for the
// collection window but keeps it out of shared caches.
func (h *handlers) privateCache(c *gin.Context) {
	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", int(h.catalog.Policy().Collection.Seconds())))
}
