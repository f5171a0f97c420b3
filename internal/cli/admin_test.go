package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koko-storefront/internal/domain"
)

func TestOrdersText(t *testing.T) {
	h := newHarness()
	h.catalog.orders = []domain.Order{
		{ID: "ORD-004", CustomerName: "Emily Davis", Status: domain.OrderPending, Total: 75000,
			Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Items: []domain.OrderLine{{ItemID: "ghost-walkers-v1", Quantity: 1}}},
		{ID: "ORD-003", CustomerName: "Michael Brown", Status: domain.OrderProcessing, Total: 144000,
			Date: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), Items: []domain.OrderLine{{ItemID: "zipper-2-0", Quantity: 2}}},
	}

	out, err := h.run(t, "orders", "--status", "pending")
	require.NoError(t, err)
	assert.Equal(t, "pending", h.catalog.orderFilter.Status)
	assert.Contains(t, out, "ORD-004")
	assert.Contains(t, out, "2026-03-10")
	assert.Contains(t, out, "₦75,000")
	assert.NotContains(t, out, "ORD-003")
}

func TestOrdersEmpty(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "orders")
	require.NoError(t, err)
	assert.Equal(t, "No orders.\n", out)
}

func TestCustomersJSON(t *testing.T) {
	h := newHarness()
	last := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	h.catalog.customers = []domain.Customer{
		{ID: "CUST-003", Name: "Michael Brown", TotalSpent: 144000, OrderCount: 1, LastOrderDate: &last},
		{ID: "CUST-006", Name: "New Shopper"},
	}

	out, err := h.run(t, "--format", "json", "customers")
	require.NoError(t, err)
	var resp struct {
		Status string            `json:"status"`
		Data   []domain.Customer `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "CUST-003", resp.Data[0].ID)

	out, err = h.run(t, "customers")
	require.NoError(t, err)
	assert.Contains(t, out, "Michael Brown")
	assert.Contains(t, out, "2026-03-09")
	var shopper string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "CUST-006") {
			shopper = line
		}
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(shopper), "-"), "no last order shown as -: %q", shopper)
}
