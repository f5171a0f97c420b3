package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koko-storefront/internal/domain"
)

func TestItemsListPassesFilter(t *testing.T) {
	h := newHarness(ghost)
	out, err := h.run(t, "items", "list", "--category", "Lifestyle", "--new", "--limit", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "ghost-walkers-v1")
	assert.Contains(t, out, "₦75,000")
	assert.Equal(t, "Lifestyle", h.catalog.lastFilter.Category)
	assert.Equal(t, 5, h.catalog.lastFilter.Limit)
	require.NotNil(t, h.catalog.lastFilter.IsNew)
	assert.True(t, *h.catalog.lastFilter.IsNew)
}

func TestItemsListWithoutNewFlagLeavesFilterUnset(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "items", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No products.")
	assert.Nil(t, h.catalog.lastFilter.IsNew)
}

func TestItemsGetNotFound(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "items", "get", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, 1, h.closes, "session is closed on failure too")
}

func TestItemsCreateSendsOnlyGivenFields(t *testing.T) {
	h := newHarness()
	out, err := h.run(t, "items", "create",
		"--name", "Zipper 2.0", "--price", "72000", "--stock", "35",
		"--image", "/a.jpg", "--image", "/b.jpg", "--size", "US 9")
	require.NoError(t, err)
	assert.Contains(t, out, "Created new-1.")

	require.Len(t, h.catalog.created, 1)
	in := h.catalog.created[0]
	require.NotNil(t, in.Name)
	assert.Equal(t, "Zipper 2.0", *in.Name)
	require.NotNil(t, in.Price)
	assert.Equal(t, "72000", *in.Price)
	assert.Nil(t, in.Description)
	assert.Nil(t, in.OriginalPrice)
	assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, in.Images)
	assert.Equal(t, []string{"US 9"}, in.Sizes)
	assert.Nil(t, in.Features)
	assert.Nil(t, in.IsNew, "isNew default is left to the normalizer")
}

func TestItemsCreateValidationError(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "items", "create", "--price", "10")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("name"))
}

func TestItemsUpdateOnlyChangedFlags(t *testing.T) {
	h := newHarness(ghost)
	_, err := h.run(t, "items", "update", ghost.ID, "--stock", "0", "--new=false")
	require.NoError(t, err)

	in, ok := h.catalog.updated[ghost.ID]
	require.True(t, ok)
	require.NotNil(t, in.Stock)
	assert.Equal(t, "0", *in.Stock)
	require.NotNil(t, in.IsNew)
	assert.False(t, *in.IsNew)
	assert.Nil(t, in.Name)
	assert.Nil(t, in.Price)
	assert.Nil(t, in.IsPreOrder)
	assert.Empty(t, in.Images)
}

func TestItemsDelete(t *testing.T) {
	h := newHarness(ghost)
	out, err := h.run(t, "items", "delete", ghost.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted ghost-walkers-v1.")
	assert.Equal(t, []string{ghost.ID}, h.catalog.deleted)
}

func TestDashboardText(t *testing.T) {
	h := newHarness()
	h.catalog.stats = domain.DashboardStats{ProductCount: 4, LowStockCount: 1, OrderCount: 2, PendingOrders: 1, CustomerCount: 3, Revenue: 219000, AvgOrderValue: 109500}
	out, err := h.run(t, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "4 (1 low stock)")
	assert.Contains(t, out, "₦219,000")
	assert.Contains(t, out, "₦109,500")
}

func TestItemsCategories(t *testing.T) {
	h := newHarness(ghost)
	out, err := h.run(t, "items", "categories")
	require.NoError(t, err)
	assert.Equal(t, "Lifestyle\n", out)
}
