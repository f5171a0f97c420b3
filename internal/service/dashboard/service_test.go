package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"koko-storefront/internal/freshness"
	"koko-storefront/internal/repository/document"
)

type fixture struct {
	products, orders, customers *document.Memory
	coordinator                 *freshness.Coordinator
	now                         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products:  document.NewMemory("products"),
		orders:    document.NewMemory("orders"),
		customers: document.NewMemory("customers"),
		now:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.coordinator = freshness.New(freshness.DefaultPolicy(), freshness.WithClock(func() time.Time { return f.now }))

	ctx := context.Background()
	for _, rec := range []document.Record{
		{"_id": "A", "stock": 25},
		{"_id": "B", "stock": 3},
		{"_id": "C", "stock": 0},
	} {
		_, err := f.products.Insert(ctx, rec)
		require.NoError(t, err)
	}
	for _, rec := range []document.Record{
		{"_id": "ORD-001", "status": "pending", "total": 75000},
		{"_id": "ORD-002", "status": "delivered", "total": 144000},
	} {
		_, err := f.orders.Insert(ctx, rec)
		require.NoError(t, err)
	}
	_, err := f.customers.Insert(ctx, document.Record{"_id": "CUST-001"})
	require.NoError(t, err)
	return f
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	svc := New(f.products, f.orders, f.customers, f.coordinator, 10, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.ProductCount)
	require.EqualValues(t, 2, stats.LowStockCount)
	require.EqualValues(t, 2, stats.OrderCount)
	require.EqualValues(t, 1, stats.PendingOrders)
	require.EqualValues(t, 1, stats.CustomerCount)
	require.Equal(t, 219000.0, stats.Revenue)
	require.Equal(t, 109500.0, stats.AvgOrderValue)
}

func TestStatsUsesAggregateWindow(t *testing.T) {
	f := newFixture(t)
	svc := New(f.products, f.orders, f.customers, f.coordinator, 10, nil)
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	_, err = f.products.Insert(ctx, document.Record{"_id": "D", "stock": 1})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.ProductCount, "served from cache inside the window")

	f.now = f.now.Add(61 * time.Second)
	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 4, stats.ProductCount)
}

func TestStatsInvalidatedByCatalogWrite(t *testing.T) {
	f := newFixture(t)
	svc := New(f.products, f.orders, f.customers, f.coordinator, 10, nil)
	ctx := context.Background()

	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.NoError(t, f.products.DeleteByID(ctx, "A"))
	f.coordinator.InvalidateEntities("A")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.ProductCount)
}
