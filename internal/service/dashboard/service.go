// Package dashboard computes the admin overview figures.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"log"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/repository/document"
)

// Key is the aggregate read path of the overview.
var Key = freshness.AggregateKey("dashboard")

type Service struct {
	products    document.Repository
	orders      document.Repository
	customers   document.Repository
	coordinator *freshness.Coordinator
	lowStock    float64
	logger      *log.Logger
}

// New returns a Service. Items with stock below lowStock count as low.
func New(products, orders, customers document.Repository, coordinator *freshness.Coordinator, lowStock float64, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		products:    products,
		orders:      orders,
		customers:   customers,
		coordinator: coordinator,
		lowStock:    lowStock,
		logger:      logger,
	}
}

// Stats returns the overview, cached under the aggregate window.
func (s *Service) Stats(ctx context.Context) (domain.DashboardStats, error) {
	return freshness.Get(ctx, s.coordinator, Key, s.compute)
}

func (s *Service) compute(ctx context.Context) (domain.DashboardStats, error) {
	var (
		stats domain.DashboardStats
		err   error
	)
	if stats.ProductCount, err = s.products.Count(ctx, document.Filter{}); err != nil {
		return stats, fmt.Errorf("count products: %w", err)
	}
	lowStock := document.Filter{Lt: map[string]float64{"stock": s.lowStock}}
	if stats.LowStockCount, err = s.products.Count(ctx, lowStock); err != nil {
		return stats, fmt.Errorf("count low stock: %w", err)
	}
	if stats.OrderCount, err = s.orders.Count(ctx, document.Filter{}); err != nil {
		return stats, fmt.Errorf("count orders: %w", err)
	}
	pending := document.Filter{Eq: map[string]any{"status": domain.OrderPending}}
	if stats.PendingOrders, err = s.orders.Count(ctx, pending); err != nil {
		return stats, fmt.Errorf("count pending orders: %w", err)
	}
	if stats.Revenue, err = s.orders.AggregateSum(ctx, document.Filter{}, "total"); err != nil {
		return stats, fmt.Errorf("sum revenue: %w", err)
	}
	if stats.OrderCount > 0 {
		stats.AvgOrderValue = stats.Revenue / float64(stats.OrderCount)
	}
	if stats.CustomerCount, err = s.customers.Count(ctx, document.Filter{}); err != nil {
		return stats, fmt.Errorf("count customers: %w", err)
	}
	s.logger.Printf("dashboard: computed products=%d orders=%d customers=%d", stats.ProductCount, stats.OrderCount, stats.CustomerCount)
	return stats, nil
}
