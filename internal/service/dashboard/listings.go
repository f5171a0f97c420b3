package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/repository/document"
)

// OrderFilter narrows the order listing. An empty Status lists every order.
type OrderFilter struct {
	Status string
}

// Key names the cached read path of the filtered listing.
func (f OrderFilter) Key() string {
	if f.Status == "" {
		return "orders"
	}
	return "orders?status=" + f.Status
}

// CustomersKey caches the customer listing.
var CustomersKey = freshness.CollectionKey("customers")

// Orders lists orders newest first, cached under the collection window.
func (s *Service) Orders(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	if filter.Status != "" && !knownStatus(filter.Status) {
		verr := &domain.ValidationError{}
		verr.Add("status", fmt.Sprintf("must be one of %v", domain.OrderStatuses))
		return nil, verr
	}
	orders, err := freshness.Get(ctx, s.coordinator, freshness.CollectionKey(filter.Key()), func(ctx context.Context) ([]domain.Order, error) {
		var eq map[string]any
		if filter.Status != "" {
			eq = map[string]any{"status": filter.Status}
		}
		recs, err := s.orders.FindMany(ctx, document.Filter{Eq: eq}, document.Sort{Field: "date", Desc: true}, 0)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Order, 0, len(recs))
		for _, rec := range recs {
			o, err := orderOf(rec)
			if err != nil {
				s.logger.Printf("dashboard: orders skip malformed record: %v", err)
				continue
			}
			out = append(out, o)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Order(nil), orders...), nil
}

// Customers lists customers by total spent, highest first.
func (s *Service) Customers(ctx context.Context) ([]domain.Customer, error) {
	customers, err := freshness.Get(ctx, s.coordinator, CustomersKey, func(ctx context.Context) ([]domain.Customer, error) {
		recs, err := s.customers.FindMany(ctx, document.Filter{}, document.Sort{Field: "totalSpent", Desc: true}, 0)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Customer, 0, len(recs))
		for _, rec := range recs {
			c, err := customerOf(rec)
			if err != nil {
				s.logger.Printf("dashboard: customers skip malformed record: %v", err)
				continue
			}
			out = append(out, c)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Customer(nil), customers...), nil
}

func knownStatus(status string) bool {
	for _, s := range domain.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func orderOf(rec document.Record) (domain.Order, error) {
	r := reader{rec: rec}
	o := domain.Order{
		ID:            r.text(document.KeyID, true),
		CustomerID:    r.text("customerId", false),
		CustomerName:  r.text("customerName", false),
		CustomerEmail: r.text("customerEmail", false),
		Status:        r.text("status", true),
		Total:         r.number("total", true),
		Date:          r.date("date", true),
	}
	items, _ := rec["items"].([]any)
	o.Items = make([]domain.OrderLine, 0, len(items))
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			r.fail("items", "not an object")
			break
		}
		line := reader{rec: m}
		o.Items = append(o.Items, domain.OrderLine{
			ItemID:   line.text("productId", false),
			Name:     line.text("productName", false),
			Quantity: int(line.number("quantity", false)),
			Price:    line.number("price", false),
			Size:     line.text("size", false),
		})
		if line.err != nil {
			r.fail("items", line.err.Reason)
			break
		}
	}
	if r.err != nil {
		r.err.ID = o.ID
		return domain.Order{}, r.err
	}
	return o, nil
}

func customerOf(rec document.Record) (domain.Customer, error) {
	r := reader{rec: rec}
	c := domain.Customer{
		ID:         r.text(document.KeyID, true),
		Name:       r.text("name", true),
		Email:      r.text("email", false),
		OrderCount: int(r.number("orderCount", false)),
		TotalSpent: r.number("totalSpent", false),
		JoinDate:   r.date("joinDate", false),
	}
	if last := r.date("lastOrderDate", false); !last.IsZero() {
		c.LastOrderDate = &last
	}
	if r.err != nil {
		r.err.ID = c.ID
		return domain.Customer{}, r.err
	}
	return c, nil
}

// reader pulls typed fields out of a record and keeps the first failure.
type reader struct {
	rec map[string]any
	err *domain.MalformedRecordError
}

func (r *reader) fail(field, reason string) {
	if r.err == nil {
		r.err = &domain.MalformedRecordError{Field: field, Reason: reason}
	}
}

func (r *reader) text(field string, required bool) string {
	v, ok := r.rec[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "missing")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok || (required && s == "") {
		r.fail(field, "not a string")
		return ""
	}
	return s
}

func (r *reader) number(field string, required bool) float64 {
	v, ok := r.rec[field]
	if !ok || v == nil {
		if required {
			r.fail(field, "missing")
		}
		return 0
	}
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		r.fail(field, "not a number")
		return 0
	}
	return n
}

func (r *reader) date(field string, required bool) time.Time {
	s := r.text(field, required)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		r.fail(field, "not an RFC3339 time")
		return time.Time{}
	}
	return t
}
