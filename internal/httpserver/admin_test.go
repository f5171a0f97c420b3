package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"koko-storefront/internal/domain"
)

func TestListOrders(t *testing.T) {
	date := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	dash := &stubDashboard{orders: []domain.Order{{ID: "ORD-004", Status: domain.OrderPending, Total: 75000, Date: date}}}
	router := testRouter(t, &stubCatalog{}, dash, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders?status=pending", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if dash.lastFilter.Status != "pending" {
		t.Fatalf("status filter not passed through: %+v", dash.lastFilter)
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=120" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	var got []domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ORD-004" || !got[0].Date.Equal(date) {
		t.Fatalf("unexpected orders %+v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders?status=lost", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for unknown status, got %d", rec.Code)
	}
}

func TestListCustomers(t *testing.T) {
	dash := &stubDashboard{customers: []domain.Customer{
		{ID: "CUST-003", Name: "Michael Brown", TotalSpent: 144000, OrderCount: 1},
		{ID: "CUST-002", Name: "Sarah Chen", TotalSpent: 135000, OrderCount: 1},
	}}
	router := testRouter(t, &stubCatalog{}, dash, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/customers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var got []domain.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "CUST-003" || got[0].LastOrderDate != nil {
		t.Fatalf("unexpected customers %+v", got)
	}
}
