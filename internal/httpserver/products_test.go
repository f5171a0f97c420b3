package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
)

func ghostWalkers() domain.CatalogItem {
	return domain.CatalogItem{
		ID:       "ghost-walkers-v1",
		Name:     "Ghost Walkers",
		Price:    75000,
		Images:   []string{"/shoe-1.png"},
		Sizes:    []string{"US 9"},
		Category: "Streetwear",
		Features: []string{},
		Stock:    25,
		IsNew:    true,
	}
}

func TestListProducts(t *testing.T) {
	cat := &stubCatalog{items: []domain.CatalogItem{ghostWalkers()}}
	router := testRouter(t, cat, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?category=Streetwear&isNew=true&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=120" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	if cat.lastFilter.Category != "Streetwear" || cat.lastFilter.IsNew == nil || !*cat.lastFilter.IsNew || cat.lastFilter.Limit != 5 {
		t.Fatalf("unexpected filter %+v", cat.lastFilter)
	}

	var body []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body[0]["id"] != "ghost-walkers-v1" || body[0]["isNew"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	if _, leaked := body[0]["isNewItem"]; leaked {
		t.Fatalf("internal alias leaked: %v", body[0])
	}
}

func TestListProducts_BadQuery(t *testing.T) {
	router := testRouter(t, &stubCatalog{}, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products?isNew=maybe&limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Fields) != 2 {
		t.Fatalf("expected two field errors, got %+v", body)
	}
}

func TestGetProduct(t *testing.T) {
	cat := &stubCatalog{item: ghostWalkers()}
	router := testRouter(t, cat, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/ghost-walkers-v1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if cat.lastID != "ghost-walkers-v1" {
		t.Fatalf("unexpected id %q", cat.lastID)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
}

func TestGetProduct_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{&freshness.FetchError{Key: freshness.ItemKey("x"), Err: errors.New("down")}, http.StatusServiceUnavailable},
		{&domain.MalformedRecordError{ID: "x", Field: "price", Reason: "missing"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router := testRouter(t, &stubCatalog{err: tc.err}, nil, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/x", nil))
		if rec.Code != tc.want {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestCreateProduct_JSON(t *testing.T) {
	cat := &stubCatalog{item: ghostWalkers()}
	router := testRouter(t, cat, nil, nil)
	body := `{"name":"Ghost Walkers","description":"d","price":0,"stock":"25","category":"Streetwear","imageUrl":"/shoe-1.png","isNew":false}`
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("writes must not be cached")
	}
	in := cat.lastInput
	if in.Price == nil || *in.Price != "0" {
		t.Fatalf("explicit zero price lost: %+v", in.Price)
	}
	if in.Stock == nil || *in.Stock != "25" {
		t.Fatalf("unexpected stock %+v", in.Stock)
	}
	if len(in.Images) != 1 || in.Images[0] != "/shoe-1.png" {
		t.Fatalf("unexpected images %v", in.Images)
	}
	if in.IsNew == nil || *in.IsNew {
		t.Fatalf("expected isNew=false, got %v", in.IsNew)
	}
}

func TestCreateProduct_Form(t *testing.T) {
	cat := &stubCatalog{item: ghostWalkers()}
	router := testRouter(t, cat, nil, nil)
	form := url.Values{
		"name":        {"Ghost Walkers"},
		"description": {"d"},
		"price":       {"75000"},
		"stock":       {"0"},
		"category":    {"Streetwear"},
		"imageUrl":    {""},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	in := cat.lastInput
	if in.Stock == nil || *in.Stock != "0" {
		t.Fatalf("unexpected stock %+v", in.Stock)
	}
	if in.Images != nil {
		t.Fatalf("empty imageUrl must not set images, got %v", in.Images)
	}
	if in.OriginalPrice != nil {
		t.Fatalf("absent field must stay nil")
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	verr := &domain.ValidationError{}
	verr.Add("price", "must be a number")
	router := testRouter(t, &stubCatalog{err: verr}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(`{"price":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Fields) != 1 || body.Fields[0].Field != "price" {
		t.Fatalf("unexpected fields %+v", body.Fields)
	}
}

func TestCreateProduct_MalformedJSON(t *testing.T) {
	router := testRouter(t, &stubCatalog{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(`{"price":true}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestCreateProduct_Conflict(t *testing.T) {
	router := testRouter(t, &stubCatalog{err: domain.ErrAlreadyExists}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/admin/products", strings.NewReader(`{"id":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
}

func TestUpdateProduct(t *testing.T) {
	item := ghostWalkers()
	item.Price = 99
	cat := &stubCatalog{item: item}
	router := testRouter(t, cat, nil, nil)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		req := httptest.NewRequest(method, "/admin/products/ghost-walkers-v1", strings.NewReader(`{"price":99}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", method, rec.Code)
		}
		if cat.lastID != "ghost-walkers-v1" || cat.lastInput.Price == nil || *cat.lastInput.Price != "99" {
			t.Fatalf("%s: unexpected call id=%s input=%+v", method, cat.lastID, cat.lastInput)
		}
		if cat.lastInput.Name != nil {
			t.Fatalf("%s: absent name must stay nil", method)
		}
		var got domain.CatalogItem
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Price != 99 {
			t.Fatalf("%s: expected read-back price 99, got %v", method, got.Price)
		}
	}
}

func TestDeleteProduct(t *testing.T) {
	cat := &stubCatalog{}
	router := testRouter(t, cat, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/products/ghost-walkers-v1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if cat.deleted != "ghost-walkers-v1" {
		t.Fatalf("unexpected delete id %q", cat.deleted)
	}

	router = testRouter(t, &stubCatalog{err: domain.ErrNotFound}, nil, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/products/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	dash := &stubDashboard{stats: domain.DashboardStats{ProductCount: 4, LowStockCount: 1, Revenue: 219000}}
	router := testRouter(t, &stubCatalog{}, dash, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=60" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	var got domain.DashboardStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ProductCount != 4 || got.Revenue != 219000 {
		t.Fatalf("unexpected stats %+v", got)
	}

	dash.err = &freshness.FetchError{Key: freshness.AggregateKey("dashboard"), Err: errors.New("down")}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	cat := &stubCatalog{categories: []string{"Hybrid", "Streetwear"}}
	router := testRouter(t, cat, nil, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=120" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 2 || names[0] != "Hybrid" {
		t.Fatalf("unexpected body %v", names)
	}
}
