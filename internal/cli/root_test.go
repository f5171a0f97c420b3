package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"koko-storefront/internal/cartstore"
	"koko-storefront/internal/domain"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/localstorage"
	"koko-storefront/internal/service/catalog"
	"koko-storefront/internal/service/dashboard"
)

type stubCatalog struct {
	items       map[string]domain.CatalogItem
	created     []identity.Input
	updated     map[string]identity.Input
	deleted     []string
	lastFilter  catalog.ListFilter
	stats       domain.DashboardStats
	orders      []domain.Order
	orderFilter dashboard.OrderFilter
	customers   []domain.Customer
}

func newStubCatalog(items ...domain.CatalogItem) *stubCatalog {
	s := &stubCatalog{items: map[string]domain.CatalogItem{}, updated: map[string]identity.Input{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *stubCatalog) GetItem(_ context.Context, id string) (domain.CatalogItem, error) {
	it, ok := s.items[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrNotFound
	}
	return it, nil
}

func (s *stubCatalog) ListItems(_ context.Context, f catalog.ListFilter) ([]domain.CatalogItem, error) {
	s.lastFilter = f
	var out []domain.CatalogItem
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *stubCatalog) Categories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, it := range s.items {
		if !seen[it.Category] {
			seen[it.Category] = true
			out = append(out, it.Category)
		}
	}
	return out, nil
}

func (s *stubCatalog) CreateItem(_ context.Context, in identity.Input) (domain.CatalogItem, error) {
	s.created = append(s.created, in)
	if in.Name == nil {
		verr := &domain.ValidationError{}
		verr.Add("name", "is required")
		return domain.CatalogItem{}, verr
	}
	return domain.CatalogItem{ID: "new-1", Name: *in.Name}, nil
}

func (s *stubCatalog) UpdateItem(_ context.Context, id string, in identity.Input) (domain.CatalogItem, error) {
	it, ok := s.items[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrNotFound
	}
	s.updated[id] = in
	return it, nil
}

func (s *stubCatalog) DeleteItem(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCatalog) Dashboard(context.Context) (domain.DashboardStats, error) {
	return s.stats, nil
}

func (s *stubCatalog) Orders(_ context.Context, filter dashboard.OrderFilter) ([]domain.Order, error) {
	s.orderFilter = filter
	var out []domain.Order
	for _, o := range s.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubCatalog) Customers(context.Context) ([]domain.Customer, error) {
	return s.customers, nil
}

var ghost = domain.CatalogItem{
	ID:       "ghost-walkers-v1",
	Name:     "Ghost Walkers v1",
	Price:    75000,
	Images:   []string{"/products/ghost-walkers.jpg"},
	Sizes:    []string{"US 8", "US 9"},
	Category: "Lifestyle",
	Stock:    12,
	IsNew:    true,
}

// harness runs commands against one catalog stub and one cart store that
// persists across invocations, the way the sqlite file does for real runs.
type harness struct {
	catalog *stubCatalog
	storage *localstorage.Memory
	opens   int
	closes  int
}

func newHarness(items ...domain.CatalogItem) *harness {
	return &harness{catalog: newStubCatalog(items...), storage: localstorage.NewMemory()}
}

func (h *harness) open(ctx context.Context, _ bool) (*Session, error) {
	h.opens++
	n := 0
	cart := cartstore.New(h.storage, nil, cartstore.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("line-%d-%d", h.opens, n)
	}))
	if _, err := cart.Hydrate(ctx); err != nil {
		return nil, err
	}
	return NewSession(h.catalog, cart, func() error {
		h.closes++
		return nil
	}), nil
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand(h.open)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)
	require.NotNil(t, cmd)
	assert.Equal(t, "koko", cmd.Use)

	for _, name := range []string{"items", "cart", "dashboard", "orders", "customers"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormatIsRejected(t *testing.T) {
	h := newHarness()
	_, err := h.run(t, "--format", "yaml", "items", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Zero(t, h.opens)
}

func TestMissingOpenerIsACommandError(t *testing.T) {
	cmd := NewRootCommand(nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dashboard"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenFailureIsWrapped(t *testing.T) {
	cmd := NewRootCommand(func(context.Context, bool) (*Session, error) {
		return nil, errors.New("no such file")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"cart", "show"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no such file")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))
}

func TestMoney(t *testing.T) {
	cases := map[float64]string{
		0:       "₦0",
		999:     "₦999",
		75000:   "₦75,000",
		1234567: "₦1,234,567",
		12.5:    "₦12.50",
		-4000:   "-₦4,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, money(in), "money(%v)", in)
	}
}

func TestJSONEnvelope(t *testing.T) {
	h := newHarness(ghost)
	out, err := h.run(t, "--format", "json", "items", "get", ghost.ID)
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   domain.CatalogItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ghost.ID, resp.Data.ID)
	assert.Equal(t, 1, h.closes)
}
