package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/repository/document"
)

//go:embed data.yaml
var demoData []byte

// Collections are the stores Apply writes to.
type Collections struct {
	Products  document.Repository
	Orders    document.Repository
	Customers document.Repository
}

type Product struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Price         float64  `yaml:"price"`
	OriginalPrice *float64 `yaml:"originalPrice"`
	Images        []string `yaml:"images"`
	Sizes         []string `yaml:"sizes"`
	Category      string   `yaml:"category"`
	Features      []string `yaml:"features"`
	Stock         int      `yaml:"stock"`
	IsNew         bool     `yaml:"isNew"`
	IsPreOrder    bool     `yaml:"isPreOrder"`
}

type OrderItem struct {
	ProductID   string  `yaml:"productId"`
	ProductName string  `yaml:"productName"`
	Quantity    int     `yaml:"quantity"`
	Price       float64 `yaml:"price"`
	Size        string  `yaml:"size"`
}

type Order struct {
	ID           string      `yaml:"id"`
	CustomerID   string      `yaml:"customerId"`
	CustomerName string      `yaml:"customerName"`
	Status       string      `yaml:"status"`
	Total        float64     `yaml:"total"`
	DaysAgo      int         `yaml:"daysAgo"`
	Items        []OrderItem `yaml:"items"`
}

type Customer struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Email         string `yaml:"email"`
	JoinedDaysAgo int    `yaml:"joinedDaysAgo"`
}

// Data is the decoded demo data set.
type Data struct {
	Products  []Product  `yaml:"products"`
	Orders    []Order    `yaml:"orders"`
	Customers []Customer `yaml:"customers"`
}

// Load decodes the embedded demo data.
func Load() (Data, error) {
	var d Data
	if err := yaml.Unmarshal(demoData, &d); err != nil {
		return Data{}, fmt.Errorf("decode seed data: %w", err)
	}
	return d, nil
}

// Apply replaces the demo records in every collection. Products go through the
// normalizer so they are stored in the same shape admin writes produce.
// Running it twice leaves the same data behind.
func Apply(ctx context.Context, c Collections, now time.Time) (Data, error) {
	d, err := Load()
	if err != nil {
		return Data{}, err
	}
	norm := identity.New()

	for _, p := range d.Products {
		rec, err := norm.ToInternalForCreate(p.input())
		if err != nil {
			return d, fmt.Errorf("normalize product %s: %w", p.ID, err)
		}
		if err := replace(ctx, c.Products, rec); err != nil {
			return d, fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}

	emails := make(map[string]string, len(d.Customers))
	for _, cu := range d.Customers {
		emails[cu.ID] = cu.Email
	}
	history := make(map[string]*purchases, len(d.Customers))

	for _, o := range d.Orders {
		if o.Status != domain.OrderCancelled {
			h := history[o.CustomerID]
			if h == nil {
				h = &purchases{lastDaysAgo: o.DaysAgo}
				history[o.CustomerID] = h
			}
			h.count++
			h.spent += o.Total
			h.lastDaysAgo = min(h.lastDaysAgo, o.DaysAgo)
		}
		items := make([]any, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, map[string]any{
				"productId":   it.ProductID,
				"productName": it.ProductName,
				"quantity":    it.Quantity,
				"price":       it.Price,
				"size":        it.Size,
			})
		}
		rec := document.Record{
			document.KeyID:  o.ID,
			"customerId":    o.CustomerID,
			"customerName":  o.CustomerName,
			"customerEmail": emails[o.CustomerID],
			"status":        o.Status,
			"total":         o.Total,
			"date":          daysAgo(now, o.DaysAgo),
			"items":         items,
		}
		if err := replace(ctx, c.Orders, rec); err != nil {
			return d, fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}

	for _, cu := range d.Customers {
		rec := document.Record{
			document.KeyID: cu.ID,
			"name":         cu.Name,
			"email":        cu.Email,
			"joinDate":     daysAgo(now, cu.JoinedDaysAgo),
			"orderCount":   0,
			"totalSpent":   0,
		}
		if h := history[cu.ID]; h != nil {
			rec["orderCount"] = h.count
			rec["totalSpent"] = h.spent
			rec["lastOrderDate"] = daysAgo(now, h.lastDaysAgo)
		}
		if err := replace(ctx, c.Customers, rec); err != nil {
			return d, fmt.Errorf("seed customer %s: %w", cu.ID, err)
		}
	}
	return d, nil
}

// purchases sums a customer's non-cancelled orders.
type purchases struct {
	count       int
	spent       float64
	lastDaysAgo int
}

func (p Product) input() identity.Input {
	text := func(s string) *string { return &s }
	amount := func(v float64) *string { return text(strconv.FormatFloat(v, 'f', -1, 64)) }
	in := identity.Input{
		ID:          p.ID,
		Name:        text(p.Name),
		Description: text(p.Description),
		Price:       amount(p.Price),
		Category:    text(p.Category),
		Stock:       text(strconv.Itoa(p.Stock)),
		Images:      p.Images,
		Sizes:       p.Sizes,
		Features:    p.Features,
		IsNew:       &p.IsNew,
		IsPreOrder:  &p.IsPreOrder,
	}
	if p.OriginalPrice != nil {
		in.OriginalPrice = amount(*p.OriginalPrice)
	}
	return in
}

func replace(ctx context.Context, repo document.Repository, rec document.Record) error {
	if err := repo.DeleteByID(ctx, rec.ID()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_, err := repo.Insert(ctx, rec)
	return err
}

func daysAgo(now time.Time, days int) string {
	return now.AddDate(0, 0, -days).UTC().Format(time.RFC3339)
}
