// Package catalog serves catalog reads through the freshness coordinator and
// applies administrative writes through the identity normalizer.
package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"net/url"
	"sort"
	"strconv"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/repository/document"
)

const (
	// DefaultListLimit matches the size of the shop page.
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ListFilter narrows a collection read. Zero values mean "any".
type ListFilter struct {
	Category string
	IsNew    *bool
	Limit    int
}

// Key returns the canonical collection name of f, so equal filters share a
// cache entry.
func (f ListFilter) Key() string {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.IsNew != nil {
		v.Set("isNew", strconv.FormatBool(*f.IsNew))
	}
	v.Set("limit", strconv.Itoa(f.limit()))
	return "products?" + v.Encode()
}

func (f ListFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

type Service struct {
	repo        document.Repository
	normalizer  *identity.Normalizer
	coordinator *freshness.Coordinator
	logger      *log.Logger
}

func New(repo document.Repository, normalizer *identity.Normalizer, coordinator *freshness.Coordinator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{repo: repo, normalizer: normalizer, coordinator: coordinator, logger: logger}
}

// Policy returns the freshness windows reads are served under.
func (s *Service) Policy() freshness.Policy {
	return s.coordinator.Policy()
}

// GetItem returns one item. A miss is domain.ErrNotFound.
func (s *Service) GetItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	rec, err := freshness.Get(ctx, s.coordinator, freshness.ItemKey(id), func(ctx context.Context) (document.Record, error) {
		rec, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, freshness.Missing(err)
		}
		return rec, err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CatalogItem{}, domain.ErrNotFound
		}
		return domain.CatalogItem{}, err
	}
	item, err := s.normalizer.ToExternal(rec)
	if err != nil {
		s.logger.Printf("catalog: get id=%s malformed: %v", id, err)
		return domain.CatalogItem{}, err
	}
	return item, nil
}

// ListItems returns items oldest first. Records that fail to denormalize are
// logged and left out.
func (s *Service) ListItems(ctx context.Context, filter ListFilter) ([]domain.CatalogItem, error) {
	recs, err := freshness.Get(ctx, s.coordinator, freshness.CollectionKey(filter.Key()), func(ctx context.Context) ([]document.Record, error) {
		eq := map[string]any{}
		if filter.Category != "" {
			eq[identity.InternalField("category")] = filter.Category
		}
		if filter.IsNew != nil {
			eq[identity.InternalField("isNew")] = *filter.IsNew
		}
		return s.repo.FindMany(ctx, document.Filter{Eq: eq}, document.Sort{Field: document.KeyCreatedAt}, filter.limit())
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(recs))
	for _, rec := range recs {
		item, err := s.normalizer.ToExternal(rec)
		if err != nil {
			s.logger.Printf("catalog: list skip malformed record: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// CategoriesKey caches the distinct category names.
var CategoriesKey = freshness.CollectionKey("categories")

// Categories returns the category names in use, sorted. The list shares the
// collection window, so any catalog write refreshes it.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	names, err := freshness.Get(ctx, s.coordinator, CategoriesKey, func(ctx context.Context) ([]string, error) {
		recs, err := s.repo.FindMany(ctx, document.Filter{}, document.Sort{Field: document.KeyCreatedAt}, 0)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		out := []string{}
		for _, rec := range recs {
			name, _ := rec[identity.FieldCategory].(string)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		sort.Strings(out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), names...), nil
}

// CreateItem validates and stores a new item. Cached reads that could
// include it are invalidated before it returns.
func (s *Service) CreateItem(ctx context.Context, in identity.Input) (domain.CatalogItem, error) {
	rec, err := s.normalizer.ToInternalForCreate(in)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	s.coordinator.InvalidateEntities(stored.ID())
	s.logger.Printf("catalog: created id=%s", stored.ID())
	return s.normalizer.ToExternal(stored)
}

// UpdateItem merges the supplied fields into item id and returns the item as
// a fresh read would now see it.
func (s *Service) UpdateItem(ctx context.Context, id string, in identity.Input) (domain.CatalogItem, error) {
	patch, err := s.normalizer.ToInternalForUpdate(id, in)
	if err != nil {
		return domain.CatalogItem{}, err
	}
	if _, err := s.repo.UpdateByID(ctx, id, patch); err != nil {
		return domain.CatalogItem{}, err
	}
	s.coordinator.InvalidateEntities(id)
	s.logger.Printf("catalog: updated id=%s fields=%d", id, len(patch))
	return s.GetItem(ctx, id)
}

// DeleteItem removes item id for good.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.coordinator.InvalidateEntities(id)
	s.logger.Printf("catalog: deleted id=%s", id)
	return nil
}
