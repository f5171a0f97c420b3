// Package cartstore holds the shopper's cart on the client and keeps it in
// durable local storage between runs.
package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"koko-storefront/internal/domain"
)

// StorageKey is the single local storage key holding the serialized lines.
const StorageKey = "cart"

var (
	// ErrVariantRequired means the shopper has to select a size first.
	ErrVariantRequired = errors.New("select a size")
	// ErrUnknownVariant means the size is not offered for the item.
	ErrUnknownVariant = errors.New("size not offered for item")
	// ErrNotHydrated means the store was mutated before Hydrate succeeded.
	ErrNotHydrated = errors.New("cart not hydrated")
	// ErrInvalidItem means the item cannot be kept as a cart line.
	ErrInvalidItem = errors.New("item cannot be added to the cart")
)

// CorruptLocalStateError describes a stored blob that could not be turned back
// into cart lines. It is logged and the cart starts over empty.
type CorruptLocalStateError struct {
	Key string
	Err error
}

func (e *CorruptLocalStateError) Error() string {
	return fmt.Sprintf("corrupt local state %q: %v", e.Key, e.Err)
}

func (e *CorruptLocalStateError) Unwrap() error { return e.Err }

// Storage is durable client-local key/value storage.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store owns one shopper's cart. Like a UI thread, a Store expects a single
// caller; it is not safe for concurrent use.
type Store struct {
	storage  Storage
	logger   *log.Logger
	newID    func() string
	lines    []domain.CartLine
	hydrated bool
}

type Option func(*Store)

// WithIDGenerator replaces the line id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func New(storage Storage, logger *log.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Store{
		storage: storage,
		logger:  logger,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate loads the persisted lines. A missing key yields an empty cart; a
// blob that does not decode to well-formed lines is discarded, logged and
// overwritten with an empty cart. A storage read error leaves the store
// unhydrated so the saved cart is never overwritten by a blind write.
func (s *Store) Hydrate(ctx context.Context) (domain.Cart, error) {
	raw, ok, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		s.logger.Printf("cart store: hydrate read error=%v", err)
		return domain.Cart{}, fmt.Errorf("read cart: %w", err)
	}
	s.lines = nil
	if ok {
		lines, derr := decodeLines(raw)
		if derr != nil {
			s.logger.Printf("cart store: %v, resetting to empty", &CorruptLocalStateError{Key: StorageKey, Err: derr})
			s.hydrated = true
			s.persist(ctx)
			return domain.NewCart(nil), nil
		}
		s.lines = lines
	}
	s.hydrated = true
	return domain.NewCart(s.lines), nil
}

// Snapshot derives the cart from the current lines. ok is false until
// Hydrate has run, which callers must treat as "not yet known", not empty.
func (s *Store) Snapshot() (domain.Cart, bool) {
	if !s.hydrated {
		return domain.Cart{}, false
	}
	return domain.NewCart(s.lines), true
}

// AddItem adds one unit of item in variant. A repeat add of the same
// (item, variant) pair bumps the quantity and keeps the first unit price.
func (s *Store) AddItem(ctx context.Context, item domain.CatalogItem, variant string) (domain.Cart, error) {
	if !s.hydrated {
		return domain.Cart{}, ErrNotHydrated
	}
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return domain.NewCart(s.lines), ErrVariantRequired
	}
	if len(item.Sizes) > 0 && !item.HasSize(variant) {
		return domain.NewCart(s.lines), fmt.Errorf("%w: %s %q", ErrUnknownVariant, item.ID, variant)
	}

	for i := range s.lines {
		if s.lines[i].ItemID == item.ID && s.lines[i].Variant == variant {
			s.lines[i].Quantity++
			s.persist(ctx)
			return domain.NewCart(s.lines), nil
		}
	}
	line := domain.CartLine{
		LineID:    s.newID(),
		ItemID:    item.ID,
		Variant:   variant,
		Quantity:  1,
		UnitPrice: item.Price,
		Snapshot:  domain.SnapshotOf(item),
	}
	if err := checkLine(line); err != nil {
		return domain.NewCart(s.lines), fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	s.lines = append(s.lines, line)
	s.persist(ctx)
	return domain.NewCart(s.lines), nil
}

// RemoveLine drops the line with lineID. Unknown ids are ignored.
func (s *Store) RemoveLine(ctx context.Context, lineID string) (domain.Cart, error) {
	if !s.hydrated {
		return domain.Cart{}, ErrNotHydrated
	}
	for i := range s.lines {
		if s.lines[i].LineID == lineID {
			s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
			s.persist(ctx)
			break
		}
	}
	return domain.NewCart(s.lines), nil
}

func (s *Store) Clear(ctx context.Context) (domain.Cart, error) {
	if !s.hydrated {
		return domain.Cart{}, ErrNotHydrated
	}
	s.lines = nil
	s.persist(ctx)
	return domain.NewCart(nil), nil
}

// persist writes the full line list. Failures are logged: the in-memory cart
// stays authoritative and the next mutation writes again.
func (s *Store) persist(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		s.logger.Printf("cart store: encode lines error=%v", err)
		return
	}
	if err := s.storage.Set(ctx, StorageKey, raw); err != nil {
		s.logger.Printf("cart store: persist lines=%d error=%v", len(lines), err)
	}
}

func decodeLines(raw []byte) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	seenLine := make(map[string]struct{}, len(lines))
	seenPair := make(map[[2]string]struct{}, len(lines))
	for i, l := range lines {
		if err := checkLine(l); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		if _, dup := seenLine[l.LineID]; dup {
			return nil, fmt.Errorf("line %d: duplicate lineId %s", i, l.LineID)
		}
		pair := [2]string{l.ItemID, l.Variant}
		if _, dup := seenPair[pair]; dup {
			return nil, fmt.Errorf("line %d: duplicate item %s variant %s", i, l.ItemID, l.Variant)
		}
		seenLine[l.LineID] = struct{}{}
		seenPair[pair] = struct{}{}
	}
	return lines, nil
}

// checkLine holds the rules a line must meet to be written and read back.
func checkLine(l domain.CartLine) error {
	switch {
	case l.LineID == "":
		return errors.New("missing lineId")
	case l.ItemID == "":
		return errors.New("missing itemId")
	case strings.TrimSpace(l.Variant) == "":
		return errors.New("missing variant")
	case l.Quantity < 1:
		return fmt.Errorf("quantity %d", l.Quantity)
	case math.IsNaN(l.UnitPrice) || math.IsInf(l.UnitPrice, 0) || l.UnitPrice < 0:
		return fmt.Errorf("unit price %v", l.UnitPrice)
	}
	return nil
}
