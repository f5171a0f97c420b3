package document

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Reserved record keys managed by the store.
const (
	KeyID        = "_id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// Record is a persisted document in its internal shape.
type Record map[string]any

// ID returns the internal storage key, or "" when absent.
func (r Record) ID() string {
	id, _ := r[KeyID].(string)
	return id
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Filter selects documents. Eq matches by containment, Lt by numeric comparison.
type Filter struct {
	Eq map[string]any
	Lt map[string]float64
}

// Sort orders FindMany results. Field "createdAt" orders by insertion time.
type Sort struct {
	Field string
	Desc  bool
}

type Repository interface {
	FindByID(ctx context.Context, id string) (Record, error)
	FindMany(ctx context.Context, filter Filter, sort Sort, limit int) ([]Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	UpdateByID(ctx context.Context, id string, fields Record) (Record, error)
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context, filter Filter) (int64, error)
	AggregateSum(ctx context.Context, filter Filter, field string) (float64, error)
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func checkField(name string) error {
	if !fieldPattern.MatchString(name) {
		return fmt.Errorf("document: invalid field name %q", name)
	}
	return nil
}

func (f Filter) validate() error {
	for k := range f.Eq {
		if err := checkField(k); err != nil {
			return err
		}
	}
	for k := range f.Lt {
		if err := checkField(k); err != nil {
			return err
		}
	}
	return nil
}

// body strips store-managed keys from rec.
func body(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		switch k {
		case KeyID, KeyCreatedAt, KeyUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

func withMeta(b Record, id string, createdAt, updatedAt time.Time) Record {
	out := make(Record, len(b)+3)
	for k, v := range b {
		out[k] = v
	}
	out[KeyID] = id
	out[KeyCreatedAt] = createdAt
	out[KeyUpdatedAt] = updatedAt
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
