package document

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"sync"
	"time"

	"koko-storefront/internal/domain"
)

type memoryDoc struct {
	body      Record
	seq       int64
	createdAt time.Time
	updatedAt time.Time
}

// Memory is an in-process Repository. Bodies round-trip through JSON so
// values read back have the same types the Postgres store produces.
type Memory struct {
	mu         sync.RWMutex
	collection string
	docs       map[string]*memoryDoc
	seq        int64
	now        func() time.Time
}

var _ Repository = (*Memory)(nil)

func NewMemory(collection string) *Memory {
	return &Memory{
		collection: collection,
		docs:       make(map[string]*memoryDoc),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) FindByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.read(id, doc)
}

func (m *Memory) FindMany(ctx context.Context, filter Filter, s Sort, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := filter.validate(); err != nil {
		return nil, err
	}
	if s.Field != "" && s.Field != KeyCreatedAt {
		if err := checkField(s.Field); err != nil {
			return nil, err
		}
	}
	eq, err := normalize(filter.Eq)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		id  string
		doc *memoryDoc
	}
	var hits []hit
	for id, doc := range m.docs {
		if matches(doc.body, eq, filter.Lt) {
			hits = append(hits, hit{id: id, doc: doc})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i].doc, hits[j].doc
		if s.Field == "" || s.Field == KeyCreatedAt {
			if s.Desc {
				return a.seq > b.seq
			}
			return a.seq < b.seq
		}
		c := compareValues(a.body[s.Field], b.body[s.Field])
		if c == 0 {
			return a.seq < b.seq
		}
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Record, 0, len(hits))
	for _, h := range hits {
		rec, err := m.read(h.id, h.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := rec.ID()
	if id == "" {
		return nil, errors.New("document repo: insert requires an id")
	}
	b, err := normalize(body(rec))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; exists {
		return nil, domain.ErrAlreadyExists
	}
	m.seq++
	now := m.now()
	doc := &memoryDoc{body: b, seq: m.seq, createdAt: now, updatedAt: now}
	m.docs[id] = doc
	return m.read(id, doc)
}

func (m *Memory) UpdateByID(ctx context.Context, id string, fields Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patch, err := normalize(body(fields))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	merged := doc.body.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	doc.body = merged
	doc.updatedAt = m.now()
	return m.read(id, doc)
}

func (m *Memory) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) Count(ctx context.Context, filter Filter) (int64, error) {
	recs, err := m.FindMany(ctx, filter, Sort{}, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}

func (m *Memory) AggregateSum(ctx context.Context, filter Filter, field string) (float64, error) {
	if err := checkField(field); err != nil {
		return 0, err
	}
	recs, err := m.FindMany(ctx, filter, Sort{}, 0)
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, rec := range recs {
		if v, ok := rec[field].(float64); ok {
			sum += v
		}
	}
	return sum, nil
}

func (m *Memory) read(id string, doc *memoryDoc) (Record, error) {
	b, err := normalize(doc.body)
	if err != nil {
		return nil, err
	}
	return withMeta(b, id, doc.createdAt, doc.updatedAt), nil
}

// normalize deep-copies v through JSON.
func normalize[M ~map[string]any](v M) (Record, error) {
	if len(v) == 0 {
		return Record{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := Record{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(b Record, eq Record, lt map[string]float64) bool {
	for k, want := range eq {
		got, ok := b[k]
		if !ok || !contains(got, want) {
			return false
		}
	}
	for k, bound := range lt {
		n, ok := b[k].(float64)
		if !ok || n >= bound {
			return false
		}
	}
	return true
}

// contains mirrors jsonb @> for the value shapes filters use.
func contains(got, want any) bool {
	switch w := want.(type) {
	case []any:
		g, ok := got.([]any)
		if !ok {
			return false
		}
		for _, wv := range w {
			found := false
			for _, gv := range g {
				if reflect.DeepEqual(gv, wv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(got, want)
	}
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return 0
}
