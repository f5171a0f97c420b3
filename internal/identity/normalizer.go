// Package identity maps catalog records between their persisted shape and
// the CatalogItem contract clients consume.
//
// Persisted records keep their identity under "_id" and the new-arrival flag
// under "isNewItem", since "isNew" is reserved by the document runtime the
// records were first written with. Both renames live in one table here and
// nowhere else.
package identity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/repository/document"
)

// Internal field names of a persisted catalog record.
const (
	FieldName          = "name"
	FieldDescription   = "description"
	FieldPrice         = "price"
	FieldOriginalPrice = "originalPrice"
	FieldImages        = "images"
	FieldSizes         = "sizes"
	FieldCategory      = "category"
	FieldFeatures      = "features"
	FieldStock         = "stock"
	FieldIsNewItem     = "isNewItem"
	FieldIsPreOrder    = "isPreOrder"
)

// PlaceholderImage is used when an item is created without an image.
const PlaceholderImage = "/placeholder.jpg"

// StandardSizes is the size run given to items created without sizes.
var StandardSizes = []string{"US 7", "US 8", "US 9", "US 10", "US 11"}

var aliases = []struct{ external, internal string }{
	{"id", document.KeyID},
	{"isNew", FieldIsNewItem},
}

// InternalField returns the persisted name of an external field.
func InternalField(external string) string {
	for _, a := range aliases {
		if a.external == external {
			return a.internal
		}
	}
	return external
}

// ExternalField returns the client-facing name of a persisted field.
func ExternalField(internal string) string {
	for _, a := range aliases {
		if a.internal == internal {
			return a.external
		}
	}
	return internal
}

// Input is administrative write input. Numeric fields arrive as text the
// way form posts deliver them; nil means the field was not supplied.
type Input struct {
	ID            string
	Name          *string
	Description   *string
	Price         *string
	OriginalPrice *string
	Category      *string
	Stock         *string
	Images        []string
	Sizes         []string
	Features      []string
	IsNew         *bool
	IsPreOrder    *bool
}

type Normalizer struct {
	newID func() string
}

type Option func(*Normalizer)

// WithIDGenerator replaces the identity generator used on create.
func WithIDGenerator(gen func() string) Option {
	return func(n *Normalizer) {
		if gen != nil {
			n.newID = gen
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{newID: uuid.NewString}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ToExternal converts a persisted record into a CatalogItem. rec is not
// modified.
func (n *Normalizer) ToExternal(rec document.Record) (domain.CatalogItem, error) {
	id := rec.ID()
	if strings.TrimSpace(id) == "" {
		return domain.CatalogItem{}, &domain.MalformedRecordError{Field: ExternalField(document.KeyID), Reason: "missing"}
	}
	r := reader{rec: rec, id: id}

	item := domain.CatalogItem{
		ID:          id,
		Name:        r.requiredString(FieldName),
		Description: r.requiredString(FieldDescription),
		Category:    r.requiredString(FieldCategory),
		Price:       r.requiredNumber(FieldPrice),
		Stock:       r.requiredStock(),
		Images:      r.list(FieldImages, []string{PlaceholderImage}),
		Sizes:       r.list(FieldSizes, StandardSizes),
		Features:    r.list(FieldFeatures, nil),
		IsNew:       r.flag(FieldIsNewItem),
		IsPreOrder:  r.flag(FieldIsPreOrder),
	}
	if v, ok := rec[FieldOriginalPrice]; ok && v != nil {
		f, ok := number(v)
		if !ok {
			r.fail(FieldOriginalPrice, "not a number")
		} else {
			item.OriginalPrice = &f
		}
	}
	if item.Features == nil {
		item.Features = []string{}
	}
	if r.err != nil {
		return domain.CatalogItem{}, r.err
	}
	return item, nil
}

// ToInternalForCreate validates create input and builds the record to
// insert, assigning an identity when in.ID is empty.
func (n *Normalizer) ToInternalForCreate(in Input) (document.Record, error) {
	verr := &domain.ValidationError{}
	rec := document.Record{}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = n.newID()
	}
	rec[document.KeyID] = id

	for _, f := range []struct {
		name string
		val  *string
	}{
		{FieldName, in.Name},
		{FieldDescription, in.Description},
		{FieldCategory, in.Category},
	} {
		if s, ok := requiredText(verr, f.name, f.val); ok {
			rec[f.name] = s
		}
	}
	if in.Price == nil || strings.TrimSpace(*in.Price) == "" {
		verr.Add(FieldPrice, "required")
	} else if v, ok := parseAmount(verr, FieldPrice, *in.Price); ok {
		rec[FieldPrice] = v
	}
	if in.Stock == nil || strings.TrimSpace(*in.Stock) == "" {
		verr.Add(FieldStock, "required")
	} else if v, ok := parseStock(verr, *in.Stock); ok {
		rec[FieldStock] = v
	}
	if in.OriginalPrice != nil && strings.TrimSpace(*in.OriginalPrice) != "" {
		if v, ok := parseAmount(verr, FieldOriginalPrice, *in.OriginalPrice); ok {
			rec[FieldOriginalPrice] = v
		}
	}

	rec[FieldImages] = orDefault(clean(in.Images), []string{PlaceholderImage})
	rec[FieldSizes] = orDefault(clean(in.Sizes), StandardSizes)
	rec[FieldFeatures] = orDefault(clean(in.Features), []string{})
	rec[FieldIsNewItem] = in.IsNew == nil || *in.IsNew
	rec[FieldIsPreOrder] = in.IsPreOrder != nil && *in.IsPreOrder

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ToInternalForUpdate validates the fields present in in and returns only
// those, ready for a partial merge. An empty image list means "keep the
// current images"; a supplied list replaces them.
func (n *Normalizer) ToInternalForUpdate(id string, in Input) (document.Record, error) {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(id) == "" {
		verr.Add("id", "required")
	}
	if other := strings.TrimSpace(in.ID); other != "" && other != id {
		verr.Add("id", "cannot change")
	}
	rec := document.Record{}

	for _, f := range []struct {
		name string
		val  *string
	}{
		{FieldName, in.Name},
		{FieldDescription, in.Description},
		{FieldCategory, in.Category},
	} {
		if f.val == nil {
			continue
		}
		if s, ok := requiredText(verr, f.name, f.val); ok {
			rec[f.name] = s
		}
	}
	if in.Price != nil {
		if strings.TrimSpace(*in.Price) == "" {
			verr.Add(FieldPrice, "required")
		} else if v, ok := parseAmount(verr, FieldPrice, *in.Price); ok {
			rec[FieldPrice] = v
		}
	}
	if in.Stock != nil {
		if strings.TrimSpace(*in.Stock) == "" {
			verr.Add(FieldStock, "required")
		} else if v, ok := parseStock(verr, *in.Stock); ok {
			rec[FieldStock] = v
		}
	}
	if in.OriginalPrice != nil {
		if strings.TrimSpace(*in.OriginalPrice) == "" {
			rec[FieldOriginalPrice] = nil
		} else if v, ok := parseAmount(verr, FieldOriginalPrice, *in.OriginalPrice); ok {
			rec[FieldOriginalPrice] = v
		}
	}
	if images := clean(in.Images); len(images) > 0 {
		rec[FieldImages] = images
	}
	if sizes := clean(in.Sizes); len(sizes) > 0 {
		rec[FieldSizes] = sizes
	}
	if in.Features != nil {
		rec[FieldFeatures] = orDefault(clean(in.Features), []string{})
	}
	if in.IsNew != nil {
		rec[FieldIsNewItem] = *in.IsNew
	}
	if in.IsPreOrder != nil {
		rec[FieldIsPreOrder] = *in.IsPreOrder
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return rec, nil
}

func requiredText(verr *domain.ValidationError, field string, v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		verr.Add(field, "required")
		return "", false
	}
	return strings.TrimSpace(*v), true
}

// parseAmount accepts any finite number >= 0, zero included.
func parseAmount(verr *domain.ValidationError, field, raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	switch {
	case err != nil || math.IsNaN(v) || math.IsInf(v, 0):
		verr.Add(field, "must be a number")
		return 0, false
	case v < 0:
		verr.Add(field, "must be >= 0")
		return 0, false
	}
	return v, true
}

func parseStock(verr *domain.ValidationError, raw string) (int, bool) {
	v, ok := parseAmount(verr, FieldStock, raw)
	if !ok {
		return 0, false
	}
	if v != math.Trunc(v) || v > math.MaxInt32 {
		verr.Add(FieldStock, "must be a whole number")
		return 0, false
	}
	return int(v), true
}

func clean(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(v, def []string) []string {
	if len(v) > 0 {
		return v
	}
	return append([]string{}, def...)
}

// reader collects the first decoding failure of a record.
type reader struct {
	rec document.Record
	id  string
	err *domain.MalformedRecordError
}

func (r *reader) fail(field, reason string) {
	if r.err == nil {
		r.err = &domain.MalformedRecordError{ID: r.id, Field: ExternalField(field), Reason: reason}
	}
}

func (r *reader) requiredString(field string) string {
	v, ok := r.rec[field]
	if !ok || v == nil {
		r.fail(field, "missing")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, "not a string")
	}
	return s
}

func (r *reader) requiredNumber(field string) float64 {
	v, ok := r.rec[field]
	if !ok || v == nil {
		r.fail(field, "missing")
		return 0
	}
	f, ok := number(v)
	if !ok {
		r.fail(field, "not a number")
	}
	return f
}

func (r *reader) requiredStock() int {
	f := r.requiredNumber(FieldStock)
	if r.err != nil {
		return 0
	}
	if f < 0 || f != math.Trunc(f) {
		r.fail(FieldStock, "not a whole number >= 0")
		return 0
	}
	return int(f)
}

func (r *reader) list(field string, def []string) []string {
	v, ok := r.rec[field]
	if !ok || v == nil {
		if def == nil {
			return nil
		}
		return append([]string{}, def...)
	}
	var out []string
	switch list := v.(type) {
	case []string:
		out = append([]string{}, list...)
	case []any:
		out = make([]string, 0, len(list))
		for _, e := range list {
			s, ok := e.(string)
			if !ok {
				r.fail(field, "not a list of strings")
				return nil
			}
			out = append(out, s)
		}
	default:
		r.fail(field, "not a list")
		return nil
	}
	if len(out) == 0 && def != nil {
		return append([]string{}, def...)
	}
	return out
}

func (r *reader) flag(field string) bool {
	v, ok := r.rec[field]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(field, "not a boolean")
	}
	return b
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
