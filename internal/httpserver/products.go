package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/service/catalog"
)

// numberText accepts a JSON number or a string holding one.
type numberText string

func (n *numberText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = numberText(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected number, got %s", b)
	}
	*n = numberText(num.String())
	return nil
}

type productRequest struct {
	ID            string      `json:"id"`
	Name          *string     `json:"name"`
	Description   *string     `json:"description"`
	Price         *numberText `json:"price"`
	OriginalPrice *numberText `json:"originalPrice"`
	Category      *string     `json:"category"`
	Stock         *numberText `json:"stock"`
	ImageURL      string      `json:"imageUrl"`
	Images        []string    `json:"images"`
	Sizes         []string    `json:"sizes"`
	Features      []string    `json:"features"`
	IsNew         *bool       `json:"isNew"`
	IsPreOrder    *bool       `json:"isPreOrder"`
}

func (r productRequest) input() identity.Input {
	in := identity.Input{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Images:      r.Images,
		Sizes:       r.Sizes,
		Features:    r.Features,
		IsNew:       r.IsNew,
		IsPreOrder:  r.IsPreOrder,
	}
	in.Price = textPtr(r.Price)
	in.OriginalPrice = textPtr(r.OriginalPrice)
	in.Stock = textPtr(r.Stock)
	if url := strings.TrimSpace(r.ImageURL); url != "" {
		in.Images = []string{url}
	}
	return in
}

func textPtr(n *numberText) *string {
	if n == nil {
		return nil
	}
	s := string(*n)
	return &s
}

// bindProduct reads a JSON body or an admin form post.
func bindProduct(c *gin.Context) (identity.Input, error) {
	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return formInput(c)
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("body", err.Error())
		return identity.Input{}, verr
	}
	return req.input(), nil
}

func formInput(c *gin.Context) (identity.Input, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		verr := &domain.ValidationError{}
		verr.Add("body", err.Error())
		return identity.Input{}, verr
	}
	field := func(name string) *string {
		if v, ok := c.GetPostForm(name); ok {
			return &v
		}
		return nil
	}
	flag := func(name string) (*bool, error) {
		v, ok := c.GetPostForm(name)
		if !ok || v == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, err
		}
		return &b, nil
	}

	in := identity.Input{
		ID:            c.PostForm("id"),
		Name:          field("name"),
		Description:   field("description"),
		Price:         field("price"),
		OriginalPrice: field("originalPrice"),
		Category:      field("category"),
		Stock:         field("stock"),
		Sizes:         c.PostFormArray("sizes"),
		Features:      c.PostFormArray("features"),
	}
	if url := strings.TrimSpace(c.PostForm("imageUrl")); url != "" {
		in.Images = []string{url}
	}
	verr := &domain.ValidationError{}
	var err error
	if in.IsNew, err = flag("isNew"); err != nil {
		verr.Add("isNew", "must be true or false")
	}
	if in.IsPreOrder, err = flag("isPreOrder"); err != nil {
		verr.Add("isPreOrder", "must be true or false")
	}
	if err := verr.OrNil(); err != nil {
		return identity.Input{}, err
	}
	return in, nil
}

func listFilter(c *gin.Context) (catalog.ListFilter, error) {
	verr := &domain.ValidationError{}
	f := catalog.ListFilter{Category: strings.TrimSpace(c.Query("category"))}
	if raw := c.Query("isNew"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add("isNew", "must be true or false")
		} else {
			f.IsNew = &b
		}
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			verr.Add("limit", "must be a non-negative integer")
		} else {
			f.Limit = n
		}
	}
	return f, verr.OrNil()
}

func cacheFor(c *gin.Context, ttl time.Duration) {
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
}

func (h *handlers) listProducts(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.writeError(c, "list products", err)
		return
	}
	items, err := h.catalog.ListItems(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "list products", err)
		return
	}
	cacheFor(c, h.catalog.Policy().Collection)
	c.JSON(http.StatusOK, items)
}

func (h *handlers) getProduct(c *gin.Context) {
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get product", err)
		return
	}
	cacheFor(c, h.catalog.Policy().Item)
	c.JSON(http.StatusOK, item)
}

func (h *handlers) listCategories(c *gin.Context) {
	names, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		h.writeError(c, "list categories", err)
		return
	}
	cacheFor(c, h.catalog.Policy().Collection)
	c.JSON(http.StatusOK, names)
}

func (h *handlers) createProduct(c *gin.Context) {
	noStore(c)
	in, err := bindProduct(c)
	if err != nil {
		h.writeError(c, "create product", err)
		return
	}
	item, err := h.catalog.CreateItem(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, "create product", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *handlers) updateProduct(c *gin.Context) {
	noStore(c)
	in, err := bindProduct(c)
	if err != nil {
		h.writeError(c, "update product", err)
		return
	}
	item, err := h.catalog.UpdateItem(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.writeError(c, "update product", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	noStore(c)
	if err := h.catalog.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getDashboard(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, "dashboard", err)
		return
	}
	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", int(h.catalog.Policy().Aggregate.Seconds())))
	c.JSON(http.StatusOK, stats)
}
