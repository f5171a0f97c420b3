package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func (h *handlers) writeError(c *gin.Context, op string, err error) {
	var (
		verr     *domain.ValidationError
		fetchErr *freshness.FetchError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.JSON(http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.As(err, &fetchErr):
		h.logger.Printf("%s: source unavailable: %v", op, err)
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "catalog temporarily unavailable"})
	default:
		h.logger.Printf("%s: %v", op, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
