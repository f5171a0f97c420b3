package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"koko-storefront/internal/cartstore"
	"koko-storefront/internal/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the request was understood but could not be done
	ExitCommandError = 2 // bad invocation or environment
)

// ExitError carries the exit code a command failure should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// response is the JSON envelope of --format json.
type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type printer struct {
	Format string
	Writer io.Writer
}

// emit writes data as JSON, or calls text for human output.
func (p *printer) emit(data any, text func(w io.Writer)) error {
	if p.Format == "json" {
		return json.NewEncoder(p.Writer).Encode(response{Status: "ok", Data: data})
	}
	text(p.Writer)
	return nil
}

func writeItems(w io.Writer, items []domain.CatalogItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No products.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tFLAGS")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", it.ID, it.Name, it.Category, money(it.Price), it.Stock, flags(it))
	}
	tw.Flush()
}

func writeItem(w io.Writer, it domain.CatalogItem) {
	fmt.Fprintf(w, "%s (%s)\n", it.Name, it.ID)
	price := money(it.Price)
	if it.OriginalPrice != nil {
		price += " (was " + money(*it.OriginalPrice) + ")"
	}
	fmt.Fprintf(w, "  Price:    %s\n", price)
	fmt.Fprintf(w, "  Category: %s\n", it.Category)
	fmt.Fprintf(w, "  Stock:    %d\n", it.Stock)
	fmt.Fprintf(w, "  Sizes:    %s\n", strings.Join(it.Sizes, ", "))
	if len(it.Features) > 0 {
		fmt.Fprintf(w, "  Features: %s\n", strings.Join(it.Features, ", "))
	}
	if f := flags(it); f != "" {
		fmt.Fprintf(w, "  Flags:    %s\n", f)
	}
	fmt.Fprintln(w, "  "+it.Description)
}

func writeCart(w io.Writer, cart domain.Cart) {
	if len(cart.Lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tITEM\tSIZE\tQTY\tUNIT\tSUBTOTAL")
	for _, l := range cart.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", l.LineID, l.Snapshot.Name, l.Variant, l.Quantity, money(l.UnitPrice), money(l.UnitPrice*float64(l.Quantity)))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d item(s), total %s\n", cart.Count, money(cart.Total))
}

func writeStats(w io.Writer, s domain.DashboardStats) {
	fmt.Fprintf(w, "Products:        %d (%d low stock)\n", s.ProductCount, s.LowStockCount)
	fmt.Fprintf(w, "Orders:          %d (%d pending)\n", s.OrderCount, s.PendingOrders)
	fmt.Fprintf(w, "Customers:       %d\n", s.CustomerCount)
	fmt.Fprintf(w, "Revenue:         %s\n", money(s.Revenue))
	fmt.Fprintf(w, "Avg order value: %s\n", money(s.AvgOrderValue))
}

func flags(it domain.CatalogItem) string {
	var f []string
	if it.IsNew {
		f = append(f, "new")
	}
	if it.IsPreOrder {
		f = append(f, "pre-order")
	}
	if it.Stock == 0 {
		f = append(f, "sold out")
	}
	return strings.Join(f, ",")
}

// money formats v in naira with thousands separators.
func money(v float64) string {
	neg := v < 0
	v = math.Abs(v)
	whole := int64(v)
	cents := int64(math.Round((v - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "₦" + b.String()
	if cents > 0 {
		out += fmt.Sprintf(".%02d", cents)
	}
	if neg {
		out = "-" + out
	}
	return out
}

// describeCartError turns cart store errors into shopper wording.
func describeCartError(err error) error {
	switch {
	case errors.Is(err, cartstore.ErrVariantRequired):
		return WrapExitError(ExitFailure, "please select a size (--size)", err)
	case errors.Is(err, cartstore.ErrUnknownVariant):
		return WrapExitError(ExitFailure, "that size is not available", err)
	case errors.Is(err, cartstore.ErrInvalidItem):
		return WrapExitError(ExitFailure, "this item cannot be added to the cart", err)
	case errors.Is(err, cartstore.ErrNotHydrated):
		return WrapExitError(ExitCommandError, "cart is not loaded", err)
	}
	return err
}
