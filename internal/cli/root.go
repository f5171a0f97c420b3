// Package cli implements the koko command line: catalog browsing and admin
// writes against the API, and a shopper cart kept on this machine.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"koko-storefront/internal/cartstore"
	"koko-storefront/internal/domain"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/service/catalog"
	"koko-storefront/internal/service/dashboard"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Open    Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Catalog is the API surface the commands use.
type Catalog interface {
	GetItem(ctx context.Context, id string) (domain.CatalogItem, error)
	ListItems(ctx context.Context, filter catalog.ListFilter) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]string, error)
	CreateItem(ctx context.Context, in identity.Input) (domain.CatalogItem, error)
	UpdateItem(ctx context.Context, id string, in identity.Input) (domain.CatalogItem, error)
	DeleteItem(ctx context.Context, id string) error
	Dashboard(ctx context.Context) (domain.DashboardStats, error)
	Orders(ctx context.Context, filter dashboard.OrderFilter) ([]domain.Order, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
}

// Session is what one command invocation works with. Cart is hydrated.
type Session struct {
	Catalog Catalog
	Cart    *cartstore.Store
	closeFn func() error
}

func NewSession(c Catalog, cart *cartstore.Store, closeFn func() error) *Session {
	return &Session{Catalog: c, Cart: cart, closeFn: closeFn}
}

func (s *Session) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Opener builds a Session for one command.
type Opener func(ctx context.Context, verbose bool) (*Session, error)

// NewRootCommand creates the root command for the koko CLI.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{Open: open}

	cmd := &cobra.Command{
		Use:   "koko",
		Short: "koko - storefront catalog and cart",
		Long:  "Browse and administer the koko catalog, and keep a shopping cart on this machine.",
		// main prints the error once and picks the exit code.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewItemsCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewOrdersCommand(opts))
	cmd.AddCommand(NewCustomersCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withSession opens a session, runs fn and closes the session.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(*Session, *printer) error) error {
	if opts.Open == nil {
		return NewExitError(ExitCommandError, "no session opener configured")
	}
	s, err := opts.Open(cmd.Context(), opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "open session", err)
	}
	p := &printer{Format: opts.Format, Writer: cmd.OutOrStdout()}
	runErr := fn(s, p)
	closeErr := s.Close()
	return errors.Join(runErr, closeErr)
}
