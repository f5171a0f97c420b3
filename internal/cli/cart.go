package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"koko-storefront/internal/domain"
)

// NewCartCommand creates the cart command group. The cart lives on this
// machine; only "cart add" talks to the API, to snapshot the item.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the local shopping cart",
	}
	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))
	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "show",
		Short:        "Show cart lines and totals",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				cart, ok := s.Cart.Snapshot()
				if !ok {
					return NewExitError(ExitCommandError, "cart is not loaded")
				}
				return printCart(p, cart)
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:          "add <itemId>",
		Short:        "Add one unit of an item in a size",
		Example:      "  koko cart add ghost-walkers-v1 --size \"US 9\"",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				item, err := s.Catalog.GetItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				cart, err := s.Cart.AddItem(cmd.Context(), item, size)
				if err != nil {
					return describeCartError(err)
				}
				if p.Format != "json" {
					fmt.Fprintf(p.Writer, "Added %s (%s).\n", item.Name, size)
				}
				return printCart(p, cart)
			})
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "size to add (required)")
	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "remove <lineId>",
		Short:        "Remove a cart line",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				cart, err := s.Cart.RemoveLine(cmd.Context(), args[0])
				if err != nil {
					return describeCartError(err)
				}
				return printCart(p, cart)
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "clear",
		Short:        "Empty the cart",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				cart, err := s.Cart.Clear(cmd.Context())
				if err != nil {
					return describeCartError(err)
				}
				return printCart(p, cart)
			})
		},
	}
}

func printCart(p *printer, cart domain.Cart) error {
	return p.emit(cart, func(w io.Writer) { writeCart(w, cart) })
}
