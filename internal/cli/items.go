package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"koko-storefront/internal/identity"
	"koko-storefront/internal/service/catalog"
)

// NewItemsCommand creates the items command group.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Browse and administer catalog items",
	}
	cmd.AddCommand(newItemsListCommand(rootOpts))
	cmd.AddCommand(newItemsGetCommand(rootOpts))
	cmd.AddCommand(newItemsCategoriesCommand(rootOpts))
	cmd.AddCommand(newItemsCreateCommand(rootOpts))
	cmd.AddCommand(newItemsUpdateCommand(rootOpts))
	cmd.AddCommand(newItemsDeleteCommand(rootOpts))
	return cmd
}

type listOptions struct {
	Category string
	New      bool
	Limit    int
}

func newItemsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List catalog items, oldest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := catalog.ListFilter{Category: opts.Category, Limit: opts.Limit}
			if cmd.Flags().Changed("new") {
				v := opts.New
				filter.IsNew = &v
			}
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				items, err := s.Catalog.ListItems(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return p.emit(items, func(w io.Writer) { writeItems(w, items) })
			})
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "only items in this category")
	cmd.Flags().BoolVar(&opts.New, "new", false, "only new arrivals (--new=false for the rest)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of items (default 50)")
	return cmd
}

func newItemsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "get <id>",
		Short:        "Show one catalog item",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				item, err := s.Catalog.GetItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return p.emit(item, func(w io.Writer) { writeItem(w, item) })
			})
		},
	}
}

func newItemsCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "categories",
		Short:        "List the categories in use",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				names, err := s.Catalog.Categories(cmd.Context())
				if err != nil {
					return err
				}
				return p.emit(names, func(w io.Writer) {
					for _, n := range names {
						fmt.Fprintln(w, n)
					}
				})
			})
		},
	}
}

// itemFlags are the write fields shared by create and update.
type itemFlags struct {
	ID            string
	Name          string
	Description   string
	Price         string
	OriginalPrice string
	Category      string
	Stock         string
	Images        []string
	Sizes         []string
	Features      []string
	New           bool
	PreOrder      bool
}

func (f *itemFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Name, "name", "", "item name")
	fs.StringVar(&f.Description, "description", "", "item description")
	fs.StringVar(&f.Price, "price", "", "price")
	fs.StringVar(&f.OriginalPrice, "original-price", "", "price before discount")
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.Stock, "stock", "", "units in stock")
	fs.StringArrayVar(&f.Images, "image", nil, "image URL (repeatable; replaces all images)")
	fs.StringArrayVar(&f.Sizes, "size", nil, "offered size (repeatable)")
	fs.StringArrayVar(&f.Features, "feature", nil, "feature line (repeatable)")
	fs.BoolVar(&f.New, "new", true, "mark as a new arrival")
	fs.BoolVar(&f.PreOrder, "pre-order", false, "available for pre-order only")
}

// input maps the flags the user actually set onto an identity.Input.
func (f *itemFlags) input(fs *pflag.FlagSet) identity.Input {
	in := identity.Input{ID: f.ID}
	text := func(name string, v string) *string {
		if !fs.Changed(name) {
			return nil
		}
		return &v
	}
	in.Name = text("name", f.Name)
	in.Description = text("description", f.Description)
	in.Price = text("price", f.Price)
	in.OriginalPrice = text("original-price", f.OriginalPrice)
	in.Category = text("category", f.Category)
	in.Stock = text("stock", f.Stock)
	in.Images = f.Images
	in.Sizes = f.Sizes
	if fs.Changed("feature") {
		in.Features = f.Features
	}
	if fs.Changed("new") {
		v := f.New
		in.IsNew = &v
	}
	if fs.Changed("pre-order") {
		v := f.PreOrder
		in.IsPreOrder = &v
	}
	return in
}

func newItemsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &itemFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a catalog item",
		Example: `  koko items create --name "Zipper 2.0" --description "Quick-zip closure" \
    --price 72000 --stock 35 --category Hybrid --image /products/zipper-2.0.jpg`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := f.input(cmd.Flags())
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				item, err := s.Catalog.CreateItem(cmd.Context(), in)
				if err != nil {
					return err
				}
				return p.emit(item, func(w io.Writer) {
					fmt.Fprintf(w, "Created %s.\n", item.ID)
					writeItem(w, item)
				})
			})
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVar(&f.ID, "id", "", "identity to use (generated when empty)")
	return cmd
}

func newItemsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &itemFlags{}
	cmd := &cobra.Command{
		Use:          "update <id>",
		Short:        "Change fields of a catalog item; unset flags are left alone",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := f.input(cmd.Flags())
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				item, err := s.Catalog.UpdateItem(cmd.Context(), args[0], in)
				if err != nil {
					return err
				}
				return p.emit(item, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s.\n", item.ID)
					writeItem(w, item)
				})
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newItemsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "delete <id>",
		Short:        "Delete a catalog item",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				if err := s.Catalog.DeleteItem(cmd.Context(), args[0]); err != nil {
					return err
				}
				return p.emit(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s.\n", args[0])
				})
			})
		},
	}
}

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "dashboard",
		Short:        "Show the admin overview",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				stats, err := s.Catalog.Dashboard(cmd.Context())
				if err != nil {
					return err
				}
				return p.emit(stats, func(w io.Writer) { writeStats(w, stats) })
			})
		},
	}
}

