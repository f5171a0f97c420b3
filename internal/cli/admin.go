package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/service/dashboard"
)

// NewOrdersCommand lists orders, newest first.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:          "orders",
		Short:        "List orders, newest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				orders, err := s.Catalog.Orders(cmd.Context(), dashboard.OrderFilter{Status: status})
				if err != nil {
					return err
				}
				return p.emit(orders, func(w io.Writer) { writeOrders(w, orders) })
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", fmt.Sprintf("only orders in this status %v", domain.OrderStatuses))
	return cmd
}

// NewCustomersCommand lists customers by total spent.
func NewCustomersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "customers",
		Short:        "List customers, biggest spenders first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(s *Session, p *printer) error {
				customers, err := s.Catalog.Customers(cmd.Context())
				if err != nil {
					return err
				}
				return p.emit(customers, func(w io.Writer) { writeCustomers(w, customers) })
			})
		},
	}
}

func writeOrders(w io.Writer, orders []domain.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tSTATUS\tITEMS\tTOTAL")
	for _, o := range orders {
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", o.ID, o.Date.Format("2006-01-02"), o.CustomerName, o.Status, units, money(o.Total))
	}
	tw.Flush()
}

func writeCustomers(w io.Writer, customers []domain.Customer) {
	if len(customers) == 0 {
		fmt.Fprintln(w, "No customers.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tORDERS\tSPENT\tLAST ORDER")
	for _, c := range customers {
		last := "-"
		if c.LastOrderDate != nil {
			last = c.LastOrderDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, c.Email, c.OrderCount, money(c.TotalSpent), last)
	}
	tw.Flush()
}
