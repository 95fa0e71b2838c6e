package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/dashboard"
	"github.com/xenking/backoffice/internal/pos"
)

func newOrdersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Place and track orders",
	}
	cmd.AddCommand(
		newOrdersListCmd(c),
		newOrdersGetCmd(c),
		newOrdersStatusCmd(c),
		newOrdersPlaceCmd(c),
	)
	return cmd
}

func newOrdersListCmd(c *cli) *cobra.Command {
	var (
		page   int
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			board := dashboard.NewOrders(c.client())
			if err := board.Filter(ctx, status); err != nil {
				return err
			}
			if page > 1 {
				if err := board.Goto(ctx, page); err != nil {
					return err
				}
			}
			printBoard(c.out, board)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().StringVar(&status, "status", "", "only orders with this status")
	return cmd
}

func newOrdersGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one order with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			o, err := c.client().GetOrder(ctx, args[0])
			if err != nil {
				return err
			}
			printOrder(c.out, *o)
			return nil
		},
	}
}

func newOrdersStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move an order to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			board := dashboard.NewOrders(c.client())
			if err := board.Refresh(ctx); err != nil {
				return err
			}
			if err := board.SetStatus(ctx, args[0], args[1]); err != nil {
				return err
			}
			printBoard(c.out, board)
			return nil
		},
	}
}

func newOrdersPlaceCmd(c *cli) *cobra.Command {
	var (
		table    int
		customer string
	)
	cmd := &cobra.Command{
		Use:   "place <menu-item-id>[:qty]...",
		Short: "Place an order for a table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			cl := c.client()

			var cart pos.Cart
			for _, arg := range args {
				id, qty, err := parseLine(arg)
				if err != nil {
					return err
				}
				it, err := cl.GetMenuItem(ctx, id)
				if err != nil {
					return errors.Wrapf(err, "menu item %s", id)
				}
				if !it.IsAvailable {
					return errors.Errorf("%s is not available", it.Name)
				}
				cart.Add(*it)
				cart.ChangeQuantity(id, qty-1)
			}

			fmt.Fprintf(c.out, "Total: %s\n", cart.Total().StringFixed(2))
			o, err := cart.Checkout(ctx, cl, table, customer)
			if err != nil {
				return err
			}
			printOrder(c.out, *o)
			return nil
		},
	}
	cmd.Flags().IntVarP(&table, "table", "t", 0, "table number")
	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// parseLine splits "id:qty"; the quantity defaults to 1.
func parseLine(s string) (string, int, error) {
	id, q, found := strings.Cut(s, ":")
	if id == "" {
		return "", 0, errors.Errorf("%q: missing menu item id", s)
	}
	if !found {
		return id, 1, nil
	}
	qty, err := strconv.Atoi(q)
	if err != nil || qty < 1 {
		return "", 0, errors.Errorf("%q: quantity must be a positive integer", s)
	}
	return id, qty, nil
}

func printBoard(w io.Writer, b *dashboard.Orders) {
	orders, page, pages := b.Snapshot()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tTABLE\tCUSTOMER\tSTATUS\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			o.ID, o.OrderNumber, o.TableNumber, o.CustomerName, o.Status, money(o.TotalAmount),
			o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Page %d of %d\n", page, max(pages, 1))
}

func printOrder(w io.Writer, o api.Order) {
	fmt.Fprintf(w, "Order %s (%s)\nTable %d", o.OrderNumber, o.ID, o.TableNumber)
	if o.CustomerName != "" {
		fmt.Fprintf(w, ", %s", o.CustomerName)
	}
	fmt.Fprintf(w, "\nStatus %s\n", o.Status)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tQTY\tPRICE")
	for _, it := range o.Items {
		name := "(deleted)"
		if it.MenuItem != nil {
			name = it.MenuItem.Name
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, it.Quantity, money(it.Price))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total %s\n", money(o.TotalAmount))
}
