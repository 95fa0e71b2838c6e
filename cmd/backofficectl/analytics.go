package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newTopSellersCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top-sellers",
		Short: "Show the best-selling menu items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			sellers, err := c.client().TopSellers(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tITEM\tSOLD")
			for i, s := range sellers {
				name := s.MenuItemID + " (deleted)"
				if s.MenuItem != nil {
					name = s.MenuItem.Name
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, name, s.TotalQty)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of items (server default when 0)")
	return cmd
}
