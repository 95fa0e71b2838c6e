package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/xenking/backoffice/internal/api"
	"github.com/xenking/backoffice/internal/client"
	"github.com/xenking/backoffice/internal/dashboard"
)

func newMenuCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Browse and edit the menu",
	}
	cmd.AddCommand(
		newMenuListCmd(c),
		newMenuAddCmd(c),
		newMenuUpdateCmd(c),
		newMenuToggleCmd(c),
		newMenuDeleteCmd(c),
	)
	return cmd
}

func newMenuListCmd(c *cli) *cobra.Command {
	var (
		f         client.MenuFilter
		available string
		minPrice  string
		maxPrice  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List menu items matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if available != "" {
				b, err := strconv.ParseBool(available)
				if err != nil {
					return errors.Errorf("--available: %q is not a boolean", available)
				}
				f.IsAvailable = &b
			}
			if f.MinPrice, err = parsePrice("--min-price", minPrice); err != nil {
				return err
			}
			if f.MaxPrice, err = parsePrice("--max-price", maxPrice); err != nil {
				return err
			}

			ctx, cancel := c.context(cmd)
			defer cancel()
			items, err := c.client().SearchMenu(ctx, f)
			if err != nil {
				return err
			}
			printMenu(c.out, items)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "text matched against name, description and ingredients")
	cmd.Flags().StringVar(&f.Category, "category", "", "Appetizer, Main Course, Dessert or Beverage")
	cmd.Flags().StringVar(&available, "available", "", "true or false")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "minimum price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum price")
	return cmd
}

// menuFlags binds the editable menu item fields. Only flags set on the
// command line end up in the request.
type menuFlags struct {
	name, category, description, imageURL string
	price                                 string
	ingredients                           []string
	prepTime                              int
	available                             bool
}

func (m *menuFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.name, "name", "", "item name")
	cmd.Flags().StringVar(&m.category, "category", "", "Appetizer, Main Course, Dessert or Beverage")
	cmd.Flags().StringVar(&m.price, "price", "", "price, e.g. 12.50")
	cmd.Flags().StringVar(&m.description, "description", "", "description")
	cmd.Flags().StringSliceVar(&m.ingredients, "ingredients", nil, "comma separated ingredients")
	cmd.Flags().IntVar(&m.prepTime, "prep-time", 0, "preparation time in minutes")
	cmd.Flags().StringVar(&m.imageURL, "image-url", "", "image URL")
	cmd.Flags().BoolVar(&m.available, "available", true, "whether the item can be ordered")
}

func (m *menuFlags) input(cmd *cobra.Command) (api.MenuItemInput, error) {
	var in api.MenuItemInput
	changed := cmd.Flags().Changed
	if changed("name") {
		in.Name = &m.name
	}
	if changed("category") {
		in.Category = &m.category
	}
	if changed("price") {
		p, err := parsePrice("--price", m.price)
		if err != nil {
			return in, err
		}
		in.Price = p
	}
	if changed("description") {
		in.Description = &m.description
	}
	if changed("ingredients") {
		in.Ingredients = m.ingredients
	}
	if changed("prep-time") {
		in.PreparationTime = &m.prepTime
	}
	if changed("image-url") {
		in.ImageURL = &m.imageURL
	}
	if changed("available") {
		in.IsAvailable = &m.available
	}
	return in, nil
}

func newMenuAddCmd(c *cli) *cobra.Command {
	var m menuFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a menu item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := m.input(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			it, err := c.client().CreateMenuItem(ctx, in)
			if err != nil {
				return err
			}
			printMenu(c.out, []api.MenuItem{*it})
			return nil
		},
	}
	m.register(cmd)
	return cmd
}

func newMenuUpdateCmd(c *cli) *cobra.Command {
	var m menuFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := m.input(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := c.context(cmd)
			defer cancel()
			it, err := c.client().UpdateMenuItem(ctx, args[0], in)
			if err != nil {
				return err
			}
			printMenu(c.out, []api.MenuItem{*it})
			return nil
		},
	}
	m.register(cmd)
	return cmd
}

func newMenuToggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip the availability of a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			board := dashboard.NewMenu(c.client())
			if err := board.Refresh(ctx); err != nil {
				return err
			}
			if err := board.Toggle(ctx, args[0]); err != nil {
				return err
			}
			for _, it := range board.Items() {
				if it.ID == args[0] {
					printMenu(c.out, []api.MenuItem{it})
				}
			}
			return nil
		},
	}
}

func newMenuDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a menu item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			if err := c.client().DeleteMenuItem(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(c.out, "Menu item removed")
			return err
		},
	}
}

func parsePrice(flag, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Errorf("%s: %q is not a number", flag, s)
	}
	return &d, nil
}

func money(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

func printMenu(w io.Writer, items []api.MenuItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tAVAILABLE\tINGREDIENTS")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			it.ID, it.Name, it.Category, money(it.Price), it.IsAvailable, strings.Join(it.Ingredients, ", "))
	}
	_ = tw.Flush()
}
