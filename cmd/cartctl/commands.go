package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/urfave/cli/v2"
)

func commands(e *env) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "add",
			Usage:     "add a product, or more of one already in the cart",
			ArgsUsage: "<product-id>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "qty", Value: 1},
				&cli.StringFlag{Name: "variant"},
				&cli.StringFlag{Name: "name"},
				&cli.Float64Flag{Name: "price", Usage: "base price"},
				&cli.Float64Flag{Name: "sale", Usage: "sale price"},
				&cli.Float64Flag{Name: "weight", Usage: "estimated weight; makes the line priced by weight"},
				&cli.StringFlag{Name: "unit", Value: "lb"},
				&cli.BoolFlag{Name: "coop"},
			},
			Action: e.add,
		},
		{
			Name:      "qty",
			Usage:     "set a line's quantity; zero removes it",
			ArgsUsage: "<line-id> <quantity>",
			Action:    e.qty,
		},
		{
			Name:      "rm",
			Usage:     "remove a line",
			ArgsUsage: "<line-id>",
			Action:    e.rm,
		},
		{
			Name:   "ls",
			Usage:  "show the cart",
			Action: e.ls,
		},
		{
			Name:   "clear",
			Usage:  "empty the cart here and remotely",
			Action: e.clear,
		},
		{
			Name:  "fulfill",
			Usage: "change how the order will be fulfilled",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "type", Usage: "pickup, delivery or shipping"},
				&cli.StringFlag{Name: "location"},
				&cli.StringFlag{Name: "zone"},
				&cli.StringFlag{Name: "date"},
				&cli.StringFlag{Name: "line1"},
				&cli.StringFlag{Name: "line2"},
				&cli.StringFlag{Name: "city"},
				&cli.StringFlag{Name: "state"},
				&cli.StringFlag{Name: "postal"},
			},
			Action: e.fulfill,
		},
		{
			Name:   "validate",
			Usage:  "check the cart against current stock and repair it",
			Action: e.validate,
		},
		{
			Name:      "login",
			Usage:     "attach the cart to a user, merging with their saved cart",
			ArgsUsage: "<user-id>",
			Action:    e.login,
		},
		{
			Name:   "logout",
			Usage:  "detach the cart from the user; the cart stays on this device",
			Action: e.logout,
		},
	}
}

func (e *env) add(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: cartctl add <product-id>")
	}
	item := domain.LineItem{
		ProductID:   c.Args().First(),
		VariantID:   c.String("variant"),
		Name:        c.String("name"),
		PricingType: domain.PricingFixed,
		BasePrice:   c.Float64("price"),
		Quantity:    c.Int("qty"),
		IsCoopItem:  c.Bool("coop"),
	}
	if item.Name == "" {
		item.Name = item.ProductID
	}
	if c.IsSet("sale") {
		sale := c.Float64("sale")
		item.SalePrice = &sale
	}
	if c.IsSet("weight") {
		weight := c.Float64("weight")
		item.PricingType = domain.PricingWeight
		item.EstimatedWeight = &weight
		item.WeightUnit = c.String("unit")
	}
	if item.Quantity <= 0 {
		return errors.New("quantity must be positive")
	}

	e.session.AddItem(item)
	return e.ls(c)
}

func (e *env) qty(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: cartctl qty <line-id> <quantity>")
	}
	n, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("bad quantity %q", c.Args().Get(1))
	}
	e.session.UpdateQuantity(c.Args().First(), n)
	return e.ls(c)
}

func (e *env) rm(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: cartctl rm <line-id>")
	}
	e.session.RemoveItem(c.Args().First())
	return e.ls(c)
}

func (e *env) clear(c *cli.Context) error {
	e.session.ClearCart()
	fmt.Fprintln(e.out, "cart cleared")
	return nil
}

func (e *env) fulfill(c *cli.Context) error {
	var patch domain.FulfillmentPatch
	if c.IsSet("type") {
		t := domain.FulfillmentType(c.String("type"))
		if !t.Valid() {
			return fmt.Errorf("unknown fulfillment type %q", t)
		}
		patch.Type = &t
	}
	for flag, dst := range map[string]**string{
		"location": &patch.LocationID,
		"zone":     &patch.ZoneID,
		"date":     &patch.ScheduledDate,
	} {
		if c.IsSet(flag) {
			v := c.String(flag)
			*dst = &v
		}
	}
	if c.IsSet("line1") || c.IsSet("city") {
		patch.Address = &domain.Address{
			Line1:      c.String("line1"),
			Line2:      c.String("line2"),
			City:       c.String("city"),
			State:      c.String("state"),
			PostalCode: c.String("postal"),
		}
	}

	e.session.SetFulfillment(patch)
	return e.ls(c)
}

func (e *env) validate(c *cli.Context) error {
	warnings := e.session.ValidateInventory(background(c))
	if len(warnings) == 0 {
		fmt.Fprintln(e.out, "all items available")
		return nil
	}
	for _, w := range warnings {
		if w.Removed {
			fmt.Fprintf(e.out, "removed %s: no longer available\n", w.Name)
			continue
		}
		fmt.Fprintf(e.out, "reduced %s from %d to %d\n", w.Name, w.Requested, w.Available)
	}
	return e.ls(c)
}

func (e *env) login(c *cli.Context) error {
	if c.NArg() != 1 || c.Args().First() == "" {
		return errors.New("usage: cartctl login <user-id>")
	}
	userID := c.Args().First()
	e.session.SetUserID(background(c), userID)
	if err := e.remember(userID); err != nil {
		return err
	}
	return e.ls(c)
}

func (e *env) logout(c *cli.Context) error {
	e.session.SetUserID(background(c), "")
	if err := e.remember(""); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "signed out; cart kept on this device")
	return nil
}

func (e *env) ls(c *cli.Context) error {
	s := e.session
	user := s.UserID()
	if user == "" {
		user = "(anonymous)"
	}
	fmt.Fprintf(e.out, "user: %s  state: %s\n", user, s.State())

	items := s.Items()
	if len(items) == 0 {
		fmt.Fprintln(e.out, "cart is empty")
	} else {
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LINE\tPRODUCT\tVARIANT\tQTY\tUNIT\tTOTAL")
		for _, item := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				item.ID, item.Name, item.VariantID, item.Quantity,
				item.UnitPrice().StringFixed(2), item.LineTotal().StringFixed(2))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(e.out, "items: %d  subtotal: %s\n", s.ItemCount(), s.Subtotal().StringFixed(2))
		if s.HasCoopItems() {
			fmt.Fprintln(e.out, "contains co-op items")
		}
	}

	if f := s.Fulfillment(); f.Type != domain.FulfillmentUnset {
		fmt.Fprintf(e.out, "fulfillment: %s", f.Type)
		switch f.Type {
		case domain.FulfillmentPickup:
			fmt.Fprintf(e.out, " at %s", f.LocationID)
		case domain.FulfillmentDelivery:
			fmt.Fprintf(e.out, " to zone %s", f.ZoneID)
		}
		if f.ScheduledDate != "" {
			fmt.Fprintf(e.out, " on %s", f.ScheduledDate)
		}
		fmt.Fprintln(e.out)
	}
	for _, w := range s.Warnings() {
		fmt.Fprintf(e.out, "stock warning: %s (%d requested, %d available)\n", w.Name, w.Requested, w.Available)
	}
	return nil
}
