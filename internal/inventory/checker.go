package inventory

import (
	"context"
	"fmt"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

// Checker compares cart demand with catalog stock.
type Checker struct {
	store StockStore
}

func NewChecker(store StockStore) *Checker {
	return &Checker{store: store}
}

// CheckAvailability returns one warning per cart product that cannot be
// fulfilled in full, in cart order. Demand for a product is summed across its
// lines (variants share their product's stock) and across bundles containing
// it. Untracked products are never reported; products unknown to the catalog
// are reported as removed.
func (c *Checker) CheckAvailability(ctx context.Context, items []domain.LineItem) ([]domain.InventoryWarning, error) {
	if len(items) == 0 {
		return []domain.InventoryWarning{}, nil
	}

	demand := make(map[string]int) // all units drawn from a product
	direct := make(map[string]int) // units ordered as the product itself
	order := make([]string, 0, len(items))
	lines := make(map[string][]domain.LineItem)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if _, ok := lines[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		lines[item.ProductID] = append(lines[item.ProductID], item)

		if isBundle(item) {
			for _, part := range item.BundleItems {
				demand[part.ProductID] += item.Quantity * part.Quantity
			}
			continue
		}
		demand[item.ProductID] += item.Quantity
		direct[item.ProductID] += item.Quantity
	}

	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	stocks, err := c.store.GetStock(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	catalog := make(map[string]StockInfo, len(stocks))
	for _, s := range stocks {
		catalog[s.ProductID] = s
	}

	warnings := make([]domain.InventoryWarning, 0)
	for _, productID := range order {
		first := lines[productID][0]
		requested := 0
		for _, line := range lines[productID] {
			requested += line.Quantity
		}

		var (
			available int
			tracked   bool
			missing   bool
		)
		if isBundle(first) {
			available, tracked, missing = bundleAvailability(first, catalog)
		} else {
			info, ok := catalog[productID]
			switch {
			case !ok:
				missing = true
			case info.TrackInventory:
				tracked = true
				// units drawn by bundles come out of the same stock
				available = max(0, info.Available()-(demand[productID]-direct[productID]))
			}
		}

		name := first.Name
		if info, ok := catalog[productID]; ok && info.Name != "" {
			name = info.Name
		}

		switch {
		case missing:
			warnings = append(warnings, domain.InventoryWarning{
				ProductID: productID, Name: name, Requested: requested, Available: 0, Removed: true,
			})
		case tracked && requested > available:
			warnings = append(warnings, domain.InventoryWarning{
				ProductID: productID, Name: name, Requested: requested, Available: available, Removed: available == 0,
			})
		}
	}

	return warnings, nil
}

func isBundle(item domain.LineItem) bool {
	return item.IsBundle && len(item.BundleItems) > 0
}

// bundleAvailability is the number of whole bundles the constituents'
// stock can assemble. Untracked constituents do not limit it.
func bundleAvailability(bundle domain.LineItem, catalog map[string]StockInfo) (available int, tracked, missing bool) {
	available = -1
	for _, part := range bundle.BundleItems {
		if part.Quantity <= 0 {
			continue
		}
		info, ok := catalog[part.ProductID]
		if !ok {
			return 0, false, true
		}
		if !info.TrackInventory {
			continue
		}
		tracked = true
		n := info.Available() / part.Quantity
		if available < 0 || n < available {
			available = n
		}
	}
	if available < 0 {
		available = 0
	}
	return available, tracked, false
}
