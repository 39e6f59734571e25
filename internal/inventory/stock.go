package inventory

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// StockInfo contains stock information for a product
type StockInfo struct {
	ProductID      string
	Name           string
	Total          int // Total stock in inventory
	Reserved       int // Held by pending orders
	TrackInventory bool
}

// Available returns the available stock (total - reserved), never negative.
func (s StockInfo) Available() int {
	if s.Total < s.Reserved {
		return 0
	}
	return s.Total - s.Reserved
}

// StockStore is the catalog's view of stock levels.
type StockStore interface {
	// GetStock returns stock for the known products among productIDs.
	// Unknown ids are omitted, not reported as errors.
	GetStock(ctx context.Context, productIDs []string) ([]StockInfo, error)
}
