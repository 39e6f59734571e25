package cartsync

import (
	"context"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

// ValidateInventory checks the cart against live stock and repairs it: lines
// for products that are out of stock are removed, lines asking for more than
// is available are clamped down. Stock for a product is shared by its variant
// lines. Every reported product becomes a warning.
//
// If the stock check fails the cart and existing warnings are left as they
// are.
func (s *Session) ValidateInventory(ctx context.Context) []domain.InventoryWarning {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.warnings = nil
		s.mu.Unlock()
		return nil
	}
	if s.opts.Stock == nil {
		s.mu.Unlock()
		return nil
	}
	items := domain.CloneItems(s.items)
	epoch := s.epoch
	s.mu.Unlock()

	invalid, err := s.opts.Stock.CheckAvailability(ctx, items)
	if err != nil {
		s.log.WithError(err).Warn("inventory check failed, leaving cart as is")
		return nil
	}

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return nil
	}
	warnings := make([]domain.InventoryWarning, 0, len(invalid))
	changed := false
	for _, w := range invalid {
		w.Removed = w.Removed || w.Available <= 0
		if s.repairLocked(w) {
			changed = true
		}
		warnings = append(warnings, w)
	}
	s.warnings = warnings
	notify := func() {}
	if changed {
		notify = s.changedLocked(changedItems)
	}
	out := append([]domain.InventoryWarning(nil), warnings...)
	s.mu.Unlock()

	notify()
	if len(out) > 0 {
		s.log.WithField("warnings", len(out)).Info("cart adjusted to available stock")
	}
	return out
}

// repairLocked applies one warning to the cart and reports whether anything
// changed. Available covers all of the product's lines together, so it is
// handed out in cart order and lines left with nothing are dropped.
func (s *Session) repairLocked(w domain.InventoryWarning) bool {
	changed := false
	remaining := w.Available
	if w.Removed {
		remaining = 0
	}
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ProductID != w.ProductID {
			kept = append(kept, item)
			continue
		}
		if item.Quantity > remaining {
			item.Quantity = remaining
			changed = true
		}
		remaining -= item.Quantity
		if item.Quantity <= 0 {
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return changed
}
