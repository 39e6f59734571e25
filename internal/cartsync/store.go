package cartsync

import "github.com/brandonecarr/amosmiller-sub002/internal/domain"

// AddItem adds item to the cart. If a line with the same product and variant
// exists only its quantity grows; its price and display snapshot stay as they
// were. item.ID is ignored. Warnings for the product are dropped since the
// shopper is deliberately adding it again.
func (s *Session) AddItem(item domain.LineItem) {
	if item.Quantity <= 0 {
		return
	}

	s.mu.Lock()
	added := false
	for i := range s.items {
		if s.items[i].Key() == item.Key() {
			s.items[i].Quantity += item.Quantity
			added = true
			break
		}
	}
	if !added {
		line := domain.CloneItems([]domain.LineItem{item})[0]
		line.ID = s.opts.NewID()
		s.items = append(s.items, line)
	}
	s.dropWarningsLocked(item.ProductID)
	notify := s.changedLocked(changedItems)
	s.mu.Unlock()

	notify()
}

// UpdateQuantity sets the quantity of line id. A quantity of zero or less
// removes the line.
func (s *Session) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 || s.items[i].Quantity == quantity {
		s.mu.Unlock()
		return
	}
	s.items[i].Quantity = quantity
	notify := s.changedLocked(changedItems)
	s.mu.Unlock()

	notify()
}

func (s *Session) RemoveItem(id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	productID := s.items[i].ProductID
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.dropWarningsLocked(productID)
	notify := s.changedLocked(changedItems)
	s.mu.Unlock()

	notify()
}

// ClearCart empties the cart and fulfillment selection. With a user attached
// the remote record is deleted in the background.
func (s *Session) ClearCart() {
	s.mu.Lock()
	s.items = []domain.LineItem{}
	s.fulfillment = domain.Fulfillment{}
	s.warnings = nil
	s.mirror.saveItems(s.items)
	s.mirror.saveFulfillment(s.fulfillment)
	// the remote delete below supersedes any pending push
	s.push.Cancel()
	if s.userID != "" && s.opts.Records != nil && !s.closed {
		s.clearRemoteLocked()
	}
	notify := s.notifierLocked()
	s.mu.Unlock()

	notify()
}

// SetFulfillment merges the patch into the current selection. Fields for
// other fulfillment types are left untouched.
func (s *Session) SetFulfillment(patch domain.FulfillmentPatch) {
	s.mu.Lock()
	s.fulfillment = s.fulfillment.Merge(patch)
	notify := s.changedLocked(changedFulfillment)
	s.mu.Unlock()

	notify()
}

// ClearInventoryWarnings dismisses all warnings without touching items.
func (s *Session) ClearInventoryWarnings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = nil
}

func (s *Session) indexLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) dropWarningsLocked(productID string) {
	if len(s.warnings) == 0 {
		return
	}
	kept := s.warnings[:0]
	for _, w := range s.warnings {
		if w.ProductID != productID {
			kept = append(kept, w)
		}
	}
	s.warnings = kept
}
