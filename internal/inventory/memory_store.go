package inventory

import (
	"context"
	"sync"
)

// MemoryStore implements StockStore with in-memory storage
type MemoryStore struct {
	mu     sync.RWMutex
	stocks map[string]StockInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stocks: make(map[string]StockInfo)}
}

func (s *MemoryStore) GetStock(_ context.Context, productIDs []string) ([]StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		if stock, exists := s.stocks[id]; exists {
			result = append(result, stock)
		}
	}
	return result, nil
}

// SetStock replaces the stock record for info.ProductID.
func (s *MemoryStore) SetStock(info StockInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[info.ProductID] = info
}

// Reserve holds quantity units of a product, as a pending order would.
func (s *MemoryStore) Reserve(productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, exists := s.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}
	stock.Reserved += quantity
	if stock.Reserved < 0 {
		stock.Reserved = 0
	}
	s.stocks[productID] = stock
	return nil
}

func (s *MemoryStore) Delete(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stocks, productID)
}
