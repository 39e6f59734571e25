package cartsync

import (
	"encoding/json"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/brandonecarr/amosmiller-sub002/internal/storage"
	log "github.com/sirupsen/logrus"
)

// mirror copies the cart to device storage. Items and fulfillment live under
// separate keys so a bad value under one key never costs the other. Storage
// failures are logged and otherwise ignored.
type mirror struct {
	store          storage.DeviceStorage
	itemsKey       string
	fulfillmentKey string
	log            log.FieldLogger
	newID          func() string
}

func (m mirror) load() ([]domain.LineItem, domain.Fulfillment) {
	items := []domain.LineItem{}
	if raw, ok := m.read(m.itemsKey); ok {
		var stored []domain.LineItem
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			m.log.WithError(err).WithField("key", m.itemsKey).Warn("discarding unreadable cart items")
		} else {
			items = m.repair(stored)
		}
	}

	var fulfillment domain.Fulfillment
	if raw, ok := m.read(m.fulfillmentKey); ok {
		var stored domain.Fulfillment
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			m.log.WithError(err).WithField("key", m.fulfillmentKey).Warn("discarding unreadable fulfillment")
		} else {
			fulfillment = stored
		}
	}
	return items, fulfillment
}

func (m mirror) read(key string) (string, bool) {
	raw, ok, err := m.store.Get(key)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("device storage read failed")
		return "", false
	}
	return raw, ok
}

// repair restores the cart invariants on data written by an older or foreign
// build: positive quantities, one line per key, every line has an id.
func (m mirror) repair(items []domain.LineItem) []domain.LineItem {
	items = domain.Normalize(items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = m.newID()
		}
	}
	return items
}

func (m mirror) saveItems(items []domain.LineItem) {
	m.write(m.itemsKey, items)
}

func (m mirror) saveFulfillment(f domain.Fulfillment) {
	m.write(m.fulfillmentKey, f)
}

func (m mirror) write(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Error("failed to encode cart for device storage")
		return
	}
	if err := m.store.Set(key, string(raw)); err != nil {
		m.log.WithError(err).WithField("key", key).Warn("device storage write failed")
	}
}
