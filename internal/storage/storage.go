// Package storage holds device-local key/value stores used to mirror a cart
// across restarts.
package storage

import "sync"

// DeviceStorage is a string key/value store scoped to one device.
type DeviceStorage interface {
	// Get returns ok=false when the key has never been written.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Memory is a DeviceStorage that lives only as long as the process.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
