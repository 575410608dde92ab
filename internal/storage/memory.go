package storage

import (
	"encoding/json"
	"sync"
	"time"
)

// In-memory implementations, used in tests and when no data path is
// configured. A mutex serializes writers; readers see a deep copy so a
// View callback can never mutate shared state.

type MemoryInventoryStore struct {
	mu  sync.RWMutex
	doc *InventoryDoc
}

func NewMemoryInventoryStore(now time.Time) *MemoryInventoryStore {
	return &MemoryInventoryStore{doc: NewInventoryDoc(now)}
}

func (s *MemoryInventoryStore) View(fn func(*InventoryDoc) error) error {
	s.mu.RLock()
	cp, err := copyInventory(s.doc)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return fn(cp)
}

func (s *MemoryInventoryStore) Update(fn func(*InventoryDoc) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := copyInventory(s.doc)
	if err != nil {
		return err
	}
	if err := fn(cp); err != nil {
		return err
	}
	s.doc = cp
	return nil
}

type MemoryAnalyticsStore struct {
	mu  sync.RWMutex
	doc *AnalyticsDoc
}

func NewMemoryAnalyticsStore(now time.Time) *MemoryAnalyticsStore {
	return &MemoryAnalyticsStore{doc: NewAnalyticsDoc(now)}
}

func (s *MemoryAnalyticsStore) View(fn func(*AnalyticsDoc) error) error {
	s.mu.RLock()
	cp, err := copyAnalytics(s.doc)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return fn(cp)
}

func (s *MemoryAnalyticsStore) Update(fn func(*AnalyticsDoc) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := copyAnalytics(s.doc)
	if err != nil {
		return err
	}
	if err := fn(cp); err != nil {
		return err
	}
	s.doc = cp
	return nil
}

func copyInventory(doc *InventoryDoc) (*InventoryDoc, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	cp := &InventoryDoc{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, err
	}
	cp.normalize()
	return cp, nil
}

func copyAnalytics(doc *AnalyticsDoc) (*AnalyticsDoc, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	cp := &AnalyticsDoc{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, err
	}
	cp.normalize()
	return cp, nil
}
