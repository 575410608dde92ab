package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketInventory = []byte("inventory")
	bucketAnalytics = []byte("analytics")
	keyDoc          = []byte("doc")
)

// BoltStore persists the documents in a bbolt file, one bucket per
// document. bbolt serializes writers, which gives the whole-document
// read-modify-write model safe semantics without extra locking. The
// server opens one file per document so analytics churn never rewrites
// inventory pages.
type BoltStore struct {
	db      *bolt.DB
	observe func(store, op string, latency time.Duration)
}

// Open opens (or creates) the database at path and seeds empty documents
// with defaults.
func Open(path string, now time.Time) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		inv, err := tx.CreateBucketIfNotExists(bucketInventory)
		if err != nil {
			return err
		}
		if inv.Get(keyDoc) == nil {
			data, err := json.Marshal(NewInventoryDoc(now))
			if err != nil {
				return err
			}
			if err := inv.Put(keyDoc, data); err != nil {
				return err
			}
		}

		ana, err := tx.CreateBucketIfNotExists(bucketAnalytics)
		if err != nil {
			return err
		}
		if ana.Get(keyDoc) == nil {
			data, err := json.Marshal(NewAnalyticsDoc(now))
			if err != nil {
				return err
			}
			if err := ana.Put(keyDoc, data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

// SetObserver installs a latency callback invoked after every document
// read or write. Pass nil to disable.
func (s *BoltStore) SetObserver(fn func(store, op string, latency time.Duration)) {
	s.observe = fn
}

// Inventory returns the inventory document store.
func (s *BoltStore) Inventory() InventoryStore { return &boltInventory{parent: s, db: s.db} }

// Analytics returns the analytics document store.
func (s *BoltStore) Analytics() AnalyticsStore { return &boltAnalytics{parent: s, db: s.db} }

func (s *BoltStore) observeOp(store, op string, started time.Time) {
	if s.observe != nil {
		s.observe(store, op, time.Since(started))
	}
}

type boltInventory struct {
	parent *BoltStore
	db     *bolt.DB
}

func (s *boltInventory) View(fn func(*InventoryDoc) error) error {
	defer s.parent.observeOp("inventory", "view", time.Now())
	return s.db.View(func(tx *bolt.Tx) error {
		doc, err := decodeInventory(tx)
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

func (s *boltInventory) Update(fn func(*InventoryDoc) error) error {
	defer s.parent.observeOp("inventory", "update", time.Now())
	return s.db.Update(func(tx *bolt.Tx) error {
		doc, err := decodeInventory(tx)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal inventory: %w", err)
		}
		return tx.Bucket(bucketInventory).Put(keyDoc, data)
	})
}

func decodeInventory(tx *bolt.Tx) (*InventoryDoc, error) {
	raw := tx.Bucket(bucketInventory).Get(keyDoc)
	doc := &InventoryDoc{}
	if raw != nil {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
		}
	}
	doc.normalize()
	return doc, nil
}

type boltAnalytics struct {
	parent *BoltStore
	db     *bolt.DB
}

func (s *boltAnalytics) View(fn func(*AnalyticsDoc) error) error {
	defer s.parent.observeOp("analytics", "view", time.Now())
	return s.db.View(func(tx *bolt.Tx) error {
		doc, err := decodeAnalytics(tx)
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

func (s *boltAnalytics) Update(fn func(*AnalyticsDoc) error) error {
	defer s.parent.observeOp("analytics", "update", time.Now())
	return s.db.Update(func(tx *bolt.Tx) error {
		doc, err := decodeAnalytics(tx)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal analytics: %w", err)
		}
		return tx.Bucket(bucketAnalytics).Put(keyDoc, data)
	})
}

func decodeAnalytics(tx *bolt.Tx) (*AnalyticsDoc, error) {
	raw := tx.Bucket(bucketAnalytics).Get(keyDoc)
	doc := &AnalyticsDoc{}
	if raw != nil {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analytics: %w", err)
		}
	}
	doc.normalize()
	return doc, nil
}
