package pos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketHistory = []byte("history")

// HistoryEntry is one resolved-location record.
type HistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Label      string    `json:"label"`
	NodeID     string    `json:"nodeId,omitempty"`
	BuildingID string    `json:"buildingId,omitempty"`
	FloorID    string    `json:"floorId,omitempty"`
	Status     string    `json:"status"`
}

// HistoryStore persists resolved locations to a bolt database with bounded
// retention: once limit entries exist, the oldest are pruned on append.
type HistoryStore struct {
	db    *bbolt.DB
	limit int
}

// OpenHistory opens (or creates) the history database at path.
func OpenHistory(path string, limit int) (*HistoryStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history bucket: %w", err)
	}

	if limit <= 0 {
		limit = 500
	}
	return &HistoryStore{db: db, limit: limit}, nil
}

// Append stores an entry, pruning the oldest records beyond the retention
// limit.
func (h *HistoryStore) Append(entry HistoryEntry) error {
	return h.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := b.Put(key, data); err != nil {
			return err
		}

		// Prune oldest entries while over the limit.
		c := b.Cursor()
		count := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			count++
		}
		for count > h.limit {
			k, _ := c.First()
			if k == nil {
				break
			}
			if err := b.Delete(k); err != nil {
				return err
			}
			count--
		}
		return nil
	})
}

// Recent returns up to n entries, newest first.
func (h *HistoryStore) Recent(n int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := h.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < n; k, v = c.Prev() {
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("decoding history entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the underlying database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}
