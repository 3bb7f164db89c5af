package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/autoheal/pkg/types"
	bolt "go.etcd.io/bbolt"
)

// DBName is the bolt database inside the history directory
const DBName = "history.db"

var bucketRecords = []byte("records")

// BoltStore implements Store using BoltDB. Records are keyed by the
// bucket sequence so iteration order is append order.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the history database in dir
func NewBoltStore(dir string) (*BoltStore, error) {
	dbPath := filepath.Join(dir, DBName)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRecords, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Append stores rec under the next sequence number
func (s *BoltStore) Append(rec types.Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
}

// Records returns all records in sequence order
func (s *BoltStore) Records() ([]types.Record, error) {
	var records []types.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		return b.ForEach(func(k, v []byte) error {
			var rec types.Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
