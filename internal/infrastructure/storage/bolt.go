package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vitos/signal_trader/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var (
	stateBucket   = []byte("state")
	lastTradeKey  = []byte("last_trade")
	boltOpenLimit = 2 * time.Second
)

// BoltStore keeps the last-trade marker as a JSON value in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: boltOpenLimit})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveLastTrade(ctx context.Context, record domain.LastTradeRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put(lastTradeKey, data)
	})
}

func (s *BoltStore) GetLastTrade(ctx context.Context) (domain.LastTradeRecord, bool, error) {
	var (
		record domain.LastTradeRecord
		found  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(stateBucket).Get(lastTradeKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return domain.LastTradeRecord{}, false, fmt.Errorf("read last trade: %w", err)
	}
	return record, found, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
