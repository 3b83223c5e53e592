package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-notice-harvester/internal/domain"
)

const noticeBucket = "notices"

// boltStore implements a Store backed by BoltDB, keyed on the notice link.
type boltStore struct {
	db  *bolt.DB
	now func() time.Time
}

type boltRecord struct {
	Title     string    `json:"title"`
	PostDate  string    `json:"post_date"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(noticeBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, now: time.Now}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Persist stores n unless its link is already present. Check and write share one transaction.
func (b *boltStore) Persist(ctx context.Context, n domain.Notice) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PersistError{Link: n.Link, Err: err}
	}

	value, err := json.Marshal(boltRecord{
		Title:     n.Title,
		PostDate:  n.PostDate,
		Source:    n.Source,
		CreatedAt: b.now().UTC(),
	})
	if err != nil {
		return 0, &PersistError{Link: n.Link, Err: fmt.Errorf("encode notice: %w", err)}
	}

	outcome := Inserted
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(noticeBucket))
		if bucket == nil {
			return fmt.Errorf("notice bucket missing")
		}
		key := []byte(n.Link)
		if bucket.Get(key) != nil {
			outcome = Duplicate
			return nil
		}
		return bucket.Put(key, value)
	})
	if err != nil {
		return 0, &PersistError{Link: n.Link, Err: err}
	}
	return outcome, nil
}
