package bolt

import (
	"context"
	"time"

	bbolt "go.etcd.io/bbolt"

	"focusgate/internal/focus/repos/settings"
)

var (
	bucketSettings = []byte("settings")
	keySnapshot    = []byte("snapshot")
)

// boltStore implements settings.Store using bbolt, keeping the whole
// snapshot as one JSON document so writes stay atomic.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures the
// settings bucket exists.
func New(path string) (settings.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Get(ctx context.Context) ([]byte, error) {
	var doc []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return nil
		}
		if v := b.Get(keySnapshot); v != nil {
			doc = make([]byte, len(v))
			copy(doc, v)
		}
		return nil
	})
	return doc, err
}

func (s *boltStore) Put(ctx context.Context, doc []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(keySnapshot, doc)
	})
}

func (s *boltStore) Close() error { return s.db.Close() }

var _ settings.Store = (*boltStore)(nil)
