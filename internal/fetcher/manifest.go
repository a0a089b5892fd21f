package fetcher

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var manifestBucket = []byte("fetched_endpoints")

// Manifest is a bbolt-backed idempotency ledger recording which
// (service, endpoint) pairs have already been materialized, so repeat
// runs against an unchanged source skip the copy entirely.
type Manifest struct {
	db *bolt.DB
}

// OpenManifest opens (creating if necessary) a bbolt database at path.
func OpenManifest(path string) (*Manifest, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("fetcher: open manifest: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(manifestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("fetcher: init manifest bucket: %w", err)
	}
	return &Manifest{db: db}, nil
}

// Close releases the underlying bbolt handle.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func manifestKey(service, endpoint string) []byte {
	return []byte(service + "/" + endpoint)
}

// IsFetched reports whether (service, endpoint) has a recorded entry.
func (m *Manifest) IsFetched(service, endpoint string) bool {
	var found bool
	_ = m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestBucket)
		found = b.Get(manifestKey(service, endpoint)) != nil
		return nil
	})
	return found
}

// MarkFetched records that (service, endpoint) has been materialized.
func (m *Manifest) MarkFetched(service, endpoint string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestBucket)
		return b.Put(manifestKey(service, endpoint), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// Forget removes a manifest entry, forcing the next fetch to refresh.
func (m *Manifest) Forget(service, endpoint string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestBucket)
		return b.Delete(manifestKey(service, endpoint))
	})
}
