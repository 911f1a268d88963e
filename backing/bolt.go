package backing

import (
	"bytes"
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	recordsBucketName = []byte("records")
)

// Bolt mirrors records in a bbolt database, one key per record.
// Keys are big endian logical indexes so iteration order is oldest first.
type Bolt struct {
	Path string
	db   *bolt.DB
}

var _ Mirror = &Bolt{}

// OpenBolt opens (creating if needed) a database at path
func OpenBolt(path string) (*Bolt, error) {
	path, err := absPath(path)
	if err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Bolt{
		Path: path,
		db:   db,
	}, nil
}

func recordKey(i int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(i))
	return k[:]
}

// Sync replaces all records in a single transaction
func (b *Bolt) Sync(records [][]byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(recordsBucketName) != nil {
			if err := tx.DeleteBucket(recordsBucketName); err != nil {
				return err
			}
		}
		bkt, err := tx.CreateBucket(recordsBucketName)
		if err != nil {
			return err
		}
		for i, rec := range records {
			if err = bkt.Put(recordKey(i), rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns records stored by the last Sync
func (b *Bolt) Load() ([][]byte, error) {
	var res [][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(recordsBucketName)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			// values are only valid during the transaction
			res = append(res, bytes.Clone(v))
			return nil
		})
	})
	return res, err
}

// Close closes the database. It's safe to call multiple times
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
