// Package store persists every durable collection in a single bbolt
// database: one bucket per collection, with idx:: keys inside a bucket
// for secondary lookups. The store is the only durable authority;
// caches and action states are rebuilt by the coordinator on restart.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketServers     = []byte("servers")
	bucketDeployments = []byte("deployments")
	bucketBuilds      = []byte("builds")
	bucketProcedures  = []byte("procedures")
	bucketAlerters    = []byte("alerters")
	bucketTags        = []byte("tags")
	bucketVariables   = []byte("variables")
	bucketUsers       = []byte("users")
	bucketApiKeys     = []byte("api_keys")
	bucketUpdates     = []byte("updates")
	bucketStats       = []byte("stats")
)

var indexPrefix = []byte("idx::")

// ErrNotFound reports a missing document.
var ErrNotFound = errors.New("document not found")

// ErrNameTaken reports a name-uniqueness violation within a collection.
var ErrNameTaken = errors.New("name already in use")

func nameIndexKey(name string) []byte {
	return []byte("idx::name::" + name)
}

func usernameIndexKey(username string) []byte {
	return []byte("idx::username::" + username)
}

func isIndexKey(k []byte) bool {
	return bytes.HasPrefix(k, indexPrefix)
}

// Store wraps a bbolt database for coordinator persistence.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the database at path and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketServers, bucketDeployments, bucketBuilds, bucketProcedures,
			bucketAlerters, bucketTags, bucketVariables, bucketUsers,
			bucketApiKeys, bucketUpdates, bucketStats,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}

// ---- generic bucket operations ----

func encode(doc any) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func getOne[T any](s *Store, bucket []byte, id string) (T, error) {
	var out T
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %q: %w", bucket, id, ErrNotFound)
		}
		return json.Unmarshal(data, &out)
	})
	return out, err
}

func listAll[T any](s *Store, bucket []byte) ([]T, error) {
	var out []T
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			if isIndexKey(k) {
				return nil
			}
			var doc T
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("decode %s %s: %w", bucket, k, err)
			}
			out = append(out, doc)
			return nil
		})
	})
	return out, err
}

// createNamed inserts a document under id and claims its name index in
// the same transaction.
func (s *Store) createNamed(bucket []byte, id, name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get(nameIndexKey(name)) != nil {
			return fmt.Errorf("%s %q: %w", bucket, name, ErrNameTaken)
		}
		if err := b.Put(nameIndexKey(name), []byte(id)); err != nil {
			return err
		}
		return b.Put([]byte(id), data)
	})
}

// replaceNamed overwrites a document, moving its name index when the
// name changed.
func (s *Store) replaceNamed(bucket []byte, id, oldName, newName string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s %q: %w", bucket, id, ErrNotFound)
		}
		if oldName != newName {
			if b.Get(nameIndexKey(newName)) != nil {
				return fmt.Errorf("%s %q: %w", bucket, newName, ErrNameTaken)
			}
			if err := b.Delete(nameIndexKey(oldName)); err != nil {
				return err
			}
			if err := b.Put(nameIndexKey(newName), []byte(id)); err != nil {
				return err
			}
		}
		return b.Put([]byte(id), data)
	})
}

// deleteNamed removes a document and its name index.
func (s *Store) deleteNamed(bucket []byte, id, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s %q: %w", bucket, id, ErrNotFound)
		}
		if err := b.Delete(nameIndexKey(name)); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

func (s *Store) deleteUnindexed(bucket []byte, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%s %q: %w", bucket, id, ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}

func (s *Store) putDoc(bucket []byte, id string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", bucket, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(id), data)
	})
}
