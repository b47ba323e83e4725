package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// CreateUser inserts a user and claims the username index.
func (s *Store) CreateUser(u *types.User) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	data, err := encode(u)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b.Get(usernameIndexKey(u.Username)) != nil {
			return fmt.Errorf("username %q: %w", u.Username, ErrNameTaken)
		}
		if err := b.Put(usernameIndexKey(u.Username), []byte(u.ID)); err != nil {
			return err
		}
		return b.Put([]byte(u.ID), data)
	})
}

func (s *Store) GetUser(id string) (types.User, error) {
	return getOne[types.User](s, bucketUsers, id)
}

// GetUserByUsername resolves the username index then loads the user.
func (s *Store) GetUserByUsername(username string) (types.User, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get(usernameIndexKey(username))
		if data == nil {
			return fmt.Errorf("username %q: %w", username, ErrNotFound)
		}
		id = string(data)
		return nil
	})
	if err != nil {
		return types.User{}, err
	}
	return s.GetUser(id)
}

func (s *Store) ListUsers() ([]types.User, error) {
	return listAll[types.User](s, bucketUsers)
}

// CountUsers reports how many users exist, for first-boot admin setup.
func (s *Store) CountUsers() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, _ []byte) error {
			if !isIndexKey(k) {
				n++
			}
			return nil
		})
	})
	return n, err
}

// ReplaceUser overwrites an existing user document.
func (s *Store) ReplaceUser(u *types.User) error {
	data, err := encode(u)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if b.Get([]byte(u.ID)) == nil {
			return fmt.Errorf("user %q: %w", u.ID, ErrNotFound)
		}
		return b.Put([]byte(u.ID), data)
	})
}

// ---- api keys (keyed by the public key part) ----

func (s *Store) CreateApiKey(k *types.ApiKey) error {
	return s.putDoc(bucketApiKeys, k.Key, k)
}

func (s *Store) GetApiKey(key string) (types.ApiKey, error) {
	return getOne[types.ApiKey](s, bucketApiKeys, key)
}

func (s *Store) DeleteApiKey(key string) error {
	return s.deleteUnindexed(bucketApiKeys, key)
}

// ListApiKeysForUser returns the keys owned by one user, hashes included.
func (s *Store) ListApiKeysForUser(userID string) ([]types.ApiKey, error) {
	all, err := listAll[types.ApiKey](s, bucketApiKeys)
	if err != nil {
		return nil, err
	}
	var out []types.ApiKey
	for _, k := range all {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}
