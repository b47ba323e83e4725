package store

import (
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// CreateUpdate inserts a new update record and assigns its id.
func (s *Store) CreateUpdate(u *types.Update) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return s.putDoc(bucketUpdates, u.ID, u)
}

// ReplaceUpdate overwrites the full update record by id.
func (s *Store) ReplaceUpdate(u *types.Update) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUpdates)
		if b.Get([]byte(u.ID)) == nil {
			return fmt.Errorf("update %q: %w", u.ID, ErrNotFound)
		}
		data, err := encode(u)
		if err != nil {
			return err
		}
		return b.Put([]byte(u.ID), data)
	})
}

func (s *Store) GetUpdate(id string) (types.Update, error) {
	return getOne[types.Update](s, bucketUpdates, id)
}

// UpdateFilter narrows a ListUpdates query. Zero values match everything.
type UpdateFilter struct {
	Target   *types.UpdateTarget // match type, and id when set
	Operator string
}

func (f UpdateFilter) matches(u types.Update) bool {
	if f.Target != nil {
		if u.Target.Type != f.Target.Type {
			return false
		}
		if f.Target.ID != "" && u.Target.ID != f.Target.ID {
			return false
		}
	}
	if f.Operator != "" && u.Operator != f.Operator {
		return false
	}
	return true
}

// ListUpdates returns matching updates newest-first, at most limit
// (unlimited when limit <= 0). Concurrent updates sharing a start
// timestamp are ordered by id for stability.
func (s *Store) ListUpdates(filter UpdateFilter, limit int) ([]types.Update, error) {
	all, err := listAll[types.Update](s, bucketUpdates)
	if err != nil {
		return nil, err
	}
	var out []types.Update
	for _, u := range all {
		if filter.matches(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTs != out[j].StartTs {
			return out[i].StartTs > out[j].StartTs
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListOrphanedUpdates returns updates still marked in-progress. After a
// coordinator restart these belong to no live action; they are surfaced
// for operators, never auto-finalized.
func (s *Store) ListOrphanedUpdates() ([]types.Update, error) {
	all, err := listAll[types.Update](s, bucketUpdates)
	if err != nil {
		return nil, err
	}
	var out []types.Update
	for _, u := range all {
		if u.Status == types.UpdateInProgress {
			out = append(out, u)
		}
	}
	return out, nil
}
