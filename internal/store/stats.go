package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/flotilla-dev/flotilla/internal/types"
)

// statsKey orders records by server then timestamp; the zero-padded
// timestamp keeps byte order equal to numeric order.
func statsKey(sid string, ts int64) []byte {
	return fmt.Appendf(nil, "%s::%020d", sid, ts)
}

func statsPrefix(sid string) []byte {
	return []byte(sid + "::")
}

// AppendStats persists one stats sample. Re-recording the same rounded
// timestamp replaces the earlier sample for that slot.
func (s *Store) AppendStats(rec *types.SystemStatsRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	data, err := encode(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStats).Put(statsKey(rec.SID, rec.TS), data)
	})
}

// StatsAtTimestamps loads the samples for a server whose timestamps are
// in the given set, newest first.
func (s *Store) StatsAtTimestamps(sid string, timestamps []int64) ([]types.SystemStatsRecord, error) {
	want := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		want[ts] = struct{}{}
	}
	var out []types.SystemStatsRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketStats).Cursor()
		prefix := statsPrefix(sid)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec types.SystemStatsRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode stats %s: %w", k, err)
			}
			if _, ok := want[rec.TS]; ok {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS > out[j].TS })
	return out, nil
}

// PruneStatsBefore deletes samples older than cutoff across all
// servers, returning how many were removed.
func (s *Store) PruneStatsBefore(cutoff int64) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketStats)
		c := b.Cursor()
		var stale [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec types.SystemStatsRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue
			}
			if rec.TS < cutoff {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
