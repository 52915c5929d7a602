package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/boltdb/bolt"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

var (
	bucketMapping  = []byte(keyMapping)
	bucketProposed = []byte(keyProposed)
)

// BoltStore keeps rules in a BoltDB file, one bucket per collection.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open rules database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketMapping, bucketProposed} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) Propose(_ context.Context, r Rule) (Outcome, error) {
	outcome := Proposed
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(r.ID)
		if tx.Bucket(bucketProposed).Get(key) != nil {
			outcome = AlreadyPending
			return nil
		}
		if tx.Bucket(bucketMapping).Get(key) != nil {
			outcome = AlreadyActive
			return nil
		}
		data, err := json.Marshal(pending(r, s.now()))
		if err != nil {
			return fmt.Errorf("failed to marshal rule: %w", err)
		}
		return tx.Bucket(bucketProposed).Put(key, data)
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

func (s *BoltStore) Approve(_ context.Context, id string) (Rule, error) {
	var rule Rule
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := []byte(id)
		proposed := tx.Bucket(bucketProposed)
		data := proposed.Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		if err := json.Unmarshal(data, &rule); err != nil {
			return fmt.Errorf("failed to unmarshal rule: %w", err)
		}
		rule = activated(rule, s.now())
		out, err := json.Marshal(rule)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketMapping).Put(key, out); err != nil {
			return err
		}
		return proposed.Delete(key)
	})
	if err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func (s *BoltStore) List(_ context.Context) (Document, error) {
	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		if doc.MappingRules, err = readBucket(tx.Bucket(bucketMapping)); err != nil {
			return err
		}
		doc.ProposedRules, err = readBucket(tx.Bucket(bucketProposed))
		return err
	})
	if err != nil {
		return Document{}, fmt.Errorf("failed to list rules: %w", err)
	}
	return doc, nil
}

func (s *BoltStore) Active(ctx context.Context) ([]Rule, error) {
	doc, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return doc.MappingRules, nil
}

// readBucket returns the rules ordered by proposal time, then id.
func readBucket(b *bolt.Bucket) ([]Rule, error) {
	var out []Rule
	err := b.ForEach(func(_, v []byte) error {
		var r Rule
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("failed to unmarshal rule: %w", err)
		}
		out = append(out, r)
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].ProposedAt, out[j].ProposedAt
		if ti != nil && tj != nil && !ti.Equal(*tj) {
			return ti.Before(*tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
