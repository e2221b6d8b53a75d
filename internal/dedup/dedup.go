// Package dedup resolves the fabric's duplicate-ValueResult open question:
// once a successor's argument slot has been filled, a second delivery of
// the same (target, slot) pair — produced by the transport's at-least-once
// re-dispatch after a proxy believed its peer dead — is recognized and
// absorbed without re-running anything, rather than reported upward as an
// orphan ValueResult. A target's history is kept until Forget is called for
// it; the space scheduler forgets a target when it releases that successor.
package dedup

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ygrebnov/fabric/taskid"
)

// record is the badgerhold-persisted history of slots already applied to
// one target successor, keyed by the target's rendered id.
type record struct {
	Key       string
	Slots     map[int]bool
	UpdatedAt time.Time
}

// Store records which (target task id, slot index) pairs have already been
// applied to a successor, so a late duplicate can be recognized for as long
// as that target's history is kept, i.e. until Forget removes it.
type Store struct {
	db *badgerhold.Store
}

// Open creates or reuses an on-disk store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "dedup: create store dir %q", dir)
	}
	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = nil

	db, err := badgerhold.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "dedup: open store at %q", dir)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeenOrMark reports whether (target, slot) was already recorded. If it
// was not, it is recorded before returning. Read-modify-write against
// badgerhold, mirroring the upsert-with-existence-check pattern used for
// every other keyed record in the storage layer; callers are expected to
// already hold whatever higher-level lock guards target's successor (the
// scheduler's successor map lock), so this is not raced internally.
func (s *Store) SeenOrMark(target taskid.ID, slot int) (seen bool, err error) {
	key := target.String()

	var rec record
	getErr := s.db.Get(key, &rec)
	switch {
	case getErr == nil:
		if rec.Slots[slot] {
			return true, nil
		}
	case errors.Is(getErr, badgerhold.ErrNotFound):
		rec = record{Key: key, Slots: make(map[int]bool)}
	default:
		return false, errors.Wrapf(getErr, "dedup: get %q", key)
	}

	rec.Slots[slot] = true
	rec.UpdatedAt = time.Now()
	if err := s.db.Upsert(key, rec); err != nil {
		return false, errors.Wrapf(err, "dedup: mark %q slot %d", key, slot)
	}
	return false, nil
}

// Forget drops the recorded slot history for target, once its successor
// has been fully removed from every tier's successor map and there is no
// further need to detect late duplicates for it.
func (s *Store) Forget(target taskid.ID) error {
	key := target.String()
	err := s.db.Delete(key, &record{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return errors.Wrapf(err, "dedup: forget %q", key)
	}
	return nil
}
