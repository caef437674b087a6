package crudstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/recstore/log"
	"github.com/kjk/recstore/snapshot"
	"github.com/kjk/recstore/u"
)

// Open creates a store and loads the snapshot from the target.
// It's not an error if there's no snapshot yet.
func Open[T Entity](ctx context.Context, cfg Config[T]) (*Store[T], error) {
	s := New(cfg)
	err := s.Load(ctx)
	if err != nil && !errors.Is(err, snapshot.ErrNoSnapshot) {
		return nil, err
	}
	return s, nil
}

// Save writes a snapshot of all records to the target.
// The lock is only held while copying records, encoding and writing
// happen after it's released so Save doesn't block other operations.
// A failed save doesn't change the records.
func (s *Store[T]) Save(ctx context.Context) error {
	timeStart := time.Now()
	s.mu.RLock()
	recs := s.copyLocked(s.records)
	s.mu.RUnlock()

	d, err := s.codec.Marshal(recs)
	if err != nil {
		return &SaveError{Name: s.name, Err: err}
	}
	if err = s.target.WriteSnapshot(ctx, d); err != nil {
		return &SaveError{Name: s.name, Err: err}
	}
	dur := time.Since(timeStart)
	log.Verbosef("crudstore: saved %d records of '%s', %s in %s\n", len(recs), s.name, u.FormatSize(int64(len(d))), u.FormatDuration(dur))
	log.EventWithDuration("crudstore.save", dur, "store", s.name, "codec", s.codec.Name(), "records", len(recs), "bytes", len(d))
	return nil
}

func buildIndex[T Entity](recs []T) (map[uuid.UUID]int, error) {
	idx := make(map[uuid.UUID]int, len(recs))
	for i, rec := range recs {
		id := rec.GetID()
		if id == uuid.Nil {
			return nil, fmt.Errorf("%w: record %d", ErrNilID, i)
		}
		if _, exists := idx[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		idx[id] = i
	}
	return idx, nil
}

// Load replaces all records with those from the target's snapshot.
// On error the records are not changed.
// If there's no snapshot, the error matches snapshot.ErrNoSnapshot.
func (s *Store[T]) Load(ctx context.Context) error {
	timeStart := time.Now()
	d, err := s.target.ReadSnapshot(ctx)
	if err != nil {
		return &LoadError{Name: s.name, Err: err}
	}
	var recs []T
	if err = s.codec.Unmarshal(d, &recs); err != nil {
		return &LoadError{Name: s.name, Err: err}
	}
	idx, err := buildIndex(recs)
	if err != nil {
		return &LoadError{Name: s.name, Err: err}
	}

	s.mu.Lock()
	s.records = recs
	s.idx = idx
	s.mu.Unlock()

	dur := time.Since(timeStart)
	log.Verbosef("crudstore: loaded %d records of '%s', %s in %s\n", len(recs), s.name, u.FormatSize(int64(len(d))), u.FormatDuration(dur))
	log.EventWithDuration("crudstore.load", dur, "store", s.name, "codec", s.codec.Name(), "records", len(recs), "bytes", len(d))
	return nil
}

func (s *Store[T]) scheduleAutoSave() {
	if s.autoSave == nil {
		return
	}
	s.autoSave.Debounce(s.autoSaveNow)
}

func (s *Store[T]) autoSaveNow() {
	err := s.Save(context.Background())
	s.autoSaveMu.Lock()
	s.autoSaveErr = err
	s.autoSaveMu.Unlock()
	log.IfErrf(err, "crudstore: auto-save of '%s' failed with '%s'", s.name, err)
}

// Close runs a pending auto-save, if any, and returns the error
// of the last auto-save. The store can still be used after Close.
func (s *Store[T]) Close() error {
	if s.autoSave == nil {
		return nil
	}
	s.autoSave.Flush()
	s.autoSaveMu.Lock()
	defer s.autoSaveMu.Unlock()
	err := s.autoSaveErr
	s.autoSaveErr = nil
	return err
}
