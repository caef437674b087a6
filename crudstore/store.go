package crudstore

import (
	"iter"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjk/recstore/log"
	"github.com/kjk/recstore/snapshot"
	"github.com/kjk/recstore/u"
)

// Entity is a record that can be stored in Store
type Entity interface {
	GetID() uuid.UUID
}

// IDSetter is implemented by records that allow the store to assign
// an id on Create when they don't have one yet
type IDSetter interface {
	SetID(id uuid.UUID)
}

type Config[T Entity] struct {
	// where snapshots are saved to and loaded from
	Target snapshot.Target
	// if Target is nil, save to a file at Path
	// .gz, .zst and .br extensions compress the file
	Path string
	// defaults to snapshot.JSON
	Codec snapshot.Codec
	// if set, records are copied with Clone when they enter or leave
	// the store so that callers never share mutable state with it.
	// Without Clone, pointer records are shared: the store keeps the
	// pointer passed to Create / Update and hands out the same pointer
	// from Read / ReadAll / ReadPage / All. Changing such a record
	// races with Save encoding it.
	Clone func(T) T
	// if > 0, the store is saved AutoSaveDelay after a change
	AutoSaveDelay time.Duration
	// used in logs, defaults to "store"
	Name string
}

// Store is a thread-safe, in-memory collection of records
// that can be saved to and loaded from a snapshot.Target.
// Records are kept in insertion order.
type Store[T Entity] struct {
	mu      sync.RWMutex
	records []T
	// id => index in records
	idx map[uuid.UUID]int

	name   string
	target snapshot.Target
	codec  snapshot.Codec
	clone  func(T) T

	autoSave    *u.Debouncer
	autoSaveMu  sync.Mutex
	autoSaveErr error
}

// New returns an empty store. Use Open to also load existing snapshot.
func New[T Entity](cfg Config[T]) *Store[T] {
	target := cfg.Target
	if target == nil && cfg.Path != "" {
		target = snapshot.NewFileTarget(cfg.Path)
	}
	u.PanicIf(target == nil, "crudstore: must provide Config.Target or Config.Path")
	s := &Store[T]{
		idx:    map[uuid.UUID]int{},
		name:   cfg.Name,
		target: target,
		codec:  cfg.Codec,
		clone:  cfg.Clone,
	}
	if s.name == "" {
		s.name = "store"
	}
	if s.codec == nil {
		s.codec = snapshot.JSON
	}
	if cfg.AutoSaveDelay > 0 {
		s.autoSave = &u.Debouncer{Timeout: cfg.AutoSaveDelay}
	}
	if s.clone == nil && sharesRecords[T]() {
		log.Logf("crudstore: '%s' stores %s without Config.Clone, records are shared with callers\n", s.name, reflect.TypeFor[T]())
	}
	return s
}

// sharesRecords returns true if values of T point to memory
// that would be shared between the store and its callers
func sharesRecords[T any]() bool {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	}
	return false
}

func (s *Store[T]) Name() string {
	return s.name
}

func (s *Store[T]) cloneRec(rec T) T {
	if s.clone == nil {
		return rec
	}
	return s.clone(rec)
}

// must hold at least read lock
func (s *Store[T]) copyLocked(recs []T) []T {
	res := make([]T, len(recs))
	if s.clone == nil {
		copy(res, recs)
		return res
	}
	for i, rec := range recs {
		res[i] = s.clone(rec)
	}
	return res
}

// Create adds rec at the end. If rec has a nil id and implements IDSetter,
// a new id is assigned to it first.
// Returns false if a record with the same id already exists or if id
// is nil and can't be assigned.
func (s *Store[T]) Create(rec T) bool {
	id := rec.GetID()
	if id == uuid.Nil {
		setter, ok := any(rec).(IDSetter)
		if !ok {
			return false
		}
		id = uuid.New()
		setter.SetID(id)
	}
	rec = s.cloneRec(rec)

	s.mu.Lock()
	if _, exists := s.idx[id]; exists {
		s.mu.Unlock()
		return false
	}
	s.idx[id] = len(s.records)
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.scheduleAutoSave()
	return true
}

// Read returns a record with a given id.
// It's a copy if Config.Clone is set, the stored pointer otherwise.
func (s *Store[T]) Read(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.idx[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.cloneRec(s.records[i]), true
}

// ReadAll returns all records, in insertion order.
// The slice is always new. Records are copied only if Config.Clone is set.
func (s *Store[T]) ReadAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked(s.records)
}

// ReadPage returns records [(page-1)*pageSize, page*pageSize).
// Pages are numbered from 1, page < 1 is treated as 1.
// Returns an empty slice if pageSize <= 0 or the page is past the end.
func (s *Store[T]) ReadPage(page int, pageSize int) []T {
	if pageSize <= 0 {
		return []T{}
	}
	page = max(page, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.records)
	// checking before multiplying avoids an overflow
	if page-1 > n/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	if start >= n {
		return []T{}
	}
	end := n
	if pageSize < n-start {
		end = start + pageSize
	}
	return s.copyLocked(s.records[start:end])
}

// Update replaces a record with the same id, keeping its position.
// Returns false if there's no such record.
func (s *Store[T]) Update(rec T) bool {
	id := rec.GetID()
	rec = s.cloneRec(rec)

	s.mu.Lock()
	i, ok := s.idx[id]
	if ok {
		s.records[i] = rec
	}
	s.mu.Unlock()

	if ok {
		s.scheduleAutoSave()
	}
	return ok
}

// Remove removes a record with the same id as rec.
// Returns false if there's no such record.
func (s *Store[T]) Remove(rec T) bool {
	return s.RemoveByID(rec.GetID())
}

// RemoveByID removes a record with a given id.
// Order of remaining records doesn't change.
func (s *Store[T]) RemoveByID(id uuid.UUID) bool {
	s.mu.Lock()
	i, ok := s.idx[id]
	if ok {
		s.records = slices.Delete(s.records, i, i+1)
		delete(s.idx, id)
		for j := i; j < len(s.records); j++ {
			s.idx[s.records[j].GetID()] = j
		}
	}
	s.mu.Unlock()

	if ok {
		s.scheduleAutoSave()
	}
	return ok
}

// Len returns number of records
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a sequence over a copy of records taken when All is called.
// Changes made to the store while iterating are not visible.
// The sequence can be iterated multiple times.
func (s *Store[T]) All() iter.Seq[T] {
	recs := s.ReadAll()
	return func(yield func(T) bool) {
		for _, rec := range recs {
			if !yield(rec) {
				return
			}
		}
	}
}
