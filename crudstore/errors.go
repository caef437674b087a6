package crudstore

import (
	"errors"
	"fmt"
)

var (
	ErrSave = errors.New("crudstore: save failed")
	ErrLoad = errors.New("crudstore: load failed")

	// ErrDuplicateID is returned by Load when a snapshot has more than
	// one record with the same id
	ErrDuplicateID = errors.New("crudstore: duplicate id")
	// ErrNilID is returned by Load when a snapshot has a record without id
	ErrNilID = errors.New("crudstore: record without id")
)

// SaveError is returned by Store.Save.
// errors.Is(err, ErrSave) is true, as is errors.Is(err, <cause>).
type SaveError struct {
	Name string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("crudstore: saving '%s' failed with '%s'", e.Name, e.Err)
}

func (e *SaveError) Unwrap() []error {
	return []error{ErrSave, e.Err}
}

// LoadError is returned by Store.Load.
// errors.Is(err, ErrLoad) is true, as is errors.Is(err, <cause>).
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("crudstore: loading '%s' failed with '%s'", e.Name, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}
