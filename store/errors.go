package store

import (
	"errors"
	"fmt"

	"github.com/hupe1980/probego/blobstore"
	"github.com/hupe1980/probego/model"
)

var (
	// ErrNotFound is returned when a dataset path, contact entry or sample
	// does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAddressCollision is returned when InitDataset would overwrite an
	// existing dataset. Timestamps are strictly increasing per Store, so
	// this only happens when two writers share a backend.
	ErrAddressCollision = errors.New("store: dataset path already exists")

	// ErrInvalidPath is returned for malformed dataset paths.
	ErrInvalidPath = errors.New("store: invalid dataset path")
)

// SchemaConflictError is returned when appended data does not match the
// schema frozen by the first write for a contact.
type SchemaConflictError struct {
	Contact string
	Got     model.Schema
	Want    model.Schema
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("store: schema conflict for contact %q: got %v, want %v", e.Contact, e.Got, e.Want)
}

// translateError maps backend errors to store sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
