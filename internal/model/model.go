// Package model provides the record types shared by the tag hierarchy,
// the persistence backend, and the file reconciler.
//
// Records are flat, JSON-friendly structures keyed by opaque ids. The
// backend is authoritative for which files exist; the in-memory file list
// is a cache reconciled against backend state and filesystem reality.
package model

import (
	"fmt"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
)

// Tag is a named label that can be attached to files. A tag has no
// children; it is owned by exactly one collection's membership list.
type Tag struct {
	ID      ids.ID    `json:"id"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// Validate checks that the Tag has valid field values.
func (t *Tag) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.AddedAt.IsZero() {
		return fmt.Errorf("added_at is required")
	}
	return nil
}

// Collection is a named node in the tag hierarchy. Membership order is
// significant: TagIDs and SubCollectionIDs define display order.
type Collection struct {
	ID               ids.ID   `json:"id"`
	Name             string   `json:"name"`
	TagIDs           []ids.ID `json:"tag_ids,omitempty"`
	SubCollectionIDs []ids.ID `json:"sub_collection_ids,omitempty"`
}

// Validate checks that the Collection has valid field values.
func (c *Collection) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// FileRecord is a backend-reported file entry. Path is the filesystem
// location at the time the record was written; existence is not
// guaranteed to remain true (files move or disappear externally).
type FileRecord struct {
	ID      ids.ID    `json:"id"`
	Path    string    `json:"path"`
	TagIDs  []ids.ID  `json:"tag_ids,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// Validate checks that the FileRecord has valid field values.
func (f *FileRecord) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	if f.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}
