// Package ids provides opaque unique identifiers for tags, collections,
// and files.
//
// Identifiers are random UUID strings. No component may derive business
// meaning from an identifier's shape; the only identifier with a fixed,
// well-known value is the root collection id, which must survive restarts
// and always resolve.
package ids

import "github.com/google/uuid"

// ID is an opaque identifier for a tag, collection, or file.
type ID string

// RootCollection is the fixed identifier of the root collection. The root
// has no parent and cannot be removed.
const RootCollection ID = "root"

// New returns a fresh globally unique identifier.
func New() ID {
	return ID(uuid.NewString())
}

// IsRoot reports whether id refers to the root collection.
func IsRoot(id ID) bool {
	return id == RootCollection
}
