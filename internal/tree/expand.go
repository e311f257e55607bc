package tree

import (
	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/notify"
)

// ExpandTracker maps collection id -> expanded flag for one UI session.
// It is ephemeral state, never persisted: created at session start with
// the root expanded and everything else collapsed, discarded at session
// end. Keys for collections that no longer exist are inert, not an error.
type ExpandTracker struct {
	state map[ids.ID]bool
	hub   *notify.Hub
}

// NewExpandTracker creates a tracker with the root collection expanded.
func NewExpandTracker(hub *notify.Hub) *ExpandTracker {
	return &ExpandTracker{
		state: map[ids.ID]bool{ids.RootCollection: true},
		hub:   hub,
	}
}

// IsExpanded reports the flag for id. Unknown ids default to collapsed.
func (e *ExpandTracker) IsExpanded(id ids.ID) bool {
	return e.state[id]
}

// SetExpanded replaces or inserts the flag for a single collection.
func (e *ExpandTracker) SetExpanded(id ids.ID, value bool) {
	e.state[id] = value
	e.publish()
}

// SetExpandedRecursive sets the flag for a collection and every
// descendant collection. Children are written before the collection's own
// entry so the map is internally consistent at every step of the single
// synchronous update. The tracker swaps in a NEW map, so observers that
// compare the result of State by reference see the change.
func (e *ExpandTracker) SetExpandedRecursive(t *Tree, id ids.ID, value bool) error {
	c, err := t.Collection(id)
	if err != nil {
		return err
	}

	next := make(map[ids.ID]bool, len(e.state)+1)
	for k, v := range e.state {
		next[k] = v
	}
	setRecursive(t, c.ID, value, next)
	e.state = next
	e.publish()
	return nil
}

// setRecursive descends into every sub-collection first, then writes the
// collection's own entry last.
func setRecursive(t *Tree, id ids.ID, value bool, state map[ids.ID]bool) {
	c, err := t.Collection(id)
	if err != nil {
		return // stale child reference, inert
	}
	for _, sub := range c.SubCollectionIDs {
		setRecursive(t, sub, value, state)
	}
	state[id] = value
}

// State returns the current map. The map is replaced wholesale by
// recursive updates, so callers may hold it as an immutable snapshot and
// detect change by reference identity.
func (e *ExpandTracker) State() map[ids.ID]bool {
	return e.state
}

func (e *ExpandTracker) publish() {
	if e.hub != nil {
		e.hub.Publish(notify.TopicExpand)
	}
}
