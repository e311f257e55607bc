// Package tree owns the tag collection hierarchy: which collection
// contains which tags and sub-collections, in what order.
//
// The hierarchy is an arena of collection records indexed by id, plus an
// explicit childId -> parentId index maintained transactionally alongside
// every add, move, and remove. The index replaces the original engine's
// O(n) "scan every collection for the one whose list contains this id"
// parent lookup, and turns its silent "parent not found, append anyway"
// path into a checked error.
//
// Structural invariants:
//   - a collection or tag id appears in at most one membership list
//   - no collection is its own ancestor
//   - the root collection has a fixed id, no parent, and cannot be removed
package tree

import (
	"fmt"
	"log"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
	"github.com/tagfiler/tagfiler/internal/notify"
)

// Config holds construction options for a Tree.
type Config struct {
	// RootName is the display name of the root collection.
	RootName string

	// Hub receives a TopicTree event after every mutation. Optional.
	Hub *notify.Hub

	// Logger for no-op and rejected operations.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RootName: "Library",
		Logger:   log.Default(),
	}
}

// Tree is the in-memory tag collection hierarchy. All mutation happens on
// one logical thread; the Tree itself takes no locks.
type Tree struct {
	collections map[ids.ID]*model.Collection
	tags        map[ids.ID]*model.Tag

	// parent maps every non-root collection id and every tag id to the
	// collection whose membership list contains it.
	parent map[ids.ID]ids.ID

	hub    *notify.Hub
	logger *log.Logger
}

// New creates a Tree containing only the root collection.
func New(config *Config) *Tree {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	t := &Tree{
		collections: make(map[ids.ID]*model.Collection),
		tags:        make(map[ids.ID]*model.Tag),
		parent:      make(map[ids.ID]ids.ID),
		hub:         config.Hub,
		logger:      config.Logger,
	}
	t.collections[ids.RootCollection] = &model.Collection{
		ID:   ids.RootCollection,
		Name: config.RootName,
	}
	return t
}

// Collection returns the collection record for id.
func (t *Tree) Collection(id ids.ID) (*model.Collection, error) {
	c, ok := t.collections[id]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

// Tag returns the tag record for id.
func (t *Tree) Tag(id ids.ID) (*model.Tag, error) {
	tag, ok := t.tags[id]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", id, model.ErrNotFound)
	}
	return tag, nil
}

// Parent returns the collection containing the given collection or tag id.
func (t *Tree) Parent(id ids.ID) (ids.ID, error) {
	p, ok := t.parent[id]
	if !ok {
		return "", fmt.Errorf("parent of %s: %w", id, model.ErrNotFound)
	}
	return p, nil
}

// AddCollection creates a new collection under parent and appends it to
// the parent's sub-collection list. The new id is globally unique and
// immediately visible in the hierarchy.
func (t *Tree) AddCollection(name string, parent ids.ID) (*model.Collection, error) {
	p, ok := t.collections[parent]
	if !ok {
		return nil, fmt.Errorf("add collection: parent %s: %w", parent, model.ErrNotFound)
	}

	c := &model.Collection{ID: ids.New(), Name: name}
	t.collections[c.ID] = c
	p.SubCollectionIDs = append(p.SubCollectionIDs, c.ID)
	t.parent[c.ID] = p.ID
	t.publish()
	return c, nil
}

// RemoveCollection detaches a collection from its parent and drops its
// subtree from the arena. Removing the root is rejected. Deleting the
// descendants' persisted tags is the caller's policy, not the tree's.
func (t *Tree) RemoveCollection(id ids.ID) error {
	if ids.IsRoot(id) {
		return fmt.Errorf("remove root collection: %w", model.ErrInvalidOperation)
	}
	c, ok := t.collections[id]
	if !ok {
		return fmt.Errorf("remove collection %s: %w", id, model.ErrNotFound)
	}

	parent, ok := t.parent[id]
	if !ok {
		return fmt.Errorf("remove collection %s: parent: %w", id, model.ErrNotFound)
	}
	t.collections[parent].SubCollectionIDs = remove(t.collections[parent].SubCollectionIDs, id)
	t.dropSubtree(c)
	t.publish()
	return nil
}

// dropSubtree removes a collection record, its tags, and every descendant
// from the arena and the parent index.
func (t *Tree) dropSubtree(c *model.Collection) {
	for _, tagID := range c.TagIDs {
		delete(t.tags, tagID)
		delete(t.parent, tagID)
	}
	for _, subID := range c.SubCollectionIDs {
		if sub, ok := t.collections[subID]; ok {
			t.dropSubtree(sub)
		}
	}
	delete(t.collections, c.ID)
	delete(t.parent, c.ID)
}

// MoveCollection reparents a collection under newParent, appending it to
// the new parent's sub-collection list. Moving a collection into itself
// or one of its own descendants is rejected. Moving to the current parent
// is a valid no-op move (detach, then re-append).
func (t *Tree) MoveCollection(id, newParent ids.ID) error {
	if ids.IsRoot(id) {
		return fmt.Errorf("move root collection: %w", model.ErrInvalidOperation)
	}
	if _, ok := t.collections[id]; !ok {
		return fmt.Errorf("move collection %s: %w", id, model.ErrNotFound)
	}
	np, ok := t.collections[newParent]
	if !ok {
		return fmt.Errorf("move collection %s: new parent %s: %w", id, newParent, model.ErrNotFound)
	}
	if err := t.checkCycle(id, newParent); err != nil {
		return err
	}

	// The original engine silently appended when no current parent was
	// found; with the parent index that is a hard error instead.
	cur, ok := t.parent[id]
	if !ok {
		return fmt.Errorf("move collection %s: current parent: %w", id, model.ErrNotFound)
	}

	t.collections[cur].SubCollectionIDs = remove(t.collections[cur].SubCollectionIDs, id)
	np.SubCollectionIDs = append(np.SubCollectionIDs, id)
	t.parent[id] = newParent
	t.publish()
	return nil
}

// checkCycle rejects reparenting id under dest when dest is id itself or
// any descendant of id, by walking dest's ancestor chain.
func (t *Tree) checkCycle(id, dest ids.ID) error {
	for cur := dest; ; {
		if cur == id {
			return fmt.Errorf("move %s under %s: %w", id, dest, model.ErrCycleDetected)
		}
		p, ok := t.parent[cur]
		if !ok {
			return nil // reached the root
		}
		cur = p
	}
}

// AddTag creates a new tag and appends it to parent's tag list.
func (t *Tree) AddTag(name string, parent ids.ID) (*model.Tag, error) {
	p, ok := t.collections[parent]
	if !ok {
		return nil, fmt.Errorf("add tag: parent %s: %w", parent, model.ErrNotFound)
	}

	tag := &model.Tag{ID: ids.New(), Name: name, AddedAt: time.Now()}
	t.tags[tag.ID] = tag
	p.TagIDs = append(p.TagIDs, tag.ID)
	t.parent[tag.ID] = p.ID
	t.publish()
	return tag, nil
}

// RemoveTag detaches a tag from its owning collection and drops it from
// the arena.
func (t *Tree) RemoveTag(id ids.ID) error {
	if _, ok := t.tags[id]; !ok {
		return fmt.Errorf("remove tag %s: %w", id, model.ErrNotFound)
	}
	parent, ok := t.parent[id]
	if !ok {
		return fmt.Errorf("remove tag %s: parent: %w", id, model.ErrNotFound)
	}
	t.collections[parent].TagIDs = remove(t.collections[parent].TagIDs, id)
	delete(t.tags, id)
	delete(t.parent, id)
	t.publish()
	return nil
}

// MoveTag detaches a tag from its current collection and inserts it into
// newParent's tag list at the given index. The index is the position of
// the tag it was dropped onto, which supports reordering within one
// collection; it is clamped to the list bounds. Moving to the current
// parent is a valid reorder.
func (t *Tree) MoveTag(id, newParent ids.ID, index int) error {
	if _, ok := t.tags[id]; !ok {
		return fmt.Errorf("move tag %s: %w", id, model.ErrNotFound)
	}
	np, ok := t.collections[newParent]
	if !ok {
		return fmt.Errorf("move tag %s: new parent %s: %w", id, newParent, model.ErrNotFound)
	}
	cur, ok := t.parent[id]
	if !ok {
		return fmt.Errorf("move tag %s: current parent: %w", id, model.ErrNotFound)
	}

	t.collections[cur].TagIDs = remove(t.collections[cur].TagIDs, id)
	if index < 0 {
		index = 0
	}
	if index > len(np.TagIDs) {
		index = len(np.TagIDs)
	}
	np.TagIDs = insert(np.TagIDs, index, id)
	t.parent[id] = newParent
	t.publish()
	return nil
}

// DescendantTagIDs returns the transitive set of tag ids under a
// collection in pre-order: the collection's own tags first, then each
// sub-collection's tags in its listed order. The tree invariant makes
// duplicates impossible.
func (t *Tree) DescendantTagIDs(id ids.ID) ([]ids.ID, error) {
	c, ok := t.collections[id]
	if !ok {
		return nil, fmt.Errorf("descendant tags of %s: %w", id, model.ErrNotFound)
	}
	var out []ids.ID
	t.collectTags(c, &out)
	return out, nil
}

func (t *Tree) collectTags(c *model.Collection, out *[]ids.ID) {
	*out = append(*out, c.TagIDs...)
	for _, subID := range c.SubCollectionIDs {
		if sub, ok := t.collections[subID]; ok {
			t.collectTags(sub, out)
		}
	}
}

// Collections returns a snapshot copy of every collection record, safe
// for the UI collaborator to read while the tree keeps mutating.
func (t *Tree) Collections() []*model.Collection {
	out := make([]*model.Collection, 0, len(t.collections))
	for _, c := range t.collections {
		cp := *c
		cp.TagIDs = append([]ids.ID(nil), c.TagIDs...)
		cp.SubCollectionIDs = append([]ids.ID(nil), c.SubCollectionIDs...)
		out = append(out, &cp)
	}
	return out
}

// Tags returns a snapshot copy of every tag record.
func (t *Tree) Tags() []*model.Tag {
	out := make([]*model.Tag, 0, len(t.tags))
	for _, tag := range t.tags {
		cp := *tag
		out = append(out, &cp)
	}
	return out
}

// Load replaces the tree's contents with persisted records, rebuilding
// the parent index from the membership lists. Records for the root are
// merged onto the fixed root id; a record claiming a child already owned
// by another collection violates the tree invariant and is rejected.
func (t *Tree) Load(collections []*model.Collection, tags []*model.Tag) error {
	cols := make(map[ids.ID]*model.Collection, len(collections)+1)
	parent := make(map[ids.ID]ids.ID)
	tagm := make(map[ids.ID]*model.Tag, len(tags))

	root := &model.Collection{ID: ids.RootCollection, Name: t.collections[ids.RootCollection].Name}
	cols[ids.RootCollection] = root

	for _, c := range collections {
		cp := *c
		cp.TagIDs = append([]ids.ID(nil), c.TagIDs...)
		cp.SubCollectionIDs = append([]ids.ID(nil), c.SubCollectionIDs...)
		if ids.IsRoot(cp.ID) {
			root.Name = cp.Name
			root.TagIDs = cp.TagIDs
			root.SubCollectionIDs = cp.SubCollectionIDs
			continue
		}
		cols[cp.ID] = &cp
	}
	for _, tag := range tags {
		cp := *tag
		tagm[cp.ID] = &cp
	}
	for _, c := range cols {
		for _, child := range c.SubCollectionIDs {
			if _, dup := parent[child]; dup {
				return fmt.Errorf("load: collection %s owned twice: %w", child, model.ErrInvalidOperation)
			}
			parent[child] = c.ID
		}
		for _, child := range c.TagIDs {
			if _, dup := parent[child]; dup {
				return fmt.Errorf("load: tag %s owned twice: %w", child, model.ErrInvalidOperation)
			}
			parent[child] = c.ID
		}
	}

	t.collections = cols
	t.tags = tagm
	t.parent = parent
	t.publish()
	return nil
}

func (t *Tree) publish() {
	if t.hub != nil {
		t.hub.Publish(notify.TopicTree)
	}
}

// remove returns s without the first occurrence of id.
func remove(s []ids.ID, id ids.ID) []ids.ID {
	for i, v := range s {
		if v == id {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// insert returns s with id inserted at index. index must be in [0, len].
func insert(s []ids.ID, index int, id ids.ID) []ids.ID {
	s = append(s, "")
	copy(s[index+1:], s[index:])
	s[index] = id
	return s
}
