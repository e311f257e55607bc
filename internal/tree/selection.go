package tree

import (
	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/notify"
)

// Selection is the ordered set of tag ids that make up the active file
// filter. Every mutation fires the OnChange callback with the resulting
// ids so the file list can re-fetch: an empty selection means fetch all
// files, a non-empty one means search files matching ANY selected tag.
type Selection struct {
	order []ids.ID
	set   map[ids.ID]struct{}

	hub *notify.Hub

	// OnChange is invoked after every mutation with a snapshot of the
	// selected ids. Optional.
	OnChange func(selected []ids.ID)
}

// NewSelection creates an empty selection.
func NewSelection(hub *notify.Hub) *Selection {
	return &Selection{set: make(map[ids.ID]struct{}), hub: hub}
}

// Contains reports whether a tag id is selected.
func (s *Selection) Contains(id ids.ID) bool {
	_, ok := s.set[id]
	return ok
}

// IDs returns a snapshot of the selected tag ids in selection order.
func (s *Selection) IDs() []ids.ID {
	return append([]ids.ID(nil), s.order...)
}

// Len returns the number of selected tags.
func (s *Selection) Len() int {
	return len(s.order)
}

// ToggleTag removes the tag if selected, appends it otherwise.
func (s *Selection) ToggleTag(id ids.ID) {
	if s.Contains(id) {
		s.removeAll([]ids.ID{id})
	} else {
		s.addMissing([]ids.ID{id})
	}
	s.changed()
}

// ToggleCollection toggles every descendant tag of a collection at once.
// If the collection is currently selected (every descendant tag id is in
// the selection), all of them are removed; otherwise the missing ones are
// added. Applying it twice with no other mutation restores the selection.
func (s *Selection) ToggleCollection(t *Tree, id ids.ID) error {
	tagIDs, err := t.DescendantTagIDs(id)
	if err != nil {
		return err
	}
	if s.containsAll(tagIDs) && len(tagIDs) > 0 {
		s.removeAll(tagIDs)
	} else {
		s.addMissing(tagIDs)
	}
	s.changed()
	return nil
}

// IsSelected reports the derived selected state of a collection: true
// when its descendant tag set is non-empty and fully contained in the
// selection. It is never stored, only computed.
func (s *Selection) IsSelected(t *Tree, id ids.ID) bool {
	tagIDs, err := t.DescendantTagIDs(id)
	if err != nil || len(tagIDs) == 0 {
		return false
	}
	return s.containsAll(tagIDs)
}

// Deselect removes a tag id if present without firing OnChange. Used by
// the file removal path to coordinate with selection state before the
// file object is disposed.
func (s *Selection) Deselect(id ids.ID) {
	if s.Contains(id) {
		s.removeAll([]ids.ID{id})
		s.publish()
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	if len(s.order) == 0 {
		return
	}
	s.order = nil
	s.set = make(map[ids.ID]struct{})
	s.changed()
}

func (s *Selection) containsAll(tagIDs []ids.ID) bool {
	for _, id := range tagIDs {
		if !s.Contains(id) {
			return false
		}
	}
	return true
}

func (s *Selection) addMissing(tagIDs []ids.ID) {
	for _, id := range tagIDs {
		if s.Contains(id) {
			continue
		}
		s.order = append(s.order, id)
		s.set[id] = struct{}{}
	}
}

func (s *Selection) removeAll(tagIDs []ids.ID) {
	for _, id := range tagIDs {
		if !s.Contains(id) {
			continue
		}
		s.order = remove(s.order, id)
		delete(s.set, id)
	}
}

func (s *Selection) changed() {
	s.publish()
	if s.OnChange != nil {
		s.OnChange(s.IDs())
	}
}

func (s *Selection) publish() {
	if s.hub != nil {
		s.hub.Publish(notify.TopicSelection)
	}
}
