package tree

import (
	"reflect"
	"testing"

	"github.com/tagfiler/tagfiler/internal/ids"
)

func TestExpandTracker_Defaults(t *testing.T) {
	e := NewExpandTracker(nil)

	if !e.IsExpanded(ids.RootCollection) {
		t.Error("root should default to expanded")
	}
	if e.IsExpanded(ids.ID("unknown")) {
		t.Error("unknown ids should default to collapsed")
	}
}

func TestExpandTracker_SetExpanded(t *testing.T) {
	e := NewExpandTracker(nil)
	id := ids.New()

	e.SetExpanded(id, true)
	if !e.IsExpanded(id) {
		t.Error("SetExpanded(true) not reflected")
	}
	e.SetExpanded(id, false)
	if e.IsExpanded(id) {
		t.Error("SetExpanded(false) not reflected")
	}
}

func TestExpandTracker_SetExpandedRecursive(t *testing.T) {
	tr := New(nil)
	work, _ := tr.AddCollection("work", ids.RootCollection)
	projects, _ := tr.AddCollection("projects", work.ID)
	personal, _ := tr.AddCollection("personal", ids.RootCollection)

	e := NewExpandTracker(nil)
	if err := e.SetExpandedRecursive(tr, work.ID, true); err != nil {
		t.Fatalf("SetExpandedRecursive() failed: %v", err)
	}

	if !e.IsExpanded(work.ID) || !e.IsExpanded(projects.ID) {
		t.Error("collection and descendants should all be expanded")
	}
	// Siblings are untouched.
	if e.IsExpanded(personal.ID) {
		t.Error("sibling branch must not be affected")
	}

	// Collapse just the subtree; the sibling keeps its own state.
	e.SetExpanded(personal.ID, true)
	if err := e.SetExpandedRecursive(tr, work.ID, false); err != nil {
		t.Fatalf("SetExpandedRecursive() failed: %v", err)
	}
	if e.IsExpanded(work.ID) || e.IsExpanded(projects.ID) {
		t.Error("subtree should be collapsed")
	}
	if !e.IsExpanded(personal.ID) {
		t.Error("sibling state lost by recursive update")
	}
}

func TestExpandTracker_RecursiveReplacesMap(t *testing.T) {
	tr := New(nil)
	work, _ := tr.AddCollection("work", ids.RootCollection)

	e := NewExpandTracker(nil)
	before := e.State()
	if err := e.SetExpandedRecursive(tr, work.ID, true); err != nil {
		t.Fatalf("SetExpandedRecursive() failed: %v", err)
	}
	after := e.State()

	// Observers detect recursive updates by reference identity.
	if reflect.ValueOf(before).Pointer() == reflect.ValueOf(after).Pointer() {
		t.Error("expected a new map after recursive update")
	}
	if _, ok := before[work.ID]; ok {
		t.Error("old snapshot must not see the new entry")
	}
	if !after[work.ID] {
		t.Error("new map missing the updated entry")
	}
}

func TestExpandTracker_UnknownCollection(t *testing.T) {
	tr := New(nil)
	e := NewExpandTracker(nil)

	if err := e.SetExpandedRecursive(tr, ids.ID("gone"), true); err == nil {
		t.Error("SetExpandedRecursive(unknown) should fail")
	}

	// Keys for collections that no longer exist are inert.
	e.SetExpanded(ids.ID("gone"), true)
	if !e.IsExpanded(ids.ID("gone")) {
		t.Error("stale keys remain readable until evicted")
	}
}
