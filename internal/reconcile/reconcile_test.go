package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
	"github.com/tagfiler/tagfiler/internal/notify"
)

// fakeBackend records calls and lets tests inject failures and delays.
type fakeBackend struct {
	mu      sync.Mutex
	created []*model.FileRecord
	removed []ids.ID

	createErr error
	removeErr error

	fetchFn  func() ([]*model.FileRecord, error)
	searchFn func(tagIDs []ids.ID) ([]*model.FileRecord, error)
}

func (b *fakeBackend) CreateFile(_ context.Context, rec *model.FileRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.createErr != nil {
		return b.createErr
	}
	b.created = append(b.created, rec)
	return nil
}

func (b *fakeBackend) FetchFiles(_ context.Context) ([]*model.FileRecord, error) {
	if b.fetchFn != nil {
		return b.fetchFn()
	}
	return nil, nil
}

func (b *fakeBackend) SearchFiles(_ context.Context, tagIDs []ids.ID) ([]*model.FileRecord, error) {
	if b.searchFn != nil {
		return b.searchFn(tagIDs)
	}
	return nil, nil
}

func (b *fakeBackend) RemoveFile(_ context.Context, rec *model.FileRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.removeErr != nil {
		return b.removeErr
	}
	b.removed = append(b.removed, rec.ID)
	return nil
}

func (b *fakeBackend) removedIDs() []ids.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ids.ID(nil), b.removed...)
}

func newTestList(backend Backend, pathExists func(string) bool) *List {
	cfg := &Config{
		PathExists: pathExists,
		Logger:     log.New(io.Discard, "", 0),
	}
	if cfg.PathExists == nil {
		cfg.PathExists = func(string) bool { return true }
	}
	return NewList(backend, cfg)
}

func rec(path string) *model.FileRecord {
	return &model.FileRecord{ID: ids.New(), Path: path, AddedAt: time.Now()}
}

func listPaths(l *List) []string {
	var out []string
	for _, r := range l.Records() {
		out = append(out, r.Path)
	}
	return out
}

func TestReconcile_FreshLoad(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1, f2 := rec("/a"), rec("/b")
	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2})

	got := l.Records()
	if len(got) != 2 || got[0].ID != f1.ID || got[1].ID != f2.ID {
		t.Errorf("list = %v, want [%s %s]", listPaths(l), f1.Path, f2.Path)
	}
}

func TestReconcile_EmptyExistingClearsAndDisposes(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1, f2 := rec("/a"), rec("/b")
	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2})

	live1, _ := l.Get(f1.ID)
	live2, _ := l.Get(f2.ID)

	l.Reconcile(context.Background(), nil)
	if l.Len() != 0 {
		t.Errorf("list should be empty, got %v", listPaths(l))
	}
	if !live1.Disposed() || !live2.Disposed() {
		t.Error("cleared entries must be disposed")
	}
}

func TestReconcile_PrunesMissingPath(t *testing.T) {
	backend := &fakeBackend{}
	f1, f2, f3 := rec("/a"), rec("/gone"), rec("/c")
	l := newTestList(backend, func(path string) bool {
		return path != "/gone"
	})

	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2, f3})

	got := l.Records()
	if len(got) != 2 || got[0].ID != f1.ID || got[1].ID != f3.ID {
		t.Errorf("list = %v, want survivors in relative order", listPaths(l))
	}

	// The backend deletion is fire-and-forget; wait for it.
	deadline := time.Now().Add(time.Second)
	for {
		removed := backend.removedIDs()
		if len(removed) == 1 && removed[0] == f2.ID {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backend removal not requested, removed = %v", removed)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconcile_FullReplaceDisposesOldEntries(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1 := rec("/a")
	l.Reconcile(context.Background(), []*model.FileRecord{f1})
	old, _ := l.Get(f1.ID)

	f2 := rec("/b")
	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2})

	if !old.Disposed() {
		t.Error("replaced entry must be disposed")
	}
	got := l.Records()
	if len(got) != 2 || got[0].ID != f1.ID || got[1].ID != f2.ID {
		t.Errorf("list = %v, want rebuilt from backend records", listPaths(l))
	}
}

func TestAddFile_PropagatesBackendError(t *testing.T) {
	backend := &fakeBackend{createErr: fmt.Errorf("disk full")}
	l := newTestList(backend, nil)

	_, err := l.AddFile(context.Background(), "/new", nil)
	if !errors.Is(err, model.ErrBackendUnavailable) {
		t.Errorf("AddFile() = %v, want ErrBackendUnavailable", err)
	}
	if l.Len() != 0 {
		t.Error("failed add must not append to the list")
	}
}

func TestAddFile_Appends(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	got, err := l.AddFile(context.Background(), "/new", []ids.ID{"t1"})
	if err != nil {
		t.Fatalf("AddFile() failed: %v", err)
	}
	if got.ID == "" || got.Path != "/new" {
		t.Errorf("record = %+v", got)
	}
	if l.Len() != 1 {
		t.Errorf("list length = %d, want 1", l.Len())
	}
	if len(backend.created) != 1 || backend.created[0].ID != got.ID {
		t.Error("record was not persisted before appending")
	}
}

func TestRemoveFilesByID_SequentialInGivenOrder(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1, f2, f3 := rec("/a"), rec("/b"), rec("/c")
	f1.TagIDs = []ids.ID{"t1"}
	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2, f3})

	var deselected []ids.ID
	err := l.RemoveFilesByID(context.Background(),
		[]ids.ID{f3.ID, f1.ID},
		func(tagID ids.ID) { deselected = append(deselected, tagID) })
	if err != nil {
		t.Fatalf("RemoveFilesByID() failed: %v", err)
	}

	removed := backend.removedIDs()
	if len(removed) != 2 || removed[0] != f3.ID || removed[1] != f1.ID {
		t.Errorf("backend removals = %v, want strictly [%s %s]", removed, f3.ID, f1.ID)
	}
	if len(deselected) != 1 || deselected[0] != "t1" {
		t.Errorf("deselected = %v, want [t1]", deselected)
	}
	got := l.Records()
	if len(got) != 1 || got[0].ID != f2.ID {
		t.Errorf("list = %v, want only %s", listPaths(l), f2.Path)
	}
}

func TestRemoveFilesByID_UnknownIDIsNoOp(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1 := rec("/a")
	l.Reconcile(context.Background(), []*model.FileRecord{f1})

	err := l.RemoveFilesByID(context.Background(), []ids.ID{"missing", f1.ID}, nil)
	if err != nil {
		t.Fatalf("RemoveFilesByID() failed: %v", err)
	}
	if l.Len() != 0 {
		t.Error("known id after unknown id must still be removed")
	}
}

func TestRemoveFilesByID_PropagatesBackendError(t *testing.T) {
	backend := &fakeBackend{removeErr: fmt.Errorf("backend down")}
	l := newTestList(backend, nil)

	f1 := rec("/a")
	l.Reconcile(context.Background(), []*model.FileRecord{f1})

	err := l.RemoveFilesByID(context.Background(), []ids.ID{f1.ID}, nil)
	if !errors.Is(err, model.ErrBackendUnavailable) {
		t.Errorf("RemoveFilesByID() = %v, want ErrBackendUnavailable", err)
	}
}

func TestRefresh_FailSoftKeepsPriorState(t *testing.T) {
	f1 := rec("/a")
	backend := &fakeBackend{
		fetchFn: func() ([]*model.FileRecord, error) {
			return []*model.FileRecord{f1}, nil
		},
	}
	l := newTestList(backend, nil)
	l.Refresh(context.Background(), nil)
	if l.Len() != 1 {
		t.Fatalf("initial refresh failed, list = %v", listPaths(l))
	}

	backend.fetchFn = func() ([]*model.FileRecord, error) {
		return nil, fmt.Errorf("backend down")
	}
	l.Refresh(context.Background(), nil)
	if l.Len() != 1 {
		t.Error("failed refresh must leave the prior list unchanged")
	}
}

func TestRefresh_DiscardsStaleGeneration(t *testing.T) {
	f1, f2 := rec("/stale"), rec("/fresh")

	release := make(chan struct{})
	started := make(chan struct{})
	first := true
	var mu sync.Mutex

	backend := &fakeBackend{}
	backend.fetchFn = func() ([]*model.FileRecord, error) {
		mu.Lock()
		wasFirst := first
		first = false
		mu.Unlock()
		if wasFirst {
			close(started)
			<-release // slow response, finishes after the second fetch
			return []*model.FileRecord{f1}, nil
		}
		return []*model.FileRecord{f2}, nil
	}

	l := newTestList(backend, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Refresh(context.Background(), nil)
	}()
	<-started

	l.Refresh(context.Background(), nil)
	close(release)
	<-done

	got := l.Records()
	if len(got) != 1 || got[0].ID != f2.ID {
		t.Errorf("list = %v, stale response must not overwrite fresher one", listPaths(l))
	}
}

func TestRefresh_SlowApplyCannotOverwriteFresherList(t *testing.T) {
	stale, fresh := rec("/stale"), rec("/fresh")

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once

	calls := 0
	var mu sync.Mutex
	backend := &fakeBackend{}
	backend.fetchFn = func() ([]*model.FileRecord, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			return []*model.FileRecord{stale}, nil
		}
		return []*model.FileRecord{fresh}, nil
	}

	// The first refresh passes its staleness check, then stalls inside
	// the existence fan-out while the second completes. Serialized
	// application means the fresher result must still win.
	l := newTestList(backend, func(path string) bool {
		if path == stale.Path {
			once.Do(func() { close(entered) })
			<-release
		}
		return true
	})

	done1 := make(chan struct{})
	go func() {
		defer close(done1)
		l.Refresh(context.Background(), nil)
	}()
	<-entered

	done2 := make(chan struct{})
	go func() {
		defer close(done2)
		l.Refresh(context.Background(), nil)
	}()

	close(release)
	<-done1
	<-done2

	got := l.Records()
	if len(got) != 1 || got[0].ID != fresh.ID {
		t.Errorf("list = %v, want [%s]", listPaths(l), fresh.Path)
	}
}

func TestFindByPath(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	f1 := rec("/a")
	f1.TagIDs = []ids.ID{"t1"}
	l.Reconcile(context.Background(), []*model.FileRecord{f1})

	got, ok := l.FindByPath("/a")
	if !ok || got.ID != f1.ID {
		t.Fatalf("FindByPath(/a) = (%v, %v), want the tracked record", got, ok)
	}
	got.TagIDs[0] = "mutated"
	if again, _ := l.FindByPath("/a"); again.TagIDs[0] != "t1" {
		t.Error("FindByPath must return a copy, not the live record")
	}

	if _, ok := l.FindByPath("/missing"); ok {
		t.Error("FindByPath should miss for an untracked path")
	}
}

func TestImportFile_ExistingPathNotDuplicated(t *testing.T) {
	backend := &fakeBackend{}
	l := newTestList(backend, nil)

	first, err := l.AddFile(context.Background(), "/a", nil)
	if err != nil {
		t.Fatalf("AddFile() failed: %v", err)
	}

	// A create event for a path still on the books must not mint a
	// second record.
	again, err := l.ImportFile(context.Background(), "/a", nil)
	if err != nil {
		t.Fatalf("ImportFile() failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("ImportFile() returned id %s, want existing %s", again.ID, first.ID)
	}
	if l.Len() != 1 || len(backend.created) != 1 {
		t.Errorf("list length = %d, backend creates = %d; want 1 and 1", l.Len(), len(backend.created))
	}

	other, err := l.ImportFile(context.Background(), "/b", nil)
	if err != nil {
		t.Fatalf("ImportFile() failed: %v", err)
	}
	if other.ID == first.ID || l.Len() != 2 {
		t.Error("a genuinely new path must still be imported")
	}
}

func TestRemoveFilesByID_SingleFilesEventPerBatch(t *testing.T) {
	backend := &fakeBackend{}
	hub := notify.NewHub()
	l := NewList(backend, &Config{
		PathExists: func(string) bool { return true },
		Hub:        hub,
		Logger:     log.New(io.Discard, "", 0),
	})

	f1, f2 := rec("/a"), rec("/b")
	l.Reconcile(context.Background(), []*model.FileRecord{f1, f2})

	filesEvents := 0
	hub.Subscribe(func(ev notify.Event) {
		if ev.Topic == notify.TopicFiles {
			filesEvents++
		}
	})

	if err := l.RemoveFilesByID(context.Background(), []ids.ID{f1.ID, f2.ID}, nil); err != nil {
		t.Fatalf("RemoveFilesByID() failed: %v", err)
	}
	if filesEvents != 1 {
		t.Errorf("observers saw %d files events, want 1 for the whole batch", filesEvents)
	}
}

func TestRefresh_UsesSearchForNonEmptySelection(t *testing.T) {
	var searched []ids.ID
	backend := &fakeBackend{
		searchFn: func(tagIDs []ids.ID) ([]*model.FileRecord, error) {
			searched = tagIDs
			return nil, nil
		},
	}
	l := newTestList(backend, nil)

	l.Refresh(context.Background(), []ids.ID{"t1", "t2"})
	if len(searched) != 2 {
		t.Errorf("search tag ids = %v, want [t1 t2]", searched)
	}
}
