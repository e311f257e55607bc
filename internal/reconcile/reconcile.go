// Package reconcile keeps the in-memory file list synchronized with the
// persistence backend and with filesystem reality.
//
// The backend is authoritative for which files exist; the filesystem is
// ground truth for whether a path is still there. Reconciliation fans out
// existence checks concurrently, prunes records whose path is gone, and
// rebuilds the list from the survivors. Read paths fail soft: a backend
// error is logged once and the prior in-memory state is left unchanged.
// Write paths (AddFile, RemoveFilesByID) fail loud so the caller can
// react, e.g. roll back an optimistic add.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
	"github.com/tagfiler/tagfiler/internal/notify"
)

// Backend is the persistence contract the reconciler consumes.
type Backend interface {
	// CreateFile persists a new file record.
	CreateFile(ctx context.Context, rec *model.FileRecord) error
	// FetchFiles returns every file record.
	FetchFiles(ctx context.Context) ([]*model.FileRecord, error)
	// SearchFiles returns records matching ANY of the tag ids.
	SearchFiles(ctx context.Context, tagIDs []ids.ID) ([]*model.FileRecord, error)
	// RemoveFile deletes a record. Idempotent.
	RemoveFile(ctx context.Context, rec *model.FileRecord) error
}

// File is a live in-memory file object: the backend record plus the
// change feed UI bindings subscribe to. Disposing a file closes the feed
// so it cannot trigger further updates after removal.
type File struct {
	Record  *model.FileRecord
	Changes *notify.Source
}

// Dispose releases the file's change subscriptions. Safe to call twice.
func (f *File) Dispose() {
	f.Changes.Close()
}

// Disposed reports whether the file has been disposed.
func (f *File) Disposed() bool {
	return f.Changes.Closed()
}

// Config holds construction options for a List.
type Config struct {
	// PathExists reports filesystem existence for a path. Defaults to an
	// os.Stat probe.
	PathExists func(path string) bool

	// Hub receives a TopicFiles event after every list change. Optional.
	Hub *notify.Hub

	// Logger for pruning activity and swallowed read-path errors.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PathExists: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
		Logger: log.New(os.Stderr, "[reconcile] ", log.LstdFlags),
	}
}

// List is the reconciled in-memory file list.
type List struct {
	backend    Backend
	pathExists func(string) bool
	hub        *notify.Hub
	logger     *log.Logger

	// mu guards files and index. Mutation is expected from one logical
	// thread, but the location watcher triggers refreshes from its own
	// goroutine, so the container is locked rather than left bare.
	mu    sync.Mutex
	files []*File
	index map[ids.ID]*File

	// generation orders fetches so a slow response cannot overwrite a
	// fresher one. issued increments per fetch; applied records the last
	// generation whose result reached the list. applyMu serializes the
	// staleness check with the reconcile that follows it: checking and
	// applying separately would let a response that passed the check stall
	// mid-reconcile while a newer one completes, then clobber it.
	applyMu sync.Mutex
	genMu   sync.Mutex
	issued  uint64
	applied uint64
}

// NewList creates an empty List over the given backend.
func NewList(backend Backend, config *Config) *List {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.PathExists == nil {
		config.PathExists = def.PathExists
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}
	return &List{
		backend:    backend,
		pathExists: config.PathExists,
		hub:        config.Hub,
		logger:     config.Logger,
		index:      make(map[ids.ID]*File),
	}
}

// Len returns the number of files currently in the list.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.files)
}

// Records returns a snapshot of the current records in list order.
func (l *List) Records() []*model.FileRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*model.FileRecord, len(l.files))
	for i, f := range l.files {
		cp := *f.Record
		cp.TagIDs = append([]ids.ID(nil), f.Record.TagIDs...)
		out[i] = &cp
	}
	return out
}

// Get returns the live file object for id.
func (l *List) Get(id ids.ID) (*File, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.index[id]
	return f, ok
}

// Refresh fetches records for the given selection and reconciles the
// list against them. An empty selection fetches all files; a non-empty
// one searches for files matching any selected tag. Backend errors are
// logged and the prior list is kept (fail-soft). A response that arrives
// after a newer fetch has already been applied is discarded.
func (l *List) Refresh(ctx context.Context, selection []ids.ID) {
	l.genMu.Lock()
	l.issued++
	gen := l.issued
	l.genMu.Unlock()

	var records []*model.FileRecord
	var err error
	if len(selection) == 0 {
		records, err = l.backend.FetchFiles(ctx)
	} else {
		records, err = l.backend.SearchFiles(ctx, selection)
	}
	if err != nil {
		l.logger.Printf("Refresh failed, keeping current list: %v", err)
		return
	}

	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	l.genMu.Lock()
	if gen < l.applied {
		l.genMu.Unlock()
		l.logger.Printf("Discarding stale fetch result (generation %d < %d)", gen, l.applied)
		return
	}
	l.applied = gen
	l.genMu.Unlock()

	l.reconcile(ctx, records)
}

// Reconcile merges backend-reported records with the in-memory list,
// using filesystem existence as ground truth.
//
// Records whose path no longer exists are pruned: the backend deletion is
// fired without blocking the reconciliation (failures logged, never
// retried) and any corresponding in-memory file is disposed and removed.
// The survivors replace the list according to the policy branches:
// populate directly when the list is empty, clear when nothing survived,
// otherwise dispose everything and rebuild fresh.
func (l *List) Reconcile(ctx context.Context, records []*model.FileRecord) {
	l.applyMu.Lock()
	defer l.applyMu.Unlock()
	l.reconcile(ctx, records)
}

func (l *List) reconcile(ctx context.Context, records []*model.FileRecord) {
	// Existence checks are independent reads with no ordering
	// requirement, so they fan out.
	exists := make([]bool, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			exists[i] = l.pathExists(path)
		}(i, rec.Path)
	}
	wg.Wait()

	existing := make([]*model.FileRecord, 0, len(records))
	for i, rec := range records {
		if exists[i] {
			existing = append(existing, rec)
			continue
		}

		l.logger.Printf("Pruning stale file %s (%s)", rec.ID, rec.Path)

		// Fire-and-forget relative to this reconciliation's completion.
		go func(rec *model.FileRecord) {
			if err := l.backend.RemoveFile(ctx, rec); err != nil {
				l.logger.Printf("Failed to remove stale file %s from backend: %v", rec.ID, err)
			}
		}(rec)

		l.mu.Lock()
		if f, ok := l.index[rec.ID]; ok {
			f.Dispose()
			l.files = removeFile(l.files, f)
			delete(l.index, rec.ID)
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	switch {
	case len(l.files) == 0:
		// Fresh load, no diffing needed.
		for _, rec := range existing {
			l.appendLocked(rec)
		}
	case len(existing) == 0:
		for _, f := range l.files {
			f.Dispose()
		}
		l.files = nil
		l.index = make(map[ids.ID]*File)
	default:
		for _, f := range l.files {
			f.Dispose()
		}
		l.files = nil
		l.index = make(map[ids.ID]*File)
		for _, rec := range existing {
			l.appendLocked(rec)
		}
	}
	l.mu.Unlock()

	l.publish()
}

// AddFile creates a file entry for path, persists it, and appends it to
// the list. A backend failure propagates to the caller: the UI holds an
// optimistic reference it may need to roll back, so unlike the read
// paths this does not swallow the error.
func (l *List) AddFile(ctx context.Context, path string, tagIDs []ids.ID) (*model.FileRecord, error) {
	rec := &model.FileRecord{
		ID:      ids.New(),
		Path:    path,
		TagIDs:  append([]ids.ID(nil), tagIDs...),
		AddedAt: time.Now(),
	}
	if err := l.backend.CreateFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("add file %s: %w: %v", path, model.ErrBackendUnavailable, err)
	}

	l.mu.Lock()
	l.appendLocked(rec)
	l.mu.Unlock()
	l.publish()
	return rec, nil
}

// FindByPath returns a copy of the record whose path matches, if any.
func (l *List) FindByPath(path string) (*model.FileRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.files {
		if f.Record.Path == path {
			cp := *f.Record
			cp.TagIDs = append([]ids.ID(nil), f.Record.TagIDs...)
			return &cp, true
		}
	}
	return nil, false
}

// ImportFile adds path unless a record for it is already tracked, in
// which case the existing record is returned unchanged. The watcher
// cannot tell a brand-new file from a recreate of one still on the
// books, so imports are idempotent by path.
func (l *List) ImportFile(ctx context.Context, path string, tagIDs []ids.ID) (*model.FileRecord, error) {
	if rec, ok := l.FindByPath(path); ok {
		return rec, nil
	}
	return l.AddFile(ctx, path, tagIDs)
}

// RemoveFilesByID removes files one by one, strictly in the given order:
// deselect, dispose, drop from the list, then delete from the backend.
// The sequential contract is a hard requirement, not an optimization:
// concurrent removals interleaving on the shared ordered container were
// observed to misattribute which file gets removed. Hub observers see a
// single files event for the whole batch.
func (l *List) RemoveFilesByID(ctx context.Context, fileIDs []ids.ID, deselect func(ids.ID)) error {
	if l.hub == nil {
		return l.removeFiles(ctx, fileIDs, deselect)
	}
	var err error
	l.hub.Batch(func() {
		err = l.removeFiles(ctx, fileIDs, deselect)
	})
	return err
}

func (l *List) removeFiles(ctx context.Context, fileIDs []ids.ID, deselect func(ids.ID)) error {
	for _, id := range fileIDs {
		l.mu.Lock()
		f, ok := l.index[id]
		if !ok {
			l.mu.Unlock()
			l.logger.Printf("Remove: file %s: %v", id, model.ErrNotFound)
			continue
		}
		l.mu.Unlock()

		if deselect != nil {
			for _, tagID := range f.Record.TagIDs {
				deselect(tagID)
			}
		}
		f.Dispose()

		l.mu.Lock()
		l.files = removeFile(l.files, f)
		delete(l.index, id)
		l.mu.Unlock()
		l.publish()

		if err := l.backend.RemoveFile(ctx, f.Record); err != nil {
			return fmt.Errorf("remove file %s: %w: %v", id, model.ErrBackendUnavailable, err)
		}
	}
	return nil
}

// appendLocked wraps a record in a live File and appends it. Caller
// holds mu.
func (l *List) appendLocked(rec *model.FileRecord) {
	f := &File{Record: rec, Changes: notify.NewSource()}
	l.files = append(l.files, f)
	l.index[rec.ID] = f
}

func (l *List) publish() {
	if l.hub != nil {
		l.hub.Publish(notify.TopicFiles)
	}
}

// removeFile returns s without the first occurrence of f.
func removeFile(s []*File, f *File) []*File {
	for i, v := range s {
		if v == f {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// IsBackendUnavailable reports whether err came from a failed backend
// call on a write path.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, model.ErrBackendUnavailable)
}
