package main

import (
	"context"
	"fmt"

	"github.com/tagfiler/tagfiler/internal/config"
	"github.com/tagfiler/tagfiler/internal/notify"
	"github.com/tagfiler/tagfiler/internal/store"
	"github.com/tagfiler/tagfiler/internal/tree"
)

// env bundles the open library state shared by commands. Callers must
// Close it.
type env struct {
	cfg   *config.Config
	store *store.Store
	tree  *tree.Tree
	hub   *notify.Hub
}

// openEnv loads the config, opens the database, and loads the persisted
// tag hierarchy into a fresh tree.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(libraryFlag)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	hub := notify.NewHub()
	treeCfg := tree.DefaultConfig()
	treeCfg.RootName = cfg.RootName
	treeCfg.Hub = hub
	t := tree.New(treeCfg)

	collections, tags, err := s.LoadHierarchy(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if len(collections) > 0 || len(tags) > 0 {
		if err := t.Load(collections, tags); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("persisted hierarchy is corrupt: %w", err)
		}
	}

	return &env{cfg: cfg, store: s, tree: t, hub: hub}, nil
}

// saveHierarchy persists the tree's current state.
func (e *env) saveHierarchy(ctx context.Context) error {
	return e.store.SaveHierarchy(ctx, e.tree.Collections(), e.tree.Tags())
}

// Close releases the database connection.
func (e *env) Close() error {
	return e.store.Close()
}
