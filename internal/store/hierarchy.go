package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
)

// SaveHierarchy replaces the persisted tag hierarchy with the given
// collection and tag records in a single transaction. Member rows carry
// position columns so the ordered membership lists round-trip intact.
//
// Whether removing a collection also deletes its descendants' persisted
// tags is the caller's policy: the tree hands this method whatever state
// it decided on, and the store persists exactly that.
func (s *Store) SaveHierarchy(ctx context.Context, collections []*model.Collection, tags []*model.Tag) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		"DELETE FROM collection_members",
		"DELETE FROM collections",
		"DELETE FROM tags",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear hierarchy: %w", err)
		}
	}

	for _, tag := range tags {
		if err := tag.Validate(); err != nil {
			return fmt.Errorf("cannot save invalid tag: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO tags (id, name, added_at) VALUES (?, ?, ?)",
			string(tag.ID), tag.Name, tag.AddedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("failed to insert tag %s: %w", tag.ID, err)
		}
	}

	for _, c := range collections {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("cannot save invalid collection: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO collections (id, name) VALUES (?, ?)", string(c.ID), c.Name)
		if err != nil {
			return fmt.Errorf("failed to insert collection %s: %w", c.ID, err)
		}
		for i, tagID := range c.TagIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO collection_members (collection_id, member_id, kind, position) VALUES (?, ?, 'tag', ?)",
				string(c.ID), string(tagID), i)
			if err != nil {
				return fmt.Errorf("failed to insert member %s of %s: %w", tagID, c.ID, err)
			}
		}
		for i, subID := range c.SubCollectionIDs {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO collection_members (collection_id, member_id, kind, position) VALUES (?, ?, 'collection', ?)",
				string(c.ID), string(subID), i)
			if err != nil {
				return fmt.Errorf("failed to insert member %s of %s: %w", subID, c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hierarchy: %w", err)
	}
	return nil
}

// LoadHierarchy reads the persisted collection and tag records, with
// membership lists reassembled in position order.
func (s *Store) LoadHierarchy(ctx context.Context) ([]*model.Collection, []*model.Tag, error) {
	var tags []*model.Tag
	tagRows, err := s.conn.QueryContext(ctx, "SELECT id, name, added_at FROM tags")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tags: %w", err)
	}
	for tagRows.Next() {
		var tag model.Tag
		var id, addedAt string
		if err := tagRows.Scan(&id, &tag.Name, &addedAt); err != nil {
			_ = tagRows.Close()
			return nil, nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tag.ID = ids.ID(id)
		if ts, err := time.Parse(time.RFC3339Nano, addedAt); err == nil {
			tag.AddedAt = ts
		}
		tags = append(tags, &tag)
	}
	if err := tagRows.Err(); err != nil {
		_ = tagRows.Close()
		return nil, nil, fmt.Errorf("failed to iterate tag rows: %w", err)
	}
	_ = tagRows.Close()

	colIndex := make(map[ids.ID]*model.Collection)
	var collections []*model.Collection
	colRows, err := s.conn.QueryContext(ctx, "SELECT id, name FROM collections")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load collections: %w", err)
	}
	for colRows.Next() {
		var c model.Collection
		var id string
		if err := colRows.Scan(&id, &c.Name); err != nil {
			_ = colRows.Close()
			return nil, nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		c.ID = ids.ID(id)
		colIndex[c.ID] = &c
		collections = append(collections, &c)
	}
	if err := colRows.Err(); err != nil {
		_ = colRows.Close()
		return nil, nil, fmt.Errorf("failed to iterate collection rows: %w", err)
	}
	_ = colRows.Close()

	type member struct {
		parent   ids.ID
		id       ids.ID
		kind     string
		position int
	}
	var members []member
	memRows, err := s.conn.QueryContext(ctx,
		"SELECT collection_id, member_id, kind, position FROM collection_members")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load collection members: %w", err)
	}
	for memRows.Next() {
		var m member
		var parent, id string
		if err := memRows.Scan(&parent, &id, &m.kind, &m.position); err != nil {
			_ = memRows.Close()
			return nil, nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		m.parent = ids.ID(parent)
		m.id = ids.ID(id)
		members = append(members, m)
	}
	if err := memRows.Err(); err != nil {
		_ = memRows.Close()
		return nil, nil, fmt.Errorf("failed to iterate member rows: %w", err)
	}
	_ = memRows.Close()

	sort.Slice(members, func(i, j int) bool { return members[i].position < members[j].position })
	for _, m := range members {
		c, ok := colIndex[m.parent]
		if !ok {
			continue // orphaned member row, inert
		}
		switch m.kind {
		case "tag":
			c.TagIDs = append(c.TagIDs, m.id)
		case "collection":
			c.SubCollectionIDs = append(c.SubCollectionIDs, m.id)
		}
	}

	return collections, tags, nil
}

// DeleteTags removes tag records and their file links. The tree's
// RemoveCollection does not cascade here on its own; callers that want
// the descendants' persisted tags gone invoke this explicitly.
func (s *Store) DeleteTags(ctx context.Context, tagIDs []ids.ID) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range tagIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM file_tags WHERE tag_id = ?", string(id)); err != nil {
			return fmt.Errorf("failed to unlink tag %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", string(id)); err != nil {
			return fmt.Errorf("failed to delete tag %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tag deletion: %w", err)
	}
	return nil
}
