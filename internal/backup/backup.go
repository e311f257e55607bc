// Package backup exports and imports the tag hierarchy as YAML.
//
// A backup captures collections and tags only, not file records: files
// are reconciled from the backend and the filesystem, so restoring them
// from a snapshot would resurrect entries whose paths are long gone.
package backup

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
)

// Version is the current snapshot schema version.
const Version = 1

// Snapshot is the on-disk backup document.
type Snapshot struct {
	Version     int          `yaml:"version"`
	Collections []collection `yaml:"collections"`
	Tags        []tag        `yaml:"tags"`
}

type collection struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	TagIDs           []string `yaml:"tag_ids,omitempty"`
	SubCollectionIDs []string `yaml:"sub_collection_ids,omitempty"`
}

type tag struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	AddedAt time.Time `yaml:"added_at"`
}

// Export writes the hierarchy to w as YAML.
func Export(w io.Writer, collections []*model.Collection, tags []*model.Tag) error {
	snap := Snapshot{Version: Version}
	for _, c := range collections {
		snap.Collections = append(snap.Collections, collection{
			ID:               string(c.ID),
			Name:             c.Name,
			TagIDs:           toStrings(c.TagIDs),
			SubCollectionIDs: toStrings(c.SubCollectionIDs),
		})
	}
	for _, t := range tags {
		snap.Tags = append(snap.Tags, tag{ID: string(t.ID), Name: t.Name, AddedAt: t.AddedAt})
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import reads a YAML snapshot from r and validates its records.
func Import(r io.Reader) ([]*model.Collection, []*model.Tag, error) {
	var snap Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if snap.Version != Version {
		return nil, nil, fmt.Errorf("unsupported backup version %d", snap.Version)
	}

	var collections []*model.Collection
	for _, c := range snap.Collections {
		rec := &model.Collection{
			ID:               ids.ID(c.ID),
			Name:             c.Name,
			TagIDs:           toIDs(c.TagIDs),
			SubCollectionIDs: toIDs(c.SubCollectionIDs),
		}
		if err := rec.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid collection in backup: %w", err)
		}
		collections = append(collections, rec)
	}
	var tags []*model.Tag
	for _, t := range snap.Tags {
		rec := &model.Tag{ID: ids.ID(t.ID), Name: t.Name, AddedAt: t.AddedAt}
		if err := rec.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid tag in backup: %w", err)
		}
		tags = append(tags, rec)
	}
	return collections, tags, nil
}

func toStrings(in []ids.ID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = string(id)
	}
	return out
}

func toIDs(in []string) []ids.ID {
	out := make([]ids.ID, len(in))
	for i, s := range in {
		out[i] = ids.ID(s)
	}
	return out
}
