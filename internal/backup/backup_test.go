package backup

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
)

func TestExportImport_RoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	collections := []*model.Collection{
		{ID: "root", Name: "Library", SubCollectionIDs: []ids.ID{"work"}},
		{ID: "work", Name: "work", TagIDs: []ids.ID{"t2", "t1"}},
	}
	tags := []*model.Tag{
		{ID: "t1", Name: "urgent", AddedAt: now},
		{ID: "t2", Name: "later", AddedAt: now},
	}

	var buf bytes.Buffer
	if err := Export(&buf, collections, tags); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	gotCols, gotTags, err := Import(&buf)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if len(gotCols) != 2 || len(gotTags) != 2 {
		t.Fatalf("imported %d collections, %d tags; want 2 and 2", len(gotCols), len(gotTags))
	}
	if gotCols[1].ID != "work" || len(gotCols[1].TagIDs) != 2 || gotCols[1].TagIDs[0] != "t2" {
		t.Errorf("work collection = %+v, membership order lost", gotCols[1])
	}
	if gotTags[0].Name != "urgent" || !gotTags[0].AddedAt.Equal(now) {
		t.Errorf("tag = %+v, want urgent added at %v", gotTags[0], now)
	}
}

func TestExport_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	err := Export(&buf,
		[]*model.Collection{{ID: "work", Name: "work", TagIDs: []ids.ID{"t1"}}},
		[]*model.Tag{{ID: "t1", Name: "urgent", AddedAt: time.Now()}})
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"version: 1", "tag_ids:", "added_at:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImport_RejectsUnknownVersion(t *testing.T) {
	in := strings.NewReader("version: 99\ncollections: []\ntags: []\n")
	if _, _, err := Import(in); err == nil {
		t.Error("Import() should reject an unknown version")
	}
}

func TestImport_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"collection without name", "version: 1\ncollections:\n  - id: c1\n"},
		{"tag without added_at", "version: 1\ntags:\n  - id: t1\n    name: x\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Import(strings.NewReader(tt.doc)); err == nil {
				t.Error("Import() should fail validation")
			}
		})
	}
}
