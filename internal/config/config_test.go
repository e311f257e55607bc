package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LibraryRoot != root {
		t.Errorf("LibraryRoot = %s, want %s", cfg.LibraryRoot, root)
	}
	if cfg.DatabasePath != filepath.Join(root, "tagfiler.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if cfg.EventsPort != 7397 {
		t.Errorf("EventsPort = %d, want 7397", cfg.EventsPort)
	}
	if cfg.RootName != "Library" {
		t.Errorf("RootName = %s, want Library", cfg.RootName)
	}
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	content := "events_port = 9000\nroot_name = \"Photos\"\n"
	if err := os.WriteFile(filepath.Join(root, "tagd.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.EventsPort != 9000 {
		t.Errorf("EventsPort = %d, want 9000", cfg.EventsPort)
	}
	if cfg.RootName != "Photos" {
		t.Errorf("RootName = %s, want Photos", cfg.RootName)
	}
	// Unset keys keep their defaults.
	if cfg.DatabasePath != filepath.Join(root, "tagfiler.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
}

func TestLoad_RejectsMalformedConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "tagd.toml"), []byte("{{{"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	if _, err := Load(root); err == nil {
		t.Error("Load() should fail on malformed toml")
	}
}

func TestLocations_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	locations, err := cfg.Locations()
	if err != nil {
		t.Fatalf("Locations() failed: %v", err)
	}
	if locations != nil {
		t.Errorf("Locations() = %v, want none for a fresh library", locations)
	}
}

func TestLocations_RoundTrip(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []Location{
		{Name: "photos", Path: "/home/me/Photos"},
		{Name: "scans", Path: "/home/me/Scans"},
	}
	if err := cfg.SaveLocations(want); err != nil {
		t.Fatalf("SaveLocations() failed: %v", err)
	}

	got, err := cfg.Locations()
	if err != nil {
		t.Fatalf("Locations() failed: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Locations() = %v, want %v", got, want)
	}
}
