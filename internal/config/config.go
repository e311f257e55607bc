// Package config loads tagd configuration.
//
// Settings come from tagd.toml in the library root (or the path given on
// the command line), overridable through TAGD_* environment variables.
// The set of watched locations lives in a separate locations.toml so
// external tooling can edit it without touching the main config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config holds the tagd settings.
type Config struct {
	// LibraryRoot is the directory holding the database, logs, and
	// locations file.
	LibraryRoot string `mapstructure:"library_root"`

	// DatabasePath is the SQLite database file. Defaults to
	// LibraryRoot/tagfiler.db.
	DatabasePath string `mapstructure:"database_path"`

	// EventsPort is the WebSocket projection server port.
	EventsPort int `mapstructure:"events_port"`

	// LogPath is the rotating daemon log file. Defaults to
	// LibraryRoot/tagd.log.
	LogPath string `mapstructure:"log_path"`

	// RootName is the display name of the root collection.
	RootName string `mapstructure:"root_name"`
}

// DefaultLibraryRoot returns ~/.tagfiler, falling back to .tagfiler in
// the working directory when the home directory is unknown.
func DefaultLibraryRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tagfiler"
	}
	return filepath.Join(home, ".tagfiler")
}

// Load reads the configuration. A missing config file is not an error;
// defaults and environment variables apply.
func Load(libraryRoot string) (*Config, error) {
	if libraryRoot == "" {
		libraryRoot = DefaultLibraryRoot()
	}

	v := viper.New()
	v.SetConfigName("tagd")
	v.SetConfigType("toml")
	v.AddConfigPath(libraryRoot)
	v.SetEnvPrefix("TAGD")
	v.AutomaticEnv()

	v.SetDefault("library_root", libraryRoot)
	v.SetDefault("database_path", filepath.Join(libraryRoot, "tagfiler.db"))
	v.SetDefault("events_port", 7397)
	v.SetDefault("log_path", filepath.Join(libraryRoot, "tagd.log"))
	v.SetDefault("root_name", "Library")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// LocationsPath returns the watched-locations file path.
func (c *Config) LocationsPath() string {
	return filepath.Join(c.LibraryRoot, "locations.toml")
}

// Location is one watched directory.
type Location struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// locationsFile is the on-disk shape of locations.toml.
type locationsFile struct {
	Locations []Location `toml:"locations"`
}

// Locations reads the watched-locations file. A missing file means no
// locations yet, not an error.
func (c *Config) Locations() ([]Location, error) {
	path := c.LocationsPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var f locationsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to parse locations file %s: %w", path, err)
	}
	return f.Locations, nil
}

// SaveLocations writes the watched-locations file.
func (c *Config) SaveLocations(locations []Location) error {
	if err := os.MkdirAll(c.LibraryRoot, 0755); err != nil {
		return fmt.Errorf("failed to create library root: %w", err)
	}

	out, err := os.Create(c.LocationsPath())
	if err != nil {
		return fmt.Errorf("failed to create locations file: %w", err)
	}
	defer out.Close()

	if err := toml.NewEncoder(out).Encode(locationsFile{Locations: locations}); err != nil {
		return fmt.Errorf("failed to write locations file: %w", err)
	}
	return nil
}
