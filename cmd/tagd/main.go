// tagd is the state-layer daemon and CLI for the tagfiler application.
//
// It keeps an in-memory model of tags, nested tag collections, and files
// synchronized with the SQLite backend and with the live filesystem, and
// pushes read-only state projections to UI clients over WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var libraryFlag string

var rootCmd = &cobra.Command{
	Use:   "tagd",
	Short: "File tagging state engine",
	Long: `tagd manages a library of tagged files.

The library is a SQLite database plus a set of watched locations. Tags
live in a tree of nested collections; files are reconciled against the
database and the filesystem, so entries whose backing path disappeared
are pruned automatically.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&libraryFlag, "library", "",
		"library root directory (default ~/.tagfiler)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "library", Title: "Library commands:"},
		&cobra.Group{ID: "daemon", Title: "Daemon commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
