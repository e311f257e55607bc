package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:     "backup <file>",
	GroupID: "library",
	Short:   "Export the tag hierarchy to YAML",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create backup file: %w", err)
		}
		defer out.Close()

		if err := backup.Export(out, e.tree.Collections(), e.tree.Tags()); err != nil {
			return err
		}
		fmt.Printf("Backed up %d collections, %d tags to %s\n",
			len(e.tree.Collections()), len(e.tree.Tags()), args[0])
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore <file>",
	GroupID: "library",
	Short:   "Replace the tag hierarchy from a YAML backup",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open backup file: %w", err)
		}
		defer in.Close()

		collections, tags, err := backup.Import(in)
		if err != nil {
			return err
		}
		if err := e.tree.Load(collections, tags); err != nil {
			return err
		}
		if err := e.saveHierarchy(ctx); err != nil {
			return err
		}
		fmt.Printf("Restored %d collections, %d tags\n", len(collections), len(tags))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}
