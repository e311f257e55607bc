package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/reconcile"
)

var fileCmd = &cobra.Command{
	Use:     "file",
	GroupID: "library",
	Short:   "Manage tracked files",
}

var fileAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Track a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot track %s: %w", path, err)
		}

		var tagIDs []ids.ID
		tagNames, _ := cmd.Flags().GetStringSlice("tags")
		for _, name := range tagNames {
			id, err := tagIDByName(e, name)
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, id)
		}

		list := newList(e)
		rec, err := list.AddFile(ctx, path, tagIDs)
		if err != nil {
			// Fail-loud path: surface the backend error to the caller.
			return err
		}
		fmt.Printf("Tracking %s (%s)\n", rec.Path, rec.ID)
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Stop tracking files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		list := newList(e)
		list.Refresh(ctx, nil)

		fileIDs := make([]ids.ID, len(args))
		for i, a := range args {
			fileIDs[i] = ids.ID(a)
		}
		return list.RemoveFilesByID(ctx, fileIDs, nil)
	},
}

var fileReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Prune files whose path no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		list := newList(e)
		before, err := e.store.FetchFiles(ctx)
		if err != nil {
			return err
		}
		list.Reconcile(ctx, before)
		fmt.Printf("Reconciled %d records, %d remain\n", len(before), list.Len())
		return nil
	},
}

// newList builds a reconciler list over the open store, logging to
// stderr.
func newList(e *env) *reconcile.List {
	cfg := reconcile.DefaultConfig()
	cfg.Hub = e.hub
	cfg.Logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	return reconcile.NewList(e.store, cfg)
}

func init() {
	fileAddCmd.Flags().StringSlice("tags", nil, "tag names to attach")

	fileCmd.AddCommand(fileAddCmd)
	fileCmd.AddCommand(fileRmCmd)
	fileCmd.AddCommand(fileReconcileCmd)
	rootCmd.AddCommand(fileCmd)
}
