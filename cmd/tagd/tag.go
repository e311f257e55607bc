package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
)

var tagCmd = &cobra.Command{
	Use:     "tag",
	GroupID: "library",
	Short:   "Manage tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		parent, err := resolveCollectionFlag(cmd, e)
		if err != nil {
			return err
		}
		tag, err := e.tree.AddTag(args[0], parent)
		if err != nil {
			return err
		}
		if err := e.saveHierarchy(ctx); err != nil {
			return err
		}
		fmt.Printf("Created tag %s (%s)\n", tag.Name, tag.ID)
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := tagIDByName(e, args[0])
		if err != nil {
			return err
		}
		if err := e.tree.RemoveTag(id); err != nil {
			return err
		}
		if err := e.store.DeleteTags(ctx, []ids.ID{id}); err != nil {
			return err
		}
		return e.saveHierarchy(ctx)
	},
}

var tagMvCmd = &cobra.Command{
	Use:   "mv <name>",
	Short: "Move a tag into another collection",
	Long: `Move a tag into the collection given by --collection, inserted at
--index (appended when omitted).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := tagIDByName(e, args[0])
		if err != nil {
			return err
		}
		parent, err := resolveCollectionFlag(cmd, e)
		if err != nil {
			return err
		}
		index, _ := cmd.Flags().GetInt("index")
		if index < 0 {
			c, err := e.tree.Collection(parent)
			if err != nil {
				return err
			}
			index = len(c.TagIDs)
		}
		if err := e.tree.MoveTag(id, parent, index); err != nil {
			return err
		}
		return e.saveHierarchy(ctx)
	},
}

var collectionCmd = &cobra.Command{
	Use:     "collection",
	GroupID: "library",
	Short:   "Manage tag collections",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		parent, err := resolveCollectionFlag(cmd, e)
		if err != nil {
			return err
		}
		c, err := e.tree.AddCollection(args[0], parent)
		if err != nil {
			return err
		}
		if err := e.saveHierarchy(ctx); err != nil {
			return err
		}
		fmt.Printf("Created collection %s (%s)\n", c.Name, c.ID)
		return nil
	},
}

var collectionRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Remove a collection",
	Long: `Remove a collection from the hierarchy. The persisted tags of its
descendants are kept unless --purge-tags is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := collectionIDByName(e, args[0])
		if err != nil {
			return err
		}

		var doomed []ids.ID
		if purge, _ := cmd.Flags().GetBool("purge-tags"); purge {
			doomed, err = e.tree.DescendantTagIDs(id)
			if err != nil {
				return err
			}
		}
		if err := e.tree.RemoveCollection(id); err != nil {
			return err
		}
		if len(doomed) > 0 {
			if err := e.store.DeleteTags(ctx, doomed); err != nil {
				return err
			}
		}
		return e.saveHierarchy(ctx)
	},
}

var collectionMvCmd = &cobra.Command{
	Use:   "mv <name>",
	Short: "Move a collection under another collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := collectionIDByName(e, args[0])
		if err != nil {
			return err
		}
		parent, err := resolveCollectionFlag(cmd, e)
		if err != nil {
			return err
		}
		if err := e.tree.MoveCollection(id, parent); err != nil {
			return err
		}
		return e.saveHierarchy(ctx)
	},
}

// resolveCollectionFlag maps --collection to a collection id, defaulting
// to the root.
func resolveCollectionFlag(cmd *cobra.Command, e *env) (ids.ID, error) {
	name, _ := cmd.Flags().GetString("collection")
	if name == "" {
		return ids.RootCollection, nil
	}
	return collectionIDByName(e, name)
}

// collectionIDByName resolves a collection display name to its id.
func collectionIDByName(e *env, name string) (ids.ID, error) {
	for _, c := range e.tree.Collections() {
		if c.Name == name {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("collection %q: %w", name, model.ErrNotFound)
}

func init() {
	for _, cmd := range []*cobra.Command{tagAddCmd, tagMvCmd, collectionAddCmd, collectionMvCmd} {
		cmd.Flags().String("collection", "", "target collection (default root)")
	}
	tagMvCmd.Flags().Int("index", -1, "insertion index within the target collection")
	collectionRmCmd.Flags().Bool("purge-tags", false, "also delete descendants' persisted tags")

	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRmCmd)
	tagCmd.AddCommand(tagMvCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionRmCmd)
	collectionCmd.AddCommand(collectionMvCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(collectionCmd)
}
