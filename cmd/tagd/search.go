package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/model"
)

var searchCmd = &cobra.Command{
	Use:     "search [tag name...]",
	GroupID: "library",
	Short:   "Search files by tags",
	Long: `Search files matching ANY of the given tag names (OR semantics).

With no tag names, lists all files. --added-since accepts natural
language, e.g. "yesterday", "last tuesday", "3 days ago".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		var tagIDs []ids.ID
		for _, name := range args {
			id, err := tagIDByName(e, name)
			if err != nil {
				return err
			}
			tagIDs = append(tagIDs, id)
		}

		var records []*model.FileRecord
		if len(tagIDs) == 0 {
			records, err = e.store.FetchFiles(ctx)
		} else {
			records, err = e.store.SearchFiles(ctx, tagIDs)
		}
		if err != nil {
			return err
		}

		sinceStr, _ := cmd.Flags().GetString("added-since")
		if sinceStr != "" {
			since, err := parseWhen(sinceStr)
			if err != nil {
				return err
			}
			filtered := records[:0]
			for _, rec := range records {
				if !rec.AddedAt.Before(since) {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		for _, rec := range records {
			fmt.Printf("%s\t%s\n", rec.ID, rec.Path)
		}
		return nil
	},
}

// tagIDByName resolves a tag display name to its id.
func tagIDByName(e *env, name string) (ids.ID, error) {
	for _, tag := range e.tree.Tags() {
		if tag.Name == name {
			return tag.ID, nil
		}
	}
	return "", fmt.Errorf("tag %q: %w", name, model.ErrNotFound)
}

// parseWhen parses a natural-language point in time.
func parseWhen(s string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand %q", s)
	}
	return r.Time, nil
}

func init() {
	searchCmd.Flags().String("added-since", "", "only files added since this time")
	rootCmd.AddCommand(searchCmd)
}
