package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/config"
	"github.com/tagfiler/tagfiler/internal/store"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "library",
	Short:   "Create a new tag library",
	Long: `Create a new library: the database, config file, and first watched
location. Runs interactively unless --location and --name are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootName, _ := cmd.Flags().GetString("name")
		location, _ := cmd.Flags().GetString("location")

		if rootName == "" || location == "" {
			if rootName == "" {
				rootName = "Library"
			}
			confirm := true
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Library name").
					Description("Display name of the root collection").
					Value(&rootName),
				huh.NewInput().
					Title("First watched location").
					Description("Directory to import files from (optional)").
					Value(&location),
				huh.NewConfirm().
					Title("Create library?").
					Value(&confirm),
			))
			if err := form.Run(); err != nil {
				return fmt.Errorf("init aborted: %w", err)
			}
			if !confirm {
				return nil
			}
		}

		cfg, err := config.Load(libraryFlag)
		if err != nil {
			return err
		}
		cfg.RootName = rootName

		if err := os.MkdirAll(cfg.LibraryRoot, 0755); err != nil {
			return fmt.Errorf("failed to create library root: %w", err)
		}

		s, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.InitSchema(context.Background()); err != nil {
			return err
		}

		var locations []config.Location
		if location != "" {
			locations = append(locations, config.Location{Name: rootName, Path: location})
		}
		if err := cfg.SaveLocations(locations); err != nil {
			return err
		}

		fmt.Printf("Library created at %s\n", cfg.LibraryRoot)
		return nil
	},
}

func init() {
	initCmd.Flags().String("name", "", "root collection name")
	initCmd.Flags().String("location", "", "first watched location")
	rootCmd.AddCommand(initCmd)
}
