package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "library",
	Short:   "Show library status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		files, err := e.store.FetchFiles(ctx)
		if err != nil {
			return err
		}
		locations, err := e.cfg.Locations()
		if err != nil {
			return err
		}

		// Drop styling when piped or on dumb terminals.
		styled := term.IsTerminal(int(os.Stdout.Fd())) &&
			termenv.ColorProfile() != termenv.Ascii

		label := func(s string) string { return s }
		value := func(s string) string { return s }
		if styled {
			labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
			valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
			label = func(s string) string { return labelStyle.Render(s) }
			value = func(s string) string { return valueStyle.Render(s) }
		}

		fmt.Printf("%s %s\n", label("Library:"), value(e.cfg.LibraryRoot))
		fmt.Printf("%s %s\n", label("Database:"), value(e.cfg.DatabasePath))
		fmt.Printf("%s %s\n", label("Files:"), value(fmt.Sprintf("%d", len(files))))
		fmt.Printf("%s %s\n", label("Tags:"), value(fmt.Sprintf("%d", len(e.tree.Tags()))))
		fmt.Printf("%s %s\n", label("Collections:"), value(fmt.Sprintf("%d", len(e.tree.Collections()))))
		fmt.Printf("%s %s\n", label("Locations:"), value(fmt.Sprintf("%d", len(locations))))
		for _, loc := range locations {
			fmt.Printf("  %s %s\n", label(loc.Name+":"), value(loc.Path))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
