package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tagfiler/tagfiler/internal/events"
	"github.com/tagfiler/tagfiler/internal/ids"
	"github.com/tagfiler/tagfiler/internal/reconcile"
	"github.com/tagfiler/tagfiler/internal/tree"
	"github.com/tagfiler/tagfiler/internal/watch"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "daemon",
	Short:   "Run the sync daemon",
	Long: `Run the tagd daemon:

  1. Loads the tag hierarchy and file list from the database
  2. Watches every configured location for file changes
  3. Reconciles the file list when files appear or disappear
  4. Serves read-only state projections to UI clients over WebSocket

Blocks until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		logger := log.New(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   e.cfg.LogPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}), "[tagd] ", log.LstdFlags)

		listCfg := reconcile.DefaultConfig()
		listCfg.Hub = e.hub
		listCfg.Logger = logger
		list := reconcile.NewList(e.store, listCfg)

		expand := tree.NewExpandTracker(e.hub)

		return runDaemon(ctx, e, list, expand, logger)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

// runDaemon wires the watcher, reconciler, selection, and events server
// together and blocks until a shutdown signal arrives.
func runDaemon(ctx context.Context, e *env, list *reconcile.List, expand *tree.ExpandTracker, logger *log.Logger) error {
	selection := tree.NewSelection(e.hub)
	selection.OnChange = func(selected []ids.ID) {
		list.Refresh(ctx, selected)
	}

	// Initial load: full fetch reconciled against the filesystem.
	list.Refresh(ctx, nil)

	server := events.NewServer(e.hub, &events.Snapshots{
		Tree: func() interface{} {
			return map[string]interface{}{
				"collections": e.tree.Collections(),
				"tags":        e.tree.Tags(),
			}
		},
		Expand:    func() interface{} { return expand.State() },
		Selection: func() interface{} { return selection.IDs() },
		Files:     func() interface{} { return list.Records() },
	}, &events.Config{Port: e.cfg.EventsPort, Logger: logger})

	if err := server.Start(); err != nil {
		return err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Printf("Error stopping events server: %v", err)
		}
	}()

	locations, err := e.cfg.Locations()
	if err != nil {
		return err
	}

	var watcher *watch.Watcher
	if len(locations) > 0 {
		watchCfg := watch.DefaultConfig()
		watchCfg.Logger = logger
		watcher, err = watch.New(watchCfg)
		if err != nil {
			return err
		}
		paths := make([]string, len(locations))
		for i, loc := range locations {
			paths[i] = loc.Path
		}
		if err := watcher.Start(paths); err != nil {
			return err
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Printf("Error stopping watcher: %v", err)
			}
		}()
	} else {
		logger.Println("No locations configured; filesystem watching disabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	logger.Println("Daemon running")
	for {
		var eventCh <-chan watch.Event
		var errCh <-chan error
		if watcher != nil {
			eventCh = watcher.Events()
			errCh = watcher.Errors()
		}

		select {
		case <-sigCh:
			logger.Println("Shutdown signal received")
			return nil

		case ev, ok := <-eventCh:
			if !ok {
				return nil
			}
			handleWatchEvent(ctx, ev, list, selection, logger)

		case err, ok := <-errCh:
			if !ok {
				return nil
			}
			logger.Printf("Watcher error: %v", err)
		}
	}
}

// handleWatchEvent feeds a filesystem event into the reconciler. New
// files are imported untagged; ImportFile keeps a delete-then-recreate
// burst from producing a second record for a path still on the books.
// A deletion of a tracked file removes its record directly, deselecting
// its tags first; anything else triggers a refresh for the current
// selection, which prunes stale entries.
func handleWatchEvent(ctx context.Context, ev watch.Event, list *reconcile.List, selection *tree.Selection, logger *log.Logger) {
	logger.Printf("File event: %s %s", ev.Op, ev.Path)

	switch ev.Op {
	case watch.OpCreate:
		if _, err := list.ImportFile(ctx, ev.Path, nil); err != nil {
			logger.Printf("Failed to import %s: %v", ev.Path, err)
		}
	case watch.OpDelete:
		if rec, ok := list.FindByPath(ev.Path); ok {
			if err := list.RemoveFilesByID(ctx, []ids.ID{rec.ID}, selection.Deselect); err != nil {
				logger.Printf("Failed to remove %s: %v", ev.Path, err)
			}
			return
		}
		list.Refresh(ctx, selection.IDs())
	case watch.OpModify:
		list.Refresh(ctx, selection.IDs())
	}
}
