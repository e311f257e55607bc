package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tagfiler/tagfiler/internal/events"
	"github.com/tagfiler/tagfiler/internal/reconcile"
	"github.com/tagfiler/tagfiler/internal/tree"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "daemon",
	Short:   "Serve state projections without filesystem watching",
	Long: `Serve the WebSocket projection endpoint only.

Like the daemon but without location watching: the file list is loaded
and reconciled once at startup, then updates only through explicit
operations. Useful when locations live on a network mount where inotify
is unreliable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		logger := log.New(os.Stderr, "[tagd] ", log.LstdFlags)

		listCfg := reconcile.DefaultConfig()
		listCfg.Hub = e.hub
		listCfg.Logger = logger
		list := reconcile.NewList(e.store, listCfg)
		list.Refresh(ctx, nil)

		expand := tree.NewExpandTracker(e.hub)
		selection := tree.NewSelection(e.hub)

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
		defer server.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
