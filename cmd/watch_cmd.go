package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/recall/internal/memory"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the memory directory and keep the index in sync",
		Run: func(cmd *cobra.Command, args []string) {
			mgr := openManager(loadConfig())
			defer mgr.Close()

			// Bring the index current before watching for deltas.
			if err := mgr.Sync(context.Background(), "startup", false); err != nil {
				fail("initial sync failed: %v", err)
			}

			watcher, err := memory.NewWatcher(mgr)
			if err != nil {
				fail("%v", err)
			}
			if err := watcher.Start(); err != nil {
				fail("%v", err)
			}
			defer watcher.Stop()

			fmt.Println("Watching for memory changes. Press Ctrl+C to stop.")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
		},
	}
}
