package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the search index with the memory files",
		Run: func(cmd *cobra.Command, args []string) {
			mgr := openManager(loadConfig())
			defer mgr.Close()

			if err := mgr.Sync(context.Background(), "cli", force); err != nil {
				fail("sync failed: %v", err)
			}
			st := mgr.Status()
			fmt.Printf("Indexed %d chunks across %d files.\n", st.ChunkCount, st.FileCount)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-chunk every file, ignoring watermarks")
	return cmd
}
