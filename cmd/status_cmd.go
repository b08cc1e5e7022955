package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show memory system status",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			mgr := openManager(cfg)
			defer mgr.Close()
			stores := openStores(cfg)

			st := mgr.Status()
			if jsonOutput {
				printJSON(map[string]interface{}{
					"index":    st,
					"memories": stores.Count(),
				})
				return
			}

			fmt.Printf("Workspace:   %s\n", st.WorkspaceDir)
			fmt.Printf("Index:       %s\n", st.IndexPath)
			fmt.Printf("Memories:    %d\n", stores.Count())
			fmt.Printf("Chunks:      %d (%d files)\n", st.ChunkCount, st.FileCount)
			fmt.Printf("Sources:     %s\n", strings.Join(st.Sources, ", "))
			if st.Provider != "" {
				fmt.Printf("Embeddings:  %s (%s)\n", st.Provider, st.Model)
			} else {
				fmt.Println("Embeddings:  none (keyword search only)")
			}
			if !st.Initialized {
				fmt.Println("\nIndex is empty. Run 'recall sync' to build it.")
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
