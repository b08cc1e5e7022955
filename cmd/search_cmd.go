package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/recall/internal/memory"
)

func searchCmd() *cobra.Command {
	var jsonOutput bool
	var maxResults int
	var minScore float64
	var conversation string
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Hybrid semantic + keyword search over indexed memories",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			mgr := openManager(loadConfig())
			defer mgr.Close()

			results, err := mgr.Search(context.Background(), args[0], memory.SearchOptions{
				MaxResults:      maxResults,
				MinScore:        minScore,
				ConversationKey: conversation,
			})
			if err != nil {
				fail("%v", err)
			}

			if jsonOutput {
				printJSON(results)
				return
			}
			if len(results) == 0 {
				fmt.Println("No results.")
				return
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tPATH\tLINES\tSNIPPET")
			for _, r := range results {
				fmt.Fprintf(w, "%.3f\t%s\t%d-%d\t%s\n", r.Score, r.Path, r.StartLine, r.EndLine, clip(r.Snippet, 70))
			}
			w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&maxResults, "max", 0, "maximum results (default from config)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum combined score")
	cmd.Flags().StringVar(&conversation, "conversation", "", "restrict session results to one conversation")
	return cmd
}
