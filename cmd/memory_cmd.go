package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/recall/internal/store"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage typed memories — add, list, get, delete",
	}
	cmd.AddCommand(memoryAddCmd())
	cmd.AddCommand(memoryListCmd())
	cmd.AddCommand(memoryGetCmd())
	cmd.AddCommand(memoryDeleteCmd())
	cmd.AddCommand(memoryDueCmd())
	cmd.AddCommand(memoryCompleteCmd())
	cmd.AddCommand(memoryCancelCmd())
	cmd.AddCommand(memoryLinkCmd())
	cmd.AddCommand(memoryOutcomeCmd())
	return cmd
}

// --- memory add ---

type addFlags struct {
	category     string
	source       string
	who          string
	where        string
	why          string
	action       string
	trigger      string
	triggerTime  string
	priority     float64
	emotion      string
	intensity    string
	ttl          time.Duration
	conversation string
	channel      string
}

func memoryAddCmd() *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add [type] [content]",
		Short: "Add a memory of the given type (semantic, episodic, procedural, prospective, emotional, working)",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			runMemoryAdd(store.Kind(args[0]), args[1], f)
		},
	}
	cmd.Flags().StringVar(&f.category, "category", "", "semantic: fact category")
	cmd.Flags().StringVar(&f.source, "source", "", "semantic: where the fact came from")
	cmd.Flags().StringVar(&f.who, "who", "", "episodic: who was involved")
	cmd.Flags().StringVar(&f.where, "where", "", "episodic: where it happened")
	cmd.Flags().StringVar(&f.why, "why", "", "episodic: why it happened")
	cmd.Flags().StringVar(&f.action, "action", "", "procedural: action the pattern triggers")
	cmd.Flags().StringVar(&f.trigger, "trigger", "", "procedural/prospective: trigger condition")
	cmd.Flags().StringVar(&f.triggerTime, "trigger-time", "", "prospective: RFC3339 time to surface the intention")
	cmd.Flags().Float64Var(&f.priority, "priority", 0, "prospective: priority (higher first)")
	cmd.Flags().StringVar(&f.emotion, "emotion", "", "emotional: emotion label")
	cmd.Flags().StringVar(&f.intensity, "intensity", "medium", "emotional: low, medium or high")
	cmd.Flags().DurationVar(&f.ttl, "ttl", 0, "working: time to live (e.g. 30m)")
	cmd.Flags().StringVar(&f.conversation, "conversation", "", "conversation id metadata")
	cmd.Flags().StringVar(&f.channel, "channel", "", "channel source metadata")
	return cmd
}

func runMemoryAdd(kind store.Kind, content string, f addFlags) {
	stores := openStores(loadConfig())

	meta := store.Metadata{}
	if f.conversation != "" {
		meta["conversationId"] = f.conversation
	}
	if f.channel != "" {
		meta["channelSource"] = f.channel
	}
	base := store.Base{Metadata: meta}
	now := time.Now()

	var id string
	var err error
	switch kind {
	case store.KindSemantic:
		id, err = stores.Semantic.Add(&store.Semantic{
			Base: base, Fact: content, Category: f.category, Source: f.source,
		})
	case store.KindEpisodic:
		id, err = stores.Episodic.Add(&store.Episodic{
			Base:      base,
			Event:     content,
			Context:   store.EpisodicContext{Who: f.who, What: content, Where: f.where, Why: f.why},
			Timestamp: now.UnixMilli(),
		})
	case store.KindProcedural:
		id, err = stores.Procedural.Add(&store.Procedural{
			Base: base, Pattern: content, Action: f.action, Trigger: f.trigger,
		})
	case store.KindProspective:
		var triggerAt int64
		if f.triggerTime != "" {
			ts, perr := time.Parse(time.RFC3339, f.triggerTime)
			if perr != nil {
				fail("invalid --trigger-time: %v", perr)
			}
			triggerAt = ts.UnixMilli()
		}
		id, err = stores.Prospective.Add(&store.Prospective{
			Base:           base,
			Intention:      content,
			TriggerTime:    triggerAt,
			TriggerContext: f.trigger,
			Status:         store.StatusPending,
			Priority:       f.priority,
		})
	case store.KindEmotional:
		if f.emotion == "" {
			fail("emotional memories require --emotion")
		}
		id, err = stores.Emotional.Add(&store.Emotional{
			Base:    base,
			Tag:     store.EmotionTag{Emotion: f.emotion, Intensity: store.Intensity(f.intensity), Timestamp: now.UnixMilli()},
			Context: content,
		})
	case store.KindWorking:
		var expiresAt int64
		if f.ttl > 0 {
			expiresAt = now.Add(f.ttl).UnixMilli()
		}
		w := &store.Working{Base: base, ExpiresAt: expiresAt}
		w.Content = content
		id, err = stores.Working.Add(w)
	default:
		fail("unknown memory type %q (want one of: semantic, episodic, procedural, prospective, emotional, working)", kind)
	}
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Added %s memory: %s\n", kind, id)
}

// --- memory list ---

func memoryListCmd() *cobra.Command {
	var jsonOutput bool
	var typeFilter, conversation, channel string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories across types",
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())

			opts := store.QueryOptions{
				ConversationID: conversation,
				ChannelSource:  channel,
				Limit:          limit,
			}
			if typeFilter != "" {
				opts.Types = []store.Kind{store.Kind(typeFilter)}
			}
			items, err := stores.Query(opts)
			if err != nil {
				fail("%v", err)
			}

			if jsonOutput {
				printJSON(items)
				return
			}
			if len(items) == 0 {
				fmt.Println("No memories stored.")
				return
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tUPDATED\tTEXT")
			for _, it := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					shortID(it.ID), it.Type,
					time.UnixMilli(it.UpdatedAt).Format("2006-01-02 15:04"),
					clip(it.Text, 60))
			}
			w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&typeFilter, "type", "", "filter by memory type")
	cmd.Flags().StringVar(&conversation, "conversation", "", "filter by conversation id")
	cmd.Flags().StringVar(&channel, "channel", "", "filter by channel source")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum memories to show")
	return cmd
}

// --- memory get / delete ---

func memoryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [type] [id]",
		Short: "Show one memory as JSON",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			rec, ok, err := stores.Get(store.Kind(args[0]), args[1])
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("no %s memory with id %s", args[0], args[1])
			}
			printJSON(rec)
		},
	}
}

func memoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [type] [id]",
		Short: "Delete a memory",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			ok, err := deleteByKind(stores, store.Kind(args[0]), args[1])
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("no %s memory with id %s", args[0], args[1])
			}
			fmt.Printf("Deleted %s memory: %s\n", args[0], args[1])
		},
	}
}

func deleteByKind(stores *store.Stores, kind store.Kind, id string) (bool, error) {
	switch kind {
	case store.KindSemantic:
		return stores.Semantic.Delete(id)
	case store.KindEpisodic:
		return stores.Episodic.Delete(id)
	case store.KindProcedural:
		return stores.Procedural.Delete(id)
	case store.KindProspective:
		return stores.Prospective.Delete(id)
	case store.KindEmotional:
		return stores.Emotional.Delete(id)
	case store.KindWorking:
		return stores.Working.Delete(id)
	}
	return false, fmt.Errorf("unknown memory type %q", kind)
}

// --- prospective lifecycle ---

func memoryDueCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List pending intentions whose trigger time has passed",
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			due := stores.Prospective.Due(time.Now().UnixMilli())

			if jsonOutput {
				printJSON(due)
				return
			}
			if len(due) == 0 {
				fmt.Println("Nothing due.")
				return
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRIORITY\tDUE\tINTENTION")
			for _, m := range due {
				fmt.Fprintf(w, "%s\t%.1f\t%s\t%s\n",
					shortID(m.ID), m.Priority,
					time.UnixMilli(m.TriggerTime).Format("2006-01-02 15:04"),
					clip(m.Intention, 60))
			}
			w.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func memoryCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete [id]",
		Short: "Mark a prospective intention completed",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			ok, err := stores.Prospective.Complete(args[0])
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("no prospective memory with id %s", args[0])
			}
			fmt.Printf("Completed: %s\n", args[0])
		},
	}
}

func memoryCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a prospective intention",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			ok, err := stores.Prospective.Cancel(args[0])
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("no prospective memory with id %s", args[0])
			}
			fmt.Printf("Cancelled: %s\n", args[0])
		},
	}
}

// --- episodic / procedural extras ---

func memoryLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link [id] [id]",
		Short: "Link two episodic memories as related",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			ok, err := stores.Episodic.Link(args[0], args[1])
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("both ids must be existing episodic memories")
			}
			fmt.Printf("Linked %s <-> %s\n", args[0], args[1])
		},
	}
}

func memoryOutcomeCmd() *cobra.Command {
	var failure bool
	cmd := &cobra.Command{
		Use:   "outcome [id]",
		Short: "Record a success (default) or failure for a procedural pattern",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stores := openStores(loadConfig())
			ok, err := stores.Procedural.RecordOutcome(args[0], !failure)
			if err != nil {
				fail("%v", err)
			}
			if !ok {
				fail("no procedural memory with id %s", args[0])
			}
			m, _ := stores.Procedural.Get(args[0])
			if m != nil && m.SuccessRate != nil {
				fmt.Printf("Recorded. Success rate: %.2f\n", *m.SuccessRate)
			} else {
				fmt.Println("Recorded.")
			}
		},
	}
	cmd.Flags().BoolVar(&failure, "failure", false, "record a failure instead of a success")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
