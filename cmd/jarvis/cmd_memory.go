package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jarvis/cmd/jarvis/ui"
	"jarvis/internal/session"
	"jarvis/internal/store"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage remembered executions",
}

var (
	memKind    string
	memSession string
	memYes     bool

	memListLimit   int
	memSearchLimit int
)

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List memories, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMemory(func(ctx context.Context, mem *store.SQLiteMemory) error {
			entries, err := mem.List(ctx, memoryFilter(memListLimit))
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		})
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMemory(func(ctx context.Context, mem *store.SQLiteMemory) error {
			hits, err := mem.Query(ctx, strings.Join(args, " "), memSearchLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, hits)
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matching memories.")
				return nil
			}
			styles := ui.DefaultStyles()
			for i, h := range hits {
				fmt.Fprintf(out, "%s %s\n%s\n\n",
					styles.Bold.Render(fmt.Sprintf("%d.", i+1)),
					styles.Muted.Render(fmt.Sprintf("[%s %s, score %.2f]", h.Kind, h.CreatedAt.Format("2006-01-02 15:04"), h.Score)),
					h.Content)
			}
			return nil
		})
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete memories matching the filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !memYes {
			return fmt.Errorf("refusing to clear memories without --yes")
		}
		return withMemory(func(ctx context.Context, mem *store.SQLiteMemory) error {
			n, err := mem.Clear(ctx, memoryFilter(0))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d memories.\n", n)
			return nil
		})
	},
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count memories by kind",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMemory(func(ctx context.Context, mem *store.SQLiteMemory) error {
			stats, err := mem.Stats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, stats)
			}
			kinds := make([]string, 0, len(stats))
			var total int64
			for k, n := range stats {
				kinds = append(kinds, string(k))
				total += n
			}
			sort.Strings(kinds)
			table := ui.NewSimpleTable("Memory: "+mem.Path(), []string{"Kind", "Count"})
			for _, k := range kinds {
				table.AddRow(k, fmt.Sprint(stats[store.Kind(k)]))
			}
			table.AddRow("total", fmt.Sprint(total))
			fmt.Fprintln(out, table.View(ui.DefaultStyles()))
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{memoryListCmd, memoryClearCmd} {
		c.Flags().StringVar(&memKind, "kind", "", "Filter by kind (execution, turn, agent, note)")
		c.Flags().StringVar(&memSession, "session", "", "Filter by session ID")
	}
	memoryListCmd.Flags().IntVarP(&memListLimit, "limit", "n", 20, "Maximum entries")
	memorySearchCmd.Flags().IntVarP(&memSearchLimit, "limit", "n", 5, "Maximum hits")
	memoryClearCmd.Flags().BoolVarP(&memYes, "yes", "y", false, "Confirm deletion")

	memoryCmd.AddCommand(memoryListCmd, memorySearchCmd, memoryClearCmd, memoryStatsCmd)
}

func memoryFilter(limit int) store.ListOptions {
	return store.ListOptions{
		Kind:      store.Kind(memKind),
		SessionID: memSession,
		Limit:     limit,
	}
}

// withMemory opens the configured persistent store without booting a session.
func withMemory(fn func(ctx context.Context, mem *store.SQLiteMemory) error) error {
	if !cfg.Memory.Enabled || !cfg.Memory.Persistent {
		return fmt.Errorf("persistent memory is disabled in the config")
	}
	root, err := cfg.ResolveWorkspace(cwd())
	if err != nil {
		return err
	}
	mem, err := store.OpenSQLiteMemory(session.MemoryPath(cfg.Memory, root))
	if err != nil {
		return err
	}
	defer mem.Close()

	ctx, cancel := signalContext()
	defer cancel()
	return fn(ctx, mem)
}

func printEntries(w io.Writer, entries []store.Entry) error {
	if jsonOutput {
		return writeJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No memories.")
		return nil
	}
	styles := ui.DefaultStyles()
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s\n%s\n\n",
			styles.Bold.Render(e.ID),
			styles.Muted.Render(fmt.Sprintf("[%s %s session=%s]", e.Kind, e.CreatedAt.Format("2006-01-02 15:04"), e.SessionID)),
			e.Content)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
