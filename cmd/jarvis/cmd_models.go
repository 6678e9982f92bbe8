package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jarvis/internal/perception"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured provider",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		client, err := perception.NewClientFromConfig(ctx, cfg.LLM)
		if err != nil {
			return err
		}
		lister, ok := client.(perception.ModelLister)
		if !ok {
			return fmt.Errorf("provider %s does not support listing models", cfg.LLM.Provider)
		}
		models, err := lister.ListModels(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, models)
		}
		if len(models) == 0 {
			fmt.Fprintln(out, "No models installed.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\t")
		for _, m := range models {
			marker := ""
			if m.Name == cfg.LLM.Model {
				marker = " *"
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\t\n", m.Name, marker, humanBytes(m.Size), m.ModifiedAt.Format("2006-01-02"))
		}
		return tw.Flush()
	},
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
