package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cuemby/autoheal/pkg/config"
	"github.com/cuemby/autoheal/pkg/history"
	"github.com/cuemby/autoheal/pkg/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show how often each container has been remediated",
		Long: `Read the remediation history and print, per container, the number of
recorded events, when the last one happened and the last health check
output. The most frequently remediated containers are listed first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := bindConfig(cmd)

			level, err := log.ParseLevel(v.GetString("log-level"))
			if err != nil {
				return err
			}
			log.Init(log.Config{Level: level, JSONOutput: v.GetBool("log-json"), Output: cmd.ErrOrStderr()})

			store, err := history.Open(config.HistoryBackend(v.GetString("history-backend")), v.GetString("history-dir"))
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			recorder := history.NewRecorder(store)
			defer recorder.Close()

			summaries, err := recorder.Summarize()
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			format, _ := cmd.Flags().GetString("output")
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				format = formatJSON
			}
			return renderHistory(cmd.OutOrStdout(), summaries, format)
		},
	}

	cmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
	cmd.Flags().Bool("json", false, "Output JSON (same as --output json)")
	return cmd
}

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func renderHistory(w io.Writer, summaries []history.Summary, format string) error {
	if summaries == nil {
		summaries = []history.Summary{}
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(summaries); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
	default:
		return fmt.Errorf("unknown output format %q: expected table, json or yaml", format)
	}

	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No history records found")
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Container", "ID", "Events", "Last Seen", "Last Error"})
	total := 0
	for _, s := range summaries {
		tw.AppendRow(table.Row{s.Name, s.ID, s.Count, s.LastDate, s.LastErr})
		total += s.Count
	}
	tw.AppendFooter(table.Row{"", "Total", total, "", ""})
	tw.Render()
	return nil
}
