package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and their row outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("run history is disabled (set history.enabled in the config)")
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID > 0 {
				run, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				events, err := store.EventsForRun(cmd.Context(), runID)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "Run %d: %s %s (started %s)\n",
					run.ID, run.Command, run.CSVPath, run.StartedAt.Local().Format(time.RFC3339))
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						event.Artist,
						event.Album,
						string(event.Status),
						event.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]tableColumn{{header: "Artist"}, {header: "Album"}, {header: "Status"}, {header: "Message"}},
					rows,
				))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				finished := "running"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					run.Command,
					run.CSVPath,
					finished,
					fmt.Sprintf("%d", run.Summary.Processed),
					fmt.Sprintf("%d", run.Summary.Succeeded),
					fmt.Sprintf("%d", run.Summary.Pending),
					fmt.Sprintf("%d", run.Summary.Skipped),
					fmt.Sprintf("%d", run.Summary.Failed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]tableColumn{
					{header: "Run", right: true},
					{header: "Started"},
					{header: "Command"},
					{header: "List"},
					{header: "Duration"},
					{header: "Rows", right: true},
					{header: "OK", right: true},
					{header: "Pending", right: true},
					{header: "Skipped", right: true},
					{header: "Failed", right: true},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().Int64Var(&runID, "run", 0, "Show per-row events for one run")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}
