package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"wantlist/internal/album"
	"wantlist/internal/csvfile"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showRows bool

	cmd := &cobra.Command{
		Use:   "status <csv>",
		Short: "Summarize import progress for a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := csvfile.NewStore(args[0]).Read()
			if err != nil {
				return err
			}

			counts := make(map[album.Status]int)
			var succeeded, pending, skipped, failed, blank int
			for _, entry := range entries {
				counts[entry.Status]++
				switch {
				case entry.Status == "":
					blank++
				case entry.Status.IsSuccess() || entry.Status == album.StatusDryRun:
					succeeded++
				case entry.Status.IsPending():
					pending++
				case entry.Status.IsSkip():
					skipped++
				default:
					failed++
				}
			}

			statuses := make([]album.Status, 0, len(counts))
			for status := range counts {
				statuses = append(statuses, status)
			}
			sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				label := string(status)
				if label == "" {
					label = "(new)"
				}
				rows = append(rows, []string{label, fmt.Sprintf("%d", counts[status])})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows\n", args[0], len(entries))
			fmt.Fprintln(out, renderTable(
				[]tableColumn{{header: "Status"}, {header: "Count", right: true}},
				rows,
			))
			fmt.Fprintf(out, "succeeded %d, pending %d, skipped %d, failed %d, remaining %d\n",
				succeeded, pending, skipped, failed, blank)

			if showRows {
				detail := make([][]string, 0, len(entries))
				for _, entry := range entries {
					if entry.Status.IsTerminal() {
						continue
					}
					label := string(entry.Status)
					if label == "" {
						label = "(new)"
					}
					detail = append(detail, []string{entry.Artist, entry.Album, label})
				}
				if len(detail) > 0 {
					fmt.Fprintln(out, renderTable(
						[]tableColumn{{header: "Artist"}, {header: "Album"}, {header: "Status"}},
						detail,
					))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRows, "rows", false, "List rows that still need work")
	return cmd
}
