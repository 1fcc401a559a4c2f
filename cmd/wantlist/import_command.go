package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wantlist/internal/album"
	"wantlist/internal/csvfile"
	"wantlist/internal/importer"
	"wantlist/internal/runlog"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun           bool
		maxItems         int
		statusFilter     string
		notStatusFilter  string
		artistFilter     string
		albumFilter      string
		skipExisting     bool
		noSkipCompleted  bool
		batchSize        int
		noBatchPause     bool
		progressInterval int
		requestDelay     float64
		logFile          string
		verbose          bool
	)

	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Add the albums in a list to Lidarr",
		Long: `Import walks a parsed CSV row by row, adds missing artists to Lidarr,
monitors the matched releases, and writes each row's outcome back into
the status column. Re-running the command resumes where the previous
run left off: rows with a terminal status are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(verbose, logFile)
			if err != nil {
				return err
			}
			client, err := ctx.lidarrClient()
			if err != nil {
				return err
			}

			delay := cfg.Lidarr.RequestDelayDuration()
			if cmd.Flags().Changed("request-delay") {
				delay = time.Duration(requestDelay * float64(time.Second))
			}
			if batchSize == 0 {
				batchSize = cfg.Lidarr.BatchSize
			}

			opts := importer.Options{
				DryRun:           dryRun,
				MaxItems:         maxItems,
				StatusFilter:     statusFilter,
				NotStatusFilter:  notStatusFilter,
				ArtistFilter:     artistFilter,
				AlbumFilter:      albumFilter,
				SkipExisting:     skipExisting,
				NoSkipCompleted:  noSkipCompleted,
				BatchSize:        batchSize,
				BatchPause:       cfg.Lidarr.BatchPauseDuration(),
				NoBatchPause:     noBatchPause,
				RequestDelay:     delay,
				ProgressInterval: progressInterval,
				Aliases:          cfg.ArtistAliases,
				Logger:           logger,
			}

			var history *runlog.Store
			var runID int64
			if !dryRun {
				history, err = ctx.openHistory(cmd.Context())
				if err != nil {
					logger.Warn("run history unavailable", "error", err)
				} else if history != nil {
					defer history.Close()
					runID, err = history.StartRun(cmd.Context(), "import", args[0])
					if err != nil {
						logger.Warn("run history unavailable", "error", err)
						history = nil
					}
				}
			}
			if history != nil {
				opts.Record = func(entry album.Entry, message string) {
					if err := history.AppendEvent(cmd.Context(), runID, entry, message); err != nil {
						logger.Warn("record run event", "error", err)
					}
				}
			}

			imp := importer.New(csvfile.NewStore(args[0]), client, opts)
			summary, runErr := imp.Run(cmd.Context())

			if history != nil {
				if err := history.FinishRun(cmd.Context(), runID, runlog.Summary{
					Processed: summary.Processed,
					Succeeded: summary.Succeeded,
					Skipped:   summary.Skipped,
					Pending:   summary.Pending,
					Failed:    summary.Failed,
				}); err != nil {
					logger.Warn("finish run record", "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}

			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Make no Lidarr changes; rows that would import are marked dry_run in the CSV")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Stop after this many rows (0 = no limit)")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only process rows whose status matches these comma-separated tokens")
	cmd.Flags().StringVar(&notStatusFilter, "not-status", "", "Skip rows whose status matches these comma-separated tokens")
	cmd.Flags().StringVar(&artistFilter, "artist", "", "Only process rows whose artist contains this text")
	cmd.Flags().StringVar(&albumFilter, "album", "", "Only process rows whose album contains this text")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip rows whose artist already exists in Lidarr")
	cmd.Flags().BoolVar(&noSkipCompleted, "no-skip-completed", false, "Reprocess rows that already have a terminal status")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per batch before pausing (0 = config value)")
	cmd.Flags().BoolVar(&noBatchPause, "no-batch-pause", false, "Disable the pause between batches")
	cmd.Flags().IntVar(&progressInterval, "progress-interval", 0, "Log progress every N rows (0 = default)")
	cmd.Flags().Float64Var(&requestDelay, "request-delay", 0, "Seconds to wait between Lidarr requests (overrides config)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func printSummary(cmd *cobra.Command, summary importer.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "processed %d: %d succeeded, %d pending, %d skipped, %d failed\n",
		summary.Processed, summary.Succeeded, summary.Pending, summary.Skipped, summary.Failed)
	if len(summary.ByStatus) == 0 {
		return
	}
	rows := make([][]string, 0, len(summary.ByStatus))
	for _, status := range album.AllStatuses() {
		if count, ok := summary.ByStatus[status]; ok {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]tableColumn{{header: "Status"}, {header: "Count", right: true}},
		rows,
	))
}
