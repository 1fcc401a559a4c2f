package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"wantlist/internal/album"
	"wantlist/internal/csvfile"
	"wantlist/internal/dedupe"
	"wantlist/internal/enrich"
	"wantlist/internal/musicbrainz"
	"wantlist/internal/runlog"
	"wantlist/internal/scan"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var (
		output          string
		dryRun          bool
		fuzzyThreshold  int
		noNormalize     bool
		minArtistSongs  int
		minAlbumSongs   int
		artistFilter    string
		albumFilter     string
		maxItems        int
		noEnrich        bool
		mbDelay         float64
		skipRisky       bool
		includeRiskInfo bool
		verbose         bool
	)

	cmd := &cobra.Command{
		Use:   "parse <input>",
		Short: "Turn an album list into a tracked CSV",
		Long: `Parse detects the input format (simple CSV, Spotify export, tab or
dash separated text, "Album by Artist" lines), normalizes and
deduplicates the entries, resolves MusicBrainz identifiers for each
album, and writes a CSV the import command can work through.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateParser(); err != nil {
				return err
			}
			logger, err := ctx.newLogger(verbose, "")
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("fuzzy-threshold") {
				fuzzyThreshold = cfg.Parser.FuzzyThreshold
			}
			if !cmd.Flags().Changed("min-artist-songs") {
				minArtistSongs = cfg.Parser.MinArtistSongs
			}
			if !cmd.Flags().Changed("min-album-songs") {
				minAlbumSongs = cfg.Parser.MinAlbumSongs
			}
			if !cmd.Flags().Changed("skip-risky") {
				skipRisky = cfg.Parser.SkipRisky
			}
			if !cmd.Flags().Changed("include-risk-info") {
				includeRiskInfo = cfg.Parser.IncludeRiskInfo
			}
			delay := cfg.MusicBrainz.DelayDuration()
			if cmd.Flags().Changed("mb-delay") {
				delay = time.Duration(mbDelay * float64(time.Second))
			}

			result, err := scan.ParseFile(args[0], scan.Options{
				MinArtistSongs: minArtistSongs,
				MinAlbumSongs:  minAlbumSongs,
				ArtistFilter:   artistFilter,
				AlbumFilter:    albumFilter,
				MaxItems:       maxItems,
				NoNormalize:    noNormalize,
			})
			if err != nil {
				return err
			}
			logger.Info("parsed input",
				"format", result.Stats.Format,
				"entries", result.Stats.RawEntries,
				"skipped_lines", result.Stats.SkippedLines)

			entries, dedupeStats := dedupe.Dedupe(result.Entries, fuzzyThreshold)
			logger.Info("deduplicated",
				"kept", len(entries),
				"exact", dedupeStats.Exact,
				"fuzzy", dedupeStats.Fuzzy)

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "%s: %s format, %d entries (%d exact + %d fuzzy duplicates removed)\n",
					args[0], result.Stats.Format, len(entries), dedupeStats.Exact, dedupeStats.Fuzzy)
				preview := entries
				if len(preview) > 10 {
					preview = preview[:10]
				}
				rows := make([][]string, 0, len(preview))
				for _, entry := range preview {
					rows = append(rows, []string{entry.Artist, entry.Album})
				}
				fmt.Fprintln(out, renderTable(
					[]tableColumn{{header: "Artist"}, {header: "Album"}},
					rows,
				))
				if len(entries) > len(preview) {
					fmt.Fprintf(out, "... and %d more\n", len(entries)-len(preview))
				}
				return nil
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = defaultOutputPath(args[0])
			}
			store := csvfile.NewStore(target)
			writeOpts := csvfile.WriteOptions{
				IncludeRiskInfo: includeRiskInfo,
				SkipRisky:       skipRisky,
			}
			if err := store.Write(entries, writeOpts); err != nil {
				return err
			}

			var enrichStats enrich.Stats
			if !noEnrich {
				mb := musicbrainz.New(cfg.MusicBrainz.BaseURL, cfg.UserAgent(), delay, nil)
				mb.SetAliases(cfg.ArtistAliases)
				resolver := enrich.NewMusicBrainzResolver(mb)

				enrichStats, err = enrich.Run(cmd.Context(), entries, resolver, enrich.Options{
					Persist:  func(current []album.Entry) error { return store.Write(current, writeOpts) },
					Progress: newProgress(len(entries)),
				})
				if err != nil {
					return fmt.Errorf("enrich entries: %w", err)
				}
				logger.Info("enrichment complete",
					"resolved", enrichStats.Resolved,
					"artist_only", enrichStats.ArtistOnly,
					"not_found", enrichStats.NotFound,
					"errors", enrichStats.Errors)
			}

			if err := store.Write(entries, writeOpts); err != nil {
				return err
			}

			recordParseRun(cmd, ctx, logger, target, len(entries), enrichStats)

			fmt.Fprintf(out, "Wrote %d entries to %s\n", len(entries), target)
			if !noEnrich {
				fmt.Fprintf(out, "MusicBrainz: %d resolved, %d artist only, %d not found, %d errors\n",
					enrichStats.Resolved, enrichStats.ArtistOnly, enrichStats.NotFound, enrichStats.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV path (default: input name with .albums.csv)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and dedupe only; print a preview instead of writing")
	cmd.Flags().IntVar(&fuzzyThreshold, "fuzzy-threshold", 0, "Similarity score above which album titles merge (overrides config)")
	cmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "Keep artist and album text as written")
	cmd.Flags().IntVar(&minArtistSongs, "min-artist-songs", 0, "Spotify exports: minimum tracks before an artist is kept")
	cmd.Flags().IntVar(&minAlbumSongs, "min-album-songs", 0, "Spotify exports: minimum tracks before an album is kept")
	cmd.Flags().StringVar(&artistFilter, "artist", "", "Only keep entries whose artist contains this text")
	cmd.Flags().StringVar(&albumFilter, "album", "", "Only keep entries whose album contains this text")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Stop after this many entries (0 = no limit)")
	cmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "Skip the MusicBrainz lookup pass")
	cmd.Flags().Float64Var(&mbDelay, "mb-delay", 0, "Seconds between MusicBrainz requests (overrides config)")
	cmd.Flags().BoolVar(&skipRisky, "skip-risky", false, "Drop entries flagged as risky fuzzy merges")
	cmd.Flags().BoolVar(&includeRiskInfo, "include-risk-info", false, "Write matching_risk and risk_reason columns")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

// defaultOutputPath derives the tracked CSV name from the input so
// parsing list.txt yields list.albums.csv next to it.
func defaultOutputPath(input string) string {
	base := strings.TrimSuffix(input, ".csv")
	base = strings.TrimSuffix(base, ".txt")
	return base + ".albums.csv"
}

// newProgress returns an enrich progress callback drawing a terminal
// bar, or nil when stderr is not a terminal.
func newProgress(total int) func(done, total int) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return nil
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("musicbrainz"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return func(done, _ int) {
		_ = bar.Set(done)
	}
}

func recordParseRun(cmd *cobra.Command, ctx *commandContext, logger *slog.Logger, target string, total int, stats enrich.Stats) {
	history, err := ctx.openHistory(cmd.Context())
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return
	}
	if history == nil {
		return
	}
	defer history.Close()
	runID, err := history.StartRun(cmd.Context(), "parse", target)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return
	}
	summary := runlog.Summary{
		Processed: total,
		Succeeded: stats.Resolved,
		Pending:   stats.ArtistOnly,
		Skipped:   stats.NotFound + stats.Skipped,
		Failed:    stats.Errors,
	}
	if err := history.FinishRun(cmd.Context(), runID, summary); err != nil {
		logger.Warn("finish run record", "error", err)
	}
}
