package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"wantlist/internal/album"
	"wantlist/internal/csvfile"
	"wantlist/internal/lidarr"
	"wantlist/internal/logging"
)

const (
	defaultBatchSize        = 10
	defaultBatchPause       = 10 * time.Second
	defaultRequestDelay     = 2 * time.Second
	defaultProgressInterval = 50
)

// Options controls filtering and pacing for an import run.
type Options struct {
	DryRun bool

	// Row filters, applied in order before any Lidarr calls.
	MaxItems        int
	StatusFilter    string
	NotStatusFilter string
	ArtistFilter    string
	AlbumFilter     string
	SkipExisting    bool
	NoSkipCompleted bool

	// Pacing between Lidarr requests.
	BatchSize        int
	BatchPause       time.Duration
	NoBatchPause     bool
	RequestDelay     time.Duration
	ProgressInterval int

	// Aliases maps a lowercase artist name to other names the same
	// artist may be stored under in Lidarr.
	Aliases map[string][]string

	Logger *slog.Logger

	// Record is called after each row's status is written back,
	// typically to append a run-history event.
	Record func(entry album.Entry, message string)

	// Sleep replaces time.Sleep for pacing. Tests inject a no-op.
	Sleep func(time.Duration)
}

// Summary is the grouped outcome of a run.
type Summary struct {
	Processed int
	Succeeded int
	Pending   int
	Skipped   int
	Failed    int
	ByStatus  map[album.Status]int
}

func (s *Summary) count(status album.Status) {
	if s.ByStatus == nil {
		s.ByStatus = make(map[album.Status]int)
	}
	s.Processed++
	s.ByStatus[status]++
	switch {
	case status.IsSuccess() || status == album.StatusDryRun:
		s.Succeeded++
	case status.IsPending():
		s.Pending++
	case status.IsSkip():
		s.Skipped++
	default:
		s.Failed++
	}
}

// Importer walks a tracked CSV and mirrors each row into Lidarr.
type Importer struct {
	csv    *csvfile.Store
	lidarr *lidarr.Client
	opts   Options
	logger *slog.Logger
	sleep  func(time.Duration)
}

// New builds an Importer over a CSV store and a Lidarr client.
func New(store *csvfile.Store, client *lidarr.Client, opts Options) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = defaultBatchPause
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = defaultRequestDelay
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaultProgressInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Importer{csv: store, lidarr: client, opts: opts, logger: logger, sleep: sleep}
}

// Run processes every row that survives filtering. The CSV is guarded by
// an exclusive lock file so two imports cannot interleave status writes.
func (imp *Importer) Run(ctx context.Context) (Summary, error) {
	lock := flock.New(imp.csv.Path() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return Summary{}, fmt.Errorf("another import is already running for %s", imp.csv.Path())
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := imp.csv.Read()
	if err != nil {
		return Summary{}, err
	}

	index, err := imp.loadArtistIndex(ctx)
	if err != nil {
		return Summary{}, err
	}

	rows, err := imp.filter(entries, index)
	if err != nil {
		return Summary{}, err
	}
	if len(rows) == 0 {
		imp.logger.Info("no rows to import after filtering", "total", len(entries))
		return Summary{}, nil
	}
	imp.logger.Info("starting import", "rows", len(rows), "total", len(entries), "dry_run", imp.opts.DryRun)

	var summary Summary
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		entry := &rows[i]

		status, message := imp.processEntry(ctx, entry, index)
		entry.Status = status
		if err := imp.csv.UpdateStatus(*entry); err != nil {
			return summary, fmt.Errorf("write status for %s: %w", entry, err)
		}
		summary.count(status)
		if imp.opts.Record != nil {
			imp.opts.Record(*entry, message)
		}

		logAttrs := []any{"artist", entry.Artist, "album", entry.Album, "status", string(status)}
		switch {
		case status.IsError():
			imp.logger.Warn(message, logAttrs...)
		default:
			imp.logger.Info(message, logAttrs...)
		}

		if (i+1)%imp.opts.ProgressInterval == 0 {
			imp.logger.Info("progress", "done", i+1, "total", len(rows))
		}
		if imp.opts.DryRun || i == len(rows)-1 {
			continue
		}
		imp.sleep(imp.opts.RequestDelay)
		if !imp.opts.NoBatchPause && (i+1)%imp.opts.BatchSize == 0 {
			imp.logger.Info("batch pause", "completed", i+1, "remaining", len(rows)-i-1)
			imp.sleep(imp.opts.BatchPause)
		}
	}

	imp.logger.Info("import complete",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"pending", summary.Pending,
		"skipped", summary.Skipped,
		"failed", summary.Failed)
	return summary, nil
}

// loadArtistIndex fetches Lidarr's library once per run. A dry run with
// no reachable Lidarr still works: the index is only used to pick the
// existing-artist branch, so the error is deferred to real runs.
func (imp *Importer) loadArtistIndex(ctx context.Context) (*artistIndex, error) {
	artists, err := imp.lidarr.Artists(ctx)
	if err != nil {
		if imp.opts.DryRun {
			imp.logger.Warn("could not fetch Lidarr artists, dry run continues without them", "error", err)
			return newArtistIndex(nil, imp.opts.Aliases), nil
		}
		return nil, fmt.Errorf("fetch Lidarr artists: %w", err)
	}
	return newArtistIndex(artists, imp.opts.Aliases), nil
}
