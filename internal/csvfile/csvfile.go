// Package csvfile reads and writes the album list CSV that carries
// entries between the parse, enrich, and import stages. Rewrites go
// through a temp file and rename so a crash never leaves a half-written
// list, and per-row status updates reread the file first so concurrent
// catalog changes between rows are not clobbered from a stale copy.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"wantlist/internal/album"
)

// Column names, in canonical write order.
const (
	colID             = "id"
	colArtist         = "artist"
	colAlbum          = "album"
	colAlbumSearch    = "album_search"
	colSpotifyAlbumID = "spotify_album_id"
	colMBArtistID     = "mb_artist_id"
	colMBReleaseID    = "mb_release_id"
	colMatchingRisk   = "matching_risk"
	colRiskReason     = "risk_reason"
	colStatus         = "status"
)

// Store is an album list CSV on disk.
type Store struct {
	path string
}

// NewStore points at a CSV path. The file need not exist until the
// first Write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path the store operates on.
func (s *Store) Path() string { return s.path }

// Read loads all entries. Rows without an id column get a fresh one, so
// lists written by older runs pick up stable ids on their next rewrite.
// A file without artist and album columns is an error; individual rows
// missing either value are dropped.
func (s *Store) Read() ([]album.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open album list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read album list: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index[colArtist]; !ok {
		return nil, fmt.Errorf("album list %s has no artist column", s.path)
	}
	if _, ok := index[colAlbum]; !ok {
		return nil, fmt.Errorf("album list %s has no album column", s.path)
	}

	cell := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	entries := make([]album.Entry, 0, len(records)-1)
	for _, record := range records[1:] {
		entry := album.Entry{
			ID:             cell(record, colID),
			Artist:         cell(record, colArtist),
			Album:          cell(record, colAlbum),
			AlbumSearch:    cell(record, colAlbumSearch),
			SpotifyAlbumID: cell(record, colSpotifyAlbumID),
			MBArtistID:     cell(record, colMBArtistID),
			MBReleaseID:    cell(record, colMBReleaseID),
			RiskReason:     cell(record, colRiskReason),
		}
		if entry.Artist == "" || entry.Album == "" {
			continue
		}
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.MatchingRisk = strings.EqualFold(cell(record, colMatchingRisk), "true")
		if status, ok := album.ParseStatus(cell(record, colStatus)); ok {
			entry.Status = status
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteOptions controls optional output columns.
type WriteOptions struct {
	// IncludeRiskInfo adds the matching_risk and risk_reason columns.
	IncludeRiskInfo bool

	// SkipRisky drops entries flagged as risky matches instead of
	// writing them.
	SkipRisky bool
}

// Write replaces the file with the given entries, atomically.
func (s *Store) Write(entries []album.Entry, opts WriteOptions) error {
	header := []string{colID, colArtist, colAlbum, colAlbumSearch, colSpotifyAlbumID, colMBArtistID, colMBReleaseID}
	if opts.IncludeRiskInfo {
		header = append(header, colMatchingRisk, colRiskReason)
	}
	header = append(header, colStatus)

	records := make([][]string, 0, len(entries)+1)
	records = append(records, header)
	for _, entry := range entries {
		if opts.SkipRisky && entry.MatchingRisk {
			continue
		}
		record := []string{
			entry.ID,
			entry.Artist,
			entry.Album,
			entry.AlbumSearch,
			entry.SpotifyAlbumID,
			entry.MBArtistID,
			entry.MBReleaseID,
		}
		if opts.IncludeRiskInfo {
			risk := ""
			if entry.MatchingRisk {
				risk = "true"
			}
			record = append(record, risk, entry.RiskReason)
		}
		record = append(record, string(entry.Status))
		records = append(records, record)
	}
	return s.writeAtomic(records)
}

// UpdateStatus persists one entry's status and identifiers, matching by
// row id first and by artist/album key for rows that predate ids. The
// file is reread so updates made since the caller's copy survive.
func (s *Store) UpdateStatus(updated album.Entry) error {
	entries, err := s.Read()
	if err != nil {
		return err
	}
	found := false
	for i := range entries {
		if entries[i].ID == updated.ID || (updated.ID == "" && entries[i].Key() == updated.Key()) {
			entries[i].Status = updated.Status
			if updated.MBArtistID != "" {
				entries[i].MBArtistID = updated.MBArtistID
			}
			if updated.MBReleaseID != "" {
				entries[i].MBReleaseID = updated.MBReleaseID
			}
			found = true
			break
		}
	}
	if !found {
		// Fall back to the key when the id changed out from under us.
		for i := range entries {
			if entries[i].Key() == updated.Key() {
				entries[i].Status = updated.Status
				found = true
				break
			}
		}
	}
	if !found {
		return fmt.Errorf("row %s not found in %s", updated.ID, s.path)
	}
	return s.Write(entries, WriteOptions{IncludeRiskInfo: s.hasRiskColumn(entries)})
}

// hasRiskColumn keeps the risk columns across rewrites once any entry
// carries risk data.
func (s *Store) hasRiskColumn(entries []album.Entry) bool {
	for _, entry := range entries {
		if entry.MatchingRisk || entry.RiskReason != "" {
			return true
		}
	}
	return false
}

func (s *Store) writeAtomic(records [][]string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp album list: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write album list: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write album list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp album list: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace album list: %w", err)
	}
	return nil
}
