package album

import "strings"

// Status records the outcome of the most recent import attempt for a row.
// An empty status means the row has never been attempted.
type Status string

const (
	StatusSuccess          Status = "success"
	StatusArtistAdded      Status = "artist_added"
	StatusAlreadyMonitored Status = "already_monitored"
	StatusPendingRefresh   Status = "pending_refresh"
	StatusPendingImport    Status = "pending_import"
	StatusDryRun           Status = "dry_run"

	StatusSkip                 Status = "skip"
	StatusSkipNoMusicBrainz    Status = "skip_no_musicbrainz"
	StatusSkipNoArtistMatch    Status = "skip_no_artist_match"
	StatusSkipAPIError         Status = "skip_api_error"
	StatusSkipArtistExists     Status = "skip_artist_exists"
	StatusSkipAlbumMBNoResults Status = "skip_album_mb_noresults"

	StatusErrorConnection  Status = "error_connection"
	StatusErrorTimeout     Status = "error_timeout"
	StatusErrorInvalidData Status = "error_invalid_data"
	StatusErrorUnknown     Status = "error_unknown"
)

var allStatuses = []Status{
	StatusSuccess,
	StatusArtistAdded,
	StatusAlreadyMonitored,
	StatusPendingRefresh,
	StatusPendingImport,
	StatusDryRun,
	StatusSkip,
	StatusSkipNoMusicBrainz,
	StatusSkipNoArtistMatch,
	StatusSkipAPIError,
	StatusSkipArtistExists,
	StatusSkipAlbumMBNoResults,
	StatusErrorConnection,
	StatusErrorTimeout,
	StatusErrorInvalidData,
	StatusErrorUnknown,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsSuccess reports whether the status represents a fully completed import.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusAlreadyMonitored
}

// IsPending reports whether the row was handed to Lidarr but the album was
// not yet visible, so a later run should pick it up again.
func (s Status) IsPending() bool {
	switch s {
	case StatusArtistAdded, StatusPendingRefresh, StatusPendingImport:
		return true
	}
	return false
}

// IsSkip reports whether the row was deliberately skipped. Skips are
// terminal: rerunning will not change the outcome without new data.
func (s Status) IsSkip() bool {
	switch s {
	case StatusSkip, StatusSkipNoMusicBrainz, StatusSkipNoArtistMatch,
		StatusSkipAPIError, StatusSkipArtistExists, StatusSkipAlbumMBNoResults:
		return true
	}
	return false
}

// IsError reports whether the row failed for a transient reason worth retrying.
func (s Status) IsError() bool {
	switch s {
	case StatusErrorConnection, StatusErrorTimeout, StatusErrorInvalidData, StatusErrorUnknown:
		return true
	}
	return false
}

// IsTerminal reports whether a rerun with default filters leaves the row alone.
func (s Status) IsTerminal() bool {
	return s.IsSuccess() || s.IsSkip()
}

// ShouldRetry reports whether the default skip-completed filter selects the
// row for another attempt: never tried, transiently failed, or pending.
func (s Status) ShouldRetry() bool {
	return s == "" || s == StatusDryRun || s.IsError() || s.IsPending()
}

// MatchesFilterToken reports whether the status matches a single filter
// token. Besides literal status values, "new" matches never-attempted rows
// and "failed" matches the whole retryable set.
func (s Status) MatchesFilterToken(token string) bool {
	normalized := strings.ToLower(strings.TrimSpace(token))
	switch normalized {
	case "new", "blank", "none", "empty":
		return s == ""
	case "failed", "failure", "fail", "retry":
		return s.ShouldRetry()
	default:
		return string(s) == normalized
	}
}
