// Package services holds the error taxonomy shared by the MusicBrainz
// and Lidarr clients: sentinel markers, context wrapping, and the
// mapping from a failed API call to the status persisted on a row.
package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"wantlist/internal/album"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("timeout")
	ErrConnection   = errors.New("connection failure")
	ErrInvalidData  = errors.New("invalid data")
	ErrTransient    = errors.New("transient failure")
)

// Wrap builds an error that carries service and operation context while
// tagging it with the provided marker for later status classification.
// The marker should be one of the exported sentinel errors above.
func Wrap(marker error, service, operation string, err error) error {
	detail := buildDetail(service, operation)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ClassifyHTTP maps a non-success HTTP status to a sentinel.
func ClassifyHTTP(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrUnauthorized
	case statusCode == http.StatusNotFound:
		return ErrNotFound
	case statusCode == http.StatusBadRequest:
		return ErrInvalidData
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return ErrTimeout
	case statusCode >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return ErrInvalidData
	}
}

// ClassifyTransport maps a transport-level error from an HTTP round trip
// to a sentinel.
func ClassifyTransport(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrTimeout
	default:
		return ErrConnection
	}
}

// FailureStatus maps a classified error to the row status the importer
// persists. Unauthorized responses are permanent skips since retrying
// with the same credentials cannot succeed.
func FailureStatus(err error) album.Status {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return album.StatusSkipAPIError
	case errors.Is(err, ErrTimeout):
		return album.StatusErrorTimeout
	case errors.Is(err, ErrConnection):
		return album.StatusErrorConnection
	case errors.Is(err, ErrInvalidData):
		return album.StatusErrorInvalidData
	default:
		return album.StatusErrorUnknown
	}
}

func buildDetail(service, operation string) string {
	parts := make([]string, 0, 2)
	if service = strings.TrimSpace(service); service != "" {
		parts = append(parts, service)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
