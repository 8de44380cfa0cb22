package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation             = errors.New("invalid request")
	ErrSourceUnavailable      = errors.New("source repository unavailable")
	ErrInvalidReference       = errors.New("unrecognized object store reference")
	ErrCredentialsUnavailable = errors.New("object store credentials unavailable and reference is not presigned")
	ErrUpstreamFetch          = errors.New("upstream fetch failed")
	ErrCorruptArchive         = errors.New("corrupt archive")
	ErrRemoteRepo             = errors.New("remote repository operation failed")
	ErrFork                   = errors.New("fork failed")
	ErrAnalysisUnavailable    = errors.New("analysis service not configured")
	ErrAnalysisService        = errors.New("analysis service error")
	ErrNotFound               = errors.New("not found")
	ErrInternal               = errors.New("internal error")
)

// ErrStatusMap maps classified errors to HTTP status codes. Configuration
// problems (missing credentials, unconfigured analysis) map to 500 so they
// are surfaced as server-side misconfiguration, not caller mistakes.
var ErrStatusMap = map[error]int{
	ErrValidation:             http.StatusBadRequest,
	ErrSourceUnavailable:      http.StatusBadGateway,
	ErrInvalidReference:       http.StatusBadRequest,
	ErrCredentialsUnavailable: http.StatusInternalServerError,
	ErrUpstreamFetch:          http.StatusBadGateway,
	ErrCorruptArchive:         http.StatusUnprocessableEntity,
	ErrRemoteRepo:             http.StatusBadGateway,
	ErrFork:                   http.StatusBadGateway,
	ErrAnalysisUnavailable:    http.StatusInternalServerError,
	ErrAnalysisService:        http.StatusBadGateway,
	ErrNotFound:               http.StatusNotFound,
	ErrInternal:               http.StatusInternalServerError,
}

// StatusFor resolves the HTTP status for a classified error chain.
func StatusFor(err error) int {
	for known, status := range ErrStatusMap {
		if errors.Is(err, known) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// UpstreamFetchError carries the non-success status of a direct object fetch.
type UpstreamFetchError struct {
	Status int
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("upstream fetch failed with status %d", e.Status)
}

func (e *UpstreamFetchError) Unwrap() error { return ErrUpstreamFetch }

// AnalysisServiceError carries the non-2xx response of the analysis service.
type AnalysisServiceError struct {
	Status int
	Body   string
}

func (e *AnalysisServiceError) Error() string {
	return fmt.Sprintf("analysis service returned %d: %s", e.Status, e.Body)
}

func (e *AnalysisServiceError) Unwrap() error { return ErrAnalysisService }
