package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSearchFailed marks an unreachable index or a malformed index response.
	ErrSearchFailed = errors.New("search failed")
	// ErrEmptyResult marks a reachable index that produced zero usable candidates.
	ErrEmptyResult = errors.New("empty result")
	// ErrResolveFailed marks blocked requests, expired credentials, or missing metadata.
	ErrResolveFailed = errors.New("resolve failed")
	// ErrTranscodeFailed marks a local transcoding failure or a missing output file.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrDeliveryFailed marks a transport handoff failure after a successful fetch.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrCredentialsMissing marks required authentication material that is absent.
	ErrCredentialsMissing = errors.New("credentials missing")
	// ErrInvalidToken marks a selection token that cannot be decoded.
	ErrInvalidToken = errors.New("invalid selection token")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrResolveFailed
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy label for err, or "unknown" when no marker matches.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrCredentialsMissing):
		return "credentials_missing"
	case errors.Is(err, ErrEmptyResult):
		return "empty_result"
	case errors.Is(err, ErrSearchFailed):
		return "search_failed"
	case errors.Is(err, ErrResolveFailed):
		return "resolve_failed"
	case errors.Is(err, ErrTranscodeFailed):
		return "transcode_failed"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// IsIncident reports whether err belongs to a failure class that should be
// logged with full context and surfaced to operators.
func IsIncident(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyResult) || errors.Is(err, ErrInvalidToken) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
