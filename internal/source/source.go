package source

import (
	"context"
	"errors"
	"fmt"

	"engagewatch/internal/model"
)

// AuthError indicates that authentication has failed or expired for a
// source: a rejected IMAP login, or a 401 from the API. It is always
// fatal for the run.
type AuthError struct {
	SourceType model.SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// RateLimitError indicates the API told us to stop (HTTP 429). The
// adapter stops issuing requests for the rest of the run and returns
// whatever it already collected as a partial batch.
type RateLimitError struct {
	SourceType model.SourceType
	Endpoint   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s): %s", e.SourceType, e.Endpoint)
}

// IsRateLimitError reports whether err is (or wraps) a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// FetchResult holds one batch of candidate notifications plus the
// partial-failure bookkeeping accumulated while producing it.
type FetchResult struct {
	// Notifications are the candidate records, in source order, before
	// deduplication.
	Notifications []model.Notification

	// Skipped counts items (messages, per-post sub-fetches) that failed
	// individually and were dropped without aborting the batch.
	Skipped int

	// RateLimited is set when the source cut the batch short with a
	// rate-limit response.
	RateLimited bool
}

// Partial reports whether the batch is incomplete.
func (r *FetchResult) Partial() bool {
	return r.Skipped > 0 || r.RateLimited
}

// Source is the contract both adapters implement: produce one batch of
// candidate notifications for a lookback window of windowDays days.
//
// A returned error is fatal for the run (connection, auth, TLS).
// Recoverable per-item failures are reported inside FetchResult instead.
type Source interface {
	Type() model.SourceType
	FetchNotifications(ctx context.Context, windowDays int) (*FetchResult, error)
}
