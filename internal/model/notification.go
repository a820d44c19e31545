package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Kind classifies the engagement event a notification describes.
type Kind string

const (
	KindComment Kind = "comment"
	KindLike    Kind = "like"
	KindShare   Kind = "share"
)

// SourceType identifies which adapter produced a notification.
type SourceType string

const (
	SourceTypeEmail SourceType = "email"
	SourceTypeAPI   SourceType = "api"
)

// Snippet length limits applied when extracting text from source payloads.
const (
	MaxContentSnippet = 200
	MaxPostSnippet    = 100
)

// Notification represents one detected engagement event on a monitored post.
type Notification struct {
	// ID is a stable identifier for the logical event. Two notifications
	// with equal IDs are the same event, even if the source re-rendered
	// the surrounding text differently on a resend.
	ID string `json:"id" db:"id"`

	// Kind is the engagement type: comment, like, or share.
	Kind Kind `json:"kind" db:"kind"`

	// ActorName is the display name of the person who acted.
	// "Unknown" when the source text was unparseable.
	ActorName string `json:"actor_name" db:"actor_name"`

	// ContentSnippet holds the comment text for comments; empty otherwise.
	ContentSnippet string `json:"content_snippet" db:"content_snippet"`

	// PostSnippet is a truncated excerpt of the post acted on, when
	// recoverable from the source.
	PostSnippet string `json:"post_snippet" db:"post_snippet"`

	// OccurredAt is the source-reported event time. Zero when the source
	// timestamp was missing or malformed.
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`

	// Source tags the producing adapter, for diagnostics only.
	Source SourceType `json:"source" db:"source"`
}

// When renders OccurredAt for display, with an explicit marker for
// timestamps the source did not provide in a parseable form.
func (n Notification) When() string {
	if n.OccurredAt.IsZero() {
		return "unknown"
	}
	return n.OccurredAt.Format("2006-01-02 15:04")
}

// DeriveID builds a stable notification ID by hashing the given
// source-specific parts. The same parts always produce the same ID, so
// deduplication holds across runs.
func DeriveID(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// Truncate shortens s to at most max bytes, appending an ellipsis when
// anything was cut.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
