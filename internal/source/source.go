// Package source defines the post provider boundary for flipwatch.
//
// The engine never talks to a social platform directly; it consumes an
// ordered batch of recent statements per tracked identity through the
// Source interface and treats provider failures per-identity.
package source

import (
	"context"
	"errors"
	"time"
)

// ErrSourceUnavailable indicates a network or provider failure.
// The identity is retried on the next sweep, never mid-sweep.
var ErrSourceUnavailable = errors.New("post source unavailable")

// ErrRateLimited indicates provider backpressure. The identity is
// skipped for the current sweep.
var ErrRateLimited = errors.New("post source rate limited")

// Statement is a read-only view of one post fetched from the provider.
// Owned by the source; the engine holds it only for the duration of a sweep.
type Statement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
	Shares    int       `json:"shares"`
	Replies   int       `json:"replies"`
}

// Engagement is the score used by severity classification.
// Replies are deliberately excluded.
func (s Statement) Engagement() int {
	return s.Likes + s.Shares
}

// Source retrieves recent statements for a tracked identity.
// Implementations must respect context cancellation and report failures
// as ErrSourceUnavailable or ErrRateLimited (possibly wrapped).
type Source interface {
	RecentStatements(ctx context.Context, handle string, limit int) ([]Statement, error)
}
