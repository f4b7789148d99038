// Package alert turns surviving candidates into persisted alerts.
//
// The Gate is the single choke point between detection and the store:
// every candidate passes through its cooldown check before an alert
// record may be appended. This is what prevents alert storms when an
// identity's statements flip repeatedly within a short span.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/flipwatch/internal/detect"
	"github.com/abelbrown/flipwatch/internal/logging"
	"github.com/abelbrown/flipwatch/internal/store"
)

// DefaultCooldown is the minimum spacing between two alerts of the same
// kind for the same identity.
const DefaultCooldown = 30 * time.Minute

// Gate suppresses near-duplicate candidates within the cooldown window,
// keyed on (identity, kind).
//
// Thread-safety: the internal mutex serializes the check-then-append
// sequence, so two candidates for the same identity can never both pass
// the cooldown check before either is written. Cross-identity candidates
// serialize too, which is stricter than required but keeps the gate
// trivially correct.
type Gate struct {
	mu       sync.Mutex
	store    *store.Store
	cooldown time.Duration
	now      func() time.Time
}

// NewGate creates a Gate over the given store.
// cooldown <= 0 selects DefaultCooldown.
func NewGate(st *store.Store, cooldown time.Duration) *Gate {
	return NewGateWithClock(st, cooldown, time.Now)
}

// NewGateWithClock allows injecting a clock (for testing).
func NewGateWithClock(st *store.Store, cooldown time.Duration, now func() time.Time) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{store: st, cooldown: cooldown, now: now}
}

// Admit checks a candidate against the alert history and, if it survives
// suppression, persists and returns a new alert with delivered=false.
// A suppressed candidate returns (nil, nil): dropping it is the expected
// outcome, not a failure.
//
// The gate's clock is the single timestamp source for both the cooldown
// comparison and the new record's created_at, so history and check can
// never drift against each other.
func (g *Gate) Admit(cand detect.Candidate) (*store.Alert, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	since := now.Add(-g.cooldown)

	recent, err := g.store.HasRecentAlert(cand.Identity, string(cand.Kind), since)
	if err != nil {
		return nil, fmt.Errorf("cooldown check: %w", err)
	}
	if recent {
		logging.Debug("candidate suppressed by cooldown",
			"identity", cand.Identity,
			"kind", string(cand.Kind),
			"cooldown", g.cooldown)
		return nil, nil
	}

	a := store.Alert{
		ID:         uuid.NewString(),
		Identity:   cand.Identity,
		Kind:       string(cand.Kind),
		Topic:      cand.Topic,
		Stmt1ID:    cand.StmtA.ID,
		Stmt1Text:  cand.StmtA.Text,
		Stmt1Time:  cand.StmtA.Timestamp,
		Stmt2ID:    cand.StmtB.ID,
		Stmt2Text:  cand.StmtB.Text,
		Stmt2Time:  cand.StmtB.Timestamp,
		Severity:   string(detect.Score(cand.StmtA, cand.StmtB)),
		DetectedAt: cand.DetectedAt,
		CreatedAt:  now,
		Delivered:  false,
	}

	if err := g.store.Append(a); err != nil {
		// Never drop a candidate silently: admission failed, say so.
		logging.Error("alert append failed",
			"identity", cand.Identity,
			"kind", string(cand.Kind),
			"error", err)
		return nil, fmt.Errorf("persist alert: %w", err)
	}

	logging.Info("alert admitted",
		"id", a.ID,
		"identity", a.Identity,
		"kind", a.Kind,
		"severity", a.Severity)
	return &a, nil
}
