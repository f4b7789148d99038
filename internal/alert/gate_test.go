package alert

import (
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/flipwatch/internal/detect"
	"github.com/abelbrown/flipwatch/internal/source"
	"github.com/abelbrown/flipwatch/internal/store"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// testClock is a settable clock for driving the gate in tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func candidate(identity string, kind detect.Kind) detect.Candidate {
	return detect.Candidate{
		Identity: identity,
		Kind:     kind,
		StmtA: source.Statement{
			ID: "t1", Text: "bitcoin to the moon, buy now",
			Timestamp: baseTime, Likes: 200,
		},
		StmtB: source.Statement{
			ID: "t2", Text: "bitcoin is crashing, sell everything",
			Timestamp: baseTime.Add(5 * time.Minute), Likes: 50,
		},
		DetectedAt: baseTime.Add(5 * time.Minute),
	}
}

func newTestGate(t *testing.T, cooldown time.Duration) (*Gate, *store.Store, *testClock) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &testClock{now: baseTime}
	return NewGateWithClock(st, cooldown, clock.Now), st, clock
}

func TestAdmitPersistsAlert(t *testing.T) {
	gate, st, _ := newTestGate(t, 30*time.Minute)

	a, err := gate.Admit(candidate("alice", detect.KindSentimentShift))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected an admitted alert, got suppression")
	}
	if a.ID == "" {
		t.Error("alert should have a generated id")
	}
	if a.Delivered {
		t.Error("new alert must start with delivered=false")
	}
	if a.Severity != string(detect.SeverityHigh) {
		t.Errorf("severity = %q, want high (likes 200 > 100)", a.Severity)
	}
	if !a.CreatedAt.Equal(baseTime) {
		t.Errorf("created_at = %v, want gate clock %v", a.CreatedAt, baseTime)
	}

	count, _ := st.Count()
	if count != 1 {
		t.Errorf("store count = %d, want 1", count)
	}
}

func TestAdmitSuppressesWithinCooldown(t *testing.T) {
	gate, st, clock := newTestGate(t, 30*time.Minute)

	first, err := gate.Admit(candidate("alice", detect.KindSentimentShift))
	if err != nil || first == nil {
		t.Fatalf("first Admit = (%v, %v), want admitted", first, err)
	}

	clock.Advance(5 * time.Minute)
	second, err := gate.Admit(candidate("alice", detect.KindSentimentShift))
	if err != nil {
		t.Fatalf("second Admit failed: %v", err)
	}
	if second != nil {
		t.Error("second candidate within cooldown should be suppressed")
	}

	count, _ := st.Count()
	if count != 1 {
		t.Errorf("store count = %d, want exactly 1 persisted alert", count)
	}
}

func TestAdmitAllowsAfterCooldown(t *testing.T) {
	gate, st, clock := newTestGate(t, 30*time.Minute)

	if a, err := gate.Admit(candidate("alice", detect.KindSentimentShift)); err != nil || a == nil {
		t.Fatalf("first Admit = (%v, %v), want admitted", a, err)
	}

	clock.Advance(31 * time.Minute)
	a, err := gate.Admit(candidate("alice", detect.KindSentimentShift))
	if err != nil {
		t.Fatalf("Admit after cooldown failed: %v", err)
	}
	if a == nil {
		t.Fatal("candidate after cooldown expiry should be admitted")
	}

	count, _ := st.Count()
	if count != 2 {
		t.Errorf("store count = %d, want 2", count)
	}
}

// Cooldown keys are (identity, kind): a different kind or a different
// identity is never suppressed by an unrelated alert.
func TestAdmitCooldownScope(t *testing.T) {
	gate, st, clock := newTestGate(t, 30*time.Minute)

	if a, err := gate.Admit(candidate("alice", detect.KindSentimentShift)); err != nil || a == nil {
		t.Fatalf("seed Admit = (%v, %v), want admitted", a, err)
	}
	clock.Advance(time.Minute)

	if a, err := gate.Admit(candidate("alice", detect.KindTopicShift)); err != nil || a == nil {
		t.Errorf("different kind.Admit = (%v, %v), want admitted", a, err)
	}
	if a, err := gate.Admit(candidate("bob", detect.KindSentimentShift)); err != nil || a == nil {
		t.Errorf("different identity Admit = (%v, %v), want admitted", a, err)
	}

	count, _ := st.Count()
	if count != 3 {
		t.Errorf("store count = %d, want 3", count)
	}
}

// Cooldown state lives in the store, not the gate: a new gate over the
// same database must still suppress.
func TestCooldownSurvivesGateRestart(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer st.Close()

	clock := &testClock{now: baseTime}
	gate1 := NewGateWithClock(st, 30*time.Minute, clock.Now)
	if a, err := gate1.Admit(candidate("alice", detect.KindSentimentShift)); err != nil || a == nil {
		t.Fatalf("seed Admit = (%v, %v), want admitted", a, err)
	}

	clock.Advance(5 * time.Minute)
	gate2 := NewGateWithClock(st, 30*time.Minute, clock.Now)
	a, err := gate2.Admit(candidate("alice", detect.KindSentimentShift))
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if a != nil {
		t.Error("fresh gate over same store should still suppress within cooldown")
	}
}

func TestAdmitConcurrentSameIdentity(t *testing.T) {
	gate, st, _ := newTestGate(t, 30*time.Minute)

	const n = 10
	results := make(chan *store.Alert, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			a, err := gate.Admit(candidate("alice", detect.KindSentimentShift))
			results <- a
			errs <- err
		}()
	}

	admitted := 0
	for i := 0; i < n; i++ {
		if a := <-results; a != nil {
			admitted++
		}
		if err := <-errs; err != nil {
			t.Errorf("Admit failed: %v", err)
		}
	}

	if admitted != 1 {
		t.Errorf("%d candidates admitted, want exactly 1 (check-then-append must serialize)", admitted)
	}
	count, _ := st.Count()
	if count != 1 {
		t.Errorf("store count = %d, want 1", count)
	}
}
