// Package detect finds contradictory statement pairs for one identity.
//
// Detection is purely lexical: the pairwise walk compares coarse stance
// signals and per-topic sentiment from the lexicon package. Candidates
// carry no severity; scoring happens after detection.
package detect

import (
	"sort"
	"time"

	"github.com/abelbrown/flipwatch/internal/lexicon"
	"github.com/abelbrown/flipwatch/internal/source"
)

// Kind is the contradiction category of a candidate.
type Kind string

const (
	KindSentimentShift Kind = "sentiment-shift"
	KindTopicShift     Kind = "topic-shift"
)

// Stance is the coarse classification of one statement.
type Stance string

const (
	StanceBullish Stance = "bullish"
	StanceBearish Stance = "bearish"
	StanceNeutral Stance = "neutral"
	StanceMixed   Stance = "mixed"
)

// Candidate is an unscored contradiction found between two statements.
// Consumed immediately by the severity scorer and the cooldown gate;
// never persisted directly.
type Candidate struct {
	Identity   string
	Kind       Kind
	Topic      string // topic-shift only
	StmtA      source.Statement
	StmtB      source.Statement
	StanceA    Stance
	StanceB    Stance
	DetectedAt time.Time
}

// Detector runs the pairwise contradiction rules over one identity's
// statements. Safe for concurrent use: all state is read-only.
type Detector struct {
	lex lexicon.Lexicon
	now func() time.Time
}

// New creates a Detector using the given lexicon.
func New(lex lexicon.Lexicon) *Detector {
	return &Detector{lex: lex, now: time.Now}
}

// NewWithClock allows injecting a clock (for testing).
func NewWithClock(lex lexicon.Lexicon, now func() time.Time) *Detector {
	return &Detector{lex: lex, now: now}
}

// Detect enumerates every statement pair and applies the contradiction
// rules in priority order: sentiment-shift first, then topic-shift.
// A pair emits at most one candidate. Fewer than two statements is not
// an error - there is simply nothing to compare.
//
// O(n^2) in statements, which is fine: the upstream fetch limit bounds
// n to tens per sweep.
func (d *Detector) Detect(identity string, stmts []source.Statement) []Candidate {
	if len(stmts) < 2 {
		return nil
	}

	// Work on a copy sorted newest-first; the input is a read-only view
	// owned by the source.
	sorted := make([]source.Statement, len(stmts))
	copy(sorted, stmts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	var candidates []Candidate
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if c, ok := d.comparePair(identity, sorted[i], sorted[j]); ok {
				candidates = append(candidates, c)
			}
		}
	}
	return candidates
}

// comparePair applies the two contradiction rules to one pair.
func (d *Detector) comparePair(identity string, a, b source.Statement) (Candidate, bool) {
	stanceA := d.stanceOf(a.Text)
	stanceB := d.stanceOf(b.Text)

	// Rule 1: hard stance flip between bullish-only and bearish-only.
	if (stanceA == StanceBullish && stanceB == StanceBearish) ||
		(stanceA == StanceBearish && stanceB == StanceBullish) {
		return Candidate{
			Identity:   identity,
			Kind:       KindSentimentShift,
			StmtA:      a,
			StmtB:      b,
			StanceA:    stanceA,
			StanceB:    stanceB,
			DetectedAt: d.now(),
		}, true
	}

	// Rule 2: opposite sentiment about the same topic.
	for _, topic := range d.lex.Topics {
		if !d.lex.MentionsTopic(a.Text, topic) || !d.lex.MentionsTopic(b.Text, topic) {
			continue
		}
		scoreA := d.lex.TopicSentiment(a.Text)
		scoreB := d.lex.TopicSentiment(b.Text)
		if oppositeSigns(scoreA, scoreB) {
			return Candidate{
				Identity:   identity,
				Kind:       KindTopicShift,
				Topic:      topic,
				StmtA:      a,
				StmtB:      b,
				StanceA:    stanceA,
				StanceB:    stanceB,
				DetectedAt: d.now(),
			}, true
		}
	}

	return Candidate{}, false
}

// stanceOf collapses the lexicon's keyword flags into a Stance label.
func (d *Detector) stanceOf(text string) Stance {
	bullish, bearish := d.lex.Stance(text)
	switch {
	case bullish && bearish:
		return StanceMixed
	case bullish:
		return StanceBullish
	case bearish:
		return StanceBearish
	default:
		return StanceNeutral
	}
}

// oppositeSigns reports whether both scores are non-zero with opposite
// sign, i.e. both magnitudes clear the minimum threshold of 1.
func oppositeSigns(a, b int) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}
