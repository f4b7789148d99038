// Package lexicon provides keyword-based stance and sentiment signals.
//
// Everything here is pure lookup against fixed keyword sets: no model
// calls, no allocation-heavy parsing, instant processing on every
// statement. The word lists are data, not behavior - swap them out
// without touching the classification rules.
package lexicon

import "strings"

// Lexicon holds the keyword sets used for classification.
// All keywords must be lowercase; matching is case-insensitive substring.
type Lexicon struct {
	Bullish  []string
	Bearish  []string
	Positive []string
	Negative []string
	Topics   []string
}

// Default returns the built-in market vocabulary.
func Default() Lexicon {
	return Lexicon{
		// "long" and "short" are deliberately absent: substring
		// matching would light them up inside "strong" and "shortage".
		Bullish: []string{
			"to the moon", "moon", "bullish", "buy", "buying the dip",
			"rally", "pump", "breakout", "all time high", "undervalued",
			"accumulate", "going up",
		},
		Bearish: []string{
			"bearish", "sell", "dump", "crash", "collapse", "plummet",
			"bubble", "overvalued", "capitulation", "rug pull",
			"going down",
		},
		Positive: []string{
			"gain", "surge", "soar", "record high", "optimistic",
			"strong", "growth", "upgrade", "profit", "beat expectations",
		},
		Negative: []string{
			"loss", "plunge", "drop", "decline", "weak", "fear",
			"downgrade", "layoff", "lawsuit", "missed expectations",
		},
		Topics: []string{
			"bitcoin", "ethereum", "crypto", "stocks", "gold", "oil",
			"inflation", "fed", "tesla", "dollar", "bonds", "housing",
		},
	}
}

// Stance reports whether the text contains bullish and/or bearish
// keywords. Both flags false means neutral. Pure function, never fails.
func (l Lexicon) Stance(text string) (bullish, bearish bool) {
	lower := strings.ToLower(text)
	return containsAny(lower, l.Bullish), containsAny(lower, l.Bearish)
}

// TopicSentiment returns positive-keyword count minus negative-keyword
// count. Each keyword contributes at most once regardless of repetition.
func (l Lexicon) TopicSentiment(text string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, w := range l.Positive {
		if strings.Contains(lower, w) {
			score++
		}
	}
	for _, w := range l.Negative {
		if strings.Contains(lower, w) {
			score--
		}
	}
	return score
}

// MentionsTopic reports whether the text mentions the given topic keyword.
func (l Lexicon) MentionsTopic(text, topic string) bool {
	return strings.Contains(strings.ToLower(text), topic)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
