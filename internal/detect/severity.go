package detect

import "github.com/abelbrown/flipwatch/internal/source"

// Severity is the alerting weight assigned to a candidate.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// highEngagement is the likes+shares count above which a contradiction
// is considered high severity.
const highEngagement = 100

// Score classifies a candidate's severity from the engagement of its
// two statements. Deterministic and total.
func Score(a, b source.Statement) Severity {
	engagement := a.Engagement()
	if b.Engagement() > engagement {
		engagement = b.Engagement()
	}
	if engagement > highEngagement {
		return SeverityHigh
	}
	return SeverityMedium
}
