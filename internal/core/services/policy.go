package services

import "github.com/veridian-labs/ttpmap-core/internal/core/domain"

// DefaultConfidenceThreshold is the accept cutoff for candidate mappings.
const DefaultConfidenceThreshold = 50.0

// DecisionPolicy converts raw classifier candidates into the mappings that
// get persisted. A candidate is accepted iff its confidence is at or above
// the threshold; equal confidences are all kept. The policy never sets a
// disposition: sentences start pending human review regardless of outcome.
type DecisionPolicy struct {
	threshold float64
}

// NewDecisionPolicy creates a policy with the given confidence threshold.
// A non-positive threshold falls back to the default.
func NewDecisionPolicy(threshold float64) *DecisionPolicy {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &DecisionPolicy{threshold: threshold}
}

// Threshold returns the accept cutoff.
func (p *DecisionPolicy) Threshold() float64 {
	return p.threshold
}

// Decide applies the policy to one sentence's candidates. Overflow sentences
// are exempted from mapping entirely; the skip marker travels with the job
// result so callers can warn the user, and is never stored on the entity.
func (p *DecisionPolicy) Decide(sentence *domain.Sentence, candidates []domain.Candidate) domain.Decision {
	if sentence.TooLong() {
		return domain.Decision{SkippedOverflow: true}
	}

	accepted := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence >= p.threshold {
			accepted = append(accepted, c)
		}
	}
	return domain.Decision{Accepted: accepted}
}
