package services

import (
	"strings"
	"testing"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

func TestDecisionPolicyThreshold(t *testing.T) {
	p := NewDecisionPolicy(60)
	sentence := &domain.Sentence{Text: "short sentence"}

	candidates := []domain.Candidate{
		{AttackObjectID: "obj-1", Confidence: 95},
		{AttackObjectID: "obj-2", Confidence: 60}, // exactly at threshold
		{AttackObjectID: "obj-3", Confidence: 59.9},
		{AttackObjectID: "obj-4", Confidence: 5},
	}

	d := p.Decide(sentence, candidates)
	if d.SkippedOverflow {
		t.Fatal("short sentence marked as overflow")
	}
	if len(d.Accepted) != 2 {
		t.Fatalf("expected 2 accepted, got %d", len(d.Accepted))
	}
	if d.Accepted[0].AttackObjectID != "obj-1" || d.Accepted[1].AttackObjectID != "obj-2" {
		t.Errorf("unexpected accepted set: %+v", d.Accepted)
	}
}

func TestDecisionPolicyKeepsTies(t *testing.T) {
	p := NewDecisionPolicy(50)
	sentence := &domain.Sentence{Text: "tie case"}

	candidates := []domain.Candidate{
		{AttackObjectID: "obj-1", Confidence: 50},
		{AttackObjectID: "obj-2", Confidence: 50},
		{AttackObjectID: "obj-3", Confidence: 50},
	}

	d := p.Decide(sentence, candidates)
	if len(d.Accepted) != 3 {
		t.Errorf("expected all equal-confidence candidates kept, got %d", len(d.Accepted))
	}
}

func TestDecisionPolicyOverflow(t *testing.T) {
	p := NewDecisionPolicy(50)
	sentence := &domain.Sentence{Text: strings.Repeat("x", domain.SentenceOverflowLimit+1)}

	d := p.Decide(sentence, []domain.Candidate{{AttackObjectID: "obj-1", Confidence: 99}})
	if !d.SkippedOverflow {
		t.Error("oversized sentence not skipped")
	}
	if len(d.Accepted) != 0 {
		t.Errorf("overflow sentence got mappings: %+v", d.Accepted)
	}
}

func TestDecisionPolicyDefaultThreshold(t *testing.T) {
	if got := NewDecisionPolicy(0).Threshold(); got != DefaultConfidenceThreshold {
		t.Errorf("expected default threshold, got %v", got)
	}
	if got := NewDecisionPolicy(-3).Threshold(); got != DefaultConfidenceThreshold {
		t.Errorf("expected default threshold for negative, got %v", got)
	}
	if got := NewDecisionPolicy(72.5).Threshold(); got != 72.5 {
		t.Errorf("expected explicit threshold kept, got %v", got)
	}
}

func TestDecisionPolicyNoCandidates(t *testing.T) {
	p := NewDecisionPolicy(50)
	d := p.Decide(&domain.Sentence{Text: "nothing matched"}, nil)
	if d.SkippedOverflow || len(d.Accepted) != 0 {
		t.Errorf("expected empty decision, got %+v", d)
	}
}
