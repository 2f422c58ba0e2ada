package domain

import (
	"fmt"
	"time"
)

// Disposition is the human reviewer's verdict on a sentence's proposed
// mappings. A nil Disposition means pending review; the pipeline never sets
// accept or reject on its own.
type Disposition string

const (
	DispositionAccept Disposition = "accept"
	DispositionReject Disposition = "reject"
)

// SentenceOverflowLimit is the text length above which a sentence is exempted
// from classification. Overflow sentences get no mappings.
const SentenceOverflowLimit = 512

// Report is the aggregate root for one processing run. It owns its Sentences
// and Indicators; deleting a report cascades to both.
type Report struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DocumentID *string   `json:"document_id,omitempty"` // nil for raw-text reports
	Text       string    `json:"text"`                  // full extracted text
	MLModel    string    `json:"ml_model"`              // model version that produced the mappings
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Sentence belongs to exactly one Report. Order values within a report are
// dense 0..N-1 in source order. It owns its Mappings.
type Sentence struct {
	ID          string       `json:"id"`
	ReportID    string       `json:"report_id"`
	Text        string       `json:"text"`
	Order       int          `json:"order"`
	Disposition *Disposition `json:"disposition"` // nil = pending review
	DocumentID  *string      `json:"document_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TooLong reports whether the sentence exceeds the overflow limit.
func (s *Sentence) TooLong() bool {
	return len(s.Text) > SentenceOverflowLimit
}

// Mapping ties one Sentence to one AttackObject with a model confidence.
type Mapping struct {
	ID            string    `json:"id"`
	ReportID      string    `json:"report_id"`
	SentenceID    string    `json:"sentence_id"`
	AttackObjectID string   `json:"attack_object_id"`
	Confidence    float64   `json:"confidence"` // 0..100
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IndicatorType enumerates the IoC kinds extracted from report text.
type IndicatorType string

const (
	IndicatorMD5    IndicatorType = "MD5"
	IndicatorSHA1   IndicatorType = "SHA1"
	IndicatorSHA256 IndicatorType = "SHA256"
	IndicatorIPv4   IndicatorType = "IPv4"
	IndicatorDomain IndicatorType = "Domain"
	IndicatorURL    IndicatorType = "URL"
	IndicatorEmail  IndicatorType = "Email"
)

// Indicator is an IoC found in a report's text. Extracted by pattern matching,
// independent of the ML mapping path; not ordered.
type Indicator struct {
	ID       string        `json:"id"`
	ReportID string        `json:"report_id"`
	Type     IndicatorType `json:"indicator_type"`
	Value    string        `json:"value"`
}

// ReportGraph is a fully materialized report aggregate: the report, its
// sentences in order, their mappings, and its indicators. Assembled in memory
// and persisted in a single transaction.
type ReportGraph struct {
	Report     *Report      `json:"report"`
	Sentences  []*Sentence  `json:"sentences"`
	Mappings   []*Mapping   `json:"mappings"`
	Indicators []*Indicator `json:"indicators"`
}

// NewReport creates a report with a generated ID and current timestamps.
func NewReport(name, text, mlModel string) *Report {
	now := time.Now().UTC()
	return &Report{
		ID:        GenerateID(),
		Name:      name,
		Text:      text,
		MLModel:   mlModel,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the graph invariants before persistence: sentence orders are
// exactly 0..N-1, every mapping references a sentence in the graph, and every
// confidence is within [0,100].
func (g *ReportGraph) Validate() error {
	if g.Report == nil {
		return fmt.Errorf("%w: graph has no report", ErrInvalidInput)
	}

	seen := make(map[int]struct{}, len(g.Sentences))
	ids := make(map[string]struct{}, len(g.Sentences))
	for _, s := range g.Sentences {
		if s.ReportID != g.Report.ID {
			return fmt.Errorf("%w: sentence %s belongs to report %s", ErrInvalidInput, s.ID, s.ReportID)
		}
		if s.Order < 0 || s.Order >= len(g.Sentences) {
			return fmt.Errorf("%w: sentence order %d out of range", ErrInvalidInput, s.Order)
		}
		if _, dup := seen[s.Order]; dup {
			return fmt.Errorf("%w: duplicate sentence order %d", ErrInvalidInput, s.Order)
		}
		seen[s.Order] = struct{}{}
		ids[s.ID] = struct{}{}
	}

	for _, m := range g.Mappings {
		if _, ok := ids[m.SentenceID]; !ok {
			return fmt.Errorf("%w: mapping %s references unknown sentence %s", ErrInvalidInput, m.ID, m.SentenceID)
		}
		if m.Confidence < 0 || m.Confidence > 100 {
			return fmt.Errorf("%w: mapping confidence %v outside [0,100]", ErrInvalidInput, m.Confidence)
		}
	}

	return nil
}

// SentencesInOrder returns the graph's sentences sorted by Order without
// mutating the stored slice.
func (g *ReportGraph) SentencesInOrder() []*Sentence {
	out := make([]*Sentence, len(g.Sentences))
	copy(out, g.Sentences)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Order > out[j].Order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
