package domain

// Segment is one sentence produced by the segmenter, with its dense position
// index in source order.
type Segment struct {
	Text  string `json:"text"`
	Order int    `json:"order"`
}

// Candidate is one (technique, confidence) proposal from the classifier.
type Candidate struct {
	AttackObjectID string  `json:"attack_object_id"`
	Confidence     float64 `json:"confidence"` // 0..100
}

// Decision is the policy outcome for one sentence's candidates.
type Decision struct {
	// Accepted holds the candidates at or above the confidence threshold,
	// including all ties. Empty for overflow sentences.
	Accepted []Candidate

	// SkippedOverflow marks a sentence exempted from mapping because it
	// exceeded the length limit. Carried to the job result, never persisted.
	SkippedOverflow bool
}

// ModelInfo describes a trained classifier.
type ModelInfo struct {
	Version  string `json:"version"`
	Classes  int    `json:"classes"`
	Examples int    `json:"examples"`
}

// AssemblyResult summarizes one pipeline run for the submitting caller.
type AssemblyResult struct {
	ReportID          string `json:"report_id"`
	SentenceCount     int    `json:"sentence_count"`
	MappingCount      int    `json:"mapping_count"`
	IndicatorCount    int    `json:"indicator_count"`
	OverflowSentences []int  `json:"overflow_sentences,omitempty"` // orders skipped due to length
	ModelVersion      string `json:"model_version"`
}
