package domain

// TrainingCorpus is the bootstrap/evaluation corpus format: pre-mapped
// reports used to train the classifier or seed a fresh installation.
type TrainingCorpus struct {
	Reports []TrainingReport `json:"reports"`
}

// TrainingReport mirrors the persisted report schema with sentences and
// mappings inlined. Mappings reference sentences by index into Sentences.
type TrainingReport struct {
	Name      string             `json:"name"`
	Text      string             `json:"text"`
	MLModel   string             `json:"ml_model"`
	CreatedAt string             `json:"created_on,omitempty"`
	UpdatedAt string             `json:"updated_on,omitempty"`
	Sentences []TrainingSentence `json:"sentences"`
	Mappings  []TrainingMapping  `json:"mappings"`
}

// TrainingSentence is one sentence of a training report.
type TrainingSentence struct {
	Text        string  `json:"text"`
	Order       int     `json:"order"`
	Disposition *string `json:"disposition"` // accept, reject, or null
}

// TrainingMapping ties a sentence (by index) to an ATT&CK technique id.
type TrainingMapping struct {
	Sentence   int     `json:"sentence"`
	AttackID   string  `json:"attack_id"`
	Confidence float64 `json:"confidence"`
}

// Example is one labelled sample for classifier training: sentence text plus
// the ATT&CK technique ids it maps to.
type Example struct {
	Text      string   `json:"text"`
	AttackIDs []string `json:"attack_ids"`
}

// AcceptedExamples flattens the corpus into training examples, keeping only
// sentences whose disposition is accept and that carry at least one mapping.
func (c *TrainingCorpus) AcceptedExamples() []Example {
	var out []Example
	for _, r := range c.Reports {
		byIndex := make(map[int][]string)
		for _, m := range r.Mappings {
			byIndex[m.Sentence] = append(byIndex[m.Sentence], m.AttackID)
		}
		for i, s := range r.Sentences {
			if s.Disposition == nil || *s.Disposition != string(DispositionAccept) {
				continue
			}
			ids := byIndex[i]
			if len(ids) == 0 {
				continue
			}
			out = append(out, Example{Text: s.Text, AttackIDs: ids})
		}
	}
	return out
}
