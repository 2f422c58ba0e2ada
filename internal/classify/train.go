package classify

import (
	"fmt"
	"math"
	"sort"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
)

// Resolver maps an ATT&CK technique id ("T1552.005") to the catalog object id
// candidates should reference. Examples whose labels do not resolve are
// skipped and counted.
type Resolver func(attackID string) (string, bool)

// Train builds a naive Bayes model from labelled examples. An example with
// multiple labels contributes its tokens to every labelled class. Returns the
// model and the number of skipped examples (unresolvable label or no tokens).
func Train(version string, examples []domain.Example, resolve Resolver) (*Model, int, error) {
	if version == "" {
		return nil, 0, fmt.Errorf("%w: empty model version", domain.ErrInvalidInput)
	}

	type counts struct {
		objectID string
		tokens   map[string]int
		total    int
		docs     int
	}

	byAttackID := make(map[string]*counts)
	vocab := make(map[string]struct{})
	skipped := 0
	assignments := 0

	for _, ex := range examples {
		tokens := Tokenize(ex.Text)
		if len(tokens) == 0 {
			skipped++
			continue
		}
		used := false
		for _, attackID := range ex.AttackIDs {
			objectID, ok := resolve(attackID)
			if !ok {
				continue
			}
			used = true
			c := byAttackID[attackID]
			if c == nil {
				c = &counts{objectID: objectID, tokens: make(map[string]int)}
				byAttackID[attackID] = c
			}
			for _, tok := range tokens {
				c.tokens[tok]++
				c.total++
				vocab[tok] = struct{}{}
			}
			c.docs++
			assignments++
		}
		if !used {
			skipped++
		}
	}

	if len(byAttackID) == 0 {
		return nil, skipped, fmt.Errorf("%w: no trainable examples", domain.ErrInvalidInput)
	}

	attackIDs := make([]string, 0, len(byAttackID))
	for id := range byAttackID {
		attackIDs = append(attackIDs, id)
	}
	sort.Strings(attackIDs)

	vocabSize := len(vocab)
	classes := make([]classEntry, 0, len(attackIDs))
	for _, attackID := range attackIDs {
		c := byAttackID[attackID]
		denom := float64(c.total + vocabSize)
		ll := make(map[string]float64, len(c.tokens))
		for tok, n := range c.tokens {
			ll[tok] = math.Log(float64(n+1) / denom)
		}
		classes = append(classes, classEntry{
			AttackObjectID: c.objectID,
			AttackID:       attackID,
			LogPrior:       math.Log(float64(c.docs) / float64(assignments)),
			LogLikelihood:  ll,
			LogUnseen:      math.Log(1 / denom),
		})
	}

	return &Model{
		ModelVersion:   version,
		VocabularySize: vocabSize,
		TrainedOn:      len(examples) - skipped,
		Classes:        classes,
	}, skipped, nil
}
