// Package extract turns uploaded files into plain text. Extractors register
// by MIME type; the registry selects the highest-priority match.
package extract

import (
	"sort"
	"strings"
	"sync"

	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry with priority-based selection.
// When multiple extractors match a MIME type, the highest priority one is used.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.TextExtractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.TextExtractor, 0),
	}
}

// Default returns a registry with every built-in extractor registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewPlainText())
	r.Register(NewHTML())
	r.Register(NewDocx())
	r.Register(NewPDF())
	return r
}

// Register registers an extractor.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
}

// Get retrieves the best-matching extractor for a MIME type.
// Returns nil if no extractor is registered for the type.
func (r *Registry) Get(mimeType string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.TextExtractor
	for _, e := range r.extractors {
		if matchesMIMEType(e.SupportedTypes(), mimeType) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches[0]
}

// List returns all registered MIME types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, e := range r.extractors {
		for _, t := range e.SupportedTypes() {
			typeSet[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// matchesMIMEType checks if any of the supported types match the given MIME
// type. Supports wildcard matching (e.g., "text/*" matches "text/plain").
// Parameters after ";" are ignored.
func matchesMIMEType(supported []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	for _, s := range supported {
		s = strings.ToLower(s)
		if s == mimeType {
			return true
		}
		if strings.HasSuffix(s, "/*") {
			prefix := strings.TrimSuffix(s, "*")
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}
	return false
}
