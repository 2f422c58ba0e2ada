package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*PlainText)(nil)

// PlainText handles text/* uploads: the bytes are the text.
type PlainText struct{}

// NewPlainText creates the plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

func (e *PlainText) Name() string { return "plaintext" }

func (e *PlainText) SupportedTypes() []string {
	return []string{"text/*", "application/json"}
}

func (e *PlainText) Priority() int { return 10 }

func (e *PlainText) Extract(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", domain.NewParseError("extract", fmt.Errorf("%s is not valid UTF-8 text", name))
	}
	return strings.TrimSpace(string(content)), nil
}
