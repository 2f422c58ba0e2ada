package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*HTML)(nil)

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	blockRe  = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|br)>|<br\s*/?>`)
)

// HTML strips markup from saved web pages before segmentation.
type HTML struct{}

// NewHTML creates the HTML extractor.
func NewHTML() *HTML {
	return &HTML{}
}

func (e *HTML) Name() string { return "html" }

func (e *HTML) SupportedTypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

func (e *HTML) Priority() int { return 50 }

func (e *HTML) Extract(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", domain.NewParseError("extract", fmt.Errorf("%s is not valid UTF-8 HTML", name))
	}

	s := string(content)
	s = scriptRe.ReplaceAllString(s, " ")
	// Block-level closers become newlines so segmentation sees boundaries.
	s = blockRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	).Replace(s)

	return collapseBlankLines(s), nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
