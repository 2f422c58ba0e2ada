package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*PDF)(nil)

// PDF extracts plain text from PDF uploads.
type PDF struct{}

// NewPDF creates the PDF extractor.
func NewPDF() *PDF {
	return &PDF{}
}

func (e *PDF) Name() string { return "pdf" }

func (e *PDF) SupportedTypes() []string {
	return []string{"application/pdf"}
}

func (e *PDF) Priority() int { return 60 }

func (e *PDF) Extract(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	if !isPDF(content) {
		return "", domain.NewParseError("extract",
			fmt.Errorf("%s claims a PDF but is missing the %%PDF header", name))
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", domain.NewParseError("extract", fmt.Errorf("read %s: %w", name, err))
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", domain.NewParseError("extract", fmt.Errorf("extract text from %s: %w", name, err))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", domain.NewParseError("extract", fmt.Errorf("read text from %s: %w", name, err))
	}

	return buf.String(), nil
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}
