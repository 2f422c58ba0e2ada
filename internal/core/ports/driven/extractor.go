package driven

import "context"

// TextExtractor extracts plain text from one uploaded file format.
type TextExtractor interface {
	// Extract returns the document's plain text. A file the extractor
	// claims to support but cannot read yields *domain.PipelineError with
	// kind document_parse.
	Extract(ctx context.Context, name, mimeType string, content []byte) (string, error)

	// SupportedTypes returns MIME types this extractor handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Priority returns the extractor priority (higher = more specific).
	// Priority ranges:
	//   50-89: Format-specific (DOCX, PDF, HTML)
	//   10-49: Generic (plain text)
	//   1-9:   Fallback
	Priority() int

	// Name returns the extractor name for logging.
	Name() string
}

// ExtractorRegistry manages text extractors.
// When multiple extractors match a MIME type, the highest priority one is used.
type ExtractorRegistry interface {
	// Get retrieves the best-matching extractor for a MIME type.
	// Returns nil if no extractor is registered for the type.
	Get(mimeType string) TextExtractor

	// Register registers an extractor.
	Register(extractor TextExtractor)

	// List returns all registered MIME types.
	List() []string
}
