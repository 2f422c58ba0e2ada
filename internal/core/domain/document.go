package domain

import "time"

// Document is an uploaded file blob awaiting, or referenced by, processing.
// Immutable once stored.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`      // original filename
	MimeType  string    `json:"mime_type"` // as provided by the uploader
	Content   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a document with a generated ID and current timestamps.
func NewDocument(name, mimeType string, content []byte) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        GenerateID(),
		Name:      name,
		MimeType:  mimeType,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
