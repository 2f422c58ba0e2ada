package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/veridian-labs/ttpmap-core/internal/core/domain"
	"github.com/veridian-labs/ttpmap-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextExtractor = (*Docx)(nil)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Docx extracts paragraph text from Word documents. A .docx file is a zip
// container; the body lives in word/document.xml as WordprocessingML, where
// <w:p> is a paragraph and <w:t> holds the runs of text.
type Docx struct{}

// NewDocx creates the Word-document extractor.
func NewDocx() *Docx {
	return &Docx{}
}

func (e *Docx) Name() string { return "docx" }

func (e *Docx) SupportedTypes() []string {
	return []string{docxMimeType, "application/msword"}
}

func (e *Docx) Priority() int { return 60 }

func (e *Docx) Extract(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	if !isZip(content) {
		return "", domain.NewParseError("extract",
			fmt.Errorf("%s claims a Word document but is not a valid zip container", name))
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", domain.NewParseError("extract", fmt.Errorf("open %s: %w", name, err))
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", domain.NewParseError("extract", fmt.Errorf("open document.xml in %s: %w", name, err))
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", domain.NewParseError("extract", fmt.Errorf("read document.xml in %s: %w", name, err))
		}
		break
	}
	if docXML == nil {
		return "", domain.NewParseError("extract",
			fmt.Errorf("%s has no word/document.xml entry", name))
	}

	text, err := wordprocessingText(docXML)
	if err != nil {
		return "", domain.NewParseError("extract", fmt.Errorf("parse %s: %w", name, err))
	}
	return text, nil
}

// wordprocessingText walks the WordprocessingML token stream, collecting
// character data inside <w:t> elements and emitting a newline per paragraph.
func wordprocessingText(docXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))

	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
	)

	flush := func() {
		p := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if p == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(p)
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte(' ')
			case "br":
				paragraph.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
	flush()

	return out.String(), nil
}

func isZip(b []byte) bool {
	// ZIP local file header: PK\x03\x04
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}
