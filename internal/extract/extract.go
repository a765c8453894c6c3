// Package extract turns uploaded file bytes into plain text. Only
// text-like formats are handled here; binary formats (PDF, DOCX, images)
// belong to external extraction services.
package extract

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vanillarag/vanillarag/internal/core"
)

// Extractor converts raw file bytes into indexable text.
type Extractor interface {
	// Extract returns the extracted text and a document-type label.
	Extract(content []byte, filename string) (text string, docType string, err error)
	// IsSupported reports whether a filename has a handled extension.
	IsSupported(filename string) bool
}

// supported maps handled extensions to their document-type label.
var supported = map[string]string{
	".txt":  "text",
	".md":   "text",
	".csv":  "text",
	".json": "text",
	".py":   "text",
	".js":   "text",
	".ts":   "text",
	".html": "text",
	".css":  "text",
	".go":   "text",
}

// PlainText extracts UTF-8 text from plain-text files.
type PlainText struct{}

// NewPlainText creates a plain-text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

func (p *PlainText) IsSupported(filename string) bool {
	_, ok := supported[strings.ToLower(filepath.Ext(filename))]
	return ok
}

func (p *PlainText) Extract(content []byte, filename string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	docType, ok := supported[ext]
	if !ok {
		return "", "", core.Errorf(core.KindDocumentProcessing,
			"unsupported file type: %s", filename)
	}

	text := decode(content)
	if strings.TrimSpace(text) == "" {
		return "", "", core.Errorf(core.KindDocumentProcessing,
			"no text extracted from %s", filename)
	}
	return text, docType, nil
}

// decode interprets bytes as UTF-8, substituting the replacement rune for
// invalid sequences so one malformed byte cannot fail a whole document.
func decode(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	var b strings.Builder
	b.Grow(len(content))
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size == 1 {
			b.WriteRune('�')
		} else {
			b.WriteRune(r)
		}
		content = content[size:]
	}
	return b.String()
}
