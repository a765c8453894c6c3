package splitter

import (
	"strings"

	"github.com/vanillarag/vanillarag/internal/core"
)

// defaultSeparators is the priority-ordered separator list: paragraph
// break, line break, sentence end, word boundary, hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Metadata identifies the source document a chunk was cut from.
type Metadata struct {
	DocID    string
	Filename string
	DocType  string
}

// Chunk is a bounded-size text segment with positional metadata.
type Chunk struct {
	Content  string
	DocID    string
	Filename string
	DocType  string
	Index    int // 0-based position within the split
	Total    int // number of chunks produced from the same text
}

// Splitter cuts raw text into overlapping bounded-size chunks by
// recursively splitting on a priority-ordered separator list.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New creates a splitter with the given chunk size and overlap.
func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

// Split cuts text into chunks stamped with metadata and their 0-based
// index plus the total chunk count. Empty or whitespace-only text yields
// no chunks.
func (s *Splitter) Split(text string, meta Metadata) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := s.splitText(text, s.separators)

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{
			Content:  p,
			DocID:    meta.DocID,
			Filename: meta.Filename,
			DocType:  meta.DocType,
		})
	}
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// SplitBatch applies Split independently to each text. When metas is
// non-nil its length must match texts.
func (s *Splitter) SplitBatch(texts []string, metas []Metadata) ([][]Chunk, error) {
	if metas != nil && len(metas) != len(texts) {
		return nil, core.Errorf(core.KindDocumentProcessing,
			"metadata count %d does not match text count %d", len(metas), len(texts))
	}

	results := make([][]Chunk, len(texts))
	for i, text := range texts {
		var meta Metadata
		if metas != nil {
			meta = metas[i]
		}
		results[i] = s.Split(text, meta)
	}
	return results, nil
}

// splitText recursively splits text on the first separator from
// separators that occurs in it, then merges the pieces back into chunks
// of at most chunkSize characters with chunkOverlap characters carried
// between consecutive chunks.
func (s *Splitter) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			remaining = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitKeepingSeparator(text, separator)

	var final []string
	var goods []string
	for _, piece := range splits {
		if len(piece) < s.chunkSize {
			goods = append(goods, piece)
			continue
		}
		// Piece too large: flush accumulated pieces, then recurse with
		// the remaining separators (or keep as-is at the last level).
		if len(goods) > 0 {
			final = append(final, s.mergePieces(goods)...)
			goods = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, remaining)...)
		}
	}
	if len(goods) > 0 {
		final = append(final, s.mergePieces(goods)...)
	}
	return final
}

// mergePieces packs small pieces into chunks no larger than chunkSize,
// keeping the trailing chunkOverlap characters of each emitted chunk as
// the head of the next one.
func (s *Splitter) mergePieces(pieces []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, p := range pieces {
		if total+len(p) > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			// Drop pieces from the front until within the overlap budget
			// and the new piece fits.
			for total > s.chunkOverlap || (total+len(p) > s.chunkSize && total > 0) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += len(p)
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on separator with the separator kept
// attached to the start of the following piece, so no characters are lost
// when pieces are merged back together. The empty separator splits into
// individual runes.
func splitKeepingSeparator(text, separator string) []string {
	if separator == "" {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = separator + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
