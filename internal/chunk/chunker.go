// Package chunk splits documents into overlapping chunks for embedding.
//
// The splitter prefers paragraph boundaries, falls back to sentence
// boundaries for oversized paragraphs, and hard-splits oversized sentences.
// Concatenating the pre-overlap segments of a document's chunks reproduces
// its body up to whitespace normalization.
package chunk

import (
	"strings"
	"unicode"

	"github.com/sitequery/sitequery/internal/model"
)

// Default chunking parameters.
const (
	// DefaultChunkSize is the target chunk size in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of trailing characters of the previous
	// segment prepended to the next chunk.
	DefaultOverlap = 200
)

// Options configures the chunker.
type Options struct {
	// ChunkSize is the target chunk size T in characters.
	ChunkSize int

	// Overlap is the overlap O in characters between consecutive chunks.
	Overlap int
}

// Chunker splits documents with overlap while preserving parent metadata.
type Chunker struct {
	opts Options
}

// New creates a chunker. Zero or invalid options fall back to defaults.
func New(opts Options) *Chunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = DefaultOverlap
		if opts.Overlap >= opts.ChunkSize {
			opts.Overlap = opts.ChunkSize / 5
		}
	}
	return &Chunker{opts: opts}
}

// Split chunks a document. Every returned chunk is non-empty, ordinals are
// contiguous starting at 0, and each chunk carries the parent metadata the
// retriever needs for scoring.
func (c *Chunker) Split(doc *model.Document) []*model.Chunk {
	segments := c.segments(doc.Body)
	if len(segments) == 0 {
		return nil
	}

	chunks := make([]*model.Chunk, 0, len(segments))
	for i, seg := range segments {
		text := seg
		if i > 0 && c.opts.Overlap > 0 {
			text = overlapTail(segments[i-1], c.opts.Overlap) + " " + seg
		}
		chunks = append(chunks, &model.Chunk{
			ID:          model.ChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			Ordinal:     i,
			Text:        text,
			Title:       doc.Title,
			Type:        doc.Type,
			URL:         doc.URL,
			PublishedAt: doc.PublishedAt,
			Categories:  doc.Categories,
			Tags:        doc.Tags,
		})
	}
	return chunks
}

// segments produces the non-overlapping base segments of the body.
func (c *Chunker) segments(body string) []string {
	pieces := c.pieces(body)
	if len(pieces) == 0 {
		return nil
	}

	// Greedily pack pieces into segments of at most ChunkSize.
	var segments []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+1+len(p) > c.opts.ChunkSize {
			segments = append(segments, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(p)
	}
	if cur.Len() > 0 {
		segments = append(segments, cur.String())
	}
	return segments
}

// pieces breaks the body into units no longer than ChunkSize:
// paragraphs, then sentences, then hard splits.
func (c *Chunker) pieces(body string) []string {
	var out []string
	for _, para := range splitParagraphs(body) {
		if len(para) <= c.opts.ChunkSize {
			out = append(out, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if len(sent) <= c.opts.ChunkSize {
				out = append(out, sent)
				continue
			}
			out = append(out, hardSplit(sent, c.opts.ChunkSize)...)
		}
	}
	return out
}

// splitParagraphs splits on blank lines and normalizes inner whitespace.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = normalizeSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences splits a paragraph on sentence-ending punctuation
// followed by whitespace.
func splitSentences(para string) []string {
	var out []string
	start := 0
	runes := []rune(para)
	for i := 0; i < len(runes); i++ {
		if isSentenceEnd(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			s := strings.TrimSpace(string(runes[start : i+1]))
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// hardSplit cuts text into size-bounded slices at rune boundaries.
func hardSplit(text string, size int) []string {
	var out []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := size
		if n > len(runes) {
			n = len(runes)
		}
		piece := strings.TrimSpace(string(runes[:n]))
		if piece != "" {
			out = append(out, piece)
		}
		runes = runes[n:]
	}
	return out
}

// overlapTail returns the last n characters of s, extended left to the
// nearest word boundary so the overlap never begins mid-word.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	start := len(runes) - n
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	return strings.TrimSpace(string(runes[start:]))
}

// normalizeSpace collapses all whitespace runs into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
