// Package chunker splits document text into overlapping spans suitable
// for embedding and retrieval.
//
// The splitter prefers natural boundaries: paragraphs first, sentences
// within oversized paragraphs, and a hard rune cut only when a single
// sentence exceeds the chunk size. Output is deterministic for a given
// input and configuration, which keeps re-ingestion idempotent.
package chunker

import (
	"regexp"
	"strings"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// DefaultMaxChunkSize is the default number of characters per chunk.
const DefaultMaxChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters
// shared by adjacent chunks.
const DefaultOverlap = 200

var (
	paragraphSplit = regexp.MustCompile(`\n\s*\n`)
	sentenceSplit  = regexp.MustCompile(`[^.!?]+[.!?]+["')\]]*|[^.!?]+$`)
)

// Splitter splits document content into bounded, overlapping chunks.
type Splitter struct {
	maxChunkSize int
	overlap      int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxChunkSize sets the chunk size in characters.
func WithMaxChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxChunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
// Overlap is clamped below the chunk size so every chunk makes progress.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxChunkSize: DefaultMaxChunkSize,
		overlap:      DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.overlap >= s.maxChunkSize {
		s.overlap = s.maxChunkSize / 4
	}

	return s
}

// MaxChunkSize returns the configured chunk size.
func (s *Splitter) MaxChunkSize() int { return s.maxChunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// unit is an indivisible span produced by boundary detection.
type unit struct {
	text string
	// newPara marks the first unit of a paragraph; packing joins it to
	// the previous unit with a blank line instead of a space.
	newPara bool
}

// Split divides the document content into chunks carrying the parent
// metadata plus chunk_index and total_chunks.
//
// Empty or whitespace-only content yields no chunks. Content that fits
// within the chunk size yields exactly one chunk with ordinal 0.
func (s *Splitter) Split(doc domain.Document) []domain.Chunk {
	text := strings.TrimSpace(doc.Content)
	if text == "" {
		return nil
	}

	var texts []string
	if len([]rune(text)) <= s.maxChunkSize {
		texts = []string{text}
	} else {
		texts = s.pack(s.units(text))
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, content := range texts {
		metadata := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = i
		metadata["total_chunks"] = len(texts)

		chunks[i] = domain.Chunk{
			ID:         domain.ChunkID(doc.ID, i),
			DocumentID: doc.ID,
			Ordinal:    i,
			Content:    content,
			Metadata:   metadata,
		}
	}

	return chunks
}

// units breaks the text into indivisible spans along natural boundaries.
func (s *Splitter) units(text string) []unit {
	var units []unit

	for _, para := range paragraphSplit.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		first := true
		if len([]rune(para)) <= s.maxChunkSize {
			units = append(units, unit{text: para, newPara: true})
			continue
		}

		for _, sentence := range sentenceSplit.FindAllString(para, -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}

			for _, piece := range hardCut(sentence, s.maxChunkSize) {
				units = append(units, unit{text: piece, newPara: first})
				first = false
			}
		}
	}

	return units
}

// pack greedily fills chunks with consecutive units up to the chunk
// size, then steps back over whole trailing units worth at most the
// configured overlap to start the next chunk.
func (s *Splitter) pack(units []unit) []string {
	var texts []string

	start := 0
	for start < len(units) {
		var b strings.Builder
		size := 0
		end := start

		for end < len(units) {
			sep := ""
			if end > start {
				sep = " "
				if units[end].newPara {
					sep = "\n\n"
				}
			}

			unitLen := len([]rune(units[end].text)) + len(sep)
			if size+unitLen > s.maxChunkSize && end > start {
				break
			}

			b.WriteString(sep)
			b.WriteString(units[end].text)
			size += unitLen
			end++
		}

		texts = append(texts, b.String())
		if end >= len(units) {
			break
		}

		// Walk back whole units until the overlap budget is spent.
		next := end
		carried := 0
		for next > start+1 {
			prevLen := len([]rune(units[next-1].text))
			if carried+prevLen > s.overlap {
				break
			}
			carried += prevLen
			next--
		}
		start = next
	}

	return texts
}

// hardCut splits a span that exceeds the chunk size into rune windows.
func hardCut(text string, maxSize int) []string {
	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{text}
	}

	var pieces []string
	for i := 0; i < len(runes); i += maxSize {
		end := i + maxSize
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}

	return pieces
}
