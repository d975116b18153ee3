// Package chunker splits reconciled page text into retrieval-sized chunks.
//
// Chunk granularity is kept uniform across the corpus: embedding quality and
// index comparability both depend on it, so the same configuration is used
// for every document.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// minChunkRunes drops fragments too small to be useful retrieval units.
const minChunkRunes = 20

// Config controls chunk sizing.
type Config struct {
	// Size is the target chunk size in characters.
	Size int
	// Overlap is the number of characters carried over between chunks.
	Overlap int
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() *Config {
	return &Config{
		Size:    500,
		Overlap: 50,
	}
}

// Chunk is one retrieval segment together with its byte offset in the
// source text. Text is a contiguous slice of the source with line breaks
// flattened to spaces; flattening never moves a byte, so spans computed
// against the source (entity mentions) line up with Start and len(Text).
type Chunk struct {
	Text  string
	Start int
}

// Chunker splits text into overlapping, sentence-respecting segments.
type Chunker struct {
	cfg *Config
}

// New creates a Chunker.
func New(cfg *Config) *Chunker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Chunker{cfg: cfg}
}

// Split splits text into chunks and reports where each one starts in the
// input. Sentence boundaries are respected where possible; when a chunk
// closes, the next one starts inside the previous chunk's tail so context
// is not lost at the boundary. Blank input yields no chunks.
func (c *Chunker) Split(text string) []Chunk {
	flat := flatten(text)
	if strings.TrimSpace(flat) == "" {
		return nil
	}

	sentences := sentenceSpans(flat)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	cur, curEnd := -1, -1

	for _, s := range sentences {
		// A single sentence larger than the target size gets windowed on
		// its own; it would otherwise blow past the size bound.
		if s.end-s.start > c.cfg.Size*2 {
			if cur >= 0 {
				chunks = appendSpan(chunks, flat, cur, curEnd)
				cur = -1
			}
			chunks = c.windowSpans(chunks, flat, s.start, s.end)
			continue
		}

		if cur >= 0 && s.end-cur > c.cfg.Size {
			chunks = appendSpan(chunks, flat, cur, curEnd)
			cur = c.overlapStart(flat, cur, curEnd)
		}
		if cur < 0 {
			cur = s.start
		}
		curEnd = s.end
	}

	if cur >= 0 && curEnd > cur {
		chunks = appendSpan(chunks, flat, cur, curEnd)
	}
	return chunks
}

// overlapStart returns where the carried-over tail of a closed chunk
// begins, snapped forward to a word boundary so the next chunk never opens
// mid-word.
func (c *Chunker) overlapStart(flat string, start, end int) int {
	if c.cfg.Overlap <= 0 {
		return end
	}
	from := end - c.cfg.Overlap
	if from < start {
		from = start
	}
	for i := from; i < end; i++ {
		if flat[i] == ' ' {
			return i + 1
		}
	}
	return end
}

// windowSpans cuts the span [start, end) into fixed-size overlapping rune
// windows. Used for text without sentence structure (common in OCR output).
func (c *Chunker) windowSpans(chunks []Chunk, flat string, start, end int) []Chunk {
	seg := flat[start:end]
	runes := utf8.RuneCountInString(seg)
	if runes <= c.cfg.Size {
		return appendSpan(chunks, flat, start, end)
	}

	step := c.cfg.Size - c.cfg.Overlap
	if step <= 0 {
		step = c.cfg.Size
	}

	// Byte offset of every rune in the segment, plus one past the end, so
	// windows land on rune boundaries.
	offs := make([]int, 0, runes+1)
	for i := range seg {
		offs = append(offs, i)
	}
	offs = append(offs, len(seg))

	for i := 0; i < runes; i += step {
		hi := i + c.cfg.Size
		if hi > runes {
			hi = runes
		}
		chunks = appendSpan(chunks, flat, start+offs[i], start+offs[hi])
		if hi == runes {
			break
		}
	}
	return chunks
}

// appendSpan trims the span to its non-space core and keeps it when it is
// large enough to be a useful retrieval unit.
func appendSpan(chunks []Chunk, flat string, start, end int) []Chunk {
	for start < end && flat[start] == ' ' {
		start++
	}
	for end > start && flat[end-1] == ' ' {
		end--
	}
	text := flat[start:end]
	if utf8.RuneCountInString(text) < minChunkRunes {
		return chunks
	}
	return append(chunks, Chunk{Text: text, Start: start})
}

type span struct {
	start, end int
}

// sentenceSpans locates sentence spans in the flattened text. A sentence
// runs through terminating punctuation followed by a space or end of text;
// trailing unterminated text forms a final sentence.
func sentenceSpans(flat string) []span {
	var spans []span
	start := -1
	for i := 0; i < len(flat); i++ {
		ch := flat[i]
		if start < 0 {
			if ch == ' ' {
				continue
			}
			start = i
		}
		if ch == '.' || ch == '!' || ch == '?' {
			if i+1 >= len(flat) || flat[i+1] == ' ' {
				spans = append(spans, span{start, i + 1})
				start = -1
			}
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(flat)})
	}
	return spans
}

// flatten maps line structure to spaces without moving any byte, so every
// offset in the result is a valid offset in the source.
func flatten(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		return r
	}, text)
}
