package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

const (
	DefaultMaxSize = 1000
	DefaultOverlap = 200
)

// separator is one split boundary. Heading and line separators stay attached
// to the text that follows them, sentence and word separators to the text before.
type separator struct {
	value   string
	keepEnd bool
}

var defaultSeparators = []separator{
	{value: "\n## "},
	{value: "\n### "},
	{value: "\n\n"},
	{value: "\n"},
	{value: ". ", keepEnd: true},
	{value: " ", keepEnd: true},
	{value: ""},
}

// RecursiveChunker splits text along a priority list of separators into
// overlapping chunks no longer than maxSize runes.
type RecursiveChunker struct {
	maxSize    int
	overlap    int
	separators []separator
}

func NewRecursiveChunker(maxSize, overlap int) *RecursiveChunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize / 4
	}
	return &RecursiveChunker{
		maxSize:    maxSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// MaxSize returns the configured chunk size bound in runes.
func (c *RecursiveChunker) MaxSize() int { return c.maxSize }

// Chunk splits a document's content.
func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	return c.Split(document.Content), nil
}

// Split cuts text into chunks carrying local and document-wide metadata.
// Removing each chunk's Overlap prefix and concatenating reconstructs text.
func (c *RecursiveChunker) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}
	pieces := c.splitPieces(text, c.separators)
	global := ExtractMetadata(text)

	type span struct {
		content string
		overlap int
	}
	var spans []span
	var window []string
	windowLen := 0
	carried := 0

	for _, p := range pieces {
		pl := runeLen(p)
		if windowLen+pl > c.maxSize && windowLen > 0 {
			spans = append(spans, span{content: strings.Join(window, ""), overlap: carried})
			// keep a tail of whole pieces no longer than overlap that still leaves room for p
			for len(window) > 0 && (windowLen > c.overlap || windowLen+pl > c.maxSize) {
				windowLen -= runeLen(window[0])
				window = window[1:]
			}
			carried = windowLen
		}
		window = append(window, p)
		windowLen += pl
	}
	if len(window) > 0 && windowLen > carried {
		spans = append(spans, span{content: strings.Join(window, ""), overlap: carried})
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = domain.Chunk{
			Content: s.content,
			Index:   i,
			Total:   len(spans),
			Overlap: s.overlap,
			Local:   ExtractMetadata(s.content),
			Global:  global,
		}
	}
	return chunks
}

// splitPieces partitions text into contiguous pieces of at most maxSize runes,
// using the highest-priority separator present and recursing only on pieces
// that are still too long.
func (c *RecursiveChunker) splitPieces(text string, seps []separator) []string {
	if runeLen(text) <= c.maxSize {
		return []string{text}
	}
	for i, sep := range seps {
		if sep.value == "" {
			return sliceRunes(text, c.maxSize)
		}
		if !strings.Contains(text, sep.value) {
			continue
		}
		var out []string
		for _, part := range splitKeep(text, sep) {
			if runeLen(part) <= c.maxSize {
				out = append(out, part)
				continue
			}
			out = append(out, c.splitPieces(part, seps[i+1:])...)
		}
		return out
	}
	return []string{text}
}

// splitKeep splits text on sep without dropping the separator.
func splitKeep(text string, sep separator) []string {
	var parts []string
	rest := text
	for {
		idx := strings.Index(rest, sep.value)
		if idx < 0 {
			break
		}
		cut := idx
		if sep.keepEnd {
			cut = idx + len(sep.value)
		}
		if cut == 0 {
			// separator at the very start belongs to the following piece
			next := strings.Index(rest[len(sep.value):], sep.value)
			if next < 0 {
				break
			}
			cut = len(sep.value) + next
		}
		parts = append(parts, rest[:cut])
		rest = rest[cut:]
	}
	if rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

func sliceRunes(text string, size int) []string {
	var out []string
	for len(text) > 0 {
		n, i := 0, 0
		for i < len(text) && n < size {
			_, w := utf8.DecodeRuneInString(text[i:])
			i += w
			n++
		}
		out = append(out, text[:i])
		text = text[i:]
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
