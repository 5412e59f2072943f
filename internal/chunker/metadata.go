package chunker

import (
	"regexp"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

var (
	headingRe  = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t]*\r?$`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	citationRe = regexp.MustCompile(`\[(\d+)\]`)
)

// ExtractMetadata collects section headings, bold concept terms and numeric
// citation markers from a span of text.
func ExtractMetadata(text string) domain.ChunkMetadata {
	md := domain.ChunkMetadata{}
	for _, m := range headingRe.FindAllStringSubmatch(text, -1) {
		md.Categories = append(md.Categories, strings.TrimSpace(m[1]))
	}
	md.Concepts = uniqueSubmatches(boldRe, text)
	md.References = uniqueSubmatches(citationRe, text)
	return md
}

// KeyConcepts returns every local and global concept found across chunks.
func KeyConcepts(chunks []domain.Chunk) []string {
	var all []string
	for _, ch := range chunks {
		all = append(all, ch.Local.Concepts...)
		all = append(all, ch.Global.Concepts...)
	}
	return dedupe(all)
}

// Citations returns every local and global reference found across chunks.
func Citations(chunks []domain.Chunk) []string {
	var all []string
	for _, ch := range chunks {
		all = append(all, ch.Local.References...)
		all = append(all, ch.Global.References...)
	}
	return dedupe(all)
}

func uniqueSubmatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return dedupe(out)
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
