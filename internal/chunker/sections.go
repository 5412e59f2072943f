package chunker

import (
	"fmt"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/summarizer"
)

// Section is a run of text opened by a heading line (included in Text).
// Text before the first heading becomes an untitled minor section.
type Section struct {
	Title string
	Major bool
	Text  string
}

// ExtractSections partitions text at "## " heading lines.
func ExtractSections(text string) []Section {
	if text == "" {
		return nil
	}
	var sections []Section
	var current *Section
	var lines []string

	flush := func() {
		body := strings.Join(lines, "\n")
		if current != nil {
			current.Text = body
			sections = append(sections, *current)
		} else if strings.TrimSpace(body) != "" {
			sections = append(sections, Section{Text: body})
		}
		lines = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = &Section{Title: strings.TrimSpace(line[3:]), Major: true}
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}

// SplitSections chunks every section independently and tags each chunk
// with its section.
func (c *RecursiveChunker) SplitSections(text string) []domain.Chunk {
	var out []domain.Chunk
	for _, sec := range ExtractSections(text) {
		info := &domain.SectionInfo{Title: sec.Title, Major: sec.Major}
		for _, ch := range c.Split(sec.Text) {
			ch.Section = info
			out = append(out, ch)
		}
	}
	return out
}

// SectionSummary describes one section: its concepts, references, an extract
// and the full content. Unknown titles yield a not-found message.
func SectionSummary(chunks []domain.Chunk, title string, sum *summarizer.FrequencySummarizer) string {
	var sectionChunks []domain.Chunk
	for _, ch := range chunks {
		if ch.Section != nil && ch.Section.Title == title {
			sectionChunks = append(sectionChunks, ch)
		}
	}
	if len(sectionChunks) == 0 {
		return fmt.Sprintf("Seção '%s' não encontrada.", title)
	}

	var content strings.Builder
	var concepts, refs []string
	for _, ch := range sectionChunks {
		runes := []rune(ch.Content)
		content.WriteString(string(runes[ch.Overlap:]))
		concepts = append(concepts, ch.Local.Concepts...)
		refs = append(refs, ch.Local.References...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Seção: %s\n\n", title)
	fmt.Fprintf(&b, "Conceitos principais: %s\n", strings.Join(dedupe(concepts), ", "))
	fmt.Fprintf(&b, "Referências: %s\n", strings.Join(dedupe(refs), ", "))
	if sum != nil {
		if extract, err := sum.Summarize(content.String(), 3); err == nil && extract != "" {
			fmt.Fprintf(&b, "\nResumo:\n%s\n", extract)
		}
	}
	fmt.Fprintf(&b, "\nConteúdo:\n%s", content.String())
	return b.String()
}
