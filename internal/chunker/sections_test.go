package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/summarizer"
)

const paper = `Resumo do artigo.
## Sombra
A **Sombra** reúne aspectos negados da personalidade [1].
A **Projeção** é sua manifestação mais comum [2].
## Persona
A **Persona** é a máscara social [1].`

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata("\n## Sombra\nTexto com **Projeção** e **Projeção** de novo [1] [2] [1].\n## Anima\n")
	assert.Equal(t, []string{"Sombra", "Anima"}, md.Categories)
	assert.Equal(t, []string{"Projeção"}, md.Concepts)
	assert.Equal(t, []string{"1", "2"}, md.References)
}

func TestExtractMetadata_Empty(t *testing.T) {
	md := ExtractMetadata("texto simples")
	assert.Empty(t, md.Categories)
	assert.Empty(t, md.Concepts)
	assert.Empty(t, md.References)
}

func TestExtractSections(t *testing.T) {
	sections := ExtractSections(paper)
	require.Len(t, sections, 3)

	assert.Equal(t, "", sections[0].Title)
	assert.False(t, sections[0].Major)

	assert.Equal(t, "Sombra", sections[1].Title)
	assert.True(t, sections[1].Major)
	assert.True(t, strings.HasPrefix(sections[1].Text, "## Sombra\n"))

	assert.Equal(t, "Persona", sections[2].Title)
	assert.Equal(t, paper, sections[0].Text+"\n"+sections[1].Text+"\n"+sections[2].Text)
}

func TestSplitSections_TagsChunks(t *testing.T) {
	c := NewRecursiveChunker(DefaultMaxSize, DefaultOverlap)
	chunks := c.SplitSections(paper)
	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		require.NotNil(t, ch.Section)
		// every section is its own document
		assert.Equal(t, 0, ch.Index)
		assert.Equal(t, 1, ch.Total)
	}
	assert.Equal(t, "Sombra", chunks[1].Section.Title)
	assert.ElementsMatch(t, []string{"Sombra", "Projeção"}, chunks[1].Local.Concepts)

	assert.ElementsMatch(t, []string{"Sombra", "Projeção", "Persona"}, KeyConcepts(chunks))
	assert.ElementsMatch(t, []string{"1", "2"}, Citations(chunks))
}

func TestSectionSummary(t *testing.T) {
	c := NewRecursiveChunker(DefaultMaxSize, DefaultOverlap)
	chunks := c.SplitSections(paper)

	got := SectionSummary(chunks, "Sombra", summarizer.NewFrequencySummarizer())
	assert.Contains(t, got, "Seção: Sombra")
	assert.Contains(t, got, "Conceitos principais: Sombra, Projeção")
	assert.Contains(t, got, "Referências: 1, 2")
	assert.Contains(t, got, "Resumo:")

	assert.Equal(t, "Seção 'Anima' não encontrada.", SectionSummary(chunks, "Anima", nil))
}
