package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

type fakeSearcher struct {
	docs  []domain.RetrievedDocument
	err   error
	gotK  int
	calls int
}

func (f *fakeSearcher) SimilaritySearch(_ context.Context, _ string, k int, _ *domain.SearchFilter) ([]domain.RetrievedDocument, error) {
	f.calls++
	f.gotK = k
	return f.docs, f.err
}

func TestRelatedConcepts_DropsDanglingNames(t *testing.T) {
	s := NewSeededStore(nil)

	// Sombra is an archetype, so only the concepts Self and Persona resolve.
	got := s.RelatedConcepts("Individuação")
	names := make([]string, 0, len(got))
	for _, c := range got {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Self", "Persona"}, names)

	assert.Nil(t, s.RelatedConcepts("Desconhecido"))
}

func TestArchetypeManifestations(t *testing.T) {
	s := NewStore(nil)
	s.AddArchetype(Archetype{
		Concept:        Concept{Name: "Sombra"},
		Manifestations: []string{"Projeções negativas"},
	})

	assert.Equal(t, []string{"Projeções negativas"}, s.ArchetypeManifestations("Sombra"))

	got := s.ArchetypeManifestations("Anima")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchByCategory_SortedByName(t *testing.T) {
	s := NewSeededStore(nil)
	got := s.SearchByCategory("Estrutura Psíquica")
	require.Len(t, got, 3)
	assert.Equal(t, "Inconsciente Coletivo", got[0].Name)
	assert.Equal(t, "Persona", got[1].Name)
	assert.Equal(t, "Self", got[2].Name)

	assert.Empty(t, s.SearchByCategory("Nada"))
}

func TestTherapeuticTechniques_Union(t *testing.T) {
	s := NewSeededStore(nil)
	got := s.TherapeuticTechniques()

	assert.IsNonDecreasing(t, got)
	seen := map[string]int{}
	for _, tech := range got {
		seen[tech]++
	}
	assert.Equal(t, 1, seen["Amplificação"])
	assert.Contains(t, got, "Diário de sonhos")
	assert.Contains(t, got, "Expressão artística")
}

func TestLookup_ConceptsBeforeArchetypes(t *testing.T) {
	s := NewStore(nil)
	s.AddConcept(Concept{Name: "Sombra", Description: "conceito"})
	s.AddArchetype(Archetype{Concept: Concept{Name: "Sombra", Description: "arquétipo"}})

	c, ok := s.Lookup("Sombra")
	require.True(t, ok)
	assert.Equal(t, "conceito", c.Description)

	_, ok = s.Lookup("Ninguém")
	assert.False(t, ok)
}

func TestQuery_MapsHits(t *testing.T) {
	f := &fakeSearcher{docs: []domain.RetrievedDocument{{
		Content:  "A sombra é...",
		Score:    0.91,
		Metadata: domain.HitMetadata{Title: "Sombra", Category: "Arquétipo"},
	}}}
	s := NewStore(f)

	got, err := s.Query(context.Background(), "o que é a sombra", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, f.gotK)
	require.Len(t, got, 1)
	assert.Equal(t, "Sombra", got[0].Title)
	assert.Equal(t, []string{}, got[0].References)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
}

func TestQuery_WrapsRetrievalErrors(t *testing.T) {
	boom := errors.New("index unavailable")
	s := NewStore(&fakeSearcher{err: boom})

	_, err := s.Query(context.Background(), "x", 2)
	var re *domain.RetrievalError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "query", re.Op)
	assert.ErrorIs(t, err, boom)

	_, err = NewStore(nil).Query(context.Background(), "x", 2)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestDocuments_IncludesArchetypeDetails(t *testing.T) {
	s := NewSeededStore(nil)
	texts, metas := s.Documents()
	require.Len(t, texts, len(metas))

	var found bool
	for i, m := range metas {
		if m[domain.MetaConcept] == "Sombra" {
			found = true
			assert.Contains(t, texts[i], "## Sombra\n")
			assert.Contains(t, texts[i], "Projeções negativas")
			assert.Equal(t, "Arquétipo", m[domain.MetaCategory])
		}
	}
	assert.True(t, found)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	doc := `
concepts:
  - name: Complexo
    description: Núcleo afetivo autônomo
    category: Estrutura Psíquica
archetypes:
  - name: Velho Sábio
    description: Figura do conhecimento
    category: Arquétipo
    manifestations: [Mentores em sonhos]
processes:
  - name: Amplificação
    techniques: [Paralelos mitológicos]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s := NewStore(nil)
	require.NoError(t, LoadFile(s, path))

	c, ok := s.Concept("Complexo")
	require.True(t, ok)
	assert.Equal(t, "Estrutura Psíquica", c.Category)
	assert.Equal(t, []string{"Mentores em sonhos"}, s.ArchetypeManifestations("Velho Sábio"))
	assert.Equal(t, []string{"Paralelos mitológicos"}, s.TherapeuticTechniques())
}

func TestLoad_RejectsUnnamedEntities(t *testing.T) {
	err := Load(NewStore(nil), []byte("concepts:\n  - description: sem nome\n"))
	assert.Error(t, err)
}
