// Package knowledge holds the in-memory registry of concepts, archetypes and
// therapeutic processes. Entities are added at startup and read while serving.
package knowledge

import (
	"context"
	"sort"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// placeholderConfidence is attached to every query hit until real scoring exists.
const placeholderConfidence = 0.8

// Searcher is the similarity-search subset of the vector index the store needs.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int, filter *domain.SearchFilter) ([]domain.RetrievedDocument, error)
}

// Store keys every entity by name. Add methods must not race with reads.
type Store struct {
	concepts   map[string]Concept
	archetypes map[string]Archetype
	processes  map[string]TherapeuticProcess
	searcher   Searcher
}

// NewStore creates an empty store. searcher may be nil when Query is unused.
func NewStore(searcher Searcher) *Store {
	return &Store{
		concepts:   make(map[string]Concept),
		archetypes: make(map[string]Archetype),
		processes:  make(map[string]TherapeuticProcess),
		searcher:   searcher,
	}
}

func (s *Store) AddConcept(c Concept) { s.concepts[c.Name] = c }

func (s *Store) AddArchetype(a Archetype) { s.archetypes[a.Name] = a }

func (s *Store) AddProcess(p TherapeuticProcess) { s.processes[p.Name] = p }

func (s *Store) Concept(name string) (Concept, bool) {
	c, ok := s.concepts[name]
	return c, ok
}

func (s *Store) Archetype(name string) (Archetype, bool) {
	a, ok := s.archetypes[name]
	return a, ok
}

func (s *Store) Process(name string) (TherapeuticProcess, bool) {
	p, ok := s.processes[name]
	return p, ok
}

// Lookup resolves a name against concepts first, then archetypes.
func (s *Store) Lookup(name string) (Concept, bool) {
	if c, ok := s.concepts[name]; ok {
		return c, true
	}
	if a, ok := s.archetypes[name]; ok {
		return a.Concept, true
	}
	return Concept{}, false
}

// RelatedConcepts resolves name's related concepts, dropping names that do not resolve.
func (s *Store) RelatedConcepts(name string) []Concept {
	c, ok := s.concepts[name]
	if !ok {
		return nil
	}
	var out []Concept
	for _, rel := range c.RelatedConcepts {
		if rc, ok := s.concepts[rel]; ok {
			out = append(out, rc)
		}
	}
	return out
}

// SearchByCategory returns concepts of the given category ordered by name.
func (s *Store) SearchByCategory(category string) []Concept {
	var out []Concept
	for _, c := range s.concepts {
		if c.Category == category {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ArchetypeManifestations returns the manifestations of an archetype, or an
// empty slice when it is unknown.
func (s *Store) ArchetypeManifestations(name string) []string {
	a, ok := s.archetypes[name]
	if !ok {
		return []string{}
	}
	return a.Manifestations
}

// TherapeuticTechniques returns the sorted union of techniques across processes.
func (s *Store) TherapeuticTechniques() []string {
	set := make(map[string]struct{})
	for _, p := range s.processes {
		for _, t := range p.Techniques {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Query runs a similarity search and wraps each hit with a placeholder confidence.
func (s *Store) Query(ctx context.Context, text string, maxResults int) ([]QueryResult, error) {
	if s.searcher == nil {
		return nil, &domain.RetrievalError{Op: "query", Err: domain.ErrIndexNotFound}
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	docs, err := s.searcher.SimilaritySearch(ctx, text, maxResults, nil)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "query", Err: err}
	}
	out := make([]QueryResult, 0, len(docs))
	for _, d := range docs {
		refs := d.Metadata.References
		if refs == nil {
			refs = []string{}
		}
		out = append(out, QueryResult{
			Title:      d.Metadata.Title,
			Content:    d.Content,
			Category:   d.Metadata.Category,
			References: refs,
			Confidence: placeholderConfidence,
		})
	}
	return out, nil
}

// Documents renders every concept and archetype as indexable text with the
// metadata the retrieval path reads back.
func (s *Store) Documents() ([]string, []map[string]any) {
	var names []string
	for n := range s.concepts {
		names = append(names, n)
	}
	for n := range s.archetypes {
		if _, dup := s.concepts[n]; !dup {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	texts := make([]string, 0, len(names))
	metas := make([]map[string]any, 0, len(names))
	for _, n := range names {
		c, _ := s.Lookup(n)
		var b strings.Builder
		b.WriteString("## " + c.Name + "\n")
		b.WriteString(c.Description + "\n")
		if a, ok := s.archetypes[n]; ok {
			if len(a.Manifestations) > 0 {
				b.WriteString("Manifestações: " + strings.Join(a.Manifestations, "; ") + "\n")
			}
			if len(a.Symbols) > 0 {
				b.WriteString("Símbolos: " + strings.Join(a.Symbols, "; ") + "\n")
			}
			if a.PsychologicalFunction != "" {
				b.WriteString("Função: " + a.PsychologicalFunction + "\n")
			}
		}
		if len(c.Examples) > 0 {
			b.WriteString("Exemplos: " + strings.Join(c.Examples, "; ") + "\n")
		}
		texts = append(texts, b.String())
		metas = append(metas, map[string]any{
			domain.MetaConcept:    c.Name,
			domain.MetaTitle:      c.Name,
			domain.MetaCategory:   c.Category,
			domain.MetaReferences: c.References,
		})
	}
	return texts, metas
}
