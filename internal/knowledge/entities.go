package knowledge

// Concept is a named idea of analytical psychology.
// RelatedConcepts are weak references that may name entities never added.
type Concept struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	Category        string            `yaml:"category"`
	RelatedConcepts []string          `yaml:"related_concepts"`
	Examples        []string          `yaml:"examples"`
	References      []string          `yaml:"references"`
	Metadata        map[string]string `yaml:"metadata"`
}

// Archetype is a Concept with its symbolic and functional aspects.
type Archetype struct {
	Concept               `yaml:",inline"`
	Symbols               []string `yaml:"symbols"`
	Manifestations        []string `yaml:"manifestations"`
	PsychologicalFunction string   `yaml:"psychological_function"`
}

// TherapeuticProcess describes a way of working with a patient.
type TherapeuticProcess struct {
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	Stages            []string `yaml:"stages"`
	Techniques        []string `yaml:"techniques"`
	Indications       []string `yaml:"indications"`
	Contraindications []string `yaml:"contraindications"`
	ExpectedOutcomes  []string `yaml:"expected_outcomes"`
}

// QueryResult is one knowledge-base search hit as returned to API clients.
type QueryResult struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Category   string   `json:"category"`
	References []string `json:"references"`
	Confidence float64  `json:"confidence"`
}
