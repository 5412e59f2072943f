package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of an extra knowledge base.
type File struct {
	Concepts   []Concept            `yaml:"concepts"`
	Archetypes []Archetype          `yaml:"archetypes"`
	Processes  []TherapeuticProcess `yaml:"processes"`
}

// LoadFile reads a YAML knowledge file and adds its entities to s.
// Entities already present under the same name are replaced.
func LoadFile(s *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read knowledge file: %w", err)
	}
	return Load(s, data)
}

// Load adds the entities described by a YAML document to s.
func Load(s *Store, data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	for i, c := range f.Concepts {
		if c.Name == "" {
			return fmt.Errorf("concept %d has no name", i)
		}
		s.AddConcept(c)
	}
	for i, a := range f.Archetypes {
		if a.Name == "" {
			return fmt.Errorf("archetype %d has no name", i)
		}
		s.AddArchetype(a)
	}
	for i, p := range f.Processes {
		if p.Name == "" {
			return fmt.Errorf("process %d has no name", i)
		}
		s.AddProcess(p)
	}
	return nil
}
