package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
)

// Tools holds the collaborators tool handlers need.
type Tools struct {
	Analyst *analyst.Analyst
	Store   *knowledge.Store
}

// --- Input types ---

type ExplainConceptInput struct {
	ConceptName string `json:"concept_name" jsonschema:"Name of the concept, e.g. Individuação"`
	UserInput   string `json:"user_input,omitempty" jsonschema:"The user's original question"`
}

type AnalyzeArchetypeInput struct {
	ArchetypeName string `json:"archetype_name" jsonschema:"Name of the archetype, e.g. Sombra"`
	UserInput     string `json:"user_input,omitempty" jsonschema:"The user's original question"`
}

type TherapeuticGuidanceInput struct {
	Situation        string   `json:"situation" jsonschema:"Description of the situation"`
	UserInput        string   `json:"user_input,omitempty" jsonschema:"The user's original message"`
	RelevantConcepts []string `json:"relevant_concepts,omitempty" jsonschema:"Concept names to ground the guidance; retrieved when omitted"`
}

type QueryKnowledgeInput struct {
	Query      string `json:"query" jsonschema:"Free text query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Number of hits, default 3"`
}

type ConceptNameInput struct {
	Name string `json:"name" jsonschema:"Concept name"`
}

type CategoryInput struct {
	Category string `json:"category" jsonschema:"Category, e.g. Estrutura Psíquica"`
}

// --- Handlers ---

func (t *Tools) ExplainConcept(ctx context.Context, _ *mcp.CallToolRequest, input ExplainConceptInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ConceptName) == "" {
		return toolError("concept_name is required"), nil, nil
	}
	text, err := t.Analyst.ExplainConcept(ctx, input.ConceptName, input.UserInput)
	if err != nil {
		return toolError("Failed to explain %q: %v", input.ConceptName, err), nil, nil
	}
	return toolText(text), nil, nil
}

func (t *Tools) AnalyzeArchetype(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeArchetypeInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.ArchetypeName) == "" {
		return toolError("archetype_name is required"), nil, nil
	}
	text, err := t.Analyst.AnalyzeArchetype(ctx, input.ArchetypeName, input.UserInput)
	if err != nil {
		return toolError("Failed to analyze %q: %v", input.ArchetypeName, err), nil, nil
	}
	return toolText(text), nil, nil
}

func (t *Tools) TherapeuticGuidance(ctx context.Context, _ *mcp.CallToolRequest, input TherapeuticGuidanceInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Situation) == "" {
		return toolError("situation is required"), nil, nil
	}
	text, err := t.Analyst.TherapeuticGuidance(ctx, input.Situation, input.UserInput, input.RelevantConcepts)
	if err != nil {
		return toolError("Failed to produce guidance: %v", err), nil, nil
	}
	return toolText(text), nil, nil
}

func (t *Tools) QueryKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input QueryKnowledgeInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), nil, nil
	}
	results, err := t.Store.Query(ctx, input.Query, input.MaxResults)
	if err != nil {
		return toolError("Query failed: %v", err), nil, nil
	}
	if results == nil {
		results = []knowledge.QueryResult{}
	}
	return toolJSON(results)
}

func (t *Tools) RelatedConcepts(_ context.Context, _ *mcp.CallToolRequest, input ConceptNameInput) (*mcp.CallToolResult, any, error) {
	if _, ok := t.Store.Concept(input.Name); !ok {
		return toolError("Concept %q not found", input.Name), nil, nil
	}
	return toolJSON(conceptSummaries(t.Store.RelatedConcepts(input.Name)))
}

func (t *Tools) SearchByCategory(_ context.Context, _ *mcp.CallToolRequest, input CategoryInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(conceptSummaries(t.Store.SearchByCategory(input.Category)))
}

type conceptSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func conceptSummaries(cs []knowledge.Concept) []conceptSummary {
	out := make([]conceptSummary, 0, len(cs))
	for _, c := range cs {
		out = append(out, conceptSummary{Name: c.Name, Description: c.Description, Category: c.Category})
	}
	return out
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
