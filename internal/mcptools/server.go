// Package mcptools serves the analyst and the knowledge store as MCP tools.
package mcptools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
)

// New creates an MCP server with every tool registered. All calls share one
// conversation memory, the analyst's.
func New(a *analyst.Analyst, store *knowledge.Store, version string) *mcp.Server {
	t := &Tools{Analyst: a, Store: store}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "consultorio-jung",
		Version: version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "explain_concept",
		Description: "Explain a Jungian concept, grounded on the knowledge base",
	}, t.ExplainConcept)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "analyze_archetype",
		Description: "Analyze a known archetype: manifestations, symbols and therapeutic implications",
	}, t.AnalyzeArchetype)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "therapeutic_guidance",
		Description: "Give Jungian therapeutic guidance for a situation",
	}, t.TherapeuticGuidance)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "query_knowledge",
		Description: "Similarity search over the indexed Jungian texts",
	}, t.QueryKnowledge)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "related_concepts",
		Description: "List the concepts related to a concept",
	}, t.RelatedConcepts)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_by_category",
		Description: "List the concepts of a category",
	}, t.SearchByCategory)

	return srv
}
