package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
	"github.com/FAL1989/consultorio-jung/internal/testutil"
)

func setup(t *testing.T, model *testutil.FakeModel, search *testutil.FakeSearcher) *mcp.ClientSession {
	t.Helper()
	store := knowledge.NewSeededStore(search)
	a := analyst.New(analyst.Deps{Store: store, Index: search, Model: model}, nil)
	srv := New(a, store, "test")

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	_, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func call(t *testing.T, s *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text, res.IsError
}

func TestListTools(t *testing.T) {
	s := setup(t, &testutil.FakeModel{}, &testutil.FakeSearcher{})
	res, err := s.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"explain_concept", "analyze_archetype", "therapeutic_guidance",
		"query_knowledge", "related_concepts", "search_by_category",
	}, names)
}

func TestAnalystTools(t *testing.T) {
	model := &testutil.FakeModel{CompleteText: "resposta"}
	s := setup(t, model, &testutil.FakeSearcher{})

	text, isErr := call(t, s, "explain_concept", map[string]any{"concept_name": "Self"})
	assert.False(t, isErr)
	assert.Equal(t, "resposta", text)

	text, isErr = call(t, s, "analyze_archetype", map[string]any{"archetype_name": "Trickster"})
	assert.False(t, isErr)
	assert.Equal(t, analyst.ArchetypeNotFound, text)

	text, isErr = call(t, s, "therapeutic_guidance", map[string]any{
		"situation": "Sinto que uso uma máscara", "relevant_concepts": []string{"Persona"},
	})
	assert.False(t, isErr)
	assert.Equal(t, "resposta", text)
	assert.Contains(t, model.LastPrompt(), "Persona: ")
	assert.Equal(t, 2, model.Calls())
}

func TestAnalystTools_ModelError(t *testing.T) {
	s := setup(t, &testutil.FakeModel{Err: errors.New("quota")}, &testutil.FakeSearcher{})
	text, isErr := call(t, s, "explain_concept", map[string]any{"concept_name": "Self"})
	assert.True(t, isErr)
	assert.Contains(t, text, "quota")
}

func TestQueryKnowledge(t *testing.T) {
	search := &testutil.FakeSearcher{Docs: []domain.RetrievedDocument{testutil.ConceptHit("Sombra", "O lado negado.")}}
	s := setup(t, &testutil.FakeModel{}, search)

	text, isErr := call(t, s, "query_knowledge", map[string]any{"query": "sombra"})
	require.False(t, isErr)
	var res []knowledge.QueryResult
	require.NoError(t, json.Unmarshal([]byte(text), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "O lado negado.", res[0].Content)
	assert.Equal(t, []string{"sombra"}, search.Queries)
}

func TestStoreTools(t *testing.T) {
	s := setup(t, &testutil.FakeModel{}, &testutil.FakeSearcher{})

	text, isErr := call(t, s, "related_concepts", map[string]any{"name": "Individuação"})
	require.False(t, isErr)
	var related []conceptSummary
	require.NoError(t, json.Unmarshal([]byte(text), &related))
	var names []string
	for _, c := range related {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Self", "Persona"}, names)

	_, isErr = call(t, s, "related_concepts", map[string]any{"name": "Nada"})
	assert.True(t, isErr)

	text, isErr = call(t, s, "search_by_category", map[string]any{"category": "Estrutura Psíquica"})
	require.False(t, isErr)
	assert.Contains(t, text, "Inconsciente Coletivo")
}

func TestHandlers_RequireArguments(t *testing.T) {
	tools := &Tools{}
	res, _, err := tools.ExplainConcept(context.Background(), nil, ExplainConceptInput{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	res, _, err = tools.QueryKnowledge(context.Background(), nil, QueryKnowledgeInput{Query: " "})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
