// Package analyst routes user input to a prompt template, calls the chat
// model and remembers completed turns.
package analyst

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
	"github.com/FAL1989/consultorio-jung/internal/llm"
	"github.com/FAL1989/consultorio-jung/internal/memory"
)

// ArchetypeNotFound is returned in place of an analysis for unknown archetypes.
const ArchetypeNotFound = "Arquétipo não encontrado na base de conhecimento."

// Deps are shared by every conversation.
type Deps struct {
	Store      *knowledge.Store
	Index      knowledge.Searcher
	Model      llm.ChatModel
	Classifier *Classifier
	Logger     *slog.Logger
}

// Analyst answers one conversation. Use WithMemory to serve another
// conversation with the same dependencies.
type Analyst struct {
	store      *knowledge.Store
	index      knowledge.Searcher
	model      llm.ChatModel
	memory     *memory.Memory
	classifier Classifier
	logger     *slog.Logger
}

// ChatResult is a complete non-streamed reply.
type ChatResult struct {
	Text       string              `json:"text"`
	Concepts   []domain.ConceptRef `json:"concepts"`
	References []string            `json:"references"`
	Usage      domain.Usage        `json:"-"`
}

func New(d Deps, mem *memory.Memory) *Analyst {
	if mem == nil {
		mem = memory.New(memory.DefaultWindow)
	}
	c := NewClassifier()
	if d.Classifier != nil {
		c = *d.Classifier
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{
		store:      d.Store,
		index:      d.Index,
		model:      d.Model,
		memory:     mem,
		classifier: c,
		logger:     logger,
	}
}

// WithMemory returns an analyst sharing a's dependencies but remembering into mem.
func (a *Analyst) WithMemory(mem *memory.Memory) *Analyst {
	cp := *a
	cp.memory = mem
	return &cp
}

func (a *Analyst) Memory() *memory.Memory { return a.memory }

func (a *Analyst) Classify(input string) Route { return a.classifier.Classify(input) }

// GenerateResponseStream streams a reply to input. The channel yields text
// deltas in model order and then exactly one metadata or error event before
// it is closed. Canceling ctx abandons the model call.
func (a *Analyst) GenerateResponseStream(ctx context.Context, input string) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent)
	go func() {
		defer close(out)
		emit := func(ev domain.StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		state, err := a.run(ctx, input, emit)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrConsumerGone) || ctx.Err() != nil:
			a.logger.Debug("stream abandoned", "state", state)
		default:
			a.logger.Error("stream failed", "state", state, "error", err)
			emit(domain.StreamEvent{Kind: domain.EventError, Err: err.Error()})
		}
	}()
	return out
}

func (a *Analyst) run(ctx context.Context, input string, emit emitFunc) (State, error) {
	t := &turn{input: input}
	state := StateClassify
	var err error
	for state != StateDone {
		switch state {
		case StateClassify:
			state = a.classify(t)
		case StateRetrieve:
			state, err = a.retrieve(ctx, t)
		case StateRender:
			state, err = a.render(t)
		case StateStream:
			state, err = a.stream(ctx, t, emit)
		case StateFinalize:
			state = a.finalize(t, emit)
		}
		if err != nil {
			return state, err
		}
	}
	a.logger.Debug("stream completed", "route", t.route, "concepts", len(t.concepts), "chars", t.text.Len())
	return state, nil
}

// Chat is the non-streamed form of GenerateResponseStream.
func (a *Analyst) Chat(ctx context.Context, input string) (*ChatResult, error) {
	t := &turn{input: input}
	if a.classify(t) == StateRetrieve {
		if _, err := a.retrieve(ctx, t); err != nil {
			return nil, err
		}
	}
	if _, err := a.render(t); err != nil {
		return nil, err
	}
	resp, err := a.model.Complete(ctx, a.request(llm.TaskChat, t.prompt))
	if err != nil {
		return nil, err
	}
	if resp.Text == "" {
		return nil, &domain.ModelInvocationError{Op: "complete", Err: domain.ErrEmptyCompletion}
	}
	a.memory.Save(input, resp.Text)
	concepts := t.concepts
	if concepts == nil {
		concepts = []domain.ConceptRef{}
	}
	return &ChatResult{Text: resp.Text, Concepts: concepts, References: []string{}, Usage: resp.Usage}, nil
}

// ExplainConcept explains a named concept, using the knowledge store entry
// when known and similarity-search context otherwise.
func (a *Analyst) ExplainConcept(ctx context.Context, name, userInput string) (string, error) {
	var background string
	if c, ok := a.store.Lookup(name); ok {
		background = "Descrição: " + c.Description +
			"\nExemplos: " + strings.Join(c.Examples, ", ") +
			"\nConceitos relacionados: " + strings.Join(c.RelatedConcepts, ", ")
	} else {
		docs, err := a.index.SimilaritySearch(ctx, name, retrieveK, nil)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(docs))
		for _, d := range docs {
			parts = append(parts, d.Content)
		}
		background = strings.Join(parts, "\n")
	}
	prompt, err := conceptTemplate.Render(map[string]string{
		VarConceptName: name,
		VarContext:     background,
		VarChatHistory: a.memory.History(),
	})
	if err != nil {
		return "", err
	}
	return a.complete(ctx, llm.TaskConcept, prompt, userInputOr(userInput, name))
}

// AnalyzeArchetype analyzes a known archetype. Unknown names yield
// ArchetypeNotFound without calling the model.
func (a *Analyst) AnalyzeArchetype(ctx context.Context, name, userInput string) (string, error) {
	arch, ok := a.store.Archetype(name)
	if !ok {
		return ArchetypeNotFound, nil
	}
	prompt, err := archetypeTemplate.Render(map[string]string{
		VarArchetypeName:  name,
		VarManifestations: strings.Join(arch.Manifestations, "\n"),
		VarSymbols:        strings.Join(arch.Symbols, "\n"),
		VarChatHistory:    a.memory.History(),
	})
	if err != nil {
		return "", err
	}
	return a.complete(ctx, llm.TaskArchetype, prompt, userInputOr(userInput, name))
}

// TherapeuticGuidance advises on a situation. When relevantConcepts is nil
// the concepts come from a similarity search over the situation.
func (a *Analyst) TherapeuticGuidance(ctx context.Context, situation, userInput string, relevantConcepts []string) (string, error) {
	if relevantConcepts == nil {
		docs, err := a.index.SimilaritySearch(ctx, situation, retrieveK, nil)
		if err != nil {
			return "", err
		}
		for _, d := range docs {
			if d.Metadata.Concept != "" {
				relevantConcepts = append(relevantConcepts, d.Metadata.Concept)
			}
		}
	}
	var info []string
	for _, n := range relevantConcepts {
		if c, ok := a.store.Lookup(n); ok {
			info = append(info, n+": "+c.Description)
		}
	}
	prompt, err := therapeuticTemplate.Render(map[string]string{
		VarSituation:           situation,
		VarRelevantConcepts:    strings.Join(info, "\n"),
		VarAvailableTechniques: strings.Join(a.store.TherapeuticTechniques(), "\n"),
		VarChatHistory:         a.memory.History(),
	})
	if err != nil {
		return "", err
	}
	return a.complete(ctx, llm.TaskGuidance, prompt, userInputOr(userInput, situation))
}

func (a *Analyst) complete(ctx context.Context, task llm.TaskType, prompt, remembered string) (string, error) {
	resp, err := a.model.Complete(ctx, a.request(task, prompt))
	if err != nil {
		return "", err
	}
	if resp.Text == "" {
		return "", &domain.ModelInvocationError{Op: "complete", Err: domain.ErrEmptyCompletion}
	}
	a.memory.Save(remembered, resp.Text)
	return resp.Text, nil
}

func (a *Analyst) request(task llm.TaskType, prompt string) llm.Request {
	return llm.Request{Task: task, Messages: []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}}
}

func userInputOr(userInput, fallback string) string {
	if strings.TrimSpace(userInput) != "" {
		return userInput
	}
	return fallback
}
