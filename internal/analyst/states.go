package analyst

import (
	"context"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/llm"
)

// State is a step of the reply pipeline.
type State int

const (
	StateClassify State = iota
	StateRetrieve
	StateRender
	StateStream
	StateFinalize
	StateDone
)

func (s State) String() string {
	switch s {
	case StateClassify:
		return "classify"
	case StateRetrieve:
		return "retrieve"
	case StateRender:
		return "render"
	case StateStream:
		return "stream"
	case StateFinalize:
		return "finalize"
	default:
		return "done"
	}
}

// retrieveK is the number of hits requested per turn.
const retrieveK = 3

// descriptionLimit bounds the concept descriptions sent with a reply.
const descriptionLimit = 150

// turn carries one reply through the pipeline.
type turn struct {
	input      string
	route      Route
	concepts   []domain.ConceptRef
	context    []string
	techniques []string
	prompt     string
	text       strings.Builder
	usage      domain.Usage
}

// emitFunc delivers an event to the consumer; false means the consumer is gone.
type emitFunc func(domain.StreamEvent) bool

// classify: Classify -> Retrieve | Render.
func (a *Analyst) classify(t *turn) State {
	t.route = a.classifier.Classify(t.input)
	if t.route == RouteSimple {
		return StateRender
	}
	return StateRetrieve
}

// retrieve: Retrieve -> Render.
func (a *Analyst) retrieve(ctx context.Context, t *turn) (State, error) {
	docs, err := a.index.SimilaritySearch(ctx, t.input, retrieveK, nil)
	if err != nil {
		return StateRetrieve, err
	}
	seen := make(map[string]struct{})
	for _, d := range docs {
		name := d.Metadata.Concept
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		c, ok := a.store.Lookup(name)
		if !ok {
			continue
		}
		seen[name] = struct{}{}
		t.concepts = append(t.concepts, domain.ConceptRef{Name: c.Name, Description: truncate(c.Description, descriptionLimit)})
		t.context = append(t.context, c.Name+": "+c.Description)
	}
	t.techniques = a.store.TherapeuticTechniques()
	return StateRender, nil
}

// render: Render -> Stream.
func (a *Analyst) render(t *turn) (State, error) {
	history := a.memory.History()
	var err error
	if t.route == RouteSimple {
		t.prompt, err = conversationalTemplate.Render(map[string]string{
			VarUserInput:   t.input,
			VarChatHistory: history,
		})
	} else {
		t.prompt, err = therapeuticTemplate.Render(map[string]string{
			VarSituation:           t.input,
			VarRelevantConcepts:    strings.Join(t.context, "\n"),
			VarAvailableTechniques: strings.Join(t.techniques, "\n"),
			VarChatHistory:         history,
		})
	}
	if err != nil {
		return StateRender, err
	}
	return StateStream, nil
}

// stream: Stream -> Finalize. Every non-empty delta is forwarded as it arrives.
func (a *Analyst) stream(ctx context.Context, t *turn, emit emitFunc) (State, error) {
	resp, err := a.model.Stream(ctx, a.request(llm.TaskStream, t.prompt), func(delta string) error {
		if delta == "" {
			return nil
		}
		t.text.WriteString(delta)
		if !emit(domain.StreamEvent{Kind: domain.EventTextDelta, Text: delta}) {
			return domain.ErrConsumerGone
		}
		return nil
	})
	if err != nil {
		return StateStream, err
	}
	t.usage = resp.Usage
	return StateFinalize, nil
}

// finalize: Finalize -> Done. The metadata event goes out before memory is
// touched; a consumer that left before it is not remembered.
func (a *Analyst) finalize(t *turn, emit emitFunc) State {
	concepts := t.concepts
	if concepts == nil {
		concepts = []domain.ConceptRef{}
	}
	ok := emit(domain.StreamEvent{
		Kind: domain.EventMetadata,
		Metadata: &domain.MetadataPayload{
			Concepts:   concepts,
			References: []string{},
		},
	})
	if ok {
		a.memory.Save(t.input, t.text.String())
	}
	return StateDone
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
