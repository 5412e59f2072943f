// Package memory keeps the last few turns of each conversation.
package memory

import (
	"strings"
	"sync"
)

// DefaultWindow is the number of turns kept when none is given.
const DefaultWindow = 5

// Turn is one exchange between the user and the model.
type Turn struct {
	Input  string
	Output string
}

// Memory is a FIFO window of at most k turns.
type Memory struct {
	mu    sync.Mutex
	k     int
	turns []Turn
}

// New returns an empty memory holding at most k turns.
func New(k int) *Memory {
	if k <= 0 {
		k = DefaultWindow
	}
	return &Memory{k: k}
}

// Load returns a copy of the stored turns, oldest first.
func (m *Memory) Load() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Save appends a turn and evicts the oldest ones past the window.
func (m *Memory) Save(input, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Input: input, Output: output})
	if over := len(m.turns) - m.k; over > 0 {
		m.turns = append([]Turn(nil), m.turns[over:]...)
	}
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.turns = nil
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// History renders the stored turns as prompt text.
func (m *Memory) History() string {
	return Render(m.Load())
}

// Render formats turns as "Humano:" and "IA:" lines.
func Render(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Humano: ")
		b.WriteString(t.Input)
		b.WriteString("\nIA: ")
		b.WriteString(t.Output)
	}
	return b.String()
}
