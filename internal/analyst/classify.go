package analyst

import (
	"strings"
	"unicode"
)

// Route is the outcome of classifying a user input.
type Route int

const (
	RouteSimple Route = iota
	RouteSubstantial
)

func (r Route) String() string {
	if r == RouteSimple {
		return "simple"
	}
	return "substantial"
}

// DefaultSimpleThreshold is the token count below which an input is Simple.
const DefaultSimpleThreshold = 8

// DefaultGreetings are matched as whole words or phrases.
var DefaultGreetings = []string{
	"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite",
	"tudo bem", "como vai", "e aí", "hello", "hi",
}

// Classifier routes short or greeting inputs to the conversational template.
type Classifier struct {
	Threshold int
	Greetings []string
}

// NewClassifier returns a classifier with the default threshold and greetings.
func NewClassifier() Classifier {
	return Classifier{Threshold: DefaultSimpleThreshold, Greetings: DefaultGreetings}
}

// Classify lowercases and trims input, then reports Simple when it has fewer
// than Threshold whitespace-separated tokens or contains a greeting.
func (c Classifier) Classify(input string) Route {
	norm := strings.ToLower(strings.TrimSpace(input))
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = DefaultSimpleThreshold
	}
	if len(strings.Fields(norm)) < threshold {
		return RouteSimple
	}
	words := strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	padded := " " + strings.Join(words, " ") + " "
	for _, g := range c.Greetings {
		phrase := strings.Join(strings.FieldsFunc(strings.ToLower(g), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}), " ")
		if phrase != "" && strings.Contains(padded, " "+phrase+" ") {
			return RouteSimple
		}
	}
	return RouteSubstantial
}
