package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
	markupPattern   = regexp.MustCompile(`(?m)^#+\s*|\*\*|\[\d+\]`)
)

// FrequencySummarizer ranks sentences by normalized word frequency, ignoring
// Portuguese and English stopwords, and keeps the winners in reading order.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: Stopwords()}
}

// Summarize returns up to maxSentences sentences from text.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	plain := markupPattern.ReplaceAllString(text, "")
	var sentences []string
	for _, sent := range sentencePattern.FindAllString(plain, -1) {
		if sent = strings.TrimSpace(sent); len(s.tokens(sent)) > 0 {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(plain), nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok] / maxF
		}
		// dampen long sentences
		ranked[i] = scored{i, total / math.Sqrt(float64(len(toks)))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if maxSentences > len(ranked) {
		maxSentences = len(ranked)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = ranked[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// Stopwords returns the Portuguese and English function words ignored when ranking.
func Stopwords() map[string]struct{} {
	words := []string{
		// pt
		"a", "o", "as", "os", "um", "uma", "uns", "umas", "de", "do", "da", "dos", "das", "em", "no", "na", "nos", "nas",
		"por", "para", "com", "sem", "e", "ou", "mas", "que", "se", "é", "são", "foi", "ser", "ao", "aos", "à", "às",
		"seu", "sua", "seus", "suas", "meu", "minha", "meus", "minhas", "este", "esta", "isso", "isto", "esse", "essa",
		"como", "mais", "muito", "também", "já", "não", "sim", "quando", "onde", "pelo", "pela", "pelos", "pelas", "eu",
		"ele", "ela", "eles", "elas", "nós", "você", "vocês", "me", "te", "lhe", "há", "entre", "sobre", "até",
		// en
		"an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by", "with", "is", "are",
		"was", "were", "be", "been", "it", "this", "that", "these", "those", "from", "as", "so", "into", "about",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
