// Package nlp turns raw free-text questions into normalized tokens and
// named entities. Tokenization and entity recognition are delegated to the
// prose library; this package owns lower-casing, punctuation stripping and
// stopword removal.
package nlp

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// Entity is a recognized named-entity span with its semantic label.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// Analyzer produces normalized tokens and entities from raw text.
// It is a pure function of its input; implementations hold no per-request
// state and are safe for concurrent use.
type Analyzer interface {
	Analyze(text string) ([]string, []Entity, error)
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// stopwords is the fixed filter set. Deliberately small: interrogatives
// like "how" and "many" survive because the planner keys on them.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "am": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "from": true, "by": true, "as": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true, "i": true,
	"me": true, "my": true, "mine": true, "we": true, "our": true, "you": true,
	"your": true, "do": true, "does": true, "did": true, "can": true,
	"could": true, "will": true, "would": true, "should": true, "have": true,
	"has": true, "had": true, "there": true, "their": true, "they": true,
	"them": true, "what": true, "which": true, "who": true, "please": true,
	"show": true, "give": true, "tell": true, "about": true,
}

// ProseAnalyzer implements Analyzer on top of the prose tokenizer and NER
// model.
type ProseAnalyzer struct{}

// NewAnalyzer creates the default prose-backed analyzer.
func NewAnalyzer() *ProseAnalyzer {
	return &ProseAnalyzer{}
}

// Analyze tokenizes text into lower-cased alphanumeric words with stopwords
// removed (order and duplicates preserved) and extracts named entities.
// Empty or unparseable input yields empty slices, never an error surfaced
// to the pipeline.
func (a *ProseAnalyzer) Analyze(text string) ([]string, []Entity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		// Degraded mode: whitespace split with the same normalization.
		return normalizeWords(strings.Fields(text)), nil, nil
	}

	words := make([]string, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		words = append(words, tok.Text)
	}

	entities := make([]Entity, 0, len(doc.Entities()))
	for _, ent := range doc.Entities() {
		entities = append(entities, Entity{Text: ent.Text, Label: ent.Label})
	}

	return normalizeWords(words), entities, nil
}

func normalizeWords(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = nonAlnum.ReplaceAllString(strings.ToLower(w), "")
		if w == "" || stopwords[w] {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}
