package nlp

import (
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// KeywordExtractor pulls salient keywords out of free text by POS tag.
// Construct one per process and inject it; document creation is the only
// expensive part and holds no mutable state.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

// Extract returns nouns, verbs and adjectives from text in order of first
// appearance, with stop words removed and case-insensitive duplicates
// dropped.
func (e *KeywordExtractor) Extract(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	var keywords []string
	seen := make(map[string]struct{})

	for _, tok := range doc.Tokens() {
		if !isContentTag(tok.Tag) {
			continue
		}
		if IsStopWord(tok.Text) {
			continue
		}
		key := strings.ToLower(tok.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, tok.Text)
	}

	return keywords, nil
}

// isContentTag matches the Penn Treebank tag families for nouns, verbs
// and adjectives.
func isContentTag(tag string) bool {
	return strings.HasPrefix(tag, "NN") ||
		strings.HasPrefix(tag, "VB") ||
		strings.HasPrefix(tag, "JJ")
}
