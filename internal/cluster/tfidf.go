package cluster

import (
	"math"
	"sort"

	"github.com/unkaku-1/BEwithU/internal/nlp"
)

// Vectorizer turns a question corpus into L2-normalized TF-IDF vectors
// over a bounded vocabulary. Vocabulary order is fully deterministic:
// terms are ranked by corpus frequency (ties alphabetical) when the cap
// applies, then indexed in sorted order, so identical input always yields
// identical vectors.
type Vectorizer struct {
	maxFeatures int
}

func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 1000
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// FitTransform builds the vocabulary from docs and returns one vector per
// document. A document with no in-vocabulary terms yields a zero vector.
func (v *Vectorizer) FitTransform(docs []string) [][]float64 {
	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		tokenized[i] = nlp.Tokenize(d)
	}

	vocab := v.buildVocabulary(tokenized)
	if len(vocab) == 0 {
		return make([][]float64, len(docs))
	}

	docFreq := make([]int, len(vocab))
	counts := make([]map[int]int, len(tokenized))
	for i, terms := range tokenized {
		tf := make(map[int]int)
		for _, t := range terms {
			if idx, ok := vocab[t]; ok {
				tf[idx]++
			}
		}
		counts[i] = tf
		for idx := range tf {
			docFreq[idx]++
		}
	}

	// Smoothed idf, as if one extra document contained every term.
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, df := range docFreq {
		idf[i] = math.Log((1+n)/(1+float64(df))) + 1
	}

	vectors := make([][]float64, len(docs))
	for i, tf := range counts {
		vec := make([]float64, len(vocab))
		for idx, count := range tf {
			vec[idx] = float64(count) * idf[idx]
		}
		normalize(vec)
		vectors[i] = vec
	}
	return vectors
}

func (v *Vectorizer) buildVocabulary(tokenized [][]string) map[string]int {
	termCount := make(map[string]int)
	for _, terms := range tokenized {
		for _, t := range terms {
			termCount[t]++
		}
	}

	terms := make([]string, 0, len(termCount))
	for t := range termCount {
		terms = append(terms, t)
	}

	if len(terms) > v.maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if termCount[terms[i]] != termCount[terms[j]] {
				return termCount[terms[i]] > termCount[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.maxFeatures]
	}

	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return vocab
}

func normalize(vec []float64) {
	var sum float64
	for _, x := range vec {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}
