package synthesis

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/cluster"
	"github.com/unkaku-1/BEwithU/internal/nlp"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

const (
	titleLimit  = 50
	maxExamples = 5
)

// Synthesizer turns clustered question/answer pairs and resolved tickets
// into knowledge items ready for publishing.
type Synthesizer struct {
	keywords *nlp.KeywordExtractor
}

func NewSynthesizer(keywords *nlp.KeywordExtractor) *Synthesizer {
	return &Synthesizer{keywords: keywords}
}

// FromConversations builds one item per cluster of at least two similar
// questions. Noise labels are discarded. The representative pair is the
// one with the longest answer, first occurrence winning ties.
func (s *Synthesizer) FromConversations(pairs []models.QAPair, labels []int) []models.KnowledgeItem {
	grouped := make(map[int][]models.QAPair)
	for i, label := range labels {
		if label == cluster.Noise {
			continue
		}
		grouped[label] = append(grouped[label], pairs[i])
	}

	labelOrder := make([]int, 0, len(grouped))
	for label := range grouped {
		labelOrder = append(labelOrder, label)
	}
	sort.Ints(labelOrder)

	var items []models.KnowledgeItem
	for _, label := range labelOrder {
		members := grouped[label]
		if len(members) < 2 {
			continue
		}

		rep := members[0]
		for _, member := range members[1:] {
			if len([]rune(member.Answer)) > len([]rune(rep.Answer)) {
				rep = member
			}
		}

		keywords, err := s.keywords.Extract(rep.Question)
		if err != nil {
			logger.Warn("Keyword extraction failed",
				zap.String("question", rep.Question),
				zap.Error(err),
			)
		}

		examples := make([]string, 0, maxExamples)
		for _, member := range members {
			if len(examples) == maxExamples {
				break
			}
			examples = append(examples, member.Question)
		}

		items = append(items, models.KnowledgeItem{
			Title:     TruncateTitle(rep.Question),
			Content:   fmt.Sprintf("## Question\n\n%s\n\n## Solution\n\n%s", rep.Question, rep.Answer),
			Keywords:  keywords,
			Source:    models.SourceConversation,
			Frequency: len(members),
			Examples:  examples,
		})
	}

	logger.Info("Knowledge items synthesized from conversations",
		zap.Int("clusters", len(grouped)),
		zap.Int("items", len(items)),
	)

	return items
}

// FromTickets builds one item per ticket record, without clustering.
// Keywords come from the problem description only.
func (s *Synthesizer) FromTickets(records []models.TicketRecord) []models.KnowledgeItem {
	var items []models.KnowledgeItem

	for _, record := range records {
		keywords, err := s.keywords.Extract(record.Description)
		if err != nil {
			logger.Warn("Keyword extraction failed",
				zap.String("ticket", record.Number),
				zap.Error(err),
			)
		}

		items = append(items, models.KnowledgeItem{
			Title:        TruncateTitle(record.Subject),
			Content:      fmt.Sprintf("## Problem\n\n%s\n\n## Solution\n\n%s", record.Description, record.Resolution),
			Keywords:     keywords,
			Source:       models.SourceTicket,
			TicketNumber: record.Number,
			Created:      record.Created,
			Updated:      record.Updated,
		})
	}

	logger.Info("Knowledge items synthesized from tickets",
		zap.Int("tickets", len(records)),
		zap.Int("items", len(items)),
	)

	return items
}

// TruncateTitle caps a title at 50 characters, appending an ellipsis when
// the input was longer. Counts runes, not bytes.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleLimit {
		return title
	}
	return string(runes[:titleLimit]) + "..."
}
