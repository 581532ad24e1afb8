package mining

import (
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

// ConversationMiner turns raw conversation records into question/answer
// pairs. Pure transform, no side effects.
type ConversationMiner struct{}

func NewConversationMiner() *ConversationMiner {
	return &ConversationMiner{}
}

// Mine emits one QAPair per user message. The answer is the text of the
// message immediately following the question when that message came from
// the bot, otherwise empty. Missing or out-of-order bot replies are
// tolerated; they simply produce unanswered pairs.
func (m *ConversationMiner) Mine(records []models.ConversationRecord) []models.QAPair {
	var pairs []models.QAPair

	for _, record := range records {
		for i, msg := range record.Messages {
			if msg.Role != models.RoleUser {
				continue
			}

			answer := ""
			if i+1 < len(record.Messages) && record.Messages[i+1].Role == models.RoleBot {
				answer = record.Messages[i+1].Text
			}

			pairs = append(pairs, models.QAPair{
				Question:       msg.Text,
				Answer:         answer,
				ConversationID: record.SenderID,
			})
		}
	}

	logger.Info("Conversations mined",
		zap.Int("conversations", len(records)),
		zap.Int("qa_pairs", len(pairs)),
	)

	return pairs
}
