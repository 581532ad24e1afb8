package models

import "time"

// Message roles inside a conversation.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Knowledge item sources.
const (
	SourceConversation = "conversation"
	SourceTicket       = "ticket"
)

type Message struct {
	Role string
	Text string
}

// ConversationRecord is one chat session keyed by sender. Role alternation
// is not guaranteed: bot replies may be absent or out of order.
type ConversationRecord struct {
	SenderID string
	Messages []Message
}

// QAPair is a user question with the bot reply that immediately followed
// it, or an empty answer when no bot message came next.
type QAPair struct {
	Question       string
	Answer         string
	ConversationID string
}

// ThreadEntry is one message on a ticket thread. Bodies arrive as HTML.
type ThreadEntry struct {
	Title   string
	Body    string
	Staff   bool
	Created time.Time
}

// TicketThread is a resolved ticket joined with its ordered thread entries.
type TicketThread struct {
	TicketID int64
	Number   string
	Subject  string
	StatusID int
	Created  time.Time
	Updated  time.Time
	Entries  []ThreadEntry
}

type TicketRecord struct {
	TicketID    int64
	Number      string
	Subject     string
	Description string
	Resolution  string
	Created     time.Time
	Updated     time.Time
	StatusID    int
}

// KnowledgeItem is a synthesized article. It lives for one pipeline run:
// built in memory, published, discarded. The wiki is the system of record.
type KnowledgeItem struct {
	Title        string
	Content      string
	Keywords     []string
	Source       string
	Frequency    int
	Examples     []string
	TicketNumber string
	Created      time.Time
	Updated      time.Time
}

// RunRecord is one orchestrator run as persisted in the local run history
// and served by the ops API.
type RunRecord struct {
	ID            string    `json:"id"`
	State         string    `json:"state"`
	Conversations int       `json:"conversations"`
	Tickets       int       `json:"tickets"`
	Items         int       `json:"items"`
	PagesCreated  int       `json:"pages_created"`
	PagesSkipped  int       `json:"pages_skipped"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}
