package mining

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

// JoinStrategy decides how a ticket thread maps onto problem/resolution
// records. The helpdesk schema stores both in the same entry table, so
// the mapping is a policy, not a fact.
type JoinStrategy interface {
	Name() string
	Records(thread models.TicketThread) []models.TicketRecord
}

// TicketMiner turns resolved ticket threads into TicketRecords using the
// configured join strategy. Thread entry bodies are HTML and are reduced
// to plain text here.
type TicketMiner struct {
	strategy JoinStrategy
}

func NewTicketMiner(strategy JoinStrategy) *TicketMiner {
	if strategy == nil {
		strategy = ConflatedJoin{}
	}
	return &TicketMiner{strategy: strategy}
}

func (m *TicketMiner) Mine(threads []models.TicketThread) []models.TicketRecord {
	var records []models.TicketRecord

	for _, thread := range threads {
		if len(thread.Entries) == 0 {
			logger.Warn("Ticket has no thread entries, skipping",
				zap.Int64("ticket_id", thread.TicketID),
				zap.String("number", thread.Number),
			)
			continue
		}
		records = append(records, m.strategy.Records(thread)...)
	}

	logger.Info("Tickets mined",
		zap.Int("tickets", len(threads)),
		zap.Int("records", len(records)),
		zap.String("strategy", m.strategy.Name()),
	)

	return records
}

// NewJoinStrategy maps a config value onto a strategy. Unknown values
// fall back to the conflated legacy behavior.
func NewJoinStrategy(name string) JoinStrategy {
	if strings.EqualFold(name, "split") {
		return SplitJoin{}
	}
	return ConflatedJoin{}
}

// ConflatedJoin reproduces the legacy extraction: one record per thread
// entry, with the entry body serving as both description and resolution.
type ConflatedJoin struct{}

func (ConflatedJoin) Name() string { return "conflated" }

func (ConflatedJoin) Records(thread models.TicketThread) []models.TicketRecord {
	records := make([]models.TicketRecord, 0, len(thread.Entries))
	for _, entry := range thread.Entries {
		subject := entry.Title
		if subject == "" {
			subject = thread.Subject
		}
		body := StripHTML(entry.Body)
		records = append(records, models.TicketRecord{
			TicketID:    thread.TicketID,
			Number:      thread.Number,
			Subject:     subject,
			Description: body,
			Resolution:  body,
			Created:     thread.Created,
			Updated:     thread.Updated,
			StatusID:    thread.StatusID,
		})
	}
	return records
}

// SplitJoin emits one record per ticket: the opening entry is the problem
// description and the last staff entry is the resolution. Tickets without
// a staff reply fall back to the conflated mapping.
type SplitJoin struct{}

func (SplitJoin) Name() string { return "split" }

func (SplitJoin) Records(thread models.TicketThread) []models.TicketRecord {
	description := StripHTML(thread.Entries[0].Body)

	resolution := ""
	for i := len(thread.Entries) - 1; i >= 0; i-- {
		if thread.Entries[i].Staff {
			resolution = StripHTML(thread.Entries[i].Body)
			break
		}
	}
	if resolution == "" {
		resolution = description
	}

	subject := thread.Subject
	if subject == "" {
		subject = thread.Entries[0].Title
	}

	return []models.TicketRecord{{
		TicketID:    thread.TicketID,
		Number:      thread.Number,
		Subject:     subject,
		Description: description,
		Resolution:  resolution,
		Created:     thread.Created,
		Updated:     thread.Updated,
		StatusID:    thread.StatusID,
	}}
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// StripHTML reduces an HTML fragment to whitespace-normalized plain text.
// Input that fails to parse is returned trimmed as-is.
func StripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	doc.Find("script, style").Remove()
	text := doc.Text()
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
