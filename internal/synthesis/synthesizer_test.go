package synthesis

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkaku-1/BEwithU/internal/cluster"
	"github.com/unkaku-1/BEwithU/internal/nlp"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
)

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer(nlp.NewKeywordExtractor())
}

func TestTruncateTitle(t *testing.T) {
	t.Run("short titles pass through", func(t *testing.T) {
		assert.Equal(t, "short", TruncateTitle("short"))
	})

	t.Run("80 characters become exactly 53", func(t *testing.T) {
		long := strings.Repeat("x", 80)
		title := TruncateTitle(long)
		assert.Len(t, []rune(title), 53)
		assert.True(t, strings.HasSuffix(title, "..."))
	})

	t.Run("boundary of 50 is untouched", func(t *testing.T) {
		exact := strings.Repeat("y", 50)
		assert.Equal(t, exact, TruncateTitle(exact))
	})
}

func TestFromConversations(t *testing.T) {
	s := newTestSynthesizer()

	t.Run("password cluster produces one item", func(t *testing.T) {
		pairs := []models.QAPair{
			{Question: "How do I reset my password?", Answer: "Use the forgot password link on the login page.", ConversationID: "c1"},
			{Question: "How can I reset password?", Answer: "Click forgot password.", ConversationID: "c2"},
			{Question: "What is your refund policy?", Answer: "30 days.", ConversationID: "c3"},
		}
		labels := []int{0, 0, cluster.Noise}

		items := s.FromConversations(pairs, labels)
		require.Len(t, items, 1)

		item := items[0]
		assert.Equal(t, models.SourceConversation, item.Source)
		assert.Equal(t, 2, item.Frequency)
		assert.Contains(t, item.Examples, "How do I reset my password?")
		assert.Contains(t, item.Examples, "How can I reset password?")
		// Longest answer wins the representative slot.
		assert.Equal(t, "How do I reset my password?", item.Title)
		assert.Contains(t, item.Content, "## Question")
		assert.Contains(t, item.Content, "## Solution")
		assert.Contains(t, item.Content, "Use the forgot password link on the login page.")
	})

	t.Run("tie on answer length keeps first occurrence", func(t *testing.T) {
		pairs := []models.QAPair{
			{Question: "first", Answer: "same"},
			{Question: "second", Answer: "tied"},
		}
		items := s.FromConversations(pairs, []int{0, 0})
		require.Len(t, items, 1)
		assert.Equal(t, "first", items[0].Title)
	})

	t.Run("noise-only input emits nothing", func(t *testing.T) {
		pairs := []models.QAPair{
			{Question: "lonely question", Answer: "a"},
		}
		assert.Empty(t, s.FromConversations(pairs, []int{cluster.Noise}))
	})

	t.Run("no item ever has frequency below two", func(t *testing.T) {
		pairs := []models.QAPair{
			{Question: "q1", Answer: "a"},
			{Question: "q2", Answer: "b"},
			{Question: "q3", Answer: "c"},
		}
		items := s.FromConversations(pairs, []int{0, 0, 1})
		for _, item := range items {
			assert.GreaterOrEqual(t, item.Frequency, 2)
		}
	})

	t.Run("examples cap at five", func(t *testing.T) {
		var pairs []models.QAPair
		labels := make([]int, 7)
		for i := 0; i < 7; i++ {
			pairs = append(pairs, models.QAPair{Question: strings.Repeat("q", i+1), Answer: "a"})
			labels[i] = 0
		}
		items := s.FromConversations(pairs, labels)
		require.Len(t, items, 1)
		assert.Len(t, items[0].Examples, 5)
		assert.Equal(t, 7, items[0].Frequency)
	})

	t.Run("long question title is truncated", func(t *testing.T) {
		long := strings.Repeat("z", 80)
		pairs := []models.QAPair{
			{Question: long, Answer: "aaa"},
			{Question: long, Answer: "aa"},
		}
		items := s.FromConversations(pairs, []int{0, 0})
		require.Len(t, items, 1)
		assert.Len(t, []rune(items[0].Title), 53)
	})
}

func TestFromTickets(t *testing.T) {
	s := newTestSynthesizer()

	t.Run("one item per ticket record", func(t *testing.T) {
		created := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		updated := created.Add(48 * time.Hour)
		records := []models.TicketRecord{
			{
				Number:      "000123",
				Subject:     "Cannot connect to the office VPN",
				Description: "The VPN client times out when connecting from home.",
				Resolution:  "Updated the client and reissued the certificate.",
				Created:     created,
				Updated:     updated,
			},
			{
				Number:      "000124",
				Subject:     "Email quota exceeded",
				Description: "Mailbox rejects incoming mail.",
				Resolution:  "Archived old mail and raised the quota.",
				Created:     created,
				Updated:     updated,
			},
		}

		items := s.FromTickets(records)
		require.Len(t, items, 2)

		first := items[0]
		assert.Equal(t, models.SourceTicket, first.Source)
		assert.Equal(t, "Cannot connect to the office VPN", first.Title)
		assert.Equal(t, "000123", first.TicketNumber)
		assert.Equal(t, created, first.Created)
		assert.Contains(t, first.Content, "## Problem")
		assert.Contains(t, first.Content, "## Solution")
		assert.Contains(t, first.Content, "Updated the client and reissued the certificate.")
		assert.Zero(t, first.Frequency)
	})

	t.Run("keywords come from the description", func(t *testing.T) {
		records := []models.TicketRecord{{
			Number:      "000125",
			Subject:     "short",
			Description: "The projector in the meeting room shows a blue screen.",
			Resolution:  "Replaced the HDMI cable.",
		}}
		items := s.FromTickets(records)
		require.Len(t, items, 1)

		joined := strings.ToLower(strings.Join(items[0].Keywords, " "))
		assert.Contains(t, joined, "projector")
		assert.NotContains(t, joined, "hdmi")
	})

	t.Run("zero tickets produce zero items without error", func(t *testing.T) {
		assert.Empty(t, s.FromTickets(nil))
	})
}
