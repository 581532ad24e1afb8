package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkaku-1/BEwithU/internal/cluster"
	"github.com/unkaku-1/BEwithU/internal/mining"
	"github.com/unkaku-1/BEwithU/internal/nlp"
	"github.com/unkaku-1/BEwithU/internal/publish"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/internal/synthesis"
	"github.com/unkaku-1/BEwithU/pkg/retry"
)

type fakeConversations struct {
	records  []models.ConversationRecord
	pingErr  error
	fetchErr error
}

func (f *fakeConversations) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeConversations) FetchSince(ctx context.Context, since time.Time) ([]models.ConversationRecord, error) {
	return f.records, f.fetchErr
}

type fakeTickets struct {
	threads []models.TicketThread
	pingErr error
}

func (f *fakeTickets) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeTickets) FetchResolvedSince(ctx context.Context, since time.Time) ([]models.TicketThread, error) {
	return f.threads, nil
}

type fakePublisher struct {
	published [][]models.KnowledgeItem
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, items []models.KnowledgeItem) (publish.Result, error) {
	if f.err != nil {
		return publish.Result{}, f.err
	}
	f.published = append(f.published, items)
	return publish.Result{Created: len(items)}, nil
}

type fakeStore struct {
	runs []*models.RunRecord
}

func (f *fakeStore) InsertRun(run *models.RunRecord) error {
	f.runs = append(f.runs, run)
	return nil
}

func newTestRunner(conv *fakeConversations, tick *fakeTickets, pub *fakePublisher, store *fakeStore) *Runner {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.InitialDelay = time.Millisecond

	return NewRunner(Options{
		Conversations:      conv,
		Tickets:            tick,
		Publisher:          pub,
		Store:              store,
		TicketMiner:        mining.NewTicketMiner(mining.SplitJoin{}),
		Clusterer:          cluster.NewClusterer(0.3, 2, 1000),
		Synthesizer:        synthesis.NewSynthesizer(nlp.NewKeywordExtractor()),
		ConversationWindow: 7 * 24 * time.Hour,
		TicketWindow:       30 * 24 * time.Hour,
		Retry:              cfg,
	})
}

func passwordConversations() []models.ConversationRecord {
	return []models.ConversationRecord{
		{
			SenderID: "u1",
			Messages: []models.Message{
				{Role: models.RoleUser, Text: "How do I reset my password?"},
				{Role: models.RoleBot, Text: "Use the forgot password link."},
			},
		},
		{
			SenderID: "u2",
			Messages: []models.Message{
				{Role: models.RoleUser, Text: "How can I reset password?"},
				{Role: models.RoleBot, Text: "Click forgot password."},
			},
		},
		{
			SenderID: "u3",
			Messages: []models.Message{
				{Role: models.RoleUser, Text: "What is your refund policy?"},
				{Role: models.RoleBot, Text: "30 days."},
			},
		},
	}
}

func TestRunnerRun(t *testing.T) {
	t.Run("full pass publishes clustered and ticket items", func(t *testing.T) {
		conv := &fakeConversations{records: passwordConversations()}
		tick := &fakeTickets{threads: []models.TicketThread{{
			TicketID: 1,
			Number:   "000001",
			Subject:  "Broken keyboard",
			Updated:  time.Now(),
			Entries: []models.ThreadEntry{
				{Body: "<p>Keys are stuck.</p>"},
				{Body: "<p>Replaced the keyboard.</p>", Staff: true},
			},
		}}}
		pub := &fakePublisher{}
		store := &fakeStore{}

		err := newTestRunner(conv, tick, pub, store).Run(context.Background())
		require.NoError(t, err)

		require.Len(t, pub.published, 1)
		items := pub.published[0]
		// One clustered password item plus one ticket item.
		require.Len(t, items, 2)
		assert.Equal(t, models.SourceConversation, items[0].Source)
		assert.Equal(t, 2, items[0].Frequency)
		assert.Equal(t, models.SourceTicket, items[1].Source)
		assert.Equal(t, "Broken keyboard", items[1].Title)

		require.Len(t, store.runs, 1)
		run := store.runs[0]
		assert.Equal(t, string(StateIdle), run.State)
		assert.Equal(t, 3, run.Conversations)
		assert.Equal(t, 1, run.Tickets)
		assert.Equal(t, 2, run.Items)
		assert.Equal(t, 2, run.PagesCreated)
		assert.Empty(t, run.Error)
	})

	t.Run("conversation store down aborts the run", func(t *testing.T) {
		conv := &fakeConversations{pingErr: errors.New("connection refused")}
		pub := &fakePublisher{}
		store := &fakeStore{}
		runner := newTestRunner(conv, &fakeTickets{}, pub, store)

		err := runner.Run(context.Background())
		require.Error(t, err)

		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, "conversation store", connErr.System)
		assert.Empty(t, pub.published)
		assert.Equal(t, StateIdle, runner.State())

		require.Len(t, store.runs, 1)
		assert.NotEmpty(t, store.runs[0].Error)
	})

	t.Run("fetch failure is a connection error", func(t *testing.T) {
		conv := &fakeConversations{fetchErr: errors.New("query timeout")}
		runner := newTestRunner(conv, &fakeTickets{}, &fakePublisher{}, &fakeStore{})

		err := runner.Run(context.Background())
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
	})

	t.Run("publish failure is reported but state returns to idle", func(t *testing.T) {
		conv := &fakeConversations{records: passwordConversations()}
		pub := &fakePublisher{err: errors.New("401 unauthorized")}
		runner := newTestRunner(conv, &fakeTickets{}, pub, &fakeStore{})

		err := runner.Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateIdle, runner.State())
	})

	t.Run("empty sources complete without error", func(t *testing.T) {
		conv := &fakeConversations{}
		tick := &fakeTickets{}
		pub := &fakePublisher{}
		runner := newTestRunner(conv, tick, pub, &fakeStore{})

		err := runner.Run(context.Background())
		require.NoError(t, err)

		require.Len(t, pub.published, 1)
		assert.Empty(t, pub.published[0])

		last := runner.LastRun()
		require.NotNil(t, last)
		assert.Zero(t, last.Items)
	})

	t.Run("single question short-circuits clustering", func(t *testing.T) {
		conv := &fakeConversations{records: []models.ConversationRecord{{
			SenderID: "solo",
			Messages: []models.Message{
				{Role: models.RoleUser, Text: "Is anyone maintaining this?"},
			},
		}}}
		pub := &fakePublisher{}
		runner := newTestRunner(conv, &fakeTickets{}, pub, &fakeStore{})

		err := runner.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, pub.published, 1)
		assert.Empty(t, pub.published[0])
	})

	t.Run("nil store is tolerated", func(t *testing.T) {
		runner := newTestRunner(&fakeConversations{}, &fakeTickets{}, &fakePublisher{}, nil)
		// Typed nil must not be treated as a usable store.
		runner.store = nil

		require.NoError(t, runner.Run(context.Background()))
	})
}
