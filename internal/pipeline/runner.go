package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/cluster"
	"github.com/unkaku-1/BEwithU/internal/metrics"
	"github.com/unkaku-1/BEwithU/internal/mining"
	"github.com/unkaku-1/BEwithU/internal/publish"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/internal/synthesis"
	"github.com/unkaku-1/BEwithU/pkg/logger"
	"github.com/unkaku-1/BEwithU/pkg/retry"
)

// State is the orchestrator's position in one run. Transitions are
// Idle → Connecting → Extracting → Analyzing → Publishing → Idle, with a
// direct drop back to Idle on connection failure.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StatePublishing State = "publishing"
)

// Per-call deadlines so a hung dependency fails the run instead of
// blocking the scheduler forever.
const (
	pingTimeout  = 10 * time.Second
	queryTimeout = 2 * time.Minute
)

type ConversationRepository interface {
	Ping(ctx context.Context) error
	FetchSince(ctx context.Context, since time.Time) ([]models.ConversationRecord, error)
}

type TicketRepository interface {
	Ping(ctx context.Context) error
	FetchResolvedSince(ctx context.Context, since time.Time) ([]models.TicketThread, error)
}

type Publisher interface {
	Publish(ctx context.Context, items []models.KnowledgeItem) (publish.Result, error)
}

// RunStore persists run records; may be nil when no local history is kept.
type RunStore interface {
	InsertRun(run *models.RunRecord) error
}

type Runner struct {
	conversations ConversationRepository
	tickets       TicketRepository
	publisher     Publisher
	store         RunStore

	convMiner   *mining.ConversationMiner
	ticketMiner *mining.TicketMiner
	clusterer   *cluster.Clusterer
	synthesizer *synthesis.Synthesizer

	conversationWindow time.Duration
	ticketWindow       time.Duration
	retryCfg           retry.Config

	mu      sync.RWMutex
	state   State
	lastRun *models.RunRecord
}

type Options struct {
	Conversations      ConversationRepository
	Tickets            TicketRepository
	Publisher          Publisher
	Store              RunStore
	TicketMiner        *mining.TicketMiner
	Clusterer          *cluster.Clusterer
	Synthesizer        *synthesis.Synthesizer
	ConversationWindow time.Duration
	TicketWindow       time.Duration
	Retry              retry.Config
}

func NewRunner(opts Options) *Runner {
	return &Runner{
		conversations:      opts.Conversations,
		tickets:            opts.Tickets,
		publisher:          opts.Publisher,
		store:              opts.Store,
		convMiner:          mining.NewConversationMiner(),
		ticketMiner:        opts.TicketMiner,
		clusterer:          opts.Clusterer,
		synthesizer:        opts.Synthesizer,
		conversationWindow: opts.ConversationWindow,
		ticketWindow:       opts.TicketWindow,
		retryCfg:           opts.Retry,
		state:              StateIdle,
	}
}

// State returns the current orchestrator state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// LastRun returns the most recently finished run record, or nil.
func (r *Runner) LastRun() *models.RunRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRun
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	logger.Debug("Pipeline state changed", zap.String("state", string(s)))
}

// Run executes one extraction pass end to end. Connection failures abort
// the pass; everything is reported through the returned error and the run
// record, never by panic or exit.
func (r *Runner) Run(ctx context.Context) error {
	run := &models.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger.Info("Starting knowledge extraction run", zap.String("run_id", run.ID))

	err := r.execute(ctx, run)

	run.FinishedAt = time.Now()
	if err != nil {
		run.Error = err.Error()
		metrics.RunsTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.RunsTotal.WithLabelValues("succeeded").Inc()
	}
	metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	r.finish(run)

	if err != nil {
		logger.Error("Knowledge extraction run failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		return err
	}

	logger.Info("Knowledge extraction run complete",
		zap.String("run_id", run.ID),
		zap.Int("items", run.Items),
		zap.Int("pages_created", run.PagesCreated),
		zap.Duration("duration", run.FinishedAt.Sub(run.StartedAt)),
	)
	return nil
}

func (r *Runner) execute(ctx context.Context, run *models.RunRecord) error {
	r.setState(StateConnecting)
	defer r.setState(StateIdle)

	if err := retry.Do(ctx, r.retryCfg, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return r.conversations.Ping(pingCtx)
	}); err != nil {
		run.State = string(StateConnecting)
		return &ConnectionError{System: "conversation store", Err: err}
	}
	if err := retry.Do(ctx, r.retryCfg, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return r.tickets.Ping(pingCtx)
	}); err != nil {
		run.State = string(StateConnecting)
		return &ConnectionError{System: "ticket store", Err: err}
	}

	r.setState(StateExtracting)
	run.State = string(StateExtracting)

	conversations, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]models.ConversationRecord, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return r.conversations.FetchSince(fetchCtx, time.Now().Add(-r.conversationWindow))
	})
	if err != nil {
		return &ConnectionError{System: "conversation store", Err: err}
	}
	run.Conversations = len(conversations)
	metrics.ConversationsExtracted.Set(float64(len(conversations)))

	threads, err := retry.DoWithResult(ctx, r.retryCfg, func() ([]models.TicketThread, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, queryTimeout)
		defer cancel()
		return r.tickets.FetchResolvedSince(fetchCtx, time.Now().Add(-r.ticketWindow))
	})
	if err != nil {
		return &ConnectionError{System: "ticket store", Err: err}
	}
	run.Tickets = len(threads)
	metrics.TicketsExtracted.Set(float64(len(threads)))

	r.setState(StateAnalyzing)
	run.State = string(StateAnalyzing)

	pairs := r.convMiner.Mine(conversations)
	questions := make([]string, len(pairs))
	for i, pair := range pairs {
		questions[i] = pair.Question
	}

	labels := r.clusterer.Labels(questions)
	metrics.ClustersFound.Set(float64(countClusters(labels)))

	items := r.synthesizer.FromConversations(pairs, labels)
	ticketRecords := r.ticketMiner.Mine(threads)
	items = append(items, r.synthesizer.FromTickets(ticketRecords)...)

	run.Items = len(items)
	metrics.ItemsSynthesized.Set(float64(len(items)))

	r.setState(StatePublishing)
	run.State = string(StatePublishing)

	result, err := retry.DoWithResult(ctx, r.retryCfg, func() (publish.Result, error) {
		return r.publisher.Publish(ctx, items)
	})
	if err != nil {
		return &ConnectionError{System: "knowledge base", Err: err}
	}

	run.PagesCreated = result.Created
	run.PagesSkipped = result.Skipped
	metrics.PagesCreated.Add(float64(result.Created))
	metrics.PagesSkipped.Add(float64(result.Skipped))
	metrics.PagesFailed.Add(float64(result.Failed))

	run.State = string(StateIdle)
	return nil
}

func (r *Runner) finish(run *models.RunRecord) {
	r.mu.Lock()
	r.lastRun = run
	r.mu.Unlock()

	if r.store == nil {
		return
	}
	if err := r.store.InsertRun(run); err != nil {
		logger.Warn("Failed to persist run record",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func countClusters(labels []int) int {
	max := 0
	for _, l := range labels {
		if l+1 > max {
			max = l + 1
		}
	}
	return max
}
