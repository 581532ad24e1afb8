package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/cluster"
	"github.com/unkaku-1/BEwithU/internal/metrics"
	"github.com/unkaku-1/BEwithU/internal/mining"
	"github.com/unkaku-1/BEwithU/internal/nlp"
	"github.com/unkaku-1/BEwithU/internal/pipeline"
	"github.com/unkaku-1/BEwithU/internal/publish"
	"github.com/unkaku-1/BEwithU/internal/publish/bookstack"
	"github.com/unkaku-1/BEwithU/internal/source/osticket"
	"github.com/unkaku-1/BEwithU/internal/source/rasa"
	"github.com/unkaku-1/BEwithU/internal/storage/sqlite"
	"github.com/unkaku-1/BEwithU/internal/synthesis"
	"github.com/unkaku-1/BEwithU/pkg/config"
	appLogger "github.com/unkaku-1/BEwithU/pkg/logger"
	"github.com/unkaku-1/BEwithU/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting knowledge extractor")

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	conversations, err := rasa.NewRepository(ctx,
		cfg.Rasa.Host, cfg.Rasa.Port, cfg.Rasa.User, cfg.Rasa.Password, cfg.Rasa.Database)
	if err != nil {
		appLogger.Fatal("Failed to create Rasa repository", zap.Error(err))
	}
	defer conversations.Close()

	tickets, err := osticket.NewRepository(
		cfg.OSTicket.Host, cfg.OSTicket.Port, cfg.OSTicket.User, cfg.OSTicket.Password,
		cfg.OSTicket.Database, cfg.OSTicket.ResolvedStatusID)
	if err != nil {
		appLogger.Fatal("Failed to create osTicket repository", zap.Error(err))
	}
	defer tickets.Close()

	wikiClient := bookstack.NewClient(
		cfg.BookStack.URL,
		cfg.BookStack.APIToken,
		cfg.BookStack.APISecret,
		time.Duration(cfg.BookStack.TimeoutSec)*time.Second,
	)
	gateway := publish.NewGateway(wikiClient, cfg.BookStack.BookName, cfg.BookStack.ChapterName)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Scheduler.MaxAttempts
	retryCfg.Logger = appLogger.Log

	runner := pipeline.NewRunner(pipeline.Options{
		Conversations:      conversations,
		Tickets:            tickets,
		Publisher:          gateway,
		Store:              store,
		TicketMiner:        mining.NewTicketMiner(mining.NewJoinStrategy(cfg.OSTicket.JoinStrategy)),
		Clusterer:          cluster.NewClusterer(cfg.Clustering.Epsilon, cfg.Clustering.MinSamples, cfg.Clustering.MaxFeatures),
		Synthesizer:        synthesis.NewSynthesizer(nlp.NewKeywordExtractor()),
		ConversationWindow: time.Duration(cfg.Extraction.ConversationDays) * 24 * time.Hour,
		TicketWindow:       time.Duration(cfg.Extraction.TicketDays) * 24 * time.Hour,
		Retry:              retryCfg,
	})

	app := newServer(cfg, runner, store)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		appLogger.Info("Ops server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Ops server failed to start", zap.Error(err))
		}
	}()

	cronLog := cronLogger{log: appLogger.Log.Sugar()}
	scheduler := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	runOnce := func() {
		// A failed run is logged and waits for the next schedule slot.
		if err := runner.Run(ctx); err != nil {
			appLogger.Error("Pipeline run failed, waiting for next schedule", zap.Error(err))
		}
	}

	if _, err := scheduler.AddFunc("@every "+cfg.Scheduler.Interval.String(), runOnce); err != nil {
		appLogger.Fatal("Failed to schedule pipeline", zap.Error(err))
	}

	go func() {
		// Warm-up lets the source databases and the wiki come up first.
		appLogger.Info("Waiting for dependent services",
			zap.Duration("warmup", cfg.Scheduler.WarmupDelay),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Scheduler.WarmupDelay):
		}
		runOnce()
		scheduler.Start()
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down")
	<-scheduler.Stop().Done()
	app.Shutdown()
	appLogger.Info("Stopped")
}

func newServer(cfg *config.Config, runner *pipeline.Runner, store *sqlite.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})
	app.Use(recover.New())

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"state":  runner.State(),
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/runs", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		runs, err := store.GetRecentRuns(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"data": runs})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	return app
}

// cronLogger adapts zap to the cron logging interface.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Infow(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
