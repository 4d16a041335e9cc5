package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"EditorialDesk/internal/bot"
	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/infrastructure/contentstore"
	"EditorialDesk/internal/infrastructure/events"
	"EditorialDesk/internal/infrastructure/images"
	"EditorialDesk/internal/infrastructure/llm"
	"EditorialDesk/internal/infrastructure/mail"
	"EditorialDesk/internal/infrastructure/parser"
	"EditorialDesk/internal/infrastructure/scheduler"
	"EditorialDesk/internal/infrastructure/session"
	"EditorialDesk/internal/infrastructure/storage"
	"EditorialDesk/internal/infrastructure/telegram"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/logging"
	"EditorialDesk/internal/ports"
	"EditorialDesk/internal/scanner"
	"EditorialDesk/internal/server"
	"EditorialDesk/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db        *storage.DB
	journal   *journal.Journal
	bus       *events.Bus
	scheduler *usecase.Scheduler
	reporter  *usecase.Reporter
	intake    *usecase.Intake
	bot       *bot.Bot
	server    *server.Server
	channel   *telegram.Channel

	closers []func() error
}

// New opens storage and builds every adapter and use case. Adapters whose
// credentials are missing stay nil and the features behind them report
// domain.ErrNotConfigured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging)
	}
	a := &Application{cfg: cfg, logger: baseLogger}
	component := func(name string) *slog.Logger { return baseLogger.With("component", name) }

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	candidates := storage.NewCandidateRepository(db)
	approvalRepo := storage.NewApprovalRepository(db)
	feeds := storage.NewFeedRepository(db)
	jobState := storage.NewJobStateRepository(db)
	a.journal = journal.New(storage.NewJournalRepository(db), component("journal"))

	registry := scanner.NewRegistry()
	rss := parser.NewRSSScanner(nil)
	registry.Register(rss)
	registry.Register(parser.NewHTMLScanner(nil))
	source := parser.NewStrategySource(registry, cfg.Feeds, cfg.Scoring.Window, component("source"))

	var completer ports.Completer
	if c, err := llm.New(ctx, cfg.Completion); err == nil {
		completer = c
	} else {
		a.disabled("completion", err)
	}

	var generator ports.ImageGenerator
	if g, err := images.NewGenerator(cfg.Images); err == nil {
		generator = g
	} else {
		a.disabled("image generation", err)
	}
	var placeholder ports.Placeholder
	if t, err := images.NewTemplate(cfg.Images.PlaceholderURL); err == nil {
		placeholder = t
	} else {
		a.disabled("placeholder images", err)
	}
	var cards ports.ShareCardRenderer
	if t, err := images.NewTemplate(cfg.Images.ShareCardURL); err == nil {
		cards = t
	} else {
		a.disabled("share cards", err)
	}

	var store ports.ContentStore
	if wp, err := contentstore.NewWordPress(cfg.ContentStore); err == nil {
		store = wp
	} else {
		a.disabled("content store", err)
	}

	var channel ports.ChatChannel
	if cfg.Telegram.BotToken != "" {
		ch, err := telegram.NewChannel(cfg.Telegram.BotToken, cfg.Telegram.Timeout)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.channel, channel = ch, ch
	} else {
		a.disabled("telegram", domain.ErrNotConfigured)
	}

	sessions, err := a.sessionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.bus = events.NewBus()
	a.closers = append(a.closers, a.bus.Close)

	var distributor ports.Distributor
	if d, err := events.NewDistributor(ctx, cfg.Events); err == nil {
		distributor = d
		a.closers = append(a.closers, func() error { d.Close(); return nil })
	} else {
		a.disabled("nats distribution", err)
	}

	var mailer ports.Mailer
	if m, err := mail.New(cfg.Mail); err == nil {
		mailer = m
	} else {
		a.disabled("mail", err)
	}

	operatorChat := firstOperator(cfg)
	notifier := usecase.NewNotifier(channel, operatorChat, component("notifier"))

	hooks := usecase.NewHooks(cfg.Hooks, a.journal, component("hooks"),
		usecase.BroadcastHook(channel, cfg.Telegram.PublicChannel, cards),
		usecase.DistributionHook(distributor),
		usecase.EventHook(a.bus),
	)
	approvals := usecase.NewApprovals(usecase.ApprovalDeps{
		Approvals:    approvalRepo,
		Channel:      channel,
		Store:        store,
		Events:       a.bus,
		Hooks:        hooks,
		Journal:      a.journal,
		Logger:       component("approvals"),
		OperatorChat: operatorChat,
		AuthorID:     cfg.ContentStore.AuthorID,
	})

	queue := usecase.NewQueue(candidates, a.journal, component("queue"))
	rewriter := usecase.NewRewriter(completer, cfg.Completion.SystemPrompt)
	imageChain := usecase.NewImageChain(generator, placeholder, component("images"))

	daily := usecase.NewDailyRewrite(usecase.DailyDeps{
		Ingestor:  usecase.NewIngestor(source, feeds, a.journal, component("ingest")),
		Scorer:    usecase.NewScorer(feeds, cfg.Scoring),
		Rewriter:  rewriter,
		Images:    imageChain,
		Approvals: approvals,
		Feeds:     feeds,
		Journal:   a.journal,
		Notifier:  notifier,
		Retention: cfg.Retention,
		Logger:    component("daily"),
	})
	drain := usecase.NewColdDrain(queue, rewriter, imageChain, approvals, notifier, a.journal, component("drain"), cfg.Queue.DrainBatch)
	research := usecase.NewTopicResearch(completer, feeds, candidates, queue, notifier, a.journal, component("research"))
	discovery := usecase.NewSourceDiscovery(completer, rss, queue, cfg.Feeds, notifier, a.journal, component("discovery"))

	loc := cfg.Scheduler.Location()
	a.scheduler = usecase.NewScheduler(usecase.SchedulerDeps{
		Driver:   scheduler.NewTimerLoop(),
		State:    jobState,
		Journal:  a.journal,
		Logger:   component("scheduler"),
		Location: loc,
	})
	a.reporter = usecase.NewReporter(candidates, approvalRepo, feeds, a.journal, a.scheduler)
	summary := usecase.NewWeeklySummary(a.reporter, usecase.NewPromptEvaluator(completer, approvalRepo, component("evaluator")),
		notifier, mailer, loc, component("summary"))

	a.scheduler.Handle(domain.JobDailyRewrite, func(ctx context.Context) error {
		_, err := daily.Run(ctx)
		return err
	})
	a.scheduler.Handle(domain.JobColdDrain, func(ctx context.Context) error {
		_, err := drain.Run(ctx)
		return err
	})
	a.scheduler.Handle(domain.JobTopicResearch, func(ctx context.Context) error {
		_, err := research.Run(ctx)
		return err
	})
	a.scheduler.Handle(domain.JobSourceDiscovery, func(ctx context.Context) error {
		_, err := discovery.Run(ctx)
		return err
	})
	a.scheduler.Handle(domain.JobWeeklySummary, func(ctx context.Context) error {
		_, err := summary.Run(ctx)
		return err
	})

	a.intake = usecase.NewIntake(usecase.IntakeDeps{
		Queue:     queue,
		Rewriter:  rewriter,
		Images:    imageChain,
		Approvals: approvals,
		Metadata:  parser.NewMetadataFetcher(nil),
		Store:     store,
		Completer: completer,
		Logger:    component("intake"),
	})
	a.bot = bot.New(bot.Deps{
		Channel:     channel,
		Sessions:    sessions,
		Store:       store,
		Approvals:   approvals,
		Intake:      a.intake,
		Scheduler:   a.scheduler,
		Reporter:    a.reporter,
		Journal:     a.journal,
		Logger:      component("bot"),
		IsOperator:  cfg.IsOperator,
		SessionTTL:  cfg.Sessions.TTL,
		ShortText:   cfg.Bot.ShortTextThreshold,
		RecentLimit: cfg.Bot.RecentLimit,
		Location:    loc,
	})
	a.server = server.New(server.Deps{
		Bot:           a.bot,
		Intake:        a.intake,
		Reporter:      a.reporter,
		Scheduler:     a.scheduler,
		Journal:       a.journal,
		Logger:        component("http"),
		Secret:        cfg.HTTP.Secret,
		WebhookSecret: cfg.Telegram.WebhookSecret,
	})

	return a, nil
}

func (a *Application) sessionStore(ctx context.Context) (ports.SessionStore, error) {
	if a.cfg.Sessions.Backend != "redis" {
		return session.NewMemoryStore(a.cfg.Sessions.TTL), nil
	}
	rs, err := session.NewRedisStore(ctx, a.cfg.Sessions.RedisURL, a.cfg.Sessions.TTL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rs.Close)
	return rs, nil
}

func (a *Application) disabled(feature string, err error) {
	if errors.Is(err, domain.ErrNotConfigured) {
		a.logger.Info("feature disabled", "feature", feature)
		return
	}
	a.logger.Warn("feature disabled", "feature", feature, "error", err)
}

func firstOperator(cfg config.Config) int64 {
	if len(cfg.Telegram.OperatorIDs) == 0 {
		return 0
	}
	return cfg.Telegram.OperatorIDs[0]
}

// Migrate applies the database schema.
func (a *Application) Migrate(ctx context.Context) error {
	return a.db.Migrate(ctx)
}

// Serve runs the scheduler, the HTTP surface and, when enabled, Telegram
// polling until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	if a.cfg.HTTP.Secret == "" {
		a.logger.Warn("http secret is empty, every request will be refused")
	}

	a.observe(ctx)
	if err := a.scheduler.Start(ctx, a.cfg.Scheduler.Descriptors()); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.Listen(a.cfg.HTTP.Listen); err != nil {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.cfg.Telegram.Poll && a.channel != nil {
		poller := telegram.NewPoller(a.channel.API(), a.cfg.Telegram.PollTimeout, a.logger.With("component", "poller"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := poller.Run(ctx, a.bot.HandleInbound); err != nil {
				errs <- fmt.Errorf("telegram polling: %w", err)
			}
		}()
	}

	a.logger.Info("editorial desk started", "listen", a.cfg.HTTP.Listen, "poll", a.cfg.Telegram.Poll)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown failed", "error", err)
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	a.bot.Wait()
	wg.Wait()

	a.logger.Info("editorial desk stopped")
	return runErr
}

// observe logs domain events published on the in-process bus.
func (a *Application) observe(ctx context.Context) {
	for _, topic := range []string{"article.published", "approval.rejected"} {
		ch, err := a.bus.Subscribe(ctx, topic)
		if err != nil {
			a.logger.Warn("event subscription failed", "topic", topic, "error", err)
			continue
		}
		go func() {
			for env := range ch {
				a.logger.Info("domain event", "type", env.Type, "subject", env.SubjectID, "at", env.OccurredAt)
			}
		}()
	}
}

// RunJob runs one job immediately after applying the schema.
func (a *Application) RunJob(ctx context.Context, name string) error {
	if err := a.Migrate(ctx); err != nil {
		return err
	}
	return a.scheduler.RunNow(ctx, name)
}

// JobSchedule is one configured job with its next fire time.
type JobSchedule struct {
	Descriptor domain.JobDescriptor
	Next       time.Time
	LastRun    time.Time
}

// Jobs lists configured jobs with their next fire time in the scheduler timezone.
func (a *Application) Jobs(ctx context.Context) ([]JobSchedule, error) {
	if err := a.Migrate(ctx); err != nil {
		return nil, err
	}
	last, err := a.scheduler.LastRuns(ctx)
	if err != nil {
		return nil, err
	}
	loc := a.cfg.Scheduler.Location()
	now := time.Now()

	var out []JobSchedule
	for _, d := range a.cfg.Scheduler.Descriptors() {
		js := JobSchedule{Descriptor: d, LastRun: last[d.Name]}
		if d.Enabled {
			js.Next = usecase.NextFire(d, now, loc)
		}
		out = append(out, js)
	}
	return out, nil
}

// Location is the scheduler timezone.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// Close releases adapters in reverse order of creation.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
