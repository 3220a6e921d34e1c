package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishboT/internal/api"
	"github.com/Kerhoff/WishboT/internal/config"
	"github.com/Kerhoff/WishboT/internal/draft"
	"github.com/Kerhoff/WishboT/internal/handlers"
	"github.com/Kerhoff/WishboT/internal/lexicon"
	"github.com/Kerhoff/WishboT/internal/metrics"
	"github.com/Kerhoff/WishboT/internal/repository"
	"github.com/Kerhoff/WishboT/internal/repository/memory"
	"github.com/Kerhoff/WishboT/internal/repository/postgres"
	"github.com/Kerhoff/WishboT/internal/service"
	"github.com/Kerhoff/WishboT/internal/subscription"
	"github.com/Kerhoff/WishboT/internal/telegram"
	"github.com/Kerhoff/WishboT/pkg/logger"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting WishboT...")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Storage
	checks := make(map[string]api.Check)

	repos, closeRepos := openRepositories(ctx, cfg, l, checks)
	defer closeRepos()

	store, closeStore := openDraftStore(ctx, cfg, m, l, checks)
	defer closeStore()

	// Service layer
	drafts := draft.NewManager(store, repos, m, l)
	subs := subscription.NewManager(repos, m, l)
	svc := service.New(repos, drafts, subs, cfg.DefaultLanguage, l)
	lex := lexicon.MustLoad()

	// Telegram bot
	router := telegram.NewRouter(l)
	bot, err := telegram.NewBot(cfg.TelegramToken, router, m, l)
	if err != nil {
		l.Fatalf("Failed to create Telegram bot: %v", err)
	}

	notifier := telegram.NewNotifier(bot.Sender(), repos.Users, lex, m, l)
	handlers.Register(router, handlers.Deps{
		Service:         svc,
		Lexicon:         lex,
		Notifier:        notifier,
		AdminIDs:        cfg.AdminIDs,
		BotUsername:     bot.Username(),
		DefaultLanguage: cfg.DefaultLanguage,
		Logger:          l,
	})

	// The notifier outlives the bot so replies queued by in-flight
	// updates are still delivered.
	notifyCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()
	var notifierDone sync.WaitGroup
	notifierDone.Add(1)
	go func() {
		defer notifierDone.Done()
		notifier.Run(notifyCtx)
	}()

	// HTTP servers for link views and metrics
	apiServer := api.NewServer(svc, l)
	for name, check := range checks {
		apiServer.AddCheck(name, check)
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              ":" + cfg.PrometheusPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	for name, srv := range map[string]*http.Server{"HTTP": httpServer, "Metrics": metricsServer} {
		go serve(name, srv, l)
	}

	// Start Telegram bot polling
	var botDone sync.WaitGroup
	botDone.Add(1)
	go func() {
		defer botDone.Done()
		if err := bot.Start(ctx); err != nil {
			l.Errorf("Bot error: %v", err)
			cancel()
		}
	}()

	l.Info("WishboT started successfully")

	<-ctx.Done()

	l.Info("Shutting down HTTP servers...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	for _, srv := range []*http.Server{httpServer, metricsServer} {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.WithError(err).Warn("HTTP server shutdown failed")
		}
	}

	l.Info("Waiting for in-flight updates and notifications...")
	if !runInOrder(shutdownCtx, botDone.Wait, stopNotifier, notifierDone.Wait) {
		l.Warn("Shutdown timed out, pending updates or notifications may be lost")
	}

	l.Info("WishboT stopped")
}

// runInOrder runs steps one after another and reports whether they all
// finished before ctx expired.
func runInOrder(ctx context.Context, steps ...func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, step := range steps {
			step()
		}
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func serve(name string, srv *http.Server, l *logrus.Logger) {
	l.Infof("%s server listening on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Errorf("%s server error: %v", name, err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, l *logrus.Logger, checks map[string]api.Check) (*repository.Repositories, func()) {
	if cfg.DatabaseDriver == config.DriverMemory {
		l.Warn("Using in-memory storage, data is lost on restart")
		return memory.New(), func() {}
	}

	db, err := config.NewDatabase(ctx, cfg, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(cfg.MigrationsPath); err != nil {
		db.Close()
		l.Fatalf("Failed to run migrations: %v", err)
	}
	checks["database"] = db.Check
	return postgres.New(db.DB), func() { db.Close() }
}

func openDraftStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics, l *logrus.Logger, checks map[string]api.Check) (draft.Store, func()) {
	if cfg.RedisURL == "" {
		store := draft.NewMemoryStore(cfg.DraftTTL, m, l)
		go store.RunJanitor(ctx, janitorInterval)
		return store, func() {}
	}

	client, err := draft.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		l.Fatalf("Failed to connect to redis: %v", err)
	}
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	l.Info("Drafts are stored in redis")
	store := draft.NewRedisStore(client, cfg.DraftTTL, m, l)
	go store.RunGauge(ctx, janitorInterval)
	return store, func() { client.Close() }
}
