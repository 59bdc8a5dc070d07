package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/post-battles/internal/config"
	"github.com/AdamBeresnev/post-battles/internal/db"
	"github.com/AdamBeresnev/post-battles/internal/live"
	"github.com/AdamBeresnev/post-battles/internal/metrics"
	"github.com/AdamBeresnev/post-battles/internal/middleware"
	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/AdamBeresnev/post-battles/internal/service"
	"github.com/AdamBeresnev/post-battles/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// application holds everything the handlers need.
type application struct {
	cfg            *config.Config
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	metrics        *metrics.Metrics
	hub            *live.Hub

	tournaments   *service.TournamentService
	votes         *service.VoteService
	matches       *service.MatchService
	posts         *service.PostService
	users         *service.UserService
	notifications *service.NotificationService
}

func newApplication(cfg *config.Config, logger *slog.Logger, database *sqlx.DB, sessionManager *scs.SessionManager, reg *prometheus.Registry) *application {
	m := metrics.New(reg)
	hub := live.NewHub(logger)
	notifier := notify.NewNotifier(store.NewNotificationStore(database), hub)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithNotifier(notifier),
		service.WithTallyPublisher(hub),
	}
	tournaments := service.NewTournamentService(database, opts...)

	return &application{
		cfg:            cfg,
		logger:         logger,
		sessionManager: sessionManager,
		metrics:        m,
		hub:            hub,
		tournaments:    tournaments,
		votes:          service.NewVoteService(database, opts...),
		matches:        service.NewMatchService(database, opts...),
		posts:          service.NewPostService(database, tournaments, opts...),
		users:          service.NewUserService(database, cfg.AdminEmails, opts...),
		notifications:  service.NewNotificationService(database, opts...),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		return err
	}

	middleware.InitAuth(cfg)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app := newApplication(cfg, logger, database, sessionManager, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
