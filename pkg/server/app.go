package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"Draks/pkg/cache"
	pkgch "Draks/pkg/clickhouse"
	"Draks/pkg/config"
	xhttp "Draks/pkg/http"
	pkgkafka "Draks/pkg/kafka"
	applogger "Draks/pkg/logger"
	"Draks/pkg/queue"
)

// App encapsulates the application lifecycle: HTTP server, queue
// workers, and backing connections.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	handler  xhttp.Handler
	queue    *queue.RedisQueue
	store    *cache.RedisStore
	producer *pkgkafka.Producer
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New assembles an App from its wired dependencies. producer and
// chClient may be nil when those backends are disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	q *queue.RedisQueue,
	store *cache.RedisStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		queue:    q,
		store:    store,
		producer: producer,
		chClient: chClient,
	}
}

// Run starts the queue workers and HTTP server, then blocks until a
// shutdown signal arrives.
func (a *App) Run() error {
	if err := a.queue.Start(); err != nil {
		return err
	}
	a.log.Info("queue workers started", applogger.Int("workers", a.cfg.Batch.Workers))

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Warn("http shutdown error", applogger.Error(err))
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.log.Warn("queue shutdown error", applogger.Error(err))
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("redis close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
