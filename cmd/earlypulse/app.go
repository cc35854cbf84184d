package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nkiryanov/earlypulse/internal/db"
	"github.com/nkiryanov/earlypulse/internal/events"
	"github.com/nkiryanov/earlypulse/internal/handlers"
	"github.com/nkiryanov/earlypulse/internal/logger"
	"github.com/nkiryanov/earlypulse/internal/metrics"
	"github.com/nkiryanov/earlypulse/internal/ratelimit"
	"github.com/nkiryanov/earlypulse/internal/repository/postgres"
	"github.com/nkiryanov/earlypulse/internal/service/auth"
	"github.com/nkiryanov/earlypulse/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/earlypulse/internal/service/doctor"
	"github.com/nkiryanov/earlypulse/internal/service/lab"
	"github.com/nkiryanov/earlypulse/internal/service/medicine"
	"github.com/nkiryanov/earlypulse/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger

	// Background workers started with the server
	dispatcher *events.Dispatcher

	// Run in reverse order after server stopped
	closers []func() error
}

func NewServerApp(ctx context.Context, c *Config) (_ *ServerApp, err error) {
	l, err := logger.ForEnvironment(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, Logger: l}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}
	app.closers = append(app.closers, func() error { pool.Close(); return nil })

	storage := postgres.NewStorage(pool)
	m := metrics.New()

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessSecret,
		RefreshSecret: c.RefreshSecret,
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{
		Hasher:        auth.DefaultHasher,
		SecureCookies: c.SecureCookies,
		Recorder:      m,
	}, tokenManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if c.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(c.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to amqp broker. Err: %w", err)
		}
		app.dispatcher = events.NewDispatcher(p, events.DispatcherConfig{}, l)
		app.closers = append(app.closers, app.dispatcher.Close)
		publisher = app.dispatcher
	}

	opts := handlers.Options{Logger: l, Metrics: m}
	if c.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		opts.Limiter = ratelimit.New(client, ratelimit.Config{
			Capacity:       c.RateLimitCapacity,
			RefillInterval: c.RateLimitRefillInterval,
		})
	}

	app.Handler = handlers.NewRouter(handlers.Services{
		Auth:     authService,
		User:     user.NewService(auth.DefaultHasher, storage.User()),
		Doctor:   doctor.NewService(auth.DefaultHasher, storage.Doctor()),
		Lab:      lab.NewService(auth.DefaultHasher, storage.Lab()),
		Medicine: medicine.NewService(storage, publisher, l),
	}, opts)

	return app, nil
}

func (s *ServerApp) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Warn("error while releasing resource", "error", err)
		}
	}
	s.closers = nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	var dispatcherStopped <-chan struct{}
	if s.dispatcher != nil {
		dispatcherStopped = s.dispatcher.Run(srvCtx)
	} else {
		stopped := make(chan struct{})
		close(stopped)
		dispatcherStopped = stopped
	}

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-dispatcherStopped

	return err
}
