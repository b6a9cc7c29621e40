package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "election-service/docs"
	"election-service/internal/config"
	"election-service/internal/domain/election"
	api "election-service/internal/http"
	"election-service/internal/metrics"
	"election-service/internal/platform/database"
	"election-service/internal/platform/meeting"
	"election-service/internal/platform/voting"
	"election-service/internal/repository/memory"
	"election-service/internal/repository/postgres"
)

// @title           Election Service API
// @version         1.0
// @description     Positions, nominations and poll hand-off for meeting elections
// @BasePath        /
func main() {
	configPath := flag.String("config", "", "optional path to a TOML configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	polls, err := openPollCreator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := polls.(io.Closer); ok {
		defer c.Close()
	}

	m := metrics.New(nil)

	opts := []election.Option{
		election.WithLogger(logger),
		election.WithPollTimeout(cfg.VotingTimeout()),
		election.WithCloseObserver(m.ObserveClose),
	}
	if cfg.Meeting.URL != "" {
		opts = append(opts, election.WithMeetingResolver(meeting.NewClient(cfg.Meeting.URL, cfg.MeetingTimeout())))
	}
	svc := election.NewService(store, polls, opts...)

	router := api.NewRouter(svc, store, api.Options{
		Logger:            logger,
		Metrics:           m,
		NominationsPerMin: cfg.RateLimit.NominationsPerMin,
		NominationBurst:   cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			"port", cfg.Port,
			"store", cfg.Store.Driver,
			"voting_transport", cfg.Voting.Transport,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (interface {
	election.Repository
	api.Pinger
}, func(), error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewElectionRepo(), func() {}, nil
	}

	db, err := database.NewPostgres(ctx, database.Options{
		DSN:          cfg.Store.DSN,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Store.RunMigrations {
		if err := database.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	return postgres.NewElectionRepo(db), func() { _ = db.Close() }, nil
}

func openPollCreator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (election.PollCreator, error) {
	switch cfg.Voting.Transport {
	case "amqp":
		return voting.NewAMQPPublisher(ctx, voting.AMQPConfig{
			URL:          cfg.AMQP.URL,
			Exchange:     cfg.AMQP.Exchange,
			ExchangeType: cfg.AMQP.ExchangeType,
			Producer:     cfg.ServiceName,
			Logger:       logger,
		})
	case "redis":
		return voting.NewRedisStreamPublisher(ctx, voting.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			Producer: cfg.ServiceName,
		})
	default:
		return voting.NewHTTPCreator(cfg.Voting.URL, cfg.VotingTimeout()), nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
