package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/livequiz/session-engine/internal/config"
	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
	"github.com/livequiz/session-engine/internal/infra/memory"
	pgloader "github.com/livequiz/session-engine/internal/infra/postgres"
	redisinfra "github.com/livequiz/session-engine/internal/infra/redis"
	transport "github.com/livequiz/session-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.SetLoader = memory.NewStaticSetLoader(sampleSets())
	if pool != nil {
		loader = pgloader.NewSetLoader(pool)
	}

	setTTL := config.Duration(cfg.Sets.TTL, 10*time.Minute)
	var sets game.SetRepository
	if redisClient != nil {
		sets = redisinfra.NewSetStore(redisClient, loader, setTTL)
	} else {
		sets = memory.NewSetStore(loader, setTTL)
	}

	var registry game.Registry = memory.NewRegistry()
	var opts []game.Option
	if redisClient != nil {
		registry = redisinfra.NewRegistry(registry, redisClient, redisTTL)
		opts = append(opts, game.WithArchive(redisinfra.NewArchive(redisClient, redisTTL)))
	}

	service := game.NewService(registry, sets, opts...)
	wsHandler := transport.NewWSHandler(service)
	router := transport.NewRouter(wsHandler, service)

	sweepInterval := config.Duration(cfg.Sessions.SweepInterval, time.Minute)
	maxAge := config.Duration(cfg.Sessions.MaxAge, 24*time.Hour)
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go service.RunSweeper(sweepCtx, sweepInterval, maxAge)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz session engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleSets provides built-in question sets for demo runs without Postgres.
func sampleSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"general-1": {
			ID:    "general-1",
			Title: "General Knowledge",
			Questions: []domain.Question{
				{
					Prompt:       "What is 2 + 2?",
					Choices:      []string{"3", "4", "5", "22"},
					CorrectIndex: 1,
					TimeLimitSec: 20,
				},
				{
					Prompt:       "Which planet is known as the Red Planet?",
					Choices:      []string{"Venus", "Jupiter", "Mars", "Saturn"},
					CorrectIndex: 2,
					TimeLimitSec: 20,
				},
				{
					Prompt:       "What is the capital of France?",
					Choices:      []string{"Lyon", "Marseille", "Paris", "Nice"},
					CorrectIndex: 2,
					TimeLimitSec: 15,
				},
			},
		},
	}
}
