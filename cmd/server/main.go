// Command server starts the AI Interview Coach HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/ollama"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/queue/redpanda"
	mongorepo "github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/mongo"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type stores struct {
	interviews domain.InterviewRepository
	practice   domain.PracticeRepository
	users      domain.UserRepository
	ping       app.Pinger
	close      func(context.Context)
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return stores{}, err
		}
		return stores{
			interviews: mongorepo.NewInterviewRepo(db),
			practice:   mongorepo.NewPracticeRepo(db),
			users:      mongorepo.NewUserRepo(db),
			ping:       app.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) }),
			close:      func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return stores{}, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			interviews: postgres.NewInterviewRepo(pool),
			practice:   postgres.NewPracticeRepo(pool),
			users:      postgres.NewUserRepo(pool),
			ping:       pool,
			close:      func(context.Context) { pool.Close() },
		}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	deps := map[string]app.Pinger{}

	// Storage
	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("store connect failed", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer st.close(context.Background())
	deps["store"] = st.ping

	// Completion endpoint. Unreachable Ollama is not fatal: every AI operation has a fallback.
	llm := ollama.New(cfg.Completion())
	deps["ollama"] = llm
	prompts, err := ai.NewPromptBuilder(cfg.PromptsFile)
	if err != nil {
		slog.Error("prompt catalog invalid", slog.Any("error", err))
		os.Exit(1)
	}
	aiSvc := ai.NewService(llm, prompts, ai.WithTokenCounter(tokencount.Default, cfg.OllamaModel))
	slog.Info("completion client initialized", slog.String("model", llm.Model()), slog.String("url", cfg.OllamaURL))

	// Per-user AI quota
	var quota ratelimiter.Limiter
	if cfg.QuotaEnabled() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if l := ratelimiter.NewRedisLuaLimiter(rdb, "quota:ai:", ratelimiter.PerMinute(cfg.AIQuotaPerMin)); l != nil {
			quota = l
		}
		deps["redis"] = app.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	// Session events
	var events domain.EventPublisher = redpanda.NoopPublisher{}
	if cfg.EventsEnabled() {
		producer, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			slog.Error("redpanda producer connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				slog.Error("failed to close event producer", slog.Any("error", err))
			}
		}()
		events = producer
		deps["events"] = producer
	}

	// Usecases
	interviewSvc := usecase.NewInterviewService(st.interviews, aiSvc, events, cfg.InterviewHistoryN)
	practiceSvc := usecase.NewPracticeService(st.practice, aiSvc, events, cfg.PracticeHistoryN)
	authSvc := usecase.NewAuthService(st.users)

	checks := app.BuildReadinessChecks(deps, "store", "redis", "events", "ollama")
	tokens := httpserver.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	srv := httpserver.NewServer(cfg, interviewSvc, practiceSvc, authSvc, tokens, checks...)

	handler := app.BuildRouter(cfg, srv, quota)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("store", cfg.StoreDriver))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTime)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}
