package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/vta/internal/ai"
	"github.com/xxxsen/vta/internal/config"
	"github.com/xxxsen/vta/internal/corpus"
	"github.com/xxxsen/vta/internal/db"
	"github.com/xxxsen/vta/internal/embedcache"
	"github.com/xxxsen/vta/internal/filestore"
	"github.com/xxxsen/vta/internal/handler"
	"github.com/xxxsen/vta/internal/job"
	"github.com/xxxsen/vta/internal/middleware"
	"github.com/xxxsen/vta/internal/repo"
	"github.com/xxxsen/vta/internal/schedule"
	"github.com/xxxsen/vta/internal/service"
)

type runner interface {
	Run() error
}

type app struct {
	engine    runner
	scheduler *schedule.CronScheduler
	db        *sql.DB
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	src, err := openCorpusSource(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := corpus.Load(ctx, src)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	provider = ai.Guard(provider, ai.GuardOptions{
		Breaker:      cfg.AI.Breaker.Enabled,
		MaxRequests:  cfg.AI.Breaker.MaxRequests,
		Interval:     time.Duration(cfg.AI.Breaker.Interval) * time.Second,
		Timeout:      time.Duration(cfg.AI.Breaker.Timeout) * time.Second,
		MinRequests:  cfg.AI.Breaker.MinRequests,
		FailureRatio: cfg.AI.Breaker.FailureRatio,
		RateLimit:    cfg.AI.RateLimit,
		Burst:        cfg.AI.Burst,
	})
	timeout := time.Duration(cfg.AI.Timeout) * time.Second
	embedder := embedcache.WrapLruCacheToEmbedder(
		ai.NewEmbedder(provider, cfg.AI.EmbedModel, timeout),
		cfg.EmbedCache.Size,
		time.Duration(cfg.EmbedCache.TTLSeconds)*time.Second,
	)
	qa := service.NewQAService(
		store,
		embedder,
		service.NewAnswerSynthesizer(ai.NewChatter(provider, cfg.AI.ChatModel, timeout)),
		service.NewLinkNormalizer(cfg.Links),
		cfg.Retrieval,
	)

	deps := handler.RouterDeps{
		QA:        handler.NewQAHandler(qa),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
	}
	engine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
			middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init web engine: %w", err)
	}
	a.engine = engine

	if cfg.StatsCron != "" {
		stats, _ := embedder.(embedcache.Stats)
		scheduler := schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewEmbedCacheStatsJob(stats, store), cfg.StatsCron); err != nil {
			a.Close()
			return nil, err
		}
		a.scheduler = scheduler
	}

	logutil.GetLogger(ctx).Info("service ready",
		zap.String("ai_provider", provider.Name()),
		zap.String("embed_model", cfg.AI.EmbedModel),
		zap.String("chat_model", cfg.AI.ChatModel),
		zap.String("corpus_source", cfg.Corpus.Source),
		zap.Int("dimension", store.Dimension()),
	)
	return a, nil
}

func openCorpusSource(ctx context.Context, cfg *config.Config, a *app) (corpus.Source, error) {
	switch cfg.Corpus.Source {
	case "postgres":
		conn, err := db.Open(ctx, cfg.Corpus.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.db = conn
		if err := db.ApplyMigrations(ctx, conn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return repo.NewCorpusRepo(conn, cfg.Corpus.ContentTable, cfg.Corpus.ForumTable), nil
	default:
		store, err := filestore.New(cfg.Corpus.FileStore)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		return corpus.NewFileSource(store, cfg.Corpus.ContentFile, cfg.Corpus.ForumFile), nil
	}
}
