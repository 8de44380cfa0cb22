package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/engiverse/engiverse-backend/config"
	"github.com/engiverse/engiverse-backend/internal/auth"
	"github.com/engiverse/engiverse-backend/internal/bootstrap"
	"github.com/engiverse/engiverse-backend/internal/ingest/analysis"
	"github.com/engiverse/engiverse-backend/internal/ingest/publisher"
	"github.com/engiverse/engiverse-backend/internal/ingest/service"
	"github.com/engiverse/engiverse-backend/internal/ingest/source"
	"github.com/engiverse/engiverse-backend/internal/projects/repository"
	"github.com/engiverse/engiverse-backend/internal/refresh"
	"github.com/engiverse/engiverse-backend/internal/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.App.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer pool.Close()

	if err := bootstrap.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := auth.NewRepo(pool)
	anonUserID, err := userRepo.EnsureAnonymous(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to ensure anonymous user")
	}

	redisClient, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient == nil {
		log.Warn().Msg("REDIS_ADDR not set, ingestion status tracking disabled")
	}

	objects, err := storage.NewObjectStore(ctx, cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object store client")
	}
	if !objects.Enabled() {
		log.Warn().Msg("S3 credentials not set, only presigned references can be imported")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
	ghClient := github.NewClient(oauth2.NewClient(ctx, ts))

	gitRunner := publisher.Runner{}
	pub := publisher.New(ghClient, gitRunner, cfg.GitHub.Token, cfg.GitHub.Org, cfg.GitHub.DefaultBranch)
	resolver := source.NewResolver(objects, gitRunner, nil)
	analyzer := analysis.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey)
	projectRepo := repository.NewRepo(pool)
	tracker := service.NewStatusTracker(redisClient)

	orch := service.NewOrchestrator(resolver, pub, analyzer, projectRepo, tracker, cfg.Uploads.TempDir)

	if cfg.Refresh.Enabled {
		refresher := refresh.New(projectRepo, orch, cfg.Refresh.MaxAge, cfg.Refresh.Rate)
		if err := refresher.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start refresh scheduler")
		}
		defer refresher.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Version:      cfg.App.Version,
		CORSOrigin:   cfg.Server.CORSOrigin,
		Users:        userRepo,
		Tokens:       auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn),
		Orchestrator: orch,
		Projects:     projectRepo,
		Objects:      objects,
		AnonUserID:   anonUserID,
		MaxUploadMB:  cfg.Uploads.MaxMB,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	log.Info().Str("port", cfg.Server.Port).Str("env", cfg.App.Environment).Msg("api listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}
