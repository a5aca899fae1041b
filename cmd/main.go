package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"project-submission/internal/MinIO"
	"project-submission/internal/config"
	"project-submission/internal/handler/httpHandler"
	"project-submission/internal/notifier"
	"project-submission/internal/repository/BlackListRepo"
	"project-submission/internal/repository/fileRepo"
	"project-submission/internal/repository/messageRepo"
	"project-submission/internal/repository/projectRepo"
	"project-submission/internal/repository/sessionRepo"
	"project-submission/internal/repository/userRepo"
	"project-submission/internal/service/accessService"
	"project-submission/internal/service/authService"
	"project-submission/internal/service/fileService"
	"project-submission/internal/service/nonceService"
	"project-submission/internal/service/pathService"
	"project-submission/internal/service/projectService"
	"project-submission/internal/storage"
	"project-submission/internal/validation"
	"project-submission/pkg/database/postgres"
	"project-submission/pkg/database/redis"
	"project-submission/pkg/logger"
	"project-submission/pkg/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, err = logger.New(ctx, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)
	defer func() { _ = log.Sync() }()

	if err := postgres.Migrate(ctx, cfg.Postgres); err != nil {
		log.Fatal("failed to apply migrations", zap.Error(err))
	}
	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		log.Fatal("failed to init storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}

	validator, err := validation.New(cfg.Uploads)
	if err != nil {
		log.Fatal("invalid upload limits", zap.Error(err))
	}

	users := userRepo.New(pool)
	projects := projectRepo.New(pool)
	messages := messageRepo.New(pool)
	refs := fileRepo.New(pool)
	sessions := sessionRepo.New(redisClient)
	spent := BlackListRepo.NewBlackListRepo(redisClient)

	gate := accessService.New(projects)
	paths := pathService.New(users, projects)
	nonces := nonceService.New(cfg.NonceSecret, cfg.NonceTTL, spent)
	files := fileService.New(paths, gate, backend, refs, messages, users)
	notify := notifier.NewLogNotifier(cfg.Admin.Email, cfg.SiteURL)
	auth := authService.New(users, sessions, projects, messages, validator, cfg.JWTSecret, cfg.SessionTTL, cfg.PrivacyPolicyRequired)
	submissions := projectService.New(projects, messages, users, gate, files, nonces, validator, notify)

	if err := auth.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatal("failed to seed administrator", zap.Error(err))
	}

	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(middleware.Logger(ctx), middleware.Recovery(), middleware.Session(auth, cfg.SecureCookies))

	h := httpHandler.New(auth, nonces, files, submissions, notify, cfg.SessionTTL, cfg.SecureCookies)
	h.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server started", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to serve", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func newBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.Storage.Driver == storage.DriverMinIO {
		client, err := MinIO.New(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	local, err := storage.NewLocal(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return local, nil
}
