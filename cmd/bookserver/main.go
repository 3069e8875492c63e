package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/config"
	apphttp "bookshelf/internal/http"
	"bookshelf/internal/identity"
	"bookshelf/internal/repository/sqlite"
	"bookshelf/internal/service"
	"bookshelf/internal/storage"
	"bookshelf/internal/token"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Identity.BaseURL) == "" {
		logger.Fatalf("identity service base url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.BookPath)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	bookRepo := sqlite.NewBookRepository(db)
	if err := bookRepo.Init(ctx); err != nil {
		logger.Fatalf("init book repository: %v", err)
	}

	images, err := buildImageStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	codec := token.NewCodec(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	resolver := identity.NewClient(cfg.Identity.BaseURL, time.Duration(cfg.Identity.TimeoutSeconds)*time.Second, logger)
	bookService := service.NewBookService(bookRepo, resolver, images, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	apphttp.NewBookHandler(bookService, codec, resolver, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.BookAddr,
		Handler: router,
	}

	go func() {
		logger.Infof("book service listening on %s", cfg.Server.BookAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func buildImageStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.ImageStore, error) {
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)

	return storage.NewS3Store(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		Region:        cfg.Storage.Region,
		PublicBaseURL: cfg.Storage.PublicURL,
	}), nil
}
