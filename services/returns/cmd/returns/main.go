package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/returns/pkg/authclient"
	"github.com/Skotchmaster/returns/pkg/blob"
	pkgdb "github.com/Skotchmaster/returns/pkg/db"
	"github.com/Skotchmaster/returns/pkg/events"
	"github.com/Skotchmaster/returns/pkg/lock"
	"github.com/Skotchmaster/returns/pkg/logging"
	loggingmw "github.com/Skotchmaster/returns/pkg/middleware/logging"

	returnscfg "github.com/Skotchmaster/returns/services/returns/internal/config"
	"github.com/Skotchmaster/returns/services/returns/internal/draft"
	"github.com/Skotchmaster/returns/services/returns/internal/httpserver"
	"github.com/Skotchmaster/returns/services/returns/internal/repo"
	"github.com/Skotchmaster/returns/services/returns/internal/search"
	"github.com/Skotchmaster/returns/services/returns/internal/service"
)

func main() {
	cfg := returnscfg.Load("services/returns/.env")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	store := &repo.GormRepo{DB: db}
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var (
		drafts draft.Store = draft.NewMemoryStore()
		locker lock.Locker = lock.Noop{}
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		drafts = draft.NewRedisStore(rdb)
		locker = lock.NewRedis(rdb)
	} else {
		logger.Warn("redis_disabled", "reason", "REDIS_ADDR empty, drafts kept in memory and submissions not locked")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	var index service.Indexer
	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		index = &search.Index{ES: es, Name: cfg.ESIndex}
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	cancel()

	window := cfg.ReturnWindow()
	orders := &service.OrderService{Repo: store, Window: window}
	returns := &service.ReturnService{
		Repo:   store,
		Drafts: drafts,
		Blobs:  blobs,
		Events: publisher,
		Locker: locker,
		Index:  index,
		Window: window,
	}
	admin := &service.AdminService{Repo: store, Events: publisher, Index: index}

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("8M"))

	if cfg.BlobBackend == "disk" && strings.HasPrefix(cfg.BlobPublicURL, "/") {
		e.Static(cfg.BlobPublicURL, cfg.BlobDir)
	}

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler:  &httpserver.OrderHTTP{Svc: orders},
		ReturnHandler: &httpserver.ReturnHTTP{Svc: returns},
		AdminHandler:  &httpserver.AdminHTTP{Svc: admin},
		JWTSecret:     cfg.JWTAccessSecret,
		AuthClient:    authclient.NewClient(cfg.AuthHTTPURL),
		Ready:         func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("returns listening", "addr", srv.Addr, "blob_backend", cfg.BlobBackend, "search", index != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if err := publisher.Close(); err != nil {
		logger.Warn("kafka_close_error", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	pkgdb.Close(db)

	log.Println("returns stopped")
}

func openBlobs(ctx context.Context, cfg returnscfg.ServiceConfig) (blob.Store, error) {
	switch cfg.BlobBackend {
	case "s3":
		// the disk default "/media" is not a bucket URL
		public := cfg.BlobPublicURL
		if !strings.HasPrefix(public, "http") {
			public = ""
		}
		return blob.NewS3(ctx, blob.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.BlobBucket,
			PublicURL: public,
		})
	case "memory":
		return blob.NewMemory(), nil
	default:
		return blob.NewDisk(cfg.BlobDir, cfg.BlobPublicURL)
	}
}
