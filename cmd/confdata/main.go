// confdata - conference management data service
//
// Serves the conference entity API and backup management over HTTP,
// backed by JSON files on disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/confdesk/confdata"
	"github.com/confdesk/confdata/backup"
	"github.com/confdesk/confdata/conference"
	"github.com/confdesk/confdata/httpapi"
)

func main() {
	// A .env file is optional, for local development.
	godotenv.Load()

	var (
		addr       = flag.String("addr", envOr("CONFDATA_ADDR", ":8080"), "HTTP listen address")
		dataDir    = flag.String("data", envOr("CONFDATA_DATA_DIR", "./data"), "Data directory")
		backupDir  = flag.String("backups", envOr("CONFDATA_BACKUP_DIR", "./backups"), "Backup directory")
		uploadDir  = flag.String("uploads", envOr("CONFDATA_UPLOAD_DIR", "./uploads"), "Upload directory")
		redisAddr  = flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address for ID allocation (empty to disable)")
		s3Bucket   = flag.String("s3-bucket", os.Getenv("BACKUP_S3_BUCKET"), "S3 bucket mirroring backups (empty to disable)")
		dev        = flag.Bool("dev", false, "Development logging")
	)
	flag.Parse()

	logger, err := newLogger(*dev)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, *addr, *dataDir, *backupDir, *uploadDir, *redisAddr, *s3Bucket); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func newLogger(dev bool) (*confdata.ZapLogger, error) {
	if dev {
		return confdata.NewDevelopmentZapLogger()
	}
	return confdata.NewProductionZapLogger()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(logger *confdata.ZapLogger, addr, dataDir, backupDir, uploadDir, redisAddr, s3Bucket string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{dataDir, backupDir, uploadDir} {
		if err := os.MkdirAll(dir, confdata.DefaultDirPermissions); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	metrics := confdata.NewPrometheusMetrics(nil)

	store := confdata.NewStoreWithObservability(
		confdata.NewFilesystemBackend(dataDir), logger, metrics)
	defer store.Close()

	rdb := connectRedis(ctx, redisAddr, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	seq := confdata.NewSequenceAllocator(store, rdb, logger, metrics)
	svc := conference.NewService(store, seq, logger)

	engine := backup.NewEngine(store, backupDir, logger, metrics)
	if s3Bucket != "" {
		mirror, err := s3Mirror(ctx, s3Bucket)
		if err != nil {
			logger.Warn("backup mirror disabled", "bucket", s3Bucket, "error", err)
		} else {
			engine.SetMirror(mirror)
			logger.Info("backup mirror enabled", "bucket", s3Bucket)
		}
	}

	scheduler := backup.NewScheduler(engine, filepath.Join(backupDir, backup.ScheduleFileName), logger, metrics)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	uploads := httpapi.NewUploads(confdata.NewFilesystemBackend(uploadDir), logger)
	api := httpapi.NewHandler(svc, store, uploads, logger)

	mux := http.NewServeMux()
	api.Register(mux)
	backup.NewHandler(engine, scheduler, logger).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         addr,
		Handler:      api.Wrap(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("confdata listening", "addr", addr, "data", dataDir, "backups", backupDir)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// connectRedis dials redis for the ID allocator. The service works
// without it (allocation falls back to collection scans), so a failed
// ping downgrades to a warning.
func connectRedis(ctx context.Context, addr string, logger confdata.Logger) *redis.Client {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(confdata.RedisOptionsWithOverrides(addr, "", 0, 0))

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, sequential IDs fall back to scans", "addr", addr, "error", err)
		rdb.Close()
		return nil
	}
	logger.Info("redis connected", "addr", addr)
	return rdb
}

func s3Mirror(ctx context.Context, bucket string) (confdata.Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return confdata.NewS3Backend(s3.NewFromConfig(cfg), bucket), nil
}
