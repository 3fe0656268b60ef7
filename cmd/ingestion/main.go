package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/ingestion"
	"github.com/your-org/mediasink/internal/inspect"
	"github.com/your-org/mediasink/internal/staging"
	"github.com/your-org/mediasink/internal/thumbnail"
	"github.com/your-org/mediasink/pkg/config"
	"github.com/your-org/mediasink/pkg/kafka"
	"github.com/your-org/mediasink/pkg/logger"
	"github.com/your-org/mediasink/pkg/storage/objectstore"
	"github.com/your-org/mediasink/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  parseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	producerCfg := kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.IngestedTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  cfg.Kafka.Retries,
	}
	ingestedProducer := kafka.NewProducer(producerCfg)

	reconcileCfg := producerCfg
	reconcileCfg.Topic = cfg.Kafka.ReconcileTopic
	reconcileProducer := kafka.NewProducer(reconcileCfg)

	store, err := objectstore.New(objectstore.Config{
		Provider:      cfg.Storage.Provider,
		Endpoint:      cfg.Storage.Endpoint,
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		UseSSL:        cfg.Storage.UseSSL,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		CallTimeout:   cfg.Storage.CallTimeout,
	})
	if err != nil {
		logr.Fatal("init object store", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	stagingStore, err := staging.NewStore(cfg.Upload.StagingDir, logr)
	if err != nil {
		logr.Fatal("init staging store", zap.Error(err))
	}

	prober := inspect.NewFFprobe(cfg.Pipeline.ProbeTimeout)
	inspector := inspect.New(prober, logr)

	thumbnailer := thumbnail.New(thumbnail.Config{
		Dir:     cfg.Upload.StagingDir,
		Width:   cfg.Pipeline.ThumbWidth,
		Height:  cfg.Pipeline.ThumbHeight,
		Quality: cfg.Pipeline.ThumbQuality,
		Timeout: cfg.Pipeline.ProbeTimeout,
	}, prober, logr)

	orchestrator := ingestion.NewOrchestrator(ingestion.Params{
		Store:       store,
		Inspector:   inspector,
		Thumbnailer: thumbnailer,
		Events:      ingestedProducer,
		Reconcile:   reconcileProducer,
		Logger:      logr,
		MediaFolder: cfg.Storage.MediaFolder,
		ThumbFolder: cfg.Storage.ThumbFolder,
	})

	coordinator := ingestion.NewCoordinator(orchestrator, logr)

	handler := ingestion.NewHTTPHandler(stagingStore, coordinator, orchestrator, logr,
		cfg.Upload.MaxSizeBytes, cfg.Upload.MultipartMemBytes, cfg.Pipeline.MaxConcurrency)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := ingestedProducer.Close(shutdownCtx); err != nil {
			logr.Error("ingested producer shutdown failed", zap.Error(err))
		}
		if err := reconcileProducer.Close(shutdownCtx); err != nil {
			logr.Error("reconcile producer shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("ingestion service starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("http server failed", zap.Error(err))
	}
}

func parseResourceAttributes(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	attrs := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" || !strings.Contains(pair, "=") {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return attrs
}
