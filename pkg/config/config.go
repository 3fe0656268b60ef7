package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the mediasink
// ingestion service.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Tracing  TracingConfig
	Upload   UploadConfig
	Pipeline PipelineConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"mediasink-ingestion"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"300s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	IngestedTopic    string        `env:"KAFKA_INGESTED_TOPIC" envDefault:"mediasink.ingested"`
	ReconcileTopic   string        `env:"KAFKA_RECONCILE_TOPIC" envDefault:"mediasink.storage.reconcile"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

type StorageConfig struct {
	Provider      string        `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint      string        `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region        string        `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket        string        `env:"STORAGE_BUCKET" envDefault:"mediasink"`
	AccessKey     string        `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey     string        `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL        bool          `env:"STORAGE_USE_SSL" envDefault:"false"`
	PublicBaseURL string        `env:"STORAGE_PUBLIC_BASE_URL"`
	CallTimeout   time.Duration `env:"STORAGE_CALL_TIMEOUT" envDefault:"10s"`
	MediaFolder   string        `env:"STORAGE_MEDIA_FOLDER" envDefault:"media"`
	ThumbFolder   string        `env:"STORAGE_THUMB_FOLDER" envDefault:"thumbnails"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=mediasink"`
}

type UploadConfig struct {
	MaxSizeBytes      int64  `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"1073741824"`
	MultipartMemBytes int64  `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"52428800"`
	StagingDir        string `env:"UPLOAD_STAGING_DIR" envDefault:"/tmp/mediasink/staging"`
}

type PipelineConfig struct {
	MaxConcurrency int           `env:"PIPELINE_MAX_CONCURRENCY" envDefault:"5"`
	ProbeTimeout   time.Duration `env:"PIPELINE_PROBE_TIMEOUT" envDefault:"10s"`
	ThumbWidth     int           `env:"PIPELINE_THUMB_WIDTH" envDefault:"300"`
	ThumbHeight    int           `env:"PIPELINE_THUMB_HEIGHT" envDefault:"200"`
	ThumbQuality   int           `env:"PIPELINE_THUMB_QUALITY" envDefault:"80"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
