package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the compliance engine.
type Config struct {
	Server     ServerConfig     `yaml:"server" validate:"required"`
	Embedding  LLMConfig        `yaml:"embedding" validate:"required"`
	Chat       LLMConfig        `yaml:"chat" validate:"required"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Storage    StorageConfig    `yaml:"storage"`
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Duration wraps time.Duration so YAML can carry values like "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// JWTSecret enables bearer-token auth on mutating endpoints when set.
	JWTSecret string `yaml:"jwt_secret"`
}

// LLMConfig configures a single model endpoint (chat or embedding).
type LLMConfig struct {
	BaseURL string   `yaml:"base_url" validate:"required,url"`
	APIKey  string   `yaml:"api_key"`
	Model   string   `yaml:"model" validate:"required"`
	Timeout Duration `yaml:"timeout"`
	// Dimensions is only meaningful for embedding endpoints.
	Dimensions int `yaml:"dimensions" validate:"omitempty,gt=0"`
}

// RetrievalConfig tunes the hybrid retriever.
type RetrievalConfig struct {
	SeedCount     int     `yaml:"seed_count" validate:"omitempty,gt=0"`
	TopK          int     `yaml:"top_k" validate:"omitempty,gt=0"`
	DampingFactor float64 `yaml:"damping_factor" validate:"omitempty,gt=0,lt=1"`
	MaxIterations int     `yaml:"max_iterations" validate:"omitempty,gt=0"`
	Tolerance     float64 `yaml:"tolerance" validate:"omitempty,gt=0"`
}

// ComplianceConfig tunes the compliance orchestrator.
type ComplianceConfig struct {
	Workers              int      `yaml:"workers" validate:"omitempty,gt=0"`
	JudgeTimeout         Duration `yaml:"judge_timeout"`
	ViolationThreshold   float64  `yaml:"violation_threshold" validate:"omitempty,gte=0,lte=1"`
	SimilarityThreshold  float64  `yaml:"similarity_threshold" validate:"omitempty,gte=0,lte=1"`
	MaxChangesPerFinding int      `yaml:"max_changes_per_finding" validate:"omitempty,gt=0"`
}

// StorageConfig configures persistence and document archival.
type StorageConfig struct {
	// SnapshotDir holds compressed per-jurisdiction snapshots. Empty disables
	// snapshot persistence.
	SnapshotDir string `yaml:"snapshot_dir"`
	// PostgresDSN enables the Postgres/pgvector store when set.
	PostgresDSN string `yaml:"postgres_dsn"`
	// Archive selects where raw regulation documents are kept: "local" or "s3".
	Archive    string `yaml:"archive" validate:"omitempty,oneof=local s3"`
	ArchiveDir string `yaml:"archive_dir"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

// Default returns a Config with working local defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Embedding: LLMConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "all-minilm",
			Timeout:    Duration(30 * time.Second),
			Dimensions: 384,
		},
		Chat: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "anthropic/claude-sonnet-4",
			Timeout: Duration(120 * time.Second),
		},
		Retrieval: RetrievalConfig{
			SeedCount:     5,
			TopK:          10,
			DampingFactor: 0.85,
			MaxIterations: 100,
			Tolerance:     1e-6,
		},
		Compliance: ComplianceConfig{
			Workers:              12,
			JudgeTimeout:         Duration(90 * time.Second),
			ViolationThreshold:   0.85,
			SimilarityThreshold:  0.75,
			MaxChangesPerFinding: 2,
		},
		Storage: StorageConfig{
			Archive:    "local",
			ArchiveDir: "archive",
		},
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or missing), then environment overrides.
// A .env file in the working directory is honored when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Server.JWTSecret, "JWT_SECRET")
	setString(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimensions, "EMBEDDING_DIMENSIONS")
	setString(&cfg.Chat.BaseURL, "CHAT_BASE_URL")
	setString(&cfg.Chat.APIKey, "CHAT_API_KEY")
	setString(&cfg.Chat.Model, "CHAT_MODEL")
	setInt(&cfg.Compliance.Workers, "COMPLIANCE_WORKERS")
	setString(&cfg.Storage.SnapshotDir, "SNAPSHOT_DIR")
	setString(&cfg.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Storage.Archive, "ARCHIVE_BACKEND")
	setString(&cfg.Storage.ArchiveDir, "ARCHIVE_DIR")
	setString(&cfg.Storage.S3Bucket, "S3_BUCKET")
	setString(&cfg.Storage.S3Region, "S3_REGION")
	setString(&cfg.Storage.S3Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.S3AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.S3SecretKey, "S3_SECRET_KEY")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
