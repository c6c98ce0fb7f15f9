// Package config loads and validates pipeline configuration from a YAML
// file and environment variables. Environment variables override file
// values so deployments can run from a bare .env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for docqa.
type Config struct {
	AWS       AWSConfig       `yaml:"aws"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

type StoreConfig struct {
	// Backend selects the vector index backend: "s3vectors" or "memory".
	Backend string `yaml:"backend"`

	// VectorBucket is the S3 vector bucket name.
	VectorBucket string `yaml:"vector_bucket"`

	// VectorIndex is the index name inside the bucket.
	VectorIndex string `yaml:"vector_index"`
}

type EmbeddingConfig struct {
	// Provider selects the embedding backend: "bedrock" or "openai".
	Provider string `yaml:"provider"`

	// Model is the embedding model identifier.
	Model string `yaml:"model"`

	// APIKey authenticates the openai provider.
	APIKey string `yaml:"api_key"`

	// Dimension is the output vector dimension.
	Dimension int `yaml:"dimension"`

	// Normalize requests unit-length output vectors.
	Normalize bool `yaml:"normalize"`

	// RequestsPerSecond caps the embedding request rate.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// MaxRetries bounds transport retries per request.
	MaxRetries int `yaml:"max_retries"`
}

type LLMConfig struct {
	// Provider selects the generative backend: "bedrock" or "anthropic".
	Provider string `yaml:"provider"`

	// Model is the generative model identifier.
	Model string `yaml:"model"`

	// APIKey authenticates the anthropic provider.
	APIKey string `yaml:"api_key"`

	// MaxTokens bounds generated output length.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls sampling randomness. Kept low for grounding.
	Temperature float32 `yaml:"temperature"`

	// TopP is the nucleus sampling parameter.
	TopP float32 `yaml:"top_p"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float32 `yaml:"similarity_threshold"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration file (if present), applies environment
// variable overrides, then defaults. A missing file is not an error; the
// environment alone can carry a full configuration.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// fall through to env-only configuration
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.AWS.Region, "AWS_REGION")
	setString(&cfg.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setString(&cfg.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.AWS.SessionToken, "AWS_SESSION_TOKEN")

	setString(&cfg.Store.Backend, "DOCQA_STORE_BACKEND")
	setString(&cfg.Store.VectorBucket, "S3_VECTOR_BUCKET_NAME")
	setString(&cfg.Store.VectorIndex, "S3_VECTOR_INDEX_NAME")

	setString(&cfg.Embedding.Provider, "DOCQA_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "BEDROCK_EMBEDDING_MODEL_ID")
	setString(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	setInt(&cfg.Embedding.Dimension, "EMBEDDING_DIMENSION")

	setString(&cfg.LLM.Provider, "DOCQA_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "BEDROCK_LLM_MODEL_ID")
	setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")

	setInt(&cfg.Chunking.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Chunking.ChunkOverlap, "CHUNK_OVERLAP")

	setInt(&cfg.Retrieval.TopK, "TOP_K_RESULTS")
	setFloat32(&cfg.Retrieval.SimilarityThreshold, "SIMILARITY_THRESHOLD")

	setString(&cfg.Logging.Level, "DOCQA_LOG_LEVEL")
	setString(&cfg.Logging.Format, "DOCQA_LOG_FORMAT")
}

func applyDefaults(cfg *Config) {
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "s3vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "bedrock"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		default:
			cfg.Embedding.Model = "amazon.titan-embed-text-v2:0"
		}
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1024
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 30
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 5
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "bedrock"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-sonnet-4-20250514"
		default:
			cfg.LLM.Model = "global.anthropic.claude-sonnet-4-20250514-v1:0"
		}
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 0.9
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.SimilarityThreshold == 0 {
		cfg.Retrieval.SimilarityThreshold = 0.7
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate fails fast with the complete list of missing required keys so a
// misconfigured deployment reports every gap at once, before any backend
// call is made.
func (c *Config) Validate() error {
	var missing []string

	if c.Store.Backend == "s3vectors" {
		if c.AWS.AccessKeyID == "" {
			missing = append(missing, "AWS_ACCESS_KEY_ID")
		}
		if c.AWS.SecretAccessKey == "" {
			missing = append(missing, "AWS_SECRET_ACCESS_KEY")
		}
		if c.Store.VectorBucket == "" {
			missing = append(missing, "S3_VECTOR_BUCKET_NAME")
		}
		if c.Store.VectorIndex == "" {
			missing = append(missing, "S3_VECTOR_INDEX_NAME")
		}
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.LLM.Provider == "anthropic" && c.LLM.APIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}

	return nil
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

func setFloat32(dst *float32, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			*dst = float32(f)
		}
	}
}
