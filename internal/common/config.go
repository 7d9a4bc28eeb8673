package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Pipeline     PipelineConfig
	Capabilities CapabilityConfig
	Cache        CacheConfig
	Intake       IntakeConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// PipelineConfig holds pipeline execution limits and tuning.
type PipelineConfig struct {
	MaxFileSize      int64
	OCRLanguages     []string
	ChunkThreshold   int
	ChunkSize        int
	HardTimeout      time.Duration
	SoftTimeout      time.Duration
	MaxRetries       int
	RetryDelay       time.Duration
	Workers          int
	QueueSize        int
	TopRisks         int
	TopOpportunities int
	ScoringFile      string
}

// CapabilityConfig points at the external document/table/AI capabilities.
type CapabilityConfig struct {
	PdftotextBin    string
	PdfinfoBin      string
	TesseractBin    string
	TessdataDir     string
	TableServiceURL string
	OllamaURL       string
	OllamaModel     string
	AITemperature   float32
	AIMaxTokens     int
	AITimeout       time.Duration
	CallbackTimeout time.Duration
}

// CacheConfig holds the capability-result cache settings.
type CacheConfig struct {
	Path string
	TTL  time.Duration
}

// IntakeConfig holds file intake settings.
type IntakeConfig struct {
	WatchDirs   []string
	ResultsDir  string
	InitialScan bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		},
		Pipeline: PipelineConfig{
			MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", 100<<20),
			OCRLanguages:     getEnvAsList("OCR_LANGUAGES", []string{"por", "eng"}),
			ChunkThreshold:   getEnvAsInt("AI_CHUNK_THRESHOLD", 30000),
			ChunkSize:        getEnvAsInt("AI_CHUNK_SIZE", 10000),
			HardTimeout:      getEnvAsDuration("TASK_TIME_LIMIT", 30*time.Minute),
			SoftTimeout:      getEnvAsDuration("TASK_SOFT_TIME_LIMIT", 25*time.Minute),
			MaxRetries:       getEnvAsInt("TASK_MAX_RETRIES", 3),
			RetryDelay:       getEnvAsDuration("TASK_RETRY_DELAY", time.Minute),
			Workers:          getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:        getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			TopRisks:         getEnvAsInt("RESULT_TOP_RISKS", 20),
			TopOpportunities: getEnvAsInt("RESULT_TOP_OPPORTUNITIES", 10),
			ScoringFile:      getEnv("SCORING_FILE", ""),
		},
		Capabilities: CapabilityConfig{
			PdftotextBin:    getEnv("PDFTOTEXT_BIN", "pdftotext"),
			PdfinfoBin:      getEnv("PDFINFO_BIN", "pdfinfo"),
			TesseractBin:    getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			TableServiceURL: getEnv("TABLE_SERVICE_URL", ""),
			OllamaURL:       getEnv("OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:     getEnv("OLLAMA_MODEL", "llama3.2:3b"),
			AITemperature:   getEnvAsFloat32("AI_TEMPERATURE", 0.1),
			AIMaxTokens:     getEnvAsInt("AI_MAX_TOKENS", 4096),
			AITimeout:       getEnvAsDuration("AI_TIMEOUT", 120*time.Second),
			CallbackTimeout: getEnvAsDuration("CALLBACK_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			Path: getEnv("CACHE_PATH", "./tmp/editalscan-cache.db"),
			TTL:  getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		},
		Intake: IntakeConfig{
			WatchDirs:   getEnvAsList("WATCH_DIRS", nil),
			ResultsDir:  getEnv("RESULTS_DIR", "./processed"),
			InitialScan: getEnvAsBool("WATCH_INITIAL_SCAN", true),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Capabilities.OllamaURL == "" {
		return NewAppError("CONFIG_ERROR", "OLLAMA_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.SoftTimeout > c.Pipeline.HardTimeout {
		return NewAppError("CONFIG_ERROR", "TASK_SOFT_TIME_LIMIT exceeds TASK_TIME_LIMIT", ErrInvalidInput)
	}
	return nil
}
