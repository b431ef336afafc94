// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFile  = "file"
	StorageMongo = "mongo"

	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"

	LLMGoogle = "google"
	LLMOllama = "ollama"
)

// Config holds the process-level settings read from the environment.
type Config struct {
	Port        string
	DebugMode   bool
	LogDir      string
	LogLevel    string
	UploadDir   string
	TempDir     string
	DataDir     string
	MaxFileSize int64
	CORSOrigins []string

	StorageBackend string
	MongoURL       string
	DatabaseName   string

	LLMProvider  string
	GeminiAPIKey string
	GeminiModel  string
	UseGemini    bool
	OllamaModel  string
	JobTimeout   time.Duration

	EmbeddingProvider string
	EmbeddingModel    string
	OllamaURL         string
	OpenAIAPIKey      string
	EmbeddingCache    string
	RedisAddr         string

	PipelineConfigPath string
	Pipeline           PipelineConfig
}

// Load reads .env (optional) and the environment, then the pipeline tuning file.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		Port:        getEnv("PORT", "8000"),
		DebugMode:   getEnvBool("DEBUG_MODE", false),
		LogDir:      getEnvPath("LOG_DIR", "logs"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		UploadDir:   getEnvPath("UPLOAD_DIR", "./uploads"),
		TempDir:     getEnvPath("TEMP_DIR", "./temp"),
		DataDir:     getEnvPath("DATA_DIR", "data"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 50*1024*1024),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile)),
		MongoURL:       getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		DatabaseName:   getEnv("DATABASE_NAME", "newspaper_db"),

		LLMProvider:  strings.ToLower(getEnv("LLM_PROVIDER", LLMGoogle)),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		UseGemini:    getEnvBool("USE_GEMINI", true),
		OllamaModel:  getEnv("OLLAMA_MODEL", "llama3.1"),
		JobTimeout:   time.Duration(getEnvInt64("JOB_TIMEOUT_SECONDS", 900)) * time.Second,

		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "local")),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		EmbeddingCache:    strings.ToLower(getEnv("EMBEDDING_CACHE", CacheMemory)),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),

		PipelineConfigPath: getEnv("PIPELINE_CONFIG", ""),
	}

	pipeline, err := LoadPipeline(config.PipelineConfigPath)
	if err != nil {
		return nil, err
	}
	config.Pipeline = pipeline

	if config.UseGemini && config.LLMProvider == LLMGoogle && config.GeminiAPIKey == "" {
		log.Println("warning: GEMINI_API_KEY not set, AI enhancement disabled")
		config.UseGemini = false
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings that would only fail later at wiring time.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageFile, StorageMongo:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.LLMProvider {
	case LLMGoogle, LLMOllama:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.EmbeddingCache {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown EMBEDDING_CACHE %q", c.EmbeddingCache)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath returns the path for key and makes sure the directory exists.
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("warning: failed to create directory %s: %v\n", path, err)
		}
	}

	return path
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
