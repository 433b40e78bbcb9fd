package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	DBPath        string
	BlobBackend   string
	BlobPath      string
	BlobBaseURL   string
	AuthSecret    string
	TaggerBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string
	LogLevel      string
	LogFile       string
}

// Load reads configuration from the environment, after loading a .env file if
// one exists in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "/data/photocat.db"),
		BlobBackend:   getEnv("BLOB_BACKEND", "local"),
		BlobPath:      getEnv("BLOB_LOCAL_PATH", "/data/blobs"),
		BlobBaseURL:   getEnv("BLOB_BASE_URL", "/blobs"),
		AuthSecret:    getEnv("AUTH_SECRET", ""),
		TaggerBackend: getEnv("TAGGER_BACKEND", "none"),
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:  getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:   getEnv("CLAUDE_MODEL", "claude-3-5-haiku-latest"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
