package main

import (
	"log"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mfeller/photocat/internal/blobstore"
	"github.com/mfeller/photocat/internal/blobstore/local"
	"github.com/mfeller/photocat/internal/config"
	"github.com/mfeller/photocat/internal/db"
	"github.com/mfeller/photocat/internal/identity"
	"github.com/mfeller/photocat/internal/logging"
	"github.com/mfeller/photocat/internal/service"
	"github.com/mfeller/photocat/internal/store"
	"github.com/mfeller/photocat/internal/tagger"
	claudetagger "github.com/mfeller/photocat/internal/tagger/claude"
	ollamatagger "github.com/mfeller/photocat/internal/tagger/ollama"
	"github.com/mfeller/photocat/internal/web"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	projectStore := store.NewProjectStore(database)
	photoStore := store.NewPhotoStore(database)

	blobs, err := newBlobStore(cfg)
	if err != nil {
		logger.Error("failed to initialize blob store", "error", err)
		return
	}

	gateway := identity.NewGateway([]byte(authSecret(cfg, logger)))
	suggester := newTagSuggester(cfg, logger)

	projectService := service.NewProjectService(projectStore, photoStore, blobs, logger)
	photoService := service.NewPhotoService(projectStore, photoStore, blobs, suggester, logger)

	server := web.NewServer(projectService, photoService, gateway, blobs, logger)

	if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newBlobStore(cfg *config.Config) (blobstore.Store, error) {
	// "local" is the only backend for now; the switch keeps the config
	// surface stable for when an object-storage backend is added.
	switch cfg.BlobBackend {
	default:
		return local.NewLocalStore(cfg.BlobPath, cfg.BlobBaseURL)
	}
}

func newTagSuggester(cfg *config.Config, logger *slog.Logger) tagger.Suggester {
	switch cfg.TaggerBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when TAGGER_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude tag suggester")
		return claudetagger.NewClaudeSuggester(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "ollama":
		logger.Info("using Ollama tag suggester", "model", cfg.OllamaModel)
		return ollamatagger.NewOllamaSuggester(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("tag suggestions disabled")
		return nil
	}
}

// authSecret returns the configured token signing secret, or a random
// per-process one when none is set. Tokens issued with a random secret do not
// survive a restart.
func authSecret(cfg *config.Config, logger *slog.Logger) string {
	if cfg.AuthSecret != "" {
		return cfg.AuthSecret
	}
	logger.Warn("AUTH_SECRET not set, issued tokens will not survive restarts")
	return uuid.NewString()
}
