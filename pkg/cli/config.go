package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/m-mizutani/burrow/pkg/adapter"
	"github.com/m-mizutani/burrow/pkg/index"
	"github.com/m-mizutani/burrow/pkg/model"
	"github.com/m-mizutani/burrow/pkg/repository"
	"github.com/m-mizutani/burrow/pkg/usecase/agent"
	"github.com/m-mizutani/burrow/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Artifacts
	storePath string
	indexPath string

	// Message source
	sourceURL string
	pageSize  int64

	// Gemini
	geminiAPIKey    string
	generativeModel string
	embeddingModel  string
	batchSize       int64

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Aliases:     []string{"s"},
			Usage:       "Path to the message store artifact",
			Value:       "messages.db",
			Sources:     cli.EnvVars("BURROW_STORE"),
			Destination: &cfg.storePath,
		},
		&cli.StringFlag{
			Name:        "index",
			Aliases:     []string{"x"},
			Usage:       "Path to the embedding index artifact",
			Value:       "index.db",
			Sources:     cli.EnvVars("BURROW_INDEX"),
			Destination: &cfg.indexPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("BURROW_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for Gemini configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for answer synthesis and extraction",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("BURROW_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("BURROW_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// setupLogging installs the configured logger as default and attaches it to
// the context.
func (cfg *config) setupLogging(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}

	return adapter.NewGemini(ctx, cfg.geminiAPIKey,
		adapter.WithGenerativeModel(cfg.generativeModel),
		adapter.WithEmbeddingModel(cfg.embeddingModel),
	)
}

// newRepository opens the message store
func (cfg *config) newRepository() (repository.Repository, error) {
	return repository.Open(cfg.storePath)
}

// newAgent constructs the full retrieval context. A missing index is not
// fatal here: fact queries still work, and contextual queries report it.
func (cfg *config) newAgent(ctx context.Context, logger *slog.Logger) (*agent.UseCase, func(), error) {
	repo, err := cfg.newRepository()
	if err != nil {
		return nil, nil, err
	}

	var idx agent.VectorIndex
	loaded, err := index.Open(cfg.indexPath)
	switch {
	case err == nil:
		idx = loaded
	case errors.Is(err, model.ErrIndexMissing):
		logger.Warn("embedding index not found, contextual queries unavailable",
			"path", cfg.indexPath)
	default:
		repo.Close()
		return nil, nil, err
	}

	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	uc, err := agent.New(ctx, repo, idx, gemini)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	closer := func() {
		if loaded != nil {
			loaded.Close()
		}
		repo.Close()
	}

	return uc, closer, nil
}
