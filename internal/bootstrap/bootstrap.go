package bootstrap

import (
	"context"
	"fmt"

	"github.com/unimate/docqa/internal/config"
	"github.com/unimate/docqa/internal/core/ports"
	"github.com/unimate/docqa/internal/core/usecase"
	"github.com/unimate/docqa/internal/infrastructure/chunking"
	"github.com/unimate/docqa/internal/infrastructure/extractor"
	"github.com/unimate/docqa/internal/infrastructure/llm/ollama"
	"github.com/unimate/docqa/internal/infrastructure/queue/nats"
	"github.com/unimate/docqa/internal/infrastructure/repository/postgres"
	"github.com/unimate/docqa/internal/infrastructure/resilience"
	"github.com/unimate/docqa/internal/infrastructure/storage/localfs"
	"github.com/unimate/docqa/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	IngestUC ports.DocumentIngestor
	IndexUC  ports.DocumentIndexer
	AskUC    ports.QuestionAnswerer
	DeleteUC ports.DocumentDeleter

	Resilience *resilience.Executor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.EmbedTimeout())
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.VectorDim)

	splitter, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init splitter: %w", err)
	}
	textExtractor := extractor.New(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	indexUC := usecase.NewIndexDocumentUseCase(repo, textExtractor, splitter, embedder, vectorIndex, cfg.EmbedBatchSize)
	retriever := usecase.NewRetriever(embedder, vectorIndex, cfg.TopK, cfg.RelevanceFloor)
	prompts := usecase.NewPromptBuilder(cfg.PromptCharBudget)
	askUC := usecase.NewAskQuestionUseCase(retriever, prompts, generator, cfg.QueryDeadline())
	deleteUC := usecase.NewDeleteDocumentUseCase(repo, storage, vectorIndex)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC: ingestUC,
		IndexUC:  indexUC,
		AskUC:    askUC,
		DeleteUC: deleteUC,

		Resilience: executor,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
