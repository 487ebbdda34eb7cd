package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"research-assistant/internal/ai"
	"research-assistant/internal/app"
	"research-assistant/internal/cache"
	"research-assistant/internal/config"
	"research-assistant/internal/index"
	"research-assistant/internal/model"
	mysqlClient "research-assistant/internal/platform/mysql"
	rabbitmqClient "research-assistant/internal/platform/rabbitmq"
	redisClient "research-assistant/internal/platform/redis"
	"research-assistant/internal/repository"
	"research-assistant/internal/research"
	"research-assistant/internal/worker"
)

type App struct {
	Config      *config.Config
	MySQL       *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	CorpusStore *index.Store

	Ingest           *app.IngestService
	Workflow         *app.WorkflowService
	Checkpoints      *app.CheckpointService
	Transcripts      *repository.TranscriptRepository
	TranscriptWorker *worker.TranscriptPersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Checkpoint{}, &model.TranscriptMessage{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	llmClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewEmbeddingService(llmClient, ai.EmbeddingConfig(cfg.Embedding))
	completer := ai.NewCompletionService(llmClient, ai.ChatConfig(cfg.LLM))

	corpusStore := index.NewStore()
	indexer := index.NewIndexer(embedder, index.ParsePDF)
	ingestService := app.NewIngestService(
		corpusStore,
		indexer,
		cfg.Ingest.UploadDir,
		time.Duration(cfg.Ingest.TimeoutSeconds)*time.Second,
	)

	checkpointRepo := repository.NewCheckpointRepository(mysqlDB)
	checkpointCache := cache.NewCheckpointCache(redisCli, time.Duration(cfg.Redis.CheckpointTTLSeconds)*time.Second)
	checkpoints := app.NewCheckpointService(checkpointRepo, checkpointCache)

	transcriptRepo := repository.NewTranscriptRepository(mysqlDB)
	transcriptPublisher := rabbitmqClient.NewTranscriptPublisher(mqConn, cfg.RabbitMQ.TranscriptPersistQueue)
	transcriptWorker := worker.NewTranscriptPersistWorker(mqConn, transcriptRepo, cfg.RabbitMQ.TranscriptPersistQueue)
	if err := transcriptWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start transcript worker failed: %w", err)
	}

	retrieval := app.NewRetrievalService(corpusStore, embedder, completer)
	refiner := app.NewRefinerService(completer)
	researchAgent := research.NewSerperAgent(cfg.Research.SerperAPIKey, cfg.Research.MaxResults, completer)

	workflowService := app.NewWorkflowService(
		refiner,
		researchAgent,
		retrieval,
		completer,
		checkpoints,
		transcriptPublisher,
		cfg.Workflow.TopK,
		time.Duration(cfg.Workflow.QueryTimeoutSeconds)*time.Second,
	)

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		CorpusStore:      corpusStore,
		Ingest:           ingestService,
		Workflow:         workflowService,
		Checkpoints:      checkpoints,
		Transcripts:      transcriptRepo,
		TranscriptWorker: transcriptWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
