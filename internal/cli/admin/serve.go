package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaisdk "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/loomnote/loomnote/internal/api/handlers"
	"github.com/loomnote/loomnote/internal/config"
	"github.com/loomnote/loomnote/internal/database"
	"github.com/loomnote/loomnote/internal/jobs"
	"github.com/loomnote/loomnote/internal/openai"
	"github.com/loomnote/loomnote/internal/repository"
	"github.com/loomnote/loomnote/internal/server"
	"github.com/loomnote/loomnote/internal/service"
	"github.com/loomnote/loomnote/internal/storage"
	"github.com/loomnote/loomnote/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the loomnote API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Disable the background ingestion worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("LOOMNOTE_OPENAI_API_KEY is required: the ingestion and search pipeline cannot run without an embedding provider")
	}
	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openaisdk.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	docRepo := repository.NewDocumentRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool, embeddingClient)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}

	resolver := service.NewCollectionResolver(kbRepo, convRepo)
	statusMgr := service.NewStatusManager(docRepo)

	processor := service.NewDocumentProcessor(docRepo, resolver, vectorRepo, statusMgr, service.ProcessorConfig{
		Chunk: service.ChunkConfig{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		},
		EmbeddingModel: embeddingClient.Model(),
	})

	var archiveClient *storage.S3Client
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready, archiving document text", cfg.S3Bucket)
		processor.WithArchiver(s3Client)
		archiveClient = s3Client
	}

	docSvc := service.NewDocumentService(txRunner, docRepo, vectorRepo, vectorRepo, resolver, statusMgr, uuidGen)
	if archiveClient != nil {
		docSvc.WithArchiveRemover(archiveClient)
	}
	searchSvc := service.NewVectorSearchService(vectorRepo, kbRepo, docRepo)
	retrievalSvc := service.NewRetrievalService(searchSvc, kbRepo, cfg.FanoutConcurrency)
	workspaceSvc := service.NewWorkspaceService(kbRepo, convRepo, uuidGen)

	var ingestWorker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if !noWorker {
		ingestProcessor := jobs.NewIngestWorker(jobRepo, processor)
		ingestWorker = jobs.NewWorker(ingestProcessor, cfg.WorkerPollInterval)
		go ingestWorker.Start(ctx)
		log.Println("ingestion worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler:  handlers.NewDocumentHandler(docSvc, processor),
		SearchHandler:    handlers.NewSearchHandler(searchSvc, retrievalSvc),
		WorkspaceHandler: handlers.NewWorkspaceHandler(workspaceSvc),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
