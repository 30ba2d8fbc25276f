package server

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"hiraku/app/api"
	"hiraku/chunker"
	"hiraku/ingest"
	"hiraku/logger"
	"hiraku/model"
	"hiraku/rag"
	"hiraku/store"
	"hiraku/vector"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024,
}

type Server struct {
	listenAddr string
	log        *logger.Logger
	app        *fiber.App
}

func NewServer(addr string, log *logger.Logger) *Server {
	return &Server{
		listenAddr: addr,
		log:        log.With("component", "server"),
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		_ = s.app.Shutdown()
	}
	s.log.Info("server stopped")
}

func (s *Server) Run() error {
	ctx := context.Background()

	pg, err := store.NewPostgresStore(ctx, postgresDSN(), s.log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pg.Init(ctx); err != nil {
		return fmt.Errorf("create metadata tables: %w", err)
	}
	if err := vector.Init(ctx, pg.Pool(), envInt("EMBEDDING_DIM", 768)); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}

	embedder := model.NewOllamaEmbedder(
		os.Getenv("OLLAMA_EMBEDDING_URL"),
		os.Getenv("OLLAMA_EMBEDDING_MODEL"),
	)
	llm := model.NewOllamaChat(os.Getenv("LLM_URL"), os.Getenv("LLM_MODEL"))

	chunkers, err := chunker.NewRegistry(chunker.Config{
		ChunkSize:    envInt("CHUNK_SIZE", 1024),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),
		ConverterURL: envStr("CONVERTER_URL", "http://localhost:5001/v1/convert/file"),
	})
	if err != nil {
		return fmt.Errorf("init chunkers: %w", err)
	}

	indexFor := func(tenant string) (vector.Index, error) {
		return vector.NewPostgresIndex(pg.Pool(), embedder, tenant, s.log)
	}

	engines := rag.NewRegistry(func(tenant string) (*rag.Engine, error) {
		index, err := indexFor(tenant)
		if err != nil {
			return nil, err
		}
		return rag.NewEngine(index, llm, s.log), nil
	})

	coordinators := func(tenant string) (*ingest.Coordinator, error) {
		index, err := indexFor(tenant)
		if err != nil {
			return nil, err
		}
		return ingest.NewCoordinator(tenant, chunkers, pg, index, s.log), nil
	}

	uploadsDir := envStr("UPLOADS_DIR", "private/uploads")

	var (
		app          = fiber.New(config)
		checkHandler = api.NewCheckHandler()
		queryHandler = api.NewQueryHandler(engines, pg, s.log)
		fileHandler  = api.NewFileHandler(coordinators, indexFor, pg, uploadsDir, s.log)
		check        = app.Group("/check")
		apiv1        = app.Group("/api/v1")
	)
	s.app = app

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/query", queryHandler.HandleQuery)
	apiv1.Get("/mode", queryHandler.HandleGetMode)
	apiv1.Put("/mode", queryHandler.HandleSetMode)
	apiv1.Post("/sessions", queryHandler.HandleCreateSession)
	apiv1.Get("/sessions/:id/history", queryHandler.HandleHistory)

	apiv1.Post("/upload", fileHandler.HandleUpload)
	apiv1.Get("/documents", fileHandler.HandleListDocuments)
	apiv1.Delete("/documents", fileHandler.HandleReset)

	if err := app.Listen(s.listenAddr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

func postgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"),
		envInt("PG_PORT", 5432),
		os.Getenv("PG_USER"),
		os.Getenv("PG_PASS"),
		os.Getenv("PG_DB_NAME"),
	)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
