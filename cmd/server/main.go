package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unstructured-rag/internal/api"
	"unstructured-rag/internal/chunker"
	"unstructured-rag/internal/config"
	"unstructured-rag/internal/db"
	"unstructured-rag/internal/embedding"
	"unstructured-rag/internal/loader"
	"unstructured-rag/internal/openai"
	"unstructured-rag/internal/repository"
	"unstructured-rag/internal/services"
	"unstructured-rag/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("🚀 Starting unstructured-rag server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Tracing first so everything below is covered.
	jaegerShutdown, err := telemetry.InitJaeger("unstructured-rag", cfg.JaegerEndpoint)
	if err != nil {
		log.Printf("⚠️  Failed to initialize Jaeger: %v (continuing without tracing)", err)
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			log.Printf("⚠️  Failed to shutdown Jaeger: %v", err)
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close()

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.ChatModel)
	log.Println("✓ OpenAI client initialized")

	// The embedding cache is optional; without Redis every embedding is
	// computed by the backend.
	var cache *embedding.Cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache = embedding.NewCache(redisClient, cfg.EmbeddingModel)
		log.Printf("✓ Embedding cache enabled (redis at %s)", cfg.RedisAddr)
	}
	embedder := embedding.New(openaiClient, cache, cfg.EmbeddingDimension, cfg.EmbedBatchSize)

	docRepo := repository.NewDocumentRepository(database.DB)
	vectorRepo := repository.NewVectorRepository(database.DB, cfg.VectorCollection)

	docLoader := loader.New()
	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("❌ Invalid chunking config: %v", err)
	}

	ingestionService := services.NewIngestionService(
		docLoader,
		textChunker,
		embedder,
		docRepo,
		vectorRepo,
		cfg.IngestWorkers,
		cfg.IngestQueue,
	)
	ingestionService.Start()

	retriever := services.NewRetriever(embedder, vectorRepo, cfg.TopK, cfg.SimilarityThreshold)
	composer := services.NewComposer(openaiClient, cfg.ChatModel, cfg.MaxContextTokens)
	ragService := services.NewRAGService(retriever, composer)

	handler := api.NewHandler(ingestionService, ragService, docRepo)
	router := api.SetupRoutes(handler)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://%s", addr)
		log.Printf("📚 API Endpoints:")
		log.Printf("   POST   /api/documents     - Upload document (multipart, field \"file\")")
		log.Printf("   GET    /api/documents     - List documents")
		log.Printf("   GET    /api/documents/:id - Get document")
		log.Printf("   DELETE /api/documents/:id - Delete document and its vectors")
		log.Printf("   POST   /api/query         - Ask a question")
		log.Printf("   GET    /api/health        - Health check")
		log.Println()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Let in-flight documents finish so none are stranded in processing.
	ingestionService.Shutdown()

	log.Println("✓ Server shutdown complete")
}
