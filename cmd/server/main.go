package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"memochat-backend/cmd"
	"memochat-backend/internal/api"
	"memochat-backend/internal/audio"
	"memochat-backend/internal/blob"
	"memochat-backend/internal/chat"
	"memochat-backend/internal/config"
	"memochat-backend/internal/database"
	"memochat-backend/internal/engine"
	"memochat-backend/internal/export"
	"memochat-backend/internal/gemini"
	"memochat-backend/internal/store"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"
)

type Config struct {
	Root        string `env:"ROOT" envDefault:"./memochat"`
	Port        int    `env:"PORT" envDefault:"3001"`
	CatalogPath string `env:"CATALOG_PATH" envDefault:""`

	GeminiAPIKey  string `env:"GEMINI_API_KEY" envDefault:""`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:""`

	// Engine selects the research backend: "gemini" or "openai".
	Engine      string `env:"ENGINE" envDefault:"gemini"`
	OpenAIKey   string `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// SummaryModel enables the export summary paragraph when non-empty. It
	// uses the OpenAI credential above.
	SummaryModel string `env:"SUMMARY_MODEL" envDefault:""`

	BlobBackend string `env:"BLOB_BACKEND" envDefault:"local"`
	S3Endpoint  string `env:"S3_ENDPOINT" envDefault:""`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"memochat-documents"`
	S3AccessKey string `env:"S3_ACCESS_KEY_ID" envDefault:""`
	S3SecretKey string `env:"S3_SECRET_ACCESS_KEY" envDefault:""`
}

func createBlobProvider(cfg Config) (blob.Provider, error) {
	switch cfg.BlobBackend {
	case "local":
		return blob.NewLocalProvider(filepath.Join(cfg.Root, "blobs"))
	case "s3":
		return blob.NewS3Provider(blob.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("invalid blob backend: %s", cfg.BlobBackend)
	}
}

func createEngine(cfg Config, client *gemini.Client) (engine.Engine, error) {
	switch cfg.Engine {
	case "gemini":
		return engine.NewGeminiEngine(client), nil
	case "openai":
		return engine.NewOpenAIEngine(cfg.OpenAIKey, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("invalid engine: %s", cfg.Engine)
	}
}

// latestModelMessage finds the id the auto-speak tracker should treat as
// already seen, so replaying persisted history never triggers speech.
func latestModelMessage(db *gorm.DB) (database.Message, bool) {
	var msg database.Message
	err := db.Where("role = ?", "model").Order("timestamp DESC, rowid DESC").First(&msg).Error
	return msg, err == nil
}

func createServer(service *api.Service, port int) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		service.AddRoutes(r)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(cfg.Root, os.ModePerm); err != nil {
		log.Fatalf("error creating root directory: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(cfg.Root, "backend.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	log.SetOutput(io.MultiWriter(f, os.Stderr))

	slog.Info("starting backend", "root", cfg.Root, "port", cfg.Port, "engine", cfg.Engine, "blob_backend", cfg.BlobBackend)

	catalog, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("error loading model catalog: %v", err)
	}

	db, err := database.NewDatabase(cfg.Root)
	if err != nil {
		log.Fatalf("error opening database: %v", err)
	}

	blobs, err := createBlobProvider(cfg)
	if err != nil {
		log.Fatalf("error creating blob provider: %v", err)
	}

	var client *gemini.Client
	if cfg.GeminiBaseURL != "" {
		client = gemini.NewClientWithBaseURL(cfg.GeminiAPIKey, cfg.GeminiBaseURL)
	} else {
		client = gemini.NewClient(cfg.GeminiAPIKey)
	}

	eng, err := createEngine(cfg, client)
	if err != nil {
		log.Fatalf("error creating engine: %v", err)
	}

	st := store.NewStore(db)
	conv := chat.NewConversation(st, blobs, eng, catalog)

	playback := audio.NewBufferPlayback()
	pipeline := audio.NewPipeline(
		audio.NullCapture{},
		playback,
		audio.NewGeminiTranscriber(client, catalog.TranscribeModel),
		audio.NewGeminiSynthesizer(client, catalog.SpeechModel, catalog.Voice),
		conv.Busy,
	)

	tracker := audio.NewTracker()
	if msg, ok := latestModelMessage(db); ok {
		tracker.Mount(msg.ID)
	}

	var summarizer api.Summarizer
	if cfg.SummaryModel != "" {
		summarizer = export.NewSummarizer(cfg.SummaryModel)
	}

	service := api.NewService(st, blobs, conv, pipeline, playback, tracker, catalog, summarizer)

	server := createServer(service, cfg.Port)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	slog.Info("server stopped")
}
