package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/ai"
	"github.com/viebook/viebook/internal/config"
	"github.com/viebook/viebook/internal/db"
	"github.com/viebook/viebook/internal/extract"
	"github.com/viebook/viebook/internal/filestore"
	"github.com/viebook/viebook/internal/handler"
	"github.com/viebook/viebook/internal/job"
	"github.com/viebook/viebook/internal/middleware"
	"github.com/viebook/viebook/internal/moderation"
	"github.com/viebook/viebook/internal/pipeline"
	"github.com/viebook/viebook/internal/repo"
	"github.com/viebook/viebook/internal/schedule"
	"github.com/viebook/viebook/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "viebook",
		Short: "viebook chapter pipeline server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run viebook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	bookRepo := repo.NewBookRepo(conn)
	chapterRepo := repo.NewChapterRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	provider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	classifier := ai.NewClassifier(ai.NewGenerator(provider, cfg.AI.Model), ai.ClassifierConfig{
		Timeout:       cfg.AI.Timeout,
		MaxInputChars: cfg.AI.MaxInputChars,
	})
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	fallback, err := moderation.NewFallback(cfg.Moderation.BannedTerms)
	if err != nil {
		return fmt.Errorf("init moderation fallback: %w", err)
	}

	plagiarismService := service.NewPlagiarismService(embedder, chunkRepo, chapterRepo, cfg.Moderation.PlagiarismMaxMatches)
	chapterService := service.NewChapterService(chapterRepo, bookRepo, plagiarismService)

	chain := pipeline.NewChain(classifier, classifier, plagiarismService, fallback, pipeline.ChainConfig{
		GateTimeout:         time.Duration(cfg.Moderation.GateTimeoutSeconds) * time.Second,
		PlagiarismPassScore: cfg.Moderation.PlagiarismPassScore,
	})

	recognizer := extract.NewTesseractRecognizer(cfg.OCR.Languages, cfg.OCR.TessdataDir)
	defer recognizer.Close()
	resolver := extract.NewResolver(extract.NewFitzEngine(), recognizer, extract.ResolverConfig{
		SamplePages:       cfg.Pipeline.SamplePages,
		MinTextLayerChars: cfg.Pipeline.MinContentChars,
		RenderScale:       cfg.OCR.RenderScale,
	})

	sessions := pipeline.NewStore(time.Duration(cfg.Pipeline.SessionTTLMinutes) * time.Minute)
	pipelineService := service.NewPipelineService(
		sessions, resolver, chain, classifier,
		bookRepo, chapterRepo, chapterService, store,
		pipeline.ContentLimits{
			MinChars: cfg.Pipeline.MinContentChars,
			MaxChars: cfg.Pipeline.MaxContentChars,
		},
	)

	bookService := service.NewBookService(bookRepo)

	deps := handler.RouterDeps{
		Books:     handler.NewBookHandler(bookService),
		Chapters:  handler.NewChapterHandler(chapterService),
		Pipeline:  handler.NewPipelineHandler(pipelineService),
		Files:     handler.NewFileHandler(store, cfg.FileStore.Type),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(chapterService, 20), cfg.Cron.EmbeddingBackfill); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewSessionSweepJob(pipelineService), cfg.Cron.SessionSweep); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
