package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/artur/clipforge/internal/config"
	"github.com/artur/clipforge/internal/database"
	"github.com/artur/clipforge/internal/database/repository"
	"github.com/artur/clipforge/internal/highlight"
	"github.com/artur/clipforge/internal/lifecycle"
	"github.com/artur/clipforge/internal/logger"
	"github.com/artur/clipforge/internal/media"
	"github.com/artur/clipforge/internal/notify"
	"github.com/artur/clipforge/internal/pipeline"
	"github.com/artur/clipforge/internal/quota"
	"github.com/artur/clipforge/internal/service"
	"github.com/artur/clipforge/pkg/executor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Logging.Level)
	ctx := context.Background()

	db, err := database.New(cfg.Paths.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	accountRepo := repository.NewAccountRepository(db.DB)
	jobRepo := repository.NewJobRepository(db.DB)
	usageRepo := repository.NewUsageRepository(db.DB)

	files := lifecycle.New(cfg.Paths.Scratch, cfg.Paths.Clips, appLogger)
	if err := files.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		appLogger.Warn(ctx, "GEMINI_API_KEY is not set, highlight detection will use fallback windows")
	}

	exec := executor.New()
	ffmpeg := media.NewFFmpeg(exec)
	pipe := pipeline.New(
		media.NewYouTubeFetcher(),
		ffmpeg,
		ffmpeg,
		media.NewSimulatedTranscript(),
		highlight.NewGeminiOracle(geminiKey, cfg.Gemini.Model),
		files,
		appLogger,
	)

	var notifier notify.Notifier = notify.Noop{}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" && cfg.Telegram.ChatID != 0 {
		tn, err := notify.NewTelegramNotifier(token, cfg.Telegram.ChatID, appLogger)
		if err != nil {
			log.Fatalf("Failed to create Telegram notifier: %v", err)
		}
		notifier = tn
	}

	sweepMaxAge := time.Duration(cfg.Quota.SweepMaxAgeHours) * time.Hour

	orchestrator := service.New(
		accountRepo,
		jobRepo,
		usageRepo,
		quota.New(accountRepo),
		pipe,
		files,
		notifier,
		appLogger,
		service.Options{
			Workers:     cfg.Performance.MaxConcurrentJobs,
			SweepMaxAge: sweepMaxAge,
		},
	)
	defer orchestrator.Close()

	// Periodic sweep in addition to the opportunistic one after each run.
	sweepTicker := time.NewTicker(sweepMaxAge)
	defer sweepTicker.Stop()
	go func() {
		for range sweepTicker.C {
			files.Sweep(ctx, sweepMaxAge)
		}
	}()

	appLogger.Info(ctx, "clipforge started (workers=%d, scratch=%s)",
		cfg.Performance.MaxConcurrentJobs, cfg.Paths.Scratch)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info(ctx, "Shutting down, waiting for in-flight jobs...")
}
