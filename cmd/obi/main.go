// Package main contains the entrypoint for the conversation service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgmulei/obi-slv2/internal/app"
	"github.com/dgmulei/obi-slv2/internal/chat"
	"github.com/dgmulei/obi-slv2/internal/config"
	"github.com/dgmulei/obi-slv2/internal/console"
	"github.com/dgmulei/obi-slv2/internal/database"
	"github.com/dgmulei/obi-slv2/internal/gemini"
	"github.com/dgmulei/obi-slv2/internal/logger"
	"github.com/dgmulei/obi-slv2/internal/profile"
	"github.com/dgmulei/obi-slv2/internal/retrieval"
	"github.com/dgmulei/obi-slv2/internal/session"
	"github.com/dgmulei/obi-slv2/internal/tasks"
	"github.com/dgmulei/obi-slv2/internal/turn"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config,
// logger, database, model client, sessions, chat service, scheduler),
// handles graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configDir := flag.String("config", ".", "Directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "dir", *configDir, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	profiles, err := profile.LoadFile(cfg.Profiles.Path, log)
	if err != nil {
		log.Error("Failed to load profiles", "path", cfg.Profiles.Path, "error", err)
		return 1
	}

	if err := retrieval.LoadDocuments(ctx, db, cfg.Retrieval.DocumentsPath, log); err != nil {
		log.Error("Failed to load reference documents", "path", cfg.Retrieval.DocumentsPath, "error", err)
		return 1
	}
	retriever := retrieval.NewProvider(db, log)

	gen, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}

	var sessions session.Manager
	var pruner tasks.IdlePruner
	switch cfg.Session.Backend {
	case "redis":
		sessions, err = session.NewRedisManager(ctx, cfg.Session.RedisAddr, cfg.Session.TTL, log)
		if err != nil {
			log.Error("Failed to initialize Redis session backend", "addr", cfg.Session.RedisAddr, "error", err)
			return 1
		}
	default:
		mem := session.NewMemoryManager(log)
		sessions = mem
		pruner = mem
	}

	assembler := turn.NewAssembler(gen, cfg.Gemini.PrimaryModel, cfg.Gemini.FallbackModel, log)
	svc := chat.NewService(
		store,
		sessions,
		profiles,
		retriever,
		assembler,
		cfg.Gemini.BaseInstruction,
		cfg.Retrieval.SnippetLimit,
		cfg.Session.DefaultIntensity,
		log,
	)

	tDeps := tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Sessions:   pruner,
		SessionTTL: cfg.Session.TTL,
	}
	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to initialize scheduler", "error", err)
		return 1
	}

	front := console.New(svc, os.Stdin, os.Stdout, log)
	application := app.New(log, front, sched)

	log.Info("Starting service...")
	runErr := application.Run(ctx)
	log.Info("Run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
