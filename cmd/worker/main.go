package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/queue"
	"github.com/latticelabs/lattice/internal/vector"
	"github.com/latticelabs/lattice/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := loadConfig(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	oracle, embedder, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatal("failed to initialize LLM client", "error", err)
	}
	if embedder == nil {
		log.Fatal("configured LLM provider has no embedding support", "provider", cfg.LLM.Provider)
	}

	store, err := graph.NewNeo4jStore(ctx, cfg.Graph.URI, cfg.Graph.User, cfg.Graph.Password, log)
	if err != nil {
		log.Fatal("failed to connect to graph store", "error", err)
	}
	defer store.Close(ctx)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal("failed to ensure graph schema", "error", err)
	}

	index, err := vector.NewChromemIndex(cfg.Vector.Path)
	if err != nil {
		log.Fatal("failed to open vector index", "error", err)
	}
	defer index.Close()

	q, err := queue.New(cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to job queue", "error", err)
	}
	defer q.Close()

	pipeline := core.NewPipeline(cfg, oracle, embedder, store, index, log)
	pool := worker.NewPool(q, pipeline, store, cfg.Worker.PoolSize, cfg.Worker.JobTimeout(), log)

	if err := pool.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("worker pool failed", "error", err)
	}
	log.Info("worker pool stopped")
}

func loadConfig(log *logger.Logger) *config.Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config file not loaded, using defaults", "path", path, "error", err)
		return config.Default()
	}
	return cfg
}
