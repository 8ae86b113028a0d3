package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core/retrieval"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/queue"
	"github.com/latticelabs/lattice/internal/server"
	"github.com/latticelabs/lattice/internal/vector"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config file not loaded, using defaults", "path", path, "error", err)
		cfg = config.Default()
	}

	ctx := context.Background()

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

	engine := retrieval.New(index, llm.NewSimpleLLMReranker(oracle), cfg.Retrieval.DefaultLimit, log)

	srv := server.New(q, engine, embedder, store, log)
	r := srv.SetupRouter()

	log.Info("server listening", "port", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
