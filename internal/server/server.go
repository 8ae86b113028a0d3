package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/core/retrieval"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/queue"
)

// Server is the thin HTTP surface: document jobs in, search results out.
// Workspace and file CRUD belong to the upstream service, not here.
type Server struct {
	queue     *queue.Queue
	retrieval *retrieval.Engine
	embedder  llm.EmbedderClient
	store     graph.Store
	log       *logger.Logger
}

func New(q *queue.Queue, engine *retrieval.Engine, embedder llm.EmbedderClient, store graph.Store, log *logger.Logger) *Server {
	return &Server{
		queue:     q,
		retrieval: engine,
		embedder:  embedder,
		store:     store,
		log:       log.With("component", "server"),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	r.POST("/documents", s.EnqueueDocument)
	r.POST("/search", s.Search)
	r.GET("/health", s.Health)
	return r
}

type enqueueRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	DocumentURL string `json:"document_url" binding:"required"`
	FileID      string `json:"file_id" binding:"required"`
	FileName    string `json:"file_name"`
}

func (s *Server) EnqueueDocument(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := model.Job{
		WorkspaceID: req.WorkspaceID,
		DocumentURL: req.DocumentURL,
		FileID:      req.FileID,
		FileName:    req.FileName,
	}
	if job.FileName == "" {
		job.FileName = job.FileID
	}
	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		s.log.Error("enqueue failed", "file_id", job.FileID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue document"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "file_id": job.FileID})
}

type searchRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Query       string `json:"query" binding:"required"`
	Limit       int    `json:"limit"`
}

func (s *Server) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vectorQuery, err := s.embedder.Embed(c.Request.Context(), req.Query)
	if err != nil {
		s.log.Error("query embedding failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to embed query"})
		return
	}

	results, err := s.retrieval.Search(c.Request.Context(), req.WorkspaceID, req.Query, vectorQuery, req.Limit)
	if err != nil {
		s.log.Error("search failed", "workspace_id", req.WorkspaceID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if err := s.queue.Ping(ctx); err != nil {
		status["queue"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if _, err := s.store.WorkspaceStats(ctx, "health-check"); err != nil {
		status["graph"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	c.JSON(code, status)
}
