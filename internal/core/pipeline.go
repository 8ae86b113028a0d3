package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core/embedcache"
	"github.com/latticelabs/lattice/internal/core/expand"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/core/resolve"
	"github.com/latticelabs/lattice/internal/document"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/vector"
)

// ErrDocumentTooShort rejects documents below the minimum content guard
// before any oracle call is spent on them.
var ErrDocumentTooShort = errors.New("document too short to process")

// Pipeline runs the whole document-to-graph resolution for one job: fetch,
// split, expand, embed, resolve, index. Stages run strictly sequentially
// because each one's output is the next one's input; parallelism lives across
// jobs (worker pool) and across sibling expansions (inside the expander).
type Pipeline struct {
	fetcher  *document.Fetcher
	expander *expand.Expander
	resolver *resolve.Resolver
	embedder llm.EmbedderClient
	store    graph.Store
	index    vector.Index
	cfg      *config.Config
	log      *logger.Logger
}

func NewPipeline(cfg *config.Config, oracle llm.LLMClient, embedder llm.EmbedderClient, store graph.Store, index vector.Index, log *logger.Logger) *Pipeline {
	return &Pipeline{
		fetcher:  document.NewFetcher(),
		expander: expand.New(oracle, cfg.Expansion, log),
		resolver: resolve.New(store, cfg.Resolver.GapTopN, log),
		embedder: embedder,
		store:    store,
		index:    index,
		cfg:      cfg,
		log:      log.With("component", "pipeline"),
	}
}

// ProcessDocument ingests one document into its workspace's shared graph.
// The result is either a success with quality metrics or a failure with an
// explicit reason; there is no degraded in-between.
func (p *Pipeline) ProcessDocument(ctx context.Context, job model.Job) model.ProcessResult {
	log := p.log.With("workspace_id", job.WorkspaceID, "file_id", job.FileID)
	log.Info("processing document", "url", job.DocumentURL)

	text, err := p.fetcher.FetchText(ctx, job.DocumentURL)
	if err != nil {
		return model.Failed(job, fmt.Sprintf("fetching document: %v", err))
	}

	paragraphs := document.SplitParagraphs(text)
	if totalChars(paragraphs) < p.cfg.Expansion.MinDocumentChars {
		return model.Failed(job, fmt.Sprintf("%v: %d chars", ErrDocumentTooShort, totalChars(paragraphs)))
	}

	doc := expand.Document{
		FileID:     job.FileID,
		FileName:   job.FileName,
		Paragraphs: paragraphs,
	}
	tree, metrics, err := p.expander.Expand(ctx, doc)
	if err != nil {
		log.Warn("expansion failed", "error", err)
		result := model.Failed(job, err.Error())
		result.Quality = metrics
		return result
	}

	cache := embedcache.New(p.embedder)
	if err := cache.Precompute(ctx, embedcache.CollectNames(tree)); err != nil {
		result := model.Failed(job, fmt.Sprintf("precomputing embeddings: %v", err))
		result.Quality = metrics
		return result
	}

	treeResult, err := p.resolver.PersistTree(ctx, job.WorkspaceID, tree, cache)
	if err != nil {
		result := model.Failed(job, fmt.Sprintf("resolving tree: %v", err))
		result.Quality = metrics
		return result
	}

	if err := p.indexNodes(ctx, job.WorkspaceID, treeResult.Resolved, cache); err != nil {
		result := model.Failed(job, fmt.Sprintf("indexing nodes: %v", err))
		result.Quality = metrics
		return result
	}

	dedupRate := 0.0
	if total := treeResult.Created + treeResult.Merged; total > 0 {
		dedupRate = float64(treeResult.Merged) / float64(total)
	}

	log.Info("document processed",
		"created", treeResult.Created,
		"merged", treeResult.Merged,
		"evidences", treeResult.Evidences,
		"gaps", treeResult.Gaps,
		"dedup_rate", dedupRate,
	)
	return model.ProcessResult{
		WorkspaceID:      job.WorkspaceID,
		FileID:           job.FileID,
		Status:           "success",
		NodesCreated:     treeResult.Created,
		NodesMerged:      treeResult.Merged,
		EvidencesCreated: treeResult.Evidences,
		GapsCreated:      treeResult.Gaps,
		DedupRate:        dedupRate,
		Quality:          metrics,
	}
}

// indexNodes pushes every resolved node into the vector index so retrieval
// sees new knowledge as soon as the job completes.
func (p *Pipeline) indexNodes(ctx context.Context, workspaceID string, resolved []resolve.ResolvedNode, cache *embedcache.Cache) error {
	for _, node := range resolved {
		embedding, err := cache.Vector(ctx, node.Name)
		if err != nil {
			return err
		}
		point := vector.Point{
			ID:          node.UUID,
			WorkspaceID: workspaceID,
			Name:        node.Name,
			Synthesis:   node.Synthesis,
			Embedding:   embedding,
		}
		if err := p.index.Upsert(ctx, point); err != nil {
			return err
		}
	}
	return nil
}

func totalChars(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		n += len(p)
	}
	return n
}
