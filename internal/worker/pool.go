package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/latticelabs/lattice/internal/core"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/graph"
	"github.com/latticelabs/lattice/internal/logger"
	"github.com/latticelabs/lattice/internal/queue"
)

// Pool is a fixed-size set of workers, each pulling one document job at a
// time from the queue. Documents run independently in parallel; within one
// job the pipeline stages are strictly sequential.
type Pool struct {
	queue      *queue.Queue
	pipeline   *core.Pipeline
	store      graph.Store
	size       int
	jobTimeout time.Duration
	log        *logger.Logger
}

func NewPool(q *queue.Queue, pipeline *core.Pipeline, store graph.Store, size int, jobTimeout time.Duration, log *logger.Logger) *Pool {
	return &Pool{
		queue:      q,
		pipeline:   pipeline,
		store:      store,
		size:       size,
		jobTimeout: jobTimeout,
		log:        log.With("component", "worker"),
	}
}

// Run blocks until ctx is cancelled, keeping p.size workers fed from the
// queue.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("worker pool starting", "size", p.size)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error {
			return p.workerLoop(gctx, id)
		})
	}
	return g.Wait()
}

func (p *Pool) workerLoop(ctx context.Context, id int) error {
	log := p.log.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		p.processJob(ctx, log, *job)
	}
}

// processJob runs one document under the job's wall-clock budget and
// acknowledges the outcome to the result sink either way.
func (p *Pool) processJob(ctx context.Context, log *logger.Logger, job model.Job) {
	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	start := time.Now()
	result := p.pipeline.ProcessDocument(jobCtx, job)
	if jobCtx.Err() == context.DeadlineExceeded {
		result = model.Failed(job, "job exceeded wall-clock budget")
	}

	if result.Status == "success" {
		if stats, err := p.store.WorkspaceStats(ctx, job.WorkspaceID); err == nil {
			log.Info("workspace state",
				"workspace_id", job.WorkspaceID,
				"nodes", stats.Nodes,
				"evidences", stats.Evidences,
				"files", stats.Files,
			)
		}
	}

	if err := p.queue.ReportResult(ctx, result); err != nil {
		log.Error("failed to report result", "file_id", job.FileID, "error", err)
	}
	log.Info("job finished",
		"file_id", job.FileID,
		"status", result.Status,
		"elapsed", time.Since(start),
	)
}
