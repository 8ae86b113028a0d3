package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/logger"
)

const dequeueBlock = 5 * time.Second

// Queue is the external job source and result sink, backed by Redis lists.
// Workers block-pop jobs; completion results are pushed onto a result list
// for the upstream service to consume.
type Queue struct {
	rdb       *goredis.Client
	jobKey    string
	resultKey string
	log       *logger.Logger
}

func New(cfg config.RedisConfig, log *logger.Logger) (*Queue, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Queue{
		rdb:       rdb,
		jobKey:    cfg.JobQueue,
		resultKey: cfg.ResultList,
		log:       log.With("component", "queue"),
	}, nil
}

func (q *Queue) Close() error { return q.rdb.Close() }

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Enqueue pushes one document job for the worker pool.
func (q *Queue) Enqueue(ctx context.Context, job model.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.jobKey, raw).Err(); err != nil {
		return fmt.Errorf("enqueuing job: %w", err)
	}
	return nil
}

// Dequeue blocks up to a few seconds for the next job. A nil job with nil
// error means the wait timed out and the caller should poll again; this keeps
// workers responsive to shutdown.
func (q *Queue) Dequeue(ctx context.Context) (*model.Job, error) {
	res, err := q.rdb.BRPop(ctx, dequeueBlock, q.jobKey).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing job: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	var job model.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}
	return &job, nil
}

// ReportResult acknowledges a finished job to the upstream service.
func (q *Queue) ReportResult(ctx context.Context, result model.ProcessResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.resultKey, raw).Err(); err != nil {
		return fmt.Errorf("reporting result: %w", err)
	}
	return nil
}
