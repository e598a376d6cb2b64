package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers   = 8
	DefaultBatchSize = 1000

	// maxReportedErrors caps Report.Errors; Report.Failed keeps counting.
	maxReportedErrors = 100
)

// ItemError records why a single item failed.
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Report is the per-item accounting of a run.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []ItemError
}

func (r *Report) recordFailure(index int, err error) {
	r.Total++
	r.Failed++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, ItemError{Index: index, Err: err})
	}
}

func (r *Report) recordSuccess() {
	r.Total++
	r.Succeeded++
}

type ExecutorConfig struct {
	Workers   int
	BatchSize int
	// Limiter, when set, is waited on once per batch.
	Limiter *rate.Limiter
}

// Executor runs a task over a stream of items in fixed-size batches. The
// items of a batch are spread over a bounded set of workers and each one
// succeeds or fails on its own; the next batch starts once the current one
// has finished.
type Executor[T any] struct {
	workers   int
	batchSize int
	limiter   *rate.Limiter
	metrics   *Metrics
	logger    *zap.Logger
}

type job[T any] struct {
	item T
	err  *error
	wg   *sync.WaitGroup
}

func NewExecutor[T any](cfg ExecutorConfig, metrics *Metrics, logger *zap.Logger) *Executor[T] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor[T]{
		workers:   workers,
		batchSize: batchSize,
		limiter:   cfg.Limiter,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run applies task to every item received from items until the channel is
// closed. Item indexes in the report count from zero in arrival order.
func (e *Executor[T]) Run(ctx context.Context, items <-chan T, task func(context.Context, T) error) *Report {
	report := &Report{}
	jobs := make(chan job[T], e.batchSize)

	var workerWg sync.WaitGroup
	for i := range e.workers {
		workerWg.Add(1)
		go e.worker(ctx, i+1, jobs, task, &workerWg)
	}

	batch := make([]T, 0, e.batchSize)
	offset := 0
	for item := range items {
		batch = append(batch, item)
		if len(batch) == e.batchSize {
			e.runBatch(ctx, jobs, batch, offset, report)
			offset += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		e.runBatch(ctx, jobs, batch, offset, report)
	}

	close(jobs)
	workerWg.Wait()
	return report
}

func (e *Executor[T]) worker(ctx context.Context, id int, jobs <-chan job[T], task func(context.Context, T) error, wg *sync.WaitGroup) {
	defer wg.Done()
	e.logger.Debug("Worker started", zap.Int("worker", id))
	for j := range jobs {
		*j.err = task(ctx, j.item)
		j.wg.Done()
	}
	e.logger.Debug("Worker finished", zap.Int("worker", id))
}

func (e *Executor[T]) runBatch(ctx context.Context, jobs chan<- job[T], batch []T, offset int, report *Report) {
	start := time.Now()
	errs := make([]error, len(batch))

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			for i := range errs {
				errs[i] = fmt.Errorf("rate limiter wait failed: %w", err)
			}
			e.tally(batch, errs, offset, report, start)
			return
		}
	}

	var batchWg sync.WaitGroup
	for i := range batch {
		batchWg.Add(1)
		jobs <- job[T]{item: batch[i], err: &errs[i], wg: &batchWg}
	}
	batchWg.Wait()

	e.tally(batch, errs, offset, report, start)
}

func (e *Executor[T]) tally(batch []T, errs []error, offset int, report *Report, start time.Time) {
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			report.recordFailure(offset+i, err)
		} else {
			report.recordSuccess()
		}
	}

	if e.metrics != nil {
		e.metrics.RowsProcessed.Add(float64(len(batch)))
		e.metrics.RowsFailed.Add(float64(failed))
		e.metrics.BatchSize.Observe(float64(len(batch)))
		e.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}

	e.logger.Info("Batch processed",
		zap.Int("size", len(batch)),
		zap.Int("failed", failed),
		zap.Int("total", report.Total),
		zap.Duration("duration", time.Since(start)))
}
