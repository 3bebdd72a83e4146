package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/affiliate-product-fetcher/internal/metrics"
	"github.com/maltedev/affiliate-product-fetcher/internal/models"
	"github.com/maltedev/affiliate-product-fetcher/internal/queue"
	"github.com/maltedev/affiliate-product-fetcher/internal/video"
)

// Manager accepts video jobs and runs the workers that render them.
type Manager struct {
	store    Store
	queue    queue.Queue
	renderer video.Renderer
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

func NewManager(store Store, q queue.Queue, renderer video.Renderer, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		queue:    q,
		renderer: renderer,
		metrics:  m,
		now:      time.Now,
		logger:   logger.With("component", "job_manager"),
	}
}

// Submit records a pending job for p and queues it for rendering.
func (m *Manager) Submit(ctx context.Context, p *models.SavedProduct) (*Job, error) {
	if p == nil || p.ID == "" {
		return nil, errors.New("product identifier is required")
	}

	now := m.now()
	job := &Job{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, job); err != nil {
		return nil, err
	}

	task := &queue.Task{
		ID:        uuid.New().String(),
		JobID:     job.ID,
		Product:   p,
		CreatedAt: now,
	}
	if err := m.queue.Push(task); err != nil {
		m.finish(ctx, job, "", err)
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	m.logger.Info("video job submitted", "job_id", job.ID, "product_id", p.ID)
	return job, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Job, error) {
	return m.store.Get(ctx, id)
}

// Start runs workers until ctx is done or the queue is closed and drained.
// It blocks until every worker has returned.
func (m *Manager) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	m.logger.Info("job workers started", "workers", workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.work(ctx, i)
		}()
	}
	wg.Wait()

	m.logger.Info("job workers stopped")
}

func (m *Manager) work(ctx context.Context, worker int) {
	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && ctx.Err() == nil {
				m.logger.Error("failed to pop task", "worker", worker, "error", err)
			}
			return
		}
		m.process(ctx, task)
	}
}

func (m *Manager) process(ctx context.Context, task *queue.Task) {
	job, err := m.store.Get(ctx, task.JobID)
	if err != nil {
		m.logger.Error("job vanished before processing", "job_id", task.JobID, "error", err)
		return
	}

	job.Status = StatusProcessing
	job.UpdatedAt = m.now()
	if err := m.store.Save(ctx, job); err != nil {
		m.logger.Error("failed to update job status", "job_id", job.ID, "error", err)
		return
	}

	path, err := m.renderer.Render(ctx, task.Product)
	m.finish(ctx, job, path, err)
}

// finish stores the terminal status of job.
func (m *Manager) finish(ctx context.Context, job *Job, result string, renderErr error) {
	job.UpdatedAt = m.now()
	if renderErr != nil {
		job.Status = StatusFailed
		job.Error = renderErr.Error()
		m.logger.Warn("video job failed", "job_id", job.ID, "product_id", job.ProductID, "error", renderErr)
	} else {
		job.Status = StatusCompleted
		job.Result = result
		m.logger.Info("video job completed", "job_id", job.ID, "product_id", job.ProductID, "result", result)
	}
	m.metrics.IncVideoJob(string(job.Status))

	// The terminal write must land even when the worker context was cancelled
	// mid-render.
	if err := m.store.Save(context.WithoutCancel(ctx), job); err != nil {
		m.logger.Error("failed to store job result", "job_id", job.ID, "error", err)
	}
}
