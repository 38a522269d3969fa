package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/league-scheduler-api/internal/dto"
	"github.com/noah-isme/league-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
	"github.com/noah-isme/league-scheduler-api/pkg/jobs"
)

// GenerationJobType identifies schedule generation jobs on the queue.
const GenerationJobType = "schedule.generate"

const runKeyPrefix = "league:run:"

const abandonTimeout = 5 * time.Second

type runGenerator interface {
	Validate(req dto.GenerateScheduleRequest) error
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type runStore interface {
	Save(ctx context.Context, run *models.GenerationRun) error
	Get(ctx context.Context, id string) (*models.GenerationRun, bool, error)
}

// GenerationRunService accepts asynchronous generation requests and reports their progress.
type GenerationRunService struct {
	generator runGenerator
	queue     jobDispatcher
	store     runStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewGenerationRunService constructs the run service. Runs are kept for retention in Redis when
// the cache is enabled and in process memory otherwise.
func NewGenerationRunService(generator runGenerator, queue jobDispatcher, cache *CacheService, retention time.Duration, metrics *MetricsService, logger *zap.Logger) *GenerationRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationRunService{
		generator: generator,
		queue:     queue,
		store:     newRunStore(cache, retention),
		metrics:   metrics,
		logger:    logger,
	}
}

// newRunStore picks the Redis-backed store when cache is enabled.
func newRunStore(cache *CacheService, retention time.Duration) runStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if cache.Enabled() {
		return &cacheRunStore{cache: cache, ttl: retention}
	}
	return newMemoryRunStore(retention)
}

// Store exposes the run store so a worker can share it.
func (s *GenerationRunService) Store() runStore { return s.store }

// Submit validates the request, records a QUEUED run and enqueues it.
func (s *GenerationRunService) Submit(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationRunResponse, error) {
	if err := s.generator.Validate(req); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode generation request")
	}
	run := &models.GenerationRun{
		ID:        uuid.NewString(),
		Status:    models.GenerationRunQueued,
		Request:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation run")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: GenerationJobType}); err != nil {
		now := time.Now().UTC()
		run.Status = models.GenerationRunFailed
		run.Error = "failed to enqueue run"
		run.FinishedAt = &now
		if saveErr := s.store.Save(ctx, run); saveErr != nil {
			s.logger.Warn("failed to mark run failed", zap.String("runId", run.ID), zap.Error(saveErr))
		}
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, "generation queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation run")
	}
	s.metrics.RunQueued()
	s.logger.Info("generation run queued", zap.String("runId", run.ID))
	return toRunResponse(run)
}

// Get returns the current state of a run.
func (s *GenerationRunService) Get(ctx context.Context, id string) (*dto.GenerationRunResponse, error) {
	run, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired")
	}
	return toRunResponse(run)
}

// GenerationRunWorker executes queued runs.
type GenerationRunWorker struct {
	generator  runGenerator
	store      runStore
	metrics    *MetricsService
	maxRetries int
	logger     *zap.Logger
}

// NewGenerationRunWorker constructs a worker. maxRetries must match the queue's retry limit.
func NewGenerationRunWorker(generator runGenerator, store runStore, maxRetries int, metrics *MetricsService, logger *zap.Logger) *GenerationRunWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &GenerationRunWorker{generator: generator, store: store, metrics: metrics, maxRetries: maxRetries, logger: logger}
}

// Handle processes a queue job.
func (w *GenerationRunWorker) Handle(ctx context.Context, job jobs.Job) error {
	run, ok, err := w.store.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if !ok {
		w.metrics.RunSettled()
		return jobs.Permanent(fmt.Errorf("generation run %s not found", job.ID))
	}
	var req dto.GenerateScheduleRequest
	if err := json.Unmarshal(run.Request, &req); err != nil {
		w.fail(ctx, run, err)
		return jobs.Permanent(err)
	}

	now := time.Now().UTC()
	run.Status = models.GenerationRunRunning
	run.Attempts = job.Attempt + 1
	run.StartedAt = &now
	if err := w.store.Save(ctx, run); err != nil {
		w.logger.Warn("failed to mark run running", zap.String("runId", run.ID), zap.Error(err))
	}

	resp, err := w.generator.Generate(ctx, req)
	// Saves below outlive a cancelled job context so the run never stays QUEUED or RUNNING.
	storeCtx := context.WithoutCancel(ctx)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrInvalidInput.Code) || appErrors.HasCode(err, appErrors.ErrValidation.Code) {
			w.fail(storeCtx, run, err)
			return jobs.Permanent(err)
		}
		if ctx.Err() != nil {
			w.fail(storeCtx, run, err)
			return jobs.Permanent(err)
		}
		if job.Attempt >= w.maxRetries {
			w.fail(storeCtx, run, err)
			return err
		}
		run.Status = models.GenerationRunQueued
		run.Error = err.Error()
		if saveErr := w.store.Save(storeCtx, run); saveErr != nil {
			w.logger.Warn("failed to mark run queued", zap.String("runId", run.ID), zap.Error(saveErr))
		}
		return err
	}

	result, err := json.Marshal(resp)
	if err != nil {
		w.fail(storeCtx, run, err)
		return jobs.Permanent(err)
	}
	finished := time.Now().UTC()
	run.Status = models.GenerationRunFinished
	run.Result = result
	run.Error = ""
	run.FinishedAt = &finished
	w.metrics.RunSettled()
	if err := w.store.Save(storeCtx, run); err != nil {
		w.logger.Warn("failed to mark run finished", zap.String("runId", run.ID), zap.Error(err))
		return jobs.Permanent(err)
	}
	w.logger.Info("generation run finished",
		zap.String("runId", run.ID),
		zap.String("status", string(resp.Status)),
		zap.Int("solutions", resp.SolutionCount),
		zap.Int("attempts", run.Attempts),
	)
	return nil
}

// Abandon fails a run the queue dropped before the worker settled it.
func (w *GenerationRunWorker) Abandon(job jobs.Job, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), abandonTimeout)
	defer cancel()

	run, ok, err := w.store.Get(ctx, job.ID)
	if err != nil {
		w.metrics.RunSettled()
		w.logger.Warn("failed to load abandoned run", zap.String("runId", job.ID), zap.Error(err))
		return
	}
	if !ok {
		w.metrics.RunSettled()
		return
	}
	if run.Status == models.GenerationRunFinished || run.Status == models.GenerationRunFailed {
		return
	}
	w.fail(ctx, run, fmt.Errorf("generation run abandoned: %w", cause))
	w.logger.Warn("generation run abandoned", zap.String("runId", run.ID), zap.Error(cause))
}

func (w *GenerationRunWorker) fail(ctx context.Context, run *models.GenerationRun, cause error) {
	now := time.Now().UTC()
	run.Status = models.GenerationRunFailed
	run.Error = cause.Error()
	var appErr *appErrors.Error
	if errors.As(cause, &appErr) {
		run.Error = appErr.Message
	}
	run.FinishedAt = &now
	w.metrics.RunSettled()
	if err := w.store.Save(context.WithoutCancel(ctx), run); err != nil {
		w.logger.Warn("failed to mark run failed", zap.String("runId", run.ID), zap.Error(err))
	}
}

func toRunResponse(run *models.GenerationRun) (*dto.GenerationRunResponse, error) {
	resp := &dto.GenerationRunResponse{
		RunID:      run.ID,
		Status:     string(run.Status),
		Attempts:   run.Attempts,
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if len(run.Result) > 0 {
		var result dto.GenerateScheduleResponse
		if err := json.Unmarshal(run.Result, &result); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode generation result")
		}
		resp.Result = &result
	}
	return resp, nil
}

type memoryRunStore struct {
	retention time.Duration
	mu        sync.Mutex
	items     map[string]models.GenerationRun
}

func newMemoryRunStore(retention time.Duration) *memoryRunStore {
	return &memoryRunStore{retention: retention, items: make(map[string]models.GenerationRun)}
}

func (s *memoryRunStore) Save(_ context.Context, run *models.GenerationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		if time.Since(item.CreatedAt) > s.retention {
			delete(s.items, id)
		}
	}
	s.items[run.ID] = *run
	return nil
}

func (s *memoryRunStore) Get(_ context.Context, id string) (*models.GenerationRun, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || time.Since(item.CreatedAt) > s.retention {
		return nil, false, nil
	}
	return &item, true, nil
}

type cacheRunStore struct {
	cache *CacheService
	ttl   time.Duration
}

func (s *cacheRunStore) Save(ctx context.Context, run *models.GenerationRun) error {
	return s.cache.Set(ctx, runKeyPrefix+run.ID, run, s.ttl)
}

func (s *cacheRunStore) Get(ctx context.Context, id string) (*models.GenerationRun, bool, error) {
	var run models.GenerationRun
	hit, err := s.cache.Get(ctx, runKeyPrefix+id, &run)
	if err != nil || !hit {
		return nil, false, err
	}
	return &run, true, nil
}
