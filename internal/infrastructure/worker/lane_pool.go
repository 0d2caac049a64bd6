package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/pipeline"
	"github.com/storesync/backend/internal/domain/storefront"
	"github.com/storesync/backend/internal/infrastructure/config"
)

// LanePool runs the sync task queue: a fixed number of worker slots per lane
// poll for due tasks and execute them. Lanes are independent, so a backlogged
// variable-product queue never starves plain updates.
type LanePool struct {
	taskRepo     storefront.TaskRepository
	orchestrator *pipeline.Orchestrator
	cfg          config.WorkerConfig
	logger       *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewLanePool creates a new lane worker pool
func NewLanePool(
	taskRepo storefront.TaskRepository,
	orchestrator *pipeline.Orchestrator,
	cfg config.WorkerConfig,
	logger *zap.Logger,
) *LanePool {
	return &LanePool{
		taskRepo:     taskRepo,
		orchestrator: orchestrator,
		cfg:          cfg,
		logger:       logger.Named("worker"),
	}
}

// Start launches the per-lane worker slots and the cleanup loop
func (p *LanePool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, lane := range storefront.Lanes() {
		for slot := 0; slot < p.cfg.SlotsPerLane; slot++ {
			p.wg.Add(1)
			go p.laneLoop(ctx, lane, slot)
		}
	}

	p.wg.Add(1)
	go p.cleanupLoop(ctx)

	p.logger.Info("lane workers started",
		zap.Int("lanes", len(storefront.Lanes())),
		zap.Int("slots_per_lane", p.cfg.SlotsPerLane),
		zap.Duration("poll_interval", p.cfg.PollInterval))
	return nil
}

// Stop signals all workers and waits for in-flight tasks to finish
func (p *LanePool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("lane workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// laneLoop polls one lane for due tasks and executes them
func (p *LanePool) laneLoop(ctx context.Context, lane storefront.TaskLane, slot int) {
	defer p.wg.Done()

	laneLogger := p.logger.With(zap.String("lane", string(lane)), zap.Int("slot", slot))

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainLane(ctx, lane, laneLogger)
		}
	}
}

// drainLane claims and executes due tasks until the lane runs dry
func (p *LanePool) drainLane(ctx context.Context, lane storefront.TaskLane, laneLogger *zap.Logger) {
	for {
		tasks, err := p.taskRepo.ClaimDue(ctx, lane, time.Now(), p.cfg.ClaimLimit)
		if err != nil {
			if ctx.Err() == nil {
				laneLogger.Error("failed to claim due tasks", zap.Error(err))
			}
			return
		}
		if len(tasks) == 0 {
			return
		}

		for _, task := range tasks {
			if ctx.Err() != nil {
				return
			}
			p.executeTask(ctx, task, laneLogger)
		}
	}
}

// executeTask runs one task under the per-task timeout
func (p *LanePool) executeTask(ctx context.Context, task *storefront.SyncTask, laneLogger *zap.Logger) {
	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()

	if err := p.orchestrator.Execute(taskCtx, task); err != nil {
		laneLogger.Error("task execution error",
			zap.String("task_id", task.ID.String()),
			zap.String("tenant_id", task.TenantID.String()),
			zap.Error(err))
	}
}

// cleanupLoop periodically purges old succeeded tasks
func (p *LanePool) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-p.cfg.CleanupAfter)
			removed, err := p.taskRepo.DeleteFinishedBefore(ctx, cutoff)
			if err != nil {
				if ctx.Err() == nil {
					p.logger.Error("failed to purge finished tasks", zap.Error(err))
				}
				continue
			}
			if removed > 0 {
				p.logger.Info("purged finished tasks",
					zap.Int64("removed", removed),
					zap.Time("cutoff", cutoff))
			}
		}
	}
}
