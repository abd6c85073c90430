package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/datafabric/pkg/domain"
	"github.com/aescanero/datafabric/pkg/ports"
)

// errPoolStopped is returned to the bus for completions that arrive during shutdown
var errPoolStopped = errors.New("worker pool stopped")

// SignalEmitter is the part of the signal emitter the pool drives
type SignalEmitter interface {
	EmitForExecutionUnit(
		ctx context.Context,
		unit string,
		intentID uuid.UUID,
		tenant domain.TenantContext,
		result map[string]interface{},
		success bool,
	) []domain.EmissionResult
}

// Stats counts the completions the pool handled
type Stats struct {
	Processed uint64 `json:"processed"`
	Dropped   uint64 `json:"dropped"`
	Emissions uint64 `json:"emissions"`
}

// Pool manages a pool of worker goroutines fed from the completion topic
type Pool struct {
	size     int
	eventBus ports.EventBus
	emitter  SignalEmitter
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	health   *HealthMonitor

	jobs    chan domain.CompletionEvent
	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	processed atomic.Uint64
	dropped   atomic.Uint64
	emissions atomic.Uint64
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool. size and queueSize below one are raised to one.
func NewPool(
	size, queueSize int,
	eventBus ports.EventBus,
	emitter SignalEmitter,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if eventBus == nil || emitter == nil {
		panic("workers: nil event bus or emitter")
	}
	if size < 1 {
		size = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:     size,
		eventBus: eventBus,
		emitter:  emitter,
		metrics:  metrics,
		logger:   logger,
		jobs:     make(chan domain.CompletionEvent, queueSize),
		workers:  make([]*worker, size),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < size; i++ {
		pool.workers[i] = &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    pool,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)
	return pool
}

// Start subscribes to the completion topic and starts the workers
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	if err := p.eventBus.Subscribe(p.ctx, ports.TopicCompletions, p.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to completions: %w", err)
	}

	for _, w := range p.workers {
		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Shutdown stops accepting completions and waits for the workers to drain
// the queue or for ctx to expire
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	if err := p.eventBus.Unsubscribe(ctx, ports.TopicCompletions); err != nil {
		p.logger.Warn("failed to unsubscribe from completions", zap.Error(err))
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.metrics.RecordWorkerPoolStatus(0, 0, p.size)
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus, len(p.workers))
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// Stats returns the completion counters
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Emissions: p.emissions.Load(),
	}
}

// Health returns the current health status of the pool
func (p *Pool) Health() *HealthStatus {
	return p.health.GetStatus()
}

// handleEvent queues one completion. Undecodable events are dropped and
// acknowledged so they are not redelivered. Only the pool's own shutdown
// stops a valid completion from being queued; the bus context is ignored.
func (p *Pool) handleEvent(_ context.Context, event ports.Event) error {
	completion, err := DecodeCompletion(event)
	if err != nil {
		p.dropped.Add(1)
		p.logger.Warn("dropping invalid completion event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return nil
	}

	select {
	case p.jobs <- completion:
		return nil
	case <-p.ctx.Done():
		p.dropped.Add(1)
		p.logger.Warn("completion arrived after shutdown",
			zap.String("event_id", event.ID),
			zap.String("unit", completion.Unit))
		return errPoolStopped
	}
}

// run is the main worker loop. After the pool is cancelled it drains
// whatever is still queued before stopping.
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case c := <-w.pool.jobs:
			w.handleCompletion(c)
		case <-ctx.Done():
			for {
				select {
				case c := <-w.pool.jobs:
					w.handleCompletion(c)
				default:
					w.setStatus(WorkerStatusStopped)
					w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
					return
				}
			}
		}
	}
}

// handleCompletion emits the feedback signals of one completion. Emission
// runs on a context detached from the pool.
func (w *worker) handleCompletion(c domain.CompletionEvent) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()
	defer w.setStatus(WorkerStatusIdle)

	start := time.Now()
	results := w.pool.emitter.EmitForExecutionUnit(context.Background(), c.Unit, c.IntentID, c.Tenant, c.Result, c.Success)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	w.pool.processed.Add(1)
	w.pool.emissions.Add(uint64(len(results)))

	w.pool.logger.Debug("completion processed",
		zap.String("worker_id", w.id),
		zap.String("unit", c.Unit),
		zap.String("intent_id", c.IntentID.String()),
		zap.Bool("unit_success", c.Success),
		zap.Int("emissions", len(results)),
		zap.Int("failed_emissions", failed),
		zap.Duration("duration", time.Since(start)))
}

func (w *worker) setStatus(s WorkerStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// a stopped worker stays stopped
	if w.status == WorkerStatusStopped {
		return
	}
	w.status = s
}
