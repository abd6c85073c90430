package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically checks worker status and records pool metrics
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	TotalWorkers   int       `json:"total_workers"`
	IdleWorkers    int       `json:"idle_workers"`
	BusyWorkers    int       `json:"busy_workers"`
	StoppedWorkers int       `json:"stopped_workers"`
	QueuedJobs     int       `json:"queued_jobs"`
	Healthy        bool      `json:"healthy"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewHealthMonitor creates a new health monitor. A non-positive interval
// disables the periodic check; GetStatus still works.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
	}
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running || h.interval <= 0 {
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go h.run(h.stopCh, h.doneCh)
}

// Stop stops the health monitor and waits for the loop to exit
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	stopCh, doneCh := h.stopCh, h.doneCh
	h.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (h *HealthMonitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth logs the pool status and records it as metrics
func (h *HealthMonitor) checkHealth() {
	status := h.GetStatus()

	h.logger.Debug("worker pool health check",
		zap.Int("total", status.TotalWorkers),
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers),
		zap.Int("stopped", status.StoppedWorkers),
		zap.Int("queued", status.QueuedJobs),
		zap.Bool("healthy", status.Healthy))

	h.pool.metrics.RecordWorkerPoolStatus(
		status.IdleWorkers,
		status.BusyWorkers,
		status.StoppedWorkers,
	)

	if !status.Healthy {
		h.logger.Warn("worker pool is unhealthy",
			zap.Int("idle", status.IdleWorkers),
			zap.Int("stopped", status.StoppedWorkers),
			zap.Int("total", status.TotalWorkers))
	}

	if status.BusyWorkers == status.TotalWorkers && status.QueuedJobs > 0 {
		h.logger.Warn("all workers are busy - consider scaling up",
			zap.Int("total", status.TotalWorkers),
			zap.Int("queued", status.QueuedJobs))
	}
}

// GetStatus returns the current health status
func (h *HealthMonitor) GetStatus() *HealthStatus {
	workerStatuses := h.pool.GetStatus()

	var idle, busy, stopped int
	for _, status := range workerStatuses {
		switch status {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}

	total := len(workerStatuses)
	return &HealthStatus{
		TotalWorkers:   total,
		IdleWorkers:    idle,
		BusyWorkers:    busy,
		StoppedWorkers: stopped,
		QueuedJobs:     len(h.pool.jobs),
		Healthy:        total > 0 && stopped == 0,
		Timestamp:      time.Now(),
	}
}

// IsHealthy returns true if the worker pool is healthy
func (h *HealthMonitor) IsHealthy() bool {
	return h.GetStatus().Healthy
}
