package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/UrbanFix/internal/pkg/cache"
	"github.com/ManuelReschke/UrbanFix/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultManagerWorkers  = 5
	DefaultMonitorInterval = 5 * time.Minute
	BacklogWarnThreshold   = 100
)

// Manager manages the global event queue and its background tasks
type Manager struct {
	queue           *Queue
	monitorTicker   *time.Ticker
	monitorInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
	mu              sync.Mutex
	running         bool
}

// Stats is a point in time view of the queue.
type Stats struct {
	Pending    int64               `json:"pending"`
	Processing int64               `json:"processing"`
	ByStatus   map[JobStatus]int64 `json:"by_status"`
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workers := env.GetEnvInt("EVENT_QUEUE_WORKERS", DefaultManagerWorkers)
		globalManager = NewManager(NewQueue(cache.GetClient(), workers))
	})
	return globalManager
}

func NewManager(q *Queue) *Manager {
	interval := time.Duration(env.GetEnvInt("EVENT_QUEUE_MONITOR_MINUTES", 0)) * time.Minute
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Manager{
		queue:           q,
		monitorInterval: interval,
		stopCh:          make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting event queue and background tasks")

	m.queue.Start()

	m.monitorTicker = time.NewTicker(m.monitorInterval)
	m.wg.Add(1)
	go m.backlogMonitor(m.stopCh, m.monitorTicker)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping event queue and background tasks...")

	if m.monitorTicker != nil {
		m.monitorTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// backlogMonitor periodically warns when events pile up faster than workers drain them
func (m *Manager) backlogMonitor(stopCh <-chan struct{}, ticker *time.Ticker) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started backlog monitor (interval: %s)", m.monitorInterval)

	for {
		select {
		case <-stopCh:
			log.Info("[JobQueue Manager] Backlog monitor stopping")
			return
		case <-ticker.C:
			size, err := m.queue.GetQueueSize(context.Background())
			if err != nil {
				log.Errorf("[JobQueue Manager] Could not read queue size: %v", err)
				continue
			}
			if size > BacklogWarnThreshold {
				log.Warnf("[JobQueue Manager] %d events waiting in queue", size)
			}
		}
	}
}

// Stats returns queue sizes and job counters for the admin overview
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		return nil, err
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := m.queue.GetJobStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Pending: pending, Processing: processing, ByStatus: byStatus}, nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
