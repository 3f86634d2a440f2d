package tester

import (
	"context"
	"sync"
	"time"

	"github.com/neskk/PoGo-Proxies/internal/logx"
	"github.com/neskk/PoGo-Proxies/internal/model"
)

// Store is the slice of store.Store the manager needs: scheduling reads
// and batched writeback. Declared here (not imported from internal/store)
// so the tester package stays importable without pulling in database/sql.
type Store interface {
	GetScan(ctx context.Context, limit int, exclude []uint32, age time.Duration, protocol *model.Protocol) ([]model.ParsedProxy, error)
	UpsertMany(ctx context.Context, jobs []model.TestJob) error
	CleanFailed(ctx context.Context) (int64, error)
}

// StatsSink receives the manager's periodic ManagerStats snapshot; the
// dashboard's websocket hub implements it.
type StatsSink interface {
	Publish(ManagerStats)
}

// Manager owns the two pieces of shared mutable state the engine
// coordinates through a single mutex: in_flight (hashes currently owned
// by the engine) and pending_writes (completed jobs awaiting a batched
// upsert).
type Manager struct {
	cfg   Config
	store Store
	log   logx.Logger
	sink  StatsSink

	mu             sync.Mutex
	inFlight       map[uint32]bool
	pendingWrites  map[uint32]model.TestJob
	counters       counters
	maxConcurrency int

	queue chan model.TestJob
}

// NewManager builds a Manager with a work queue sized to the configured
// concurrency; workers are started separately via StartWorkers.
func NewManager(cfg Config, store Store, log logx.Logger, sink StatsSink) *Manager {
	return &Manager{
		cfg:            cfg,
		store:          store,
		log:            log,
		sink:           sink,
		inFlight:       map[uint32]bool{},
		pendingWrites:  map[uint32]model.TestJob{},
		maxConcurrency: cfg.MaxConcurrency,
		queue:          make(chan model.TestJob, cfg.MaxConcurrency),
	}
}

// Run executes the manager's 5-second tick loop until ctx is cancelled,
// at which point it finishes the current tick, drains pending writes one
// last time, and closes the work queue to unblock idle workers.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	noticeTicker := time.NewTicker(m.noticeInterval())
	defer noticeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.flushPending(context.Background(), 0)
			close(m.queue)
			return
		case <-noticeTicker.C:
			m.publishStats()
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) noticeInterval() time.Duration {
	if m.cfg.NoticeInterval <= 0 {
		return 30 * time.Second
	}
	return m.cfg.NoticeInterval
}

func (m *Manager) tick(ctx context.Context) {
	m.flushWrites(ctx)
	m.refill(ctx)
}

// flushWrites upserts every pending write in one transaction once the
// backlog exceeds 10, per the manager loop's step 2.
func (m *Manager) flushWrites(ctx context.Context) {
	m.flushPending(ctx, 10)
}

// flushPending upserts every pending write in one transaction when more
// than threshold are waiting.
func (m *Manager) flushPending(ctx context.Context, threshold int) {
	m.mu.Lock()
	if len(m.pendingWrites) <= threshold {
		m.mu.Unlock()
		return
	}
	jobs := make([]model.TestJob, 0, len(m.pendingWrites))
	for _, j := range m.pendingWrites {
		jobs = append(jobs, j)
	}
	m.pendingWrites = map[uint32]model.TestJob{}
	m.mu.Unlock()

	if err := m.store.UpsertMany(ctx, jobs); err != nil {
		m.log.Errorf("tester: batched writeback failed: %v", err)
	}
}

// refill computes spare queue capacity and pulls that many eligible rows
// from the store, pushing each onto the work queue and marking it
// in_flight.
func (m *Manager) refill(ctx context.Context) {
	m.mu.Lock()
	depth := len(m.queue)
	refillN := m.maxConcurrency - depth
	exclude := make([]uint32, 0, len(m.inFlight))
	for h := range m.inFlight {
		exclude = append(exclude, h)
	}
	m.mu.Unlock()

	if refillN <= 0 {
		return
	}

	rows, err := m.store.GetScan(ctx, refillN, exclude, m.scanInterval(), nil)
	if err != nil {
		m.log.Errorf("tester: get_scan failed: %v", err)
		return
	}

	m.mu.Lock()
	for _, p := range rows {
		m.inFlight[p.Hash] = true
	}
	m.mu.Unlock()
	m.counters.addEnqueued(len(rows))

	for _, p := range rows {
		m.queue <- model.TestJob{Proxy: p}
	}
}

func (m *Manager) scanInterval() time.Duration {
	if m.cfg.ScanInterval <= 0 {
		return time.Hour
	}
	return m.cfg.ScanInterval
}

// complete is called by a worker when a job finishes: it stages the
// result for batched writeback and clears the hash from in_flight.
func (m *Manager) complete(job model.TestJob) {
	m.mu.Lock()
	m.pendingWrites[job.Proxy.Hash] = job
	delete(m.inFlight, job.Proxy.Hash)
	m.mu.Unlock()

	m.counters.addResult(job.AllOK())
}

func (m *Manager) publishStats() {
	m.mu.Lock()
	inFlight := len(m.inFlight)
	m.mu.Unlock()

	snap := m.counters.snapshot(inFlight)
	m.log.Infof("tester: enqueued=%d completed=%d passed=%d failed=%d in_flight=%d",
		snap.Enqueued, snap.Completed, snap.Passed, snap.Failed, snap.InFlight)

	if m.sink != nil {
		m.sink.Publish(snap)
	}
}

// Sweep deletes every garbage row (fail_count >= model.FailThreshold),
// the orchestrator's periodic failure reaper.
func (m *Manager) Sweep(ctx context.Context) {
	n, err := m.store.CleanFailed(ctx)
	if err != nil {
		m.log.Errorf("tester: clean_failed failed: %v", err)
		return
	}
	if n > 0 {
		m.counters.addPurged(int(n))
		m.log.Infof("tester: purged %d garbage rows", n)
	}
}
