package broadcast

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Runner executes a single broadcast job.
type Runner interface {
	Run(ctx context.Context, payload Payload, reporter Reporter) (Summary, error)
}

// DoneFunc is called from the job goroutine once a job finishes.
type DoneFunc func(ctx context.Context, job JobInfo, sum Summary, err error)

// JobInfo describes a running job.
type JobInfo struct {
	ID        string
	AdminID   int64
	Copy      bool
	StartedAt time.Time
}

type job struct {
	info   JobInfo
	cancel context.CancelFunc
}

// Manager runs broadcast jobs in the background so update handlers return
// immediately. At most one job runs per administrator.
type Manager struct {
	runner Runner
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewManager creates a Manager that executes jobs with runner.
func NewManager(runner Runner, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		runner: runner,
		logger: logger.With("component", "broadcast_manager"),
		jobs:   make(map[string]*job),
	}
}

// Start launches a job for adminID and returns its id. The job context is
// derived from ctx, so cancelling ctx cancels the job. onDone may be nil.
func (m *Manager) Start(ctx context.Context, adminID int64, payload Payload, reporter Reporter, onDone DoneFunc) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	for _, j := range m.jobs {
		if j.info.AdminID == adminID {
			m.mu.Unlock()
			return "", ErrAlreadyRunning
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{
		info: JobInfo{
			ID:        uuid.NewString(),
			AdminID:   adminID,
			Copy:      payload.IsCopy(),
			StartedAt: time.Now(),
		},
		cancel: cancel,
	}
	m.jobs[j.info.ID] = j
	m.wg.Add(1)
	m.mu.Unlock()

	log := m.logger.With("job_id", j.info.ID, "admin_id", adminID)
	log.InfoContext(ctx, "Broadcast job queued")

	go func() {
		defer m.wg.Done()
		defer cancel()

		sum, err := m.runner.Run(jobCtx, payload, reporter)

		m.mu.Lock()
		delete(m.jobs, j.info.ID)
		m.mu.Unlock()

		log.InfoContext(ctx, "Broadcast job finished", "processed", sum.Processed, "error", err)
		if onDone != nil {
			onDone(context.WithoutCancel(jobCtx), j.info, sum, err)
		}
	}()

	return j.info.ID, nil
}

// Cancel stops the job with the given id.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	j.cancel()
	return nil
}

// CancelByAdmin stops the job started by adminID, if any.
func (m *Manager) CancelByAdmin(adminID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		if j.info.AdminID == adminID {
			j.cancel()
			return nil
		}
	}
	return ErrJobNotFound
}

// CancelAll stops every running job and returns how many were signalled.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.jobs {
		j.cancel()
	}
	return len(m.jobs)
}

// Running lists running jobs, oldest first.
func (m *Manager) Running() []JobInfo {
	m.mu.Lock()
	out := make([]JobInfo, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.info)
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b JobInfo) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

// Wait blocks until every job has returned or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
