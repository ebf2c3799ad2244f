package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AFK4203/Book-generator-V3/internal/events"
	"github.com/AFK4203/Book-generator-V3/internal/storage"
	"github.com/AFK4203/Book-generator-V3/internal/story"
)

const (
	defaultMaxConcurrent  = 2
	defaultSessionTimeout = 6 * time.Hour
)

// SessionManager owns the lifecycle of generation sessions: starting
// pipeline runs, serving live and historical state, and cancelling.
// A weighted semaphore bounds how many sessions generate at once;
// extra sessions queue until a slot frees.
type SessionManager struct {
	sessions *storage.SessionStore
	pipeline *Pipeline
	bus      *events.Bus
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	running map[string]*activeRun
	wg      sync.WaitGroup
}

type activeRun struct {
	session *story.Session
	cancel  context.CancelFunc
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithMaxConcurrent bounds simultaneous generation runs.
func WithMaxConcurrent(n int) ManagerOption {
	return func(m *SessionManager) {
		if n > 0 {
			m.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithSessionTimeout bounds how long one run may take, queue wait
// included.
func WithSessionTimeout(d time.Duration) ManagerOption {
	return func(m *SessionManager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *SessionManager) { m.logger = logger }
}

// NewSessionManager wires the manager's collaborators.
func NewSessionManager(sessions *storage.SessionStore, pipeline *Pipeline, bus *events.Bus, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		sessions: sessions,
		pipeline: pipeline,
		bus:      bus,
		sem:      semaphore.NewWeighted(defaultMaxConcurrent),
		timeout:  defaultSessionTimeout,
		logger:   slog.Default().With("component", "session_manager"),
		running:  make(map[string]*activeRun),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start validates the input, creates a session, and launches its
// pipeline run in the background. The returned session is live; read
// it through Snapshot.
func (m *SessionManager) Start(ctx context.Context, input story.Input) (*story.Session, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	session := story.NewSession(input)
	if err := m.sessions.Put(ctx, session.Snapshot()); err != nil {
		return nil, fmt.Errorf("recording new session: %w", err)
	}

	// The run outlives the request that started it, bounded only by
	// the session timeout.
	runCtx, cancel := context.WithTimeout(context.Background(), m.timeout)
	m.mu.Lock()
	m.running[session.ID] = &activeRun{session: session, cancel: cancel}
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx, cancel, session)

	m.logger.Info("session started",
		"session_id", session.ID,
		"chapters", input.TotalChapters,
		"characters", len(input.Characters))
	return session, nil
}

func (m *SessionManager) run(ctx context.Context, cancel context.CancelFunc, session *story.Session) {
	defer m.wg.Done()
	defer cancel()
	defer func() {
		m.mu.Lock()
		delete(m.running, session.ID)
		m.mu.Unlock()
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		session.Fail("cancelled while waiting for a generation slot")
		if err := m.sessions.Put(context.WithoutCancel(ctx), session.Snapshot()); err != nil {
			m.logger.Error("persisting session failed", "session_id", session.ID, "error", err)
		}
		return
	}
	defer m.sem.Release(1)

	if _, err := m.pipeline.Run(ctx, session); err != nil {
		m.logger.Warn("session run ended early",
			"session_id", session.ID,
			"phase", session.Phase(),
			"error", err)
	}
}

// Get returns the current snapshot of a session, live when it is
// running, from the store otherwise.
func (m *SessionManager) Get(ctx context.Context, id string) (story.Snapshot, error) {
	m.mu.RLock()
	active, ok := m.running[id]
	m.mu.RUnlock()
	if ok {
		return active.session.Snapshot(), nil
	}
	return m.sessions.Get(ctx, id)
}

// Cancel stops a running session. Returns false when the session is
// not running or already terminal.
func (m *SessionManager) Cancel(ctx context.Context, id string) bool {
	m.mu.RLock()
	active, ok := m.running[id]
	m.mu.RUnlock()
	if !ok {
		return false
	}

	if !active.session.Cancel() {
		return false
	}
	active.cancel()

	if err := m.sessions.Put(ctx, active.session.Snapshot()); err != nil {
		m.logger.Error("persisting cancelled session failed", "session_id", id, "error", err)
	}
	m.bus.Publish(events.Event{
		SessionID: id,
		Kind:      events.KindCancelled,
		Phase:     story.PhaseCancelled,
		Progress:  active.session.Snapshot().Progress,
		Message:   "generation cancelled by user",
	})
	m.logger.Info("session cancelled", "session_id", id)
	return true
}

// Running lists the ids of sessions currently in flight.
func (m *SessionManager) Running() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.running))
	for id := range m.running {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown cancels every running session and waits for their
// goroutines to drain, bounded by ctx.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	for _, active := range m.running {
		active.cancel()
	}
	m.mu.RUnlock()

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
