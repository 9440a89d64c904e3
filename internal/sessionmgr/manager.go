// Package sessionmgr implements a bounded registry of live Session
// Executors keyed by opaque ID, with a sliding-TTL reaper and atomic
// enforcement of the concurrency bound.
//
// Kansuler/octobe's sessions live exactly as long as the caller's
// closure, with no registry or TTL concept, so the reserve-then-fill
// creation pattern here is grounded instead on the two-phase
// Generate()/CreateSession() placeholder pattern in stacklok-toolhive's
// vmcpSessionManager: reserve a slot before the (possibly slow,
// suspending) connection acquisition, then convert the reservation into a
// real entry — so the bound check and the insert are never separated by
// a suspension point. The min-heap reaper with lazy version-invalidation
// keeps expiry lookups at O(log N) instead of a linear scan per tick.
package sessionmgr

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kansuler/pggateway/internal/executor"
	"github.com/kansuler/pggateway/internal/gatewayerr"
)

// pool is the manager's dependency on the Pool Executor: mint new sessions
// and, on Shutdown, close the pool itself. Named separately from
// executor.Executor so the call sites below document which half of the
// Executor capability each one exercises.
type pool interface {
	DeriveSession(ctx context.Context) (executor.Executor, error)
	Close(ctx context.Context, destroy bool) error
}

// Config holds the Session Manager's tunables.
type Config struct {
	MaxSessions int
	TTL         time.Duration
}

// DefaultConfig is used when the caller's Config leaves a field unset.
func DefaultConfig() Config {
	return Config{MaxSessions: 10, TTL: 30 * time.Minute}
}

// SessionInfo is one row of Manager.List's snapshot.
type SessionInfo struct {
	ID        string
	IdleTime  time.Duration
	ExpiresIn time.Duration
}

type sessionEntry struct {
	id           string
	exec         executor.Executor
	lastActiveAt time.Time
	version      uint64
}

// Manager owns the session registry. Exactly one lock (mu) serializes
// Begin/Get/Close/List against each other and against the reaper.
type Manager struct {
	cfg    Config
	pool   pool
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	entries  map[string]*sessionEntry
	reserved int
	closed   bool
	heap     *expiryHeap

	wake     chan struct{}
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New builds a Manager and starts its background reaper. Callers must call
// Shutdown to stop the reaper and release sessions on process exit.
func New(p pool, cfg Config, logger zerolog.Logger) *Manager {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultConfig().MaxSessions
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	m := &Manager{
		cfg:     cfg,
		pool:    p,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
		heap:    newExpiryHeap(),
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go m.reap()
	return m
}

// Begin reserves a slot under the registry lock, acquires a dedicated
// connection (a suspension point, performed outside the lock), then
// converts the reservation into a live entry. The reservation is what
// makes the bound check and the eventual insert atomic despite the
// suspending acquire in between.
func (m *Manager) Begin(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", gatewayerr.New(gatewayerr.Internal, "session manager is shutting down")
	}
	if len(m.entries)+m.reserved >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return "", gatewayerr.Newf(gatewayerr.SessionLimitExceeded,
			"max_sessions (%d) reached", m.cfg.MaxSessions)
	}
	m.reserved++
	m.mu.Unlock()

	sessExec, err := m.pool.DeriveSession(ctx)
	if err != nil {
		m.mu.Lock()
		m.reserved--
		m.mu.Unlock()
		return "", gatewayerr.Wrap(err, gatewayerr.DatabaseError, "failed to acquire session connection")
	}

	m.mu.Lock()
	m.reserved--
	if m.closed || len(m.entries) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		_ = sessExec.Close(ctx, true)
		return "", gatewayerr.New(gatewayerr.SessionLimitExceeded,
			"session limit reached while completing begin")
	}

	id := uuid.NewString()
	e := &sessionEntry{id: id, exec: sessExec, lastActiveAt: m.now()}
	m.entries[id] = e
	m.scheduleLocked(e)
	m.mu.Unlock()

	return id, nil
}

// Get looks up id, refreshing last_active_at and rescheduling the expiry
// timer before returning the executor — the refresh-before-return step
// that guarantees a concurrent reaper cannot fire on an entry that has
// just been refreshed.
func (m *Manager) Get(id string) (executor.Executor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, gatewayerr.New(gatewayerr.UnknownSession, "unknown or expired session")
	}
	e.lastActiveAt = m.now()
	e.version++
	m.scheduleLocked(e)
	return e.exec, nil
}

// Peek reports id's idle/remaining-TTL snapshot without refreshing it —
// used by the response envelope's near-expiry check, which must observe a
// session's remaining lifetime without resetting it.
func (m *Manager) Peek(id string) (SessionInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return SessionInfo{}, false
	}
	idle := m.now().Sub(e.lastActiveAt)
	expiresIn := m.cfg.TTL - idle
	if expiresIn < 0 {
		expiresIn = 0
	}
	return SessionInfo{ID: e.id, IdleTime: idle, ExpiresIn: expiresIn}, true
}

// Close cancels id's timer (implicitly, via version bump on removal),
// removes the entry, and destroy-closes its executor. Idempotent: closing
// an already-closed or unknown id is a no-op. Connection-teardown errors
// are logged, never propagated — by the time Close runs the caller has
// already committed, rolled back, or the session has expired, so a
// teardown failure is not actionable.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.entries, id)
	e.version++
	m.mu.Unlock()

	if err := e.exec.Close(ctx, true); err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("session close: connection teardown failed")
	}
	return nil
}

// List snapshots current entries. Purely read-only.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]SessionInfo, 0, len(m.entries))
	for _, e := range m.entries {
		idle := now.Sub(e.lastActiveAt)
		expiresIn := m.cfg.TTL - idle
		if expiresIn < 0 {
			expiresIn = 0
		}
		out = append(out, SessionInfo{ID: e.id, IdleTime: idle, ExpiresIn: expiresIn})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// scheduleLocked pushes a fresh heap item for e and wakes the reaper if
// this deadline is sooner than whatever it is currently sleeping toward.
// Must be called with mu held.
func (m *Manager) scheduleLocked(e *sessionEntry) {
	m.heap.pushItem(&heapItem{id: e.id, version: e.version, expiresAt: e.lastActiveAt.Add(m.cfg.TTL)})
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Shutdown enumerates all live sessions, best-effort-rolls-back and
// destroys each, closes the pool, and stops the reaper. It does not wait
// for in-flight handlers. cmd/pggatewayd calls it after its serve loop has
// returned, with a context bounded by shutdown_grace.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	entries := make([]*sessionEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.entries = make(map[string]*sessionEntry)
	m.mu.Unlock()

	for _, e := range entries {
		m.rollbackAndDestroy(ctx, e)
	}

	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh

	return m.pool.Close(ctx, true)
}

func (m *Manager) rollbackAndDestroy(ctx context.Context, e *sessionEntry) {
	if _, err := e.exec.Execute(ctx, "ROLLBACK", nil, executor.Options{}); err != nil {
		m.logger.Debug().Err(err).Str("session_id", e.id).Msg("best-effort rollback on close failed")
	}
	if err := e.exec.Close(ctx, true); err != nil {
		m.logger.Warn().Err(err).Str("session_id", e.id).Msg("connection teardown failed")
	}
}

// reap is the background expiry loop: pop due items, drop stale ones
// (version mismatch — the lazy-invalidation half of the O(log N) design),
// and destroy genuinely expired sessions. Sleeps until the next due
// deadline, or wakes early when scheduleLocked signals a sooner one.
func (m *Manager) reap() {
	defer close(m.doneCh)

	const idleWait = time.Hour
	for {
		wait := idleWait

		m.mu.Lock()
		for {
			item, ok := m.heap.peek()
			if !ok {
				break
			}
			now := m.now()
			if item.expiresAt.After(now) {
				wait = item.expiresAt.Sub(now)
				break
			}
			m.heap.popItem()

			e, live := m.entries[item.id]
			if !live || e.version != item.version {
				continue // stale: refreshed or removed since scheduling
			}
			delete(m.entries, item.id)
			m.mu.Unlock()

			m.rollbackAndDestroy(context.Background(), e)

			m.mu.Lock()
		}
		m.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-m.wake:
			timer.Stop()
		case <-m.stopCh:
			timer.Stop()
			return
		}
	}
}
