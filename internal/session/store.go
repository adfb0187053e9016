package session

import (
	"context"
	"sync"
)

// Store keeps sessions between requests. Update runs fn with exclusive
// access to the session and persists the result when fn succeeds. View runs
// fn on a consistent session without persisting anything.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	View(ctx context.Context, id string, fn func(*Session) error) error
	Update(ctx context.Context, id string, fn func(*Session) error) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	mu sync.Mutex
	s  *Session
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &memoryEntry{s: s}
	return nil
}

func (m *MemoryStore) entry(id string) (*memoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns the live session. Callers that mutate it must go through
// Update.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s, nil
}

func (m *MemoryStore) View(ctx context.Context, id string, fn func(*Session) error) error {
	return m.Update(ctx, id, fn)
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Guard tracks long-running operations so that a second trigger of the same
// operation is refused while the first is in flight.
type Guard struct {
	mu   sync.Mutex
	busy map[string]bool
}

// NewGuard returns an idle guard.
func NewGuard() *Guard {
	return &Guard{busy: make(map[string]bool)}
}

// Acquire marks op on session id as running. The returned release must be
// called on every path, success or failure.
func (g *Guard) Acquire(id, op string) (release func(), err error) {
	key := id + "/" + op
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy[key] {
		return nil, ErrBusy
	}
	g.busy[key] = true
	return func() {
		g.mu.Lock()
		delete(g.busy, key)
		g.mu.Unlock()
	}, nil
}

// Busy reports whether op is running on session id.
func (g *Guard) Busy(id, op string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[id+"/"+op]
}
