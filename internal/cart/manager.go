package cart

import (
	"context"
	"sync"
	"time"

	"github.com/flexystyles/storefront-backend/internal/identity"
	"github.com/flexystyles/storefront-backend/pkg/logger"
)

// Manager keeps one Session per visitor id and keeps the sessions of one
// signed-in user in step with each other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	backend  Backend
	notifier Notifier
}

func NewManager(backend Backend, notifier Notifier) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		backend:  backend,
		notifier: notifier,
	}
}

// Session returns the loaded session of visitorID. The first call for a
// visitor loads it; later calls re-attach userID when the identity moved.
func (m *Manager) Session(ctx context.Context, visitorID string, userID *uint) *Session {
	m.mu.Lock()
	s, ok := m.sessions[visitorID]
	if !ok {
		s = NewSession(visitorID, userID, m.backend)
		s.onChange = m.propagate
		m.sessions[visitorID] = s
	}
	m.mu.Unlock()

	s.SetIdentity(ctx, userID)
	return s
}

// Lookup returns the session of visitorID without creating or loading it.
func (m *Manager) Lookup(visitorID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[visitorID]
	return s, ok
}

// ForUser returns every live session signed in as userID.
func (m *Manager) ForUser(userID uint) []*Session {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	var out []*Session
	for _, s := range all {
		if id := s.UserID(); id != nil && *id == userID {
			out = append(out, s)
		}
	}
	return out
}

// ClearUser empties the cart of userID on every session and in the Remote store.
func (m *Manager) ClearUser(ctx context.Context, userID uint) {
	sessions := m.ForUser(userID)
	if len(sessions) > 0 {
		sessions[0].Clear(ctx)
		return
	}

	key := remoteKey(userID)
	m.backend.Writer.Enqueue(key, func(ctx context.Context) error {
		return m.backend.Remote.Clear(ctx, userID)
	})
	m.backend.Writer.Settle(ctx, key)
	if m.notifier != nil {
		m.notifier.PublishCart(userID, Snapshot{Authenticated: true, UpdatedAt: time.Now()})
	}
}

// Listen applies identity events until ctx is done or events is closed.
func (m *Manager) Listen(ctx context.Context, events <-chan identity.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.apply(ctx, e)
		}
	}
}

func (m *Manager) apply(ctx context.Context, e identity.Event) {
	if e.VisitorID == "" {
		return
	}
	logger.Debug("Identity event received", map[string]interface{}{
		"visitor_id": e.VisitorID,
		"kind":       e.Kind,
	})

	switch e.Kind {
	case identity.SignedIn:
		m.Session(ctx, e.VisitorID, e.UserID)
	case identity.SignedOut:
		if s, ok := m.Lookup(e.VisitorID); ok {
			s.SetIdentity(ctx, nil)
		}
	}
}

// EvictIdle forgets sessions untouched for maxIdle and returns how many went.
// Their carts stay in the stores.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for visitorID, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, visitorID)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Info("Evicted idle cart sessions", map[string]interface{}{
			"evicted":   evicted,
			"remaining": len(m.sessions),
		})
	}
	return evicted
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) propagate(origin *Session, userID uint, snap Snapshot) {
	for _, s := range m.ForUser(userID) {
		if s != origin {
			s.adoptPeer(userID, snap)
		}
	}
	if m.notifier != nil {
		m.notifier.PublishCart(userID, snap)
	}
}
