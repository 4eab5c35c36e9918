package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
)

// Snapshot is the cart as returned to clients and pushed to open tabs.
type Snapshot struct {
	Items         []model.CartLineItem `json:"items"`
	Count         int                  `json:"count"`
	Total         float64              `json:"total"`
	Authenticated bool                 `json:"authenticated"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Backend is what a Session persists through.
type Backend struct {
	Local    LocalStore
	Remote   RemoteStore
	Writer   *Writer
	Strategy MergeStrategy
}

// Session owns the in-memory cart of one visitor. Mutations apply to memory
// first and are then queued for the store of the current identity: Local
// while anonymous, Remote once signed in.
type Session struct {
	mu        sync.Mutex
	visitorID string
	userID    *uint
	items     []model.CartLineItem
	updatedAt time.Time
	lastSeen  time.Time
	loaded    bool

	backend Backend

	// onChange runs after the lock is released, for signed-in sessions only.
	onChange func(s *Session, userID uint, snap Snapshot)
}

func NewSession(visitorID string, userID *uint, backend Backend) *Session {
	if backend.Strategy == "" {
		backend.Strategy = MergeSum
	}
	return &Session{
		visitorID: visitorID,
		userID:    copyID(userID),
		backend:   backend,
		lastSeen:  time.Now(),
	}
}

func localKey(visitorID string) string { return "local:" + visitorID }

func remoteKey(userID uint) string { return fmt.Sprintf("remote:%d", userID) }

func copyID(id *uint) *uint {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Session) VisitorID() string { return s.visitorID }

// UserID returns the signed-in user, or nil for an anonymous visitor.
func (s *Session) UserID() *uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyID(s.userID)
}

// Load rebuilds the cart from the stores. A signed-in visitor with a guest
// cart gets the two carts reconciled, the result written to Remote and the
// guest cart cleared. Store failures fall back to the guest cart.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	s.load(ctx)
	uid, snap := s.signedInSnapshot()
	s.mu.Unlock()

	s.changed(uid, snap)
}

// SetIdentity attaches userID (nil signs out) and reloads when it changed.
func (s *Session) SetIdentity(ctx context.Context, userID *uint) {
	s.mu.Lock()
	s.lastSeen = time.Now()
	if s.loaded && sameID(s.userID, userID) {
		s.mu.Unlock()
		return
	}
	prev := s.userID
	s.userID = copyID(userID)
	s.load(ctx)
	uid, snap := s.signedInSnapshot()
	s.mu.Unlock()

	if !sameID(prev, userID) {
		logger.Info("Cart session identity changed", map[string]interface{}{
			"visitor_id":    s.visitorID,
			"previous_user": prev,
			"user_id":       userID,
		})
	}
	s.changed(uid, snap)
}

func (s *Session) load(ctx context.Context) {
	keys := []string{localKey(s.visitorID)}
	if s.userID != nil {
		keys = append(keys, remoteKey(*s.userID))
	}
	s.backend.Writer.Settle(ctx, keys...)

	s.loaded = true
	s.updatedAt = time.Now()

	local, err := s.backend.Local.Get(ctx, s.visitorID)
	if err != nil {
		logger.Warn("Failed to read guest cart, starting empty", map[string]interface{}{
			"visitor_id": s.visitorID,
			"error":      err.Error(),
		})
		local = nil
	}

	if s.userID == nil {
		s.items = Clone(local)
		return
	}
	userID := *s.userID

	remote, err := s.backend.Remote.Get(ctx, userID)
	if err != nil {
		logger.Error("Failed to read user cart, using guest cart", err, map[string]interface{}{
			"visitor_id": s.visitorID,
			"user_id":    userID,
		})
		s.items = Clone(local)
		return
	}

	if len(local) == 0 {
		s.items = Clone(remote)
		return
	}

	merged := ReconcileWith(s.backend.Strategy, remote, local)
	if err := s.backend.Remote.Save(ctx, userID, merged); err != nil {
		logger.Error("Failed to save merged cart, using guest cart", err, map[string]interface{}{
			"visitor_id": s.visitorID,
			"user_id":    userID,
		})
		s.items = Clone(local)
		return
	}

	if err := s.backend.Local.Clear(ctx, s.visitorID); err != nil {
		logger.Warn("Failed to clear guest cart after merge, queued", map[string]interface{}{
			"visitor_id": s.visitorID,
			"error":      err.Error(),
		})
		visitorID := s.visitorID
		s.backend.Writer.Enqueue(localKey(visitorID), func(ctx context.Context) error {
			return s.backend.Local.Clear(ctx, visitorID)
		})
	}

	logger.Info("Guest cart merged into user cart", map[string]interface{}{
		"visitor_id":   s.visitorID,
		"user_id":      userID,
		"remote_lines": len(remote),
		"local_lines":  len(local),
		"merged_lines": len(merged),
	})
	s.items = merged
}

// Add increments the line with the same key or appends line with quantity 1.
func (s *Session) Add(line model.CartLineItem) Snapshot {
	return s.mutate(func(items []model.CartLineItem) []model.CartLineItem {
		return AddLine(items, line)
	})
}

// Remove drops the line with key; unknown keys are ignored.
func (s *Session) Remove(key model.LineKey) Snapshot {
	return s.mutate(func(items []model.CartLineItem) []model.CartLineItem {
		return RemoveLine(items, key)
	})
}

// UpdateQuantity sets the quantity of the line with key; quantity <= 0 removes it.
func (s *Session) UpdateQuantity(key model.LineKey, quantity int) Snapshot {
	return s.mutate(func(items []model.CartLineItem) []model.CartLineItem {
		return SetQuantity(items, key, quantity)
	})
}

// Clear empties the cart and its active store. The store write is applied
// before Clear returns.
func (s *Session) Clear(ctx context.Context) Snapshot {
	s.mu.Lock()
	s.items = nil
	s.updatedAt = time.Now()
	s.lastSeen = s.updatedAt

	var key string
	if s.userID != nil {
		userID := *s.userID
		key = remoteKey(userID)
		s.backend.Writer.Enqueue(key, func(ctx context.Context) error {
			return s.backend.Remote.Clear(ctx, userID)
		})
	} else {
		visitorID := s.visitorID
		key = localKey(visitorID)
		s.backend.Writer.Enqueue(key, func(ctx context.Context) error {
			return s.backend.Local.Clear(ctx, visitorID)
		})
	}
	s.backend.Writer.Settle(ctx, key)

	snap := s.snapshot()
	uid, _ := s.signedInSnapshot()
	s.mu.Unlock()

	s.changed(uid, snap)
	return snap
}

func (s *Session) mutate(fn func([]model.CartLineItem) []model.CartLineItem) Snapshot {
	s.mu.Lock()
	s.items = fn(s.items)
	s.updatedAt = time.Now()
	s.lastSeen = s.updatedAt
	s.persist()
	snap := s.snapshot()
	uid, _ := s.signedInSnapshot()
	s.mu.Unlock()

	s.changed(uid, snap)
	return snap
}

func (s *Session) persist() {
	items := Clone(s.items)
	if s.userID != nil {
		userID := *s.userID
		s.backend.Writer.Enqueue(remoteKey(userID), func(ctx context.Context) error {
			return s.backend.Remote.Save(ctx, userID, items)
		})
		return
	}
	visitorID := s.visitorID
	s.backend.Writer.Enqueue(localKey(visitorID), func(ctx context.Context) error {
		return s.backend.Local.Save(ctx, visitorID, items)
	})
}

func (s *Session) signedInSnapshot() (*uint, Snapshot) {
	if s.userID == nil {
		return nil, Snapshot{}
	}
	return copyID(s.userID), s.snapshot()
}

func (s *Session) changed(userID *uint, snap Snapshot) {
	if userID == nil || s.onChange == nil {
		return
	}
	s.onChange(s, *userID, snap)
}

// adoptPeer takes the cart of another session of the same user when it is newer.
func (s *Session) adoptPeer(userID uint, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded || s.userID == nil || *s.userID != userID {
		return
	}
	if !snap.UpdatedAt.After(s.updatedAt) {
		return
	}
	s.items = Clone(snap.Items)
	s.updatedAt = snap.UpdatedAt
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Items:         Clone(s.items),
		Count:         Count(s.items),
		Total:         Total(s.items),
		Authenticated: s.userID != nil,
		UpdatedAt:     s.updatedAt,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	return s.snapshot()
}

// Items returns a copy of the current lines.
func (s *Session) Items() []model.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.items)
}

func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Count(s.items)
}

func (s *Session) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Total(s.items)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
