package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/flexystyles/storefront-backend/internal/app/model"
)

var errStoreDown = errors.New("store unavailable")

type memLocal struct {
	mu    sync.Mutex
	carts map[string][]model.CartLineItem
	fail  bool
	saves int
}

func newMemLocal() *memLocal {
	return &memLocal{carts: make(map[string][]model.CartLineItem)}
}

func (m *memLocal) Get(_ context.Context, visitorID string) ([]model.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	return Clone(m.carts[visitorID]), nil
}

func (m *memLocal) Save(_ context.Context, visitorID string, items []model.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.saves++
	m.carts[visitorID] = Clone(items)
	return nil
}

func (m *memLocal) Clear(_ context.Context, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	delete(m.carts, visitorID)
	return nil
}

func (m *memLocal) get(visitorID string) []model.CartLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Clone(m.carts[visitorID])
}

func (m *memLocal) setFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

type memRemote struct {
	mu       sync.Mutex
	carts    map[uint][]model.CartLineItem
	failGet  bool
	failSave bool
	saves    int
}

func newMemRemote() *memRemote {
	return &memRemote{carts: make(map[uint][]model.CartLineItem)}
}

func (m *memRemote) Get(_ context.Context, userID uint) ([]model.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errStoreDown
	}
	return Clone(m.carts[userID]), nil
}

func (m *memRemote) Save(_ context.Context, userID uint, items []model.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	m.saves++
	m.carts[userID] = Clone(items)
	return nil
}

func (m *memRemote) Clear(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	delete(m.carts, userID)
	return nil
}

func (m *memRemote) get(userID uint) []model.CartLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Clone(m.carts[userID])
}

type recordingNotifier struct {
	mu    sync.Mutex
	snaps map[uint][]Snapshot
}

func (n *recordingNotifier) PublishCart(userID uint, snap Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.snaps == nil {
		n.snaps = make(map[uint][]Snapshot)
	}
	n.snaps[userID] = append(n.snaps[userID], snap)
}

func (n *recordingNotifier) last(userID uint) (Snapshot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.snaps[userID]
	if len(s) == 0 {
		return Snapshot{}, false
	}
	return s[len(s)-1], true
}

func uid(id uint) *uint { return &id }
