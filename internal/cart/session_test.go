package cart

import (
	"context"
	"testing"
	"time"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTest(t *testing.T) (*memLocal, *memRemote, Backend) {
	t.Helper()
	local := newMemLocal()
	remote := newMemRemote()
	backend := Backend{
		Local:    local,
		Remote:   remote,
		Writer:   NewWriter(time.Second, 3),
		Strategy: MergeSum,
	}
	return local, remote, backend
}

var keyA = model.LineKey{ProductID: 1, Size: "M", Color: "Black"}

func TestSession_AnonymousWritesGoToLocal(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	ctx := context.Background()

	s := NewSession("v1", nil, backend)
	s.Load(ctx)

	snap := s.Add(line(1, "M", "Black", 1, 10))
	s.Add(line(1, "M", "Black", 1, 10))
	assert.Equal(t, 1, snap.Count)
	assert.False(t, snap.Authenticated)

	backend.Writer.Drain(ctx)

	stored := local.get("v1")
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].Quantity)
	assert.Empty(t, remote.get(0))
	assert.Equal(t, 1, local.saves, "both adds coalesce into one write")
}

func TestSession_LoadMergesGuestCartOnce(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	ctx := context.Background()
	local.carts["v1"] = []model.CartLineItem{line(1, "M", "Black", 2, 10)}
	remote.carts[7] = []model.CartLineItem{line(1, "M", "Black", 1, 10)}

	s := NewSession("v1", uid(7), backend)
	s.Load(ctx)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 3, remote.get(7)[0].Quantity)
	assert.Empty(t, local.get("v1"))

	s.Load(ctx)
	assert.Equal(t, 3, s.Items()[0].Quantity, "reloading must not merge again")
}

func TestSession_LoadAdoptsRemoteWhenGuestCartEmpty(t *testing.T) {
	_, remote, backend := setupSessionTest(t)
	remote.carts[7] = []model.CartLineItem{line(2, "N/A", "N/A", 4, 5)}

	s := NewSession("v1", uid(7), backend)
	s.Load(context.Background())

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, 20.0, s.Total())
	assert.Equal(t, 0, remote.saves)
}

func TestSession_RemoteReadFailureFallsBackToLocal(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	local.carts["v1"] = []model.CartLineItem{line(1, "M", "Black", 2, 10)}
	remote.failGet = true

	s := NewSession("v1", uid(7), backend)
	s.Load(context.Background())

	assert.Equal(t, 2, s.Count())
	assert.Len(t, local.get("v1"), 1, "guest cart kept for the next merge attempt")
}

func TestSession_MergeSaveFailureFallsBackToLocal(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	local.carts["v1"] = []model.CartLineItem{line(1, "M", "Black", 2, 10)}
	remote.carts[7] = []model.CartLineItem{line(3, "S", "Red", 1, 1)}
	remote.failSave = true

	s := NewSession("v1", uid(7), backend)
	s.Load(context.Background())

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, uint(1), items[0].ProductID)
	assert.Len(t, local.get("v1"), 1)
}

func TestSession_PersistFailureDoesNotFailMutation(t *testing.T) {
	local, _, backend := setupSessionTest(t)
	ctx := context.Background()

	s := NewSession("v1", nil, backend)
	s.Load(ctx)
	local.setFail(true)

	snap := s.Add(line(1, "M", "Black", 1, 10))
	assert.Equal(t, 1, snap.Count)

	backend.Writer.Drain(ctx)
	assert.Equal(t, 1, backend.Writer.Stats().Parked)

	local.setFail(false)
	backend.Writer.Retry()
	backend.Writer.Drain(ctx)
	assert.Len(t, local.get("v1"), 1)
}

func TestSession_SignInSettlesPendingGuestWrite(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	ctx := context.Background()

	s := NewSession("v1", nil, backend)
	s.Load(ctx)
	s.Add(line(1, "M", "Black", 1, 10))

	s.SetIdentity(ctx, uid(7))

	assert.Equal(t, 1, s.Count())
	assert.Len(t, remote.get(7), 1)
	assert.Empty(t, local.get("v1"))

	backend.Writer.Drain(ctx)
	assert.Empty(t, local.get("v1"), "no stale guest write lands after the merge")
}

func TestSession_SignOutShowsGuestCart(t *testing.T) {
	local, remote, backend := setupSessionTest(t)
	ctx := context.Background()
	remote.carts[7] = []model.CartLineItem{line(1, "M", "Black", 1, 10)}

	s := NewSession("v1", uid(7), backend)
	s.Load(ctx)
	assert.Equal(t, 1, s.Count())

	s.SetIdentity(ctx, nil)
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, s.UserID())

	s.Add(line(2, "N/A", "N/A", 1, 5))
	backend.Writer.Drain(ctx)
	assert.Len(t, local.get("v1"), 1)
	assert.Len(t, remote.get(7), 1, "signed-out writes never touch the user cart")
}

func TestSession_AuthenticatedMutationsGoToRemote(t *testing.T) {
	_, remote, backend := setupSessionTest(t)
	ctx := context.Background()

	s := NewSession("v1", uid(7), backend)
	s.Load(ctx)
	s.Add(line(1, "M", "Black", 1, 10))
	s.Add(line(2, "N/A", "N/A", 1, 5))
	s.UpdateQuantity(keyA, 3)
	s.Remove(model.LineKey{ProductID: 2, Size: "N/A", Color: "N/A"})

	backend.Writer.Drain(ctx)
	stored := remote.get(7)
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].Quantity)

	snap := s.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, 30.0, snap.Total)
}

func TestSession_ClearIsAppliedImmediately(t *testing.T) {
	_, remote, backend := setupSessionTest(t)
	ctx := context.Background()
	remote.carts[7] = []model.CartLineItem{line(1, "M", "Black", 1, 10)}

	s := NewSession("v1", uid(7), backend)
	s.Load(ctx)
	snap := s.Clear(ctx)

	assert.Equal(t, 0, snap.Count)
	assert.Empty(t, remote.get(7))
	assert.Equal(t, WriterStats{}, backend.Writer.Stats())
}

func TestSession_ItemsIsACopy(t *testing.T) {
	_, _, backend := setupSessionTest(t)
	s := NewSession("v1", nil, backend)
	s.Load(context.Background())
	s.Add(line(1, "M", "Black", 1, 10))

	items := s.Items()
	items[0].Quantity = 50
	assert.Equal(t, 1, s.Count())
}
