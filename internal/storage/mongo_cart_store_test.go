package storage

import (
	"context"
	"testing"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupMongoCartStore(t *testing.T) *MongoCartStore {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoCartStore(db)
	require.NoError(t, store.CreateIndexes(ctx))
	return store
}

func TestMongoCartStore_RoundTrip(t *testing.T) {
	store := setupMongoCartStore(t)
	ctx := context.Background()

	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, got)

	items := []model.CartLineItem{
		{ProductID: 1, SelectedSize: "M", SelectedColor: "Black", Quantity: 2, Price: 19.99, Name: "Tee", Images: []string{"a.jpg"}},
	}
	require.NoError(t, store.Save(ctx, 7, items))

	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, items, got)

	replaced := []model.CartLineItem{{ProductID: 2, SelectedSize: "N/A", SelectedColor: "N/A", Quantity: 1, Price: 5, Name: "Cap", Images: []string{"b.jpg"}}}
	require.NoError(t, store.Save(ctx, 7, replaced))

	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, replaced, got, "save replaces the whole list")

	require.NoError(t, store.Clear(ctx, 7))
	got, err = store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, got)
}
