package cartref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestStore(t *testing.T) (Store, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestGet_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "sess_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBind_CreatesAndUpdates(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	binding := &Binding{SessionID: "sess_1", CartID: "cart_abc"}

	err := store.Bind(ctx, binding)
	require.NoError(t, err)
	assert.False(t, binding.CreatedAt.IsZero())

	fetched, err := store.Get(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "cart_abc", fetched.CartID)

	// Binding the same session again replaces the cart pointer.
	err = store.Bind(ctx, &Binding{SessionID: "sess_1", CartID: "cart_def", CustomerID: "cus_9"})
	require.NoError(t, err)

	fetched, err = store.Get(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "cart_def", fetched.CartID)
	assert.Equal(t, "cus_9", fetched.CustomerID)
}

func TestUnbind_RemovesBinding(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Bind(ctx, &Binding{SessionID: "sess_2", CartID: "cart_xyz"}))

	err := store.Unbind(ctx, "sess_2")
	require.NoError(t, err)

	_, err = store.Get(ctx, "sess_2")
	assert.ErrorIs(t, err, ErrNotFound)

	// Unbinding an unknown session is not an error.
	assert.NoError(t, store.Unbind(ctx, "sess_unknown"))
}
