//go:build integration_test || all_tests

package session

import (
	"testing"
	"time"

	testingpkg "github.com/2beens/liftsync/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)
	defer func() {
		assert.NoError(t, rdb.Close())
	}()

	store := NewRedisStore(rdb, time.Minute)
	userID := "it-" + t.Name()
	require.NoError(t, store.Clear(ctx, userID))

	loaded, err := store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	workout := testWorkout()
	require.NoError(t, store.Save(ctx, userID, workout))

	loaded, err = store.Load(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, workout.Equal(*loaded))

	ttl, err := rdb.TTL(ctx, currentWorkoutKey(userID)).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 5)

	require.NoError(t, store.Clear(ctx, userID))
	loaded, err = store.Load(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
