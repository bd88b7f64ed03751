package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maintenance-service/pkg/constants"
)

func TestEquipmentLocker_ExclusiveAndReleased(t *testing.T) {
	cache := newMemoryCache()
	locker := NewEquipmentLocker(cache, time.Second, 120*time.Millisecond, zap.NewNop())
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, 5)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, 5)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	otherUnlock, err := locker.Lock(ctx, 6)
	require.NoError(t, err, "блокировка другого оборудования не должна ждать")
	otherUnlock()

	unlock()
	_, err = cache.Get(ctx, fmt.Sprintf(constants.CacheKeyEquipmentLock, 5))
	assert.ErrorIs(t, err, ErrCacheMiss)

	again, err := locker.Lock(ctx, 5)
	require.NoError(t, err)
	again()
}

func TestEquipmentLocker_ReleaseKeepsForeignToken(t *testing.T) {
	cache := newMemoryCache()
	locker := NewEquipmentLocker(cache, time.Second, 50*time.Millisecond, zap.NewNop())
	ctx := context.Background()
	key := fmt.Sprintf(constants.CacheKeyEquipmentLock, 9)

	unlock, err := locker.Lock(ctx, 9)
	require.NoError(t, err)

	// блокировка истекла и её забрал другой экземпляр
	require.NoError(t, cache.Set(ctx, key, "чужой", time.Second))
	unlock()

	v, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "чужой", v)
}

func TestEquipmentLocker_CanceledContext(t *testing.T) {
	cache := newMemoryCache()
	locker := NewEquipmentLocker(cache, time.Second, time.Second, zap.NewNop())

	unlock, err := locker.Lock(context.Background(), 1)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Lock(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
