package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsiteSemaphore_OneHolderPerWebsite(t *testing.T) {
	sem := NewWebsiteSemaphore()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	releaseA, ok, err := sem.TryLock(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, sem.IsLocked(a))

	_, ok, err = sem.TryLock(ctx, a)
	require.NoError(t, err)
	assert.False(t, ok)

	releaseB, ok, _ := sem.TryLock(ctx, b)
	require.True(t, ok, "other websites are independent")

	stats := sem.GetStats()
	assert.Len(t, stats["activeSyncs"], 2)

	releaseA()
	releaseA()
	assert.False(t, sem.IsLocked(a))

	_, ok, _ = sem.TryLock(ctx, a)
	assert.True(t, ok)
	releaseB()
}

func TestWebsiteSemaphore_ConcurrentTryLock(t *testing.T) {
	sem := NewWebsiteSemaphore()
	id := uuid.New()

	var acquired int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := sem.TryLock(context.Background(), id); ok {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, acquired)
}

func TestWebsiteSemaphore_Cleanup(t *testing.T) {
	sem := NewWebsiteSemaphore()
	ctx := context.Background()
	idle, busy := uuid.New(), uuid.New()

	release, _, _ := sem.TryLock(ctx, idle)
	release()
	_, _, _ = sem.TryLock(ctx, busy)

	sem.Cleanup()
	stats := sem.GetStats()
	assert.Equal(t, 1, stats["totalWebsites"])
	assert.True(t, sem.IsLocked(busy))
}

func TestChainedLocker_AllOrNone(t *testing.T) {
	first, second := NewWebsiteSemaphore(), NewWebsiteSemaphore()
	chained := NewChainedLocker(first, second)
	ctx := context.Background()
	id := uuid.New()

	holdSecond, ok, _ := second.TryLock(ctx, id)
	require.True(t, ok)

	_, ok, err := chained.TryLock(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, first.IsLocked(id), "partial acquisitions are released")

	holdSecond()
	release, ok, err := chained.TryLock(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.IsLocked(id))
	assert.True(t, second.IsLocked(id))

	release()
	assert.False(t, first.IsLocked(id))
	assert.False(t, second.IsLocked(id))
}

func TestRedisSyncLock_Key(t *testing.T) {
	id := uuid.MustParse("6f1c3b4e-1111-2222-3333-444455556666")
	lock := NewRedisSyncLock(nil, 0, testLogger())
	assert.Equal(t, "profit:sync:lock:6f1c3b4e-1111-2222-3333-444455556666", lock.key(id))
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisSyncLock_UnavailableRedis(t *testing.T) {
	logger, hook := test.NewNullLogger()
	lock := NewRedisSyncLock(unreachableRedis(t), time.Minute, logrus.NewEntry(logger))

	release, acquired, err := lock.TryLock(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.False(t, acquired)
	assert.Nil(t, release)

	lock.release("profit:sync:lock:abc", "token")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "profit:sync:lock:abc", entry.Data["lock_key"])
	assert.Equal(t, "sync_lock", entry.Data["component"])
}
