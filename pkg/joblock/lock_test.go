package joblock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func TestRedisLock_AcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer client.Close()

	lock := NewRedisLock(client, "collection", time.Minute)
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())

	err = lock.Unlock(ctx)
	assert.NoError(t, err)
	assert.False(t, lock.IsHeld())
}

func TestRedisLock_MutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer client.Close()

	lock1 := NewRedisLock(client, "analysis", time.Minute)
	lock2 := NewRedisLock(client, "analysis", time.Minute)
	ctx := context.Background()

	acquired1, err := lock1.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired1)

	acquired2, err := lock2.TryLock(ctx)
	assert.NoError(t, err)
	assert.False(t, acquired2, "second instance should not acquire a held lock")

	err = lock1.Unlock(ctx)
	assert.NoError(t, err)

	acquired2, err = lock2.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired2, "lock should be free after release")

	err = lock2.Unlock(ctx)
	assert.NoError(t, err)
}

func TestRedisLock_ExpiryFreesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer client.Close()

	lock1 := NewRedisLock(client, "recommendation", 2*time.Second)
	lock2 := NewRedisLock(client, "recommendation", 2*time.Second)
	ctx := context.Background()

	acquired, err := lock1.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)

	// Let the key expire without releasing
	mr.FastForward(3 * time.Second)

	acquired, err = lock2.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired, "expired lock should be acquirable")

	// Releasing the stale holder must not delete the new holder's key
	err = lock1.Unlock(ctx)
	assert.NoError(t, err)
	assert.True(t, mr.Exists("infrascope:joblock:recommendation"))

	err = lock2.Unlock(ctx)
	assert.NoError(t, err)
}

func TestRedisLock_NilClientSingleInstanceMode(t *testing.T) {
	lock := NewRedisLock(nil, "collection", time.Minute)
	ctx := context.Background()

	acquired, err := lock.TryLock(ctx)
	assert.NoError(t, err)
	assert.True(t, acquired)
	assert.True(t, lock.IsHeld())

	err = lock.Unlock(ctx)
	assert.NoError(t, err)
	assert.False(t, lock.IsHeld())
}
