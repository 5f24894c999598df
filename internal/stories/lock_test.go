package stories

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	values map[string]string
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func TestRedisLockerExclusive(t *testing.T) {
	store := &fakeRedis{values: map[string]string{}}
	locker, err := NewRedisLocker(store, func(k string) string { return "sf:lock:" + k }, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "story:1")
	if err != nil || !ok {
		t.Fatalf("expected first lock, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, "story:1"); ok {
		t.Fatalf("second lock should fail while held")
	}
	if _, exists := store.values["sf:lock:story:1"]; !exists {
		t.Fatalf("expected namespaced key")
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := locker.TryLock(ctx, "story:1"); !ok {
		t.Fatalf("lock should be available after release")
	}
}

func TestRedisLockerReleaseKeepsForeignOwner(t *testing.T) {
	store := &fakeRedis{values: map[string]string{}}
	locker, _ := NewRedisLocker(store, nil, time.Minute)
	ctx := context.Background()

	release, _, _ := locker.TryLock(ctx, "story:2")
	// The TTL expired and another instance took the key.
	store.values["story:2"] = "someone-else"

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values["story:2"] != "someone-else" {
		t.Fatalf("release must not delete a lock held by another owner")
	}
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	release, ok, _ := locker.TryLock(ctx, "a")
	if !ok {
		t.Fatalf("expected lock")
	}
	if _, ok, _ := locker.TryLock(ctx, "a"); ok {
		t.Fatalf("expected contention")
	}
	if _, ok, _ := locker.TryLock(ctx, "b"); !ok {
		t.Fatalf("other keys should be independent")
	}
	_ = release(ctx)
	_ = release(ctx)
	if _, ok, _ := locker.TryLock(ctx, "a"); !ok {
		t.Fatalf("expected lock after release")
	}
}
