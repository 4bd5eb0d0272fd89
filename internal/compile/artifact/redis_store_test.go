package artifact

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStoreMiniredis(t *testing.T) {
	_, rdb := newMiniredis(t)
	exerciseStore(t, NewRedisStoreWithClient(rdb, time.Minute))
}

func TestRedisStoreSaveTrimsExpiredIndex(t *testing.T) {
	mr, rdb := newMiniredis(t)
	ctx := context.Background()
	s := NewRedisStoreWithClient(rdb, time.Minute)

	old := time.Now().UTC().Add(-2 * time.Minute)
	for i := 0; i < 50; i++ {
		a := newArtifact("Predict", "old")
		a.CreatedAt = old.Add(time.Duration(i) * time.Millisecond)
		if err := s.Save(ctx, a); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	mr.FastForward(2 * time.Minute)

	for i := 0; i < 30; i++ {
		if err := s.Save(ctx, newArtifact("Predict", "fresh")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	live := 0
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, redisKeyPrefix) {
			live++
		}
	}
	if live != 30 {
		t.Fatalf("live artifact keys=%d", live)
	}
	if n := rdb.ZCard(ctx, redisIndexKey).Val(); n != 30 {
		t.Fatalf("index not trimmed, zcard=%d", n)
	}

	list, err := s.List(ctx, 100)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 30 {
		t.Fatalf("List returned %d artifacts", len(list))
	}
}

func TestRedisStoreSaveWithoutTTLKeepsIndex(t *testing.T) {
	_, rdb := newMiniredis(t)
	ctx := context.Background()
	s := NewRedisStoreWithClient(rdb, 0)

	a := newArtifact("Predict", "old")
	a.CreatedAt = time.Now().UTC().Add(-24 * time.Hour)
	if err := s.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, newArtifact("Predict", "fresh")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n := rdb.ZCard(ctx, redisIndexKey).Val(); n != 2 {
		t.Fatalf("zcard=%d", n)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis artifact tests")
	}
	ctx := context.Background()

	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DB: 15})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flushdb: %v", err)
	}

	exerciseStore(t, NewRedisStoreWithClient(rdb, time.Minute))
}

func TestRedisStoreListPrunesExpired(t *testing.T) {
	_, rdb := newMiniredis(t)
	ctx := context.Background()
	s := NewRedisStoreWithClient(rdb, 0)

	keep := newArtifact("ReAct", "keep")
	gone := newArtifact("ReAct", "gone")
	for _, a := range []*Artifact{keep, gone} {
		if err := s.Save(ctx, a); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := rdb.Del(ctx, redisKey(gone.ID)).Err(); err != nil {
		t.Fatalf("del: %v", err)
	}

	list, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != keep.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
	if n := rdb.ZCard(ctx, redisIndexKey).Val(); n != 1 {
		t.Fatalf("stale member not pruned, zcard=%d", n)
	}
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), " ", 0); err == nil {
		t.Fatalf("expected error")
	}
}
