package worker

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"bizdesk/internal/config"
	"bizdesk/internal/redis"
	"bizdesk/internal/upload"
)

func TestStateCacheWithoutClientIsNoop(t *testing.T) {
	sc := newStateCache(nil, nil)
	sc.cacheBatch(upload.BatchSnapshot{ID: "b1"})
	sc.publishEvent(Event{Type: EventCopied})
	sc.dropBatches("b1")
	sc.publishInvalidation(invalidateMessage{ViewID: "v", Scope: scopeView})
	sc.startListener(context.Background(), func(invalidateMessage) {
		t.Fatalf("listener must not run without redis")
	})
	if _, ok := sc.loadBatch("b1"); ok {
		t.Fatalf("loadBatch should miss without redis")
	}
}

func TestStateCacheStoreAndLoadBatch(t *testing.T) {
	sc, cleanup := newRedisStateCache(t)
	defer cleanup()

	snap := upload.BatchSnapshot{
		ID:       "batch-1",
		Folder:   "Legal Documents",
		State:    upload.StateComplete,
		Progress: 100,
		Tasks:    []upload.Task{{ID: "t1", FileName: "a.pdf", Progress: 100, State: upload.StateComplete}},
	}
	sc.cacheBatch(snap)

	got, ok := sc.loadBatch("batch-1")
	if !ok {
		t.Fatalf("expected batch cached")
	}
	if got.Folder != snap.Folder || got.State != snap.State || len(got.Tasks) != 1 {
		t.Fatalf("batch mismatch: %+v", got)
	}
	if _, ok := sc.loadBatch("missing"); ok {
		t.Fatalf("unexpected hit for missing batch")
	}

	sc.dropBatches("batch-1")
	if _, ok := sc.loadBatch("batch-1"); ok {
		t.Fatalf("dropped batch still cached")
	}
}

func TestStateCachePubSub(t *testing.T) {
	sc, cleanup := newRedisStateCache(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := make(chan invalidateMessage, 1)
	sc.startListener(ctx, func(msg invalidateMessage) {
		ch <- msg
	})

	msg := invalidateMessage{ViewID: "view-6", Scope: scopeView}
	sc.publishInvalidation(msg)
	select {
	case got := <-ch:
		if got != msg {
			t.Fatalf("unexpected message %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("did not receive pubsub message")
	}
}

func newRedisStateCache(t *testing.T) (*stateRedis, func()) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed worker tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Host: host,
			Port: port,
			DB:   db,
		},
	}
	client, err := redis.NewRedisClient(cfg)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	if raw := client.Raw(); raw != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := raw.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("flush db: %v", err)
		}
	}
	sc := newStateCache(client, nil)
	cleanup := func() {
		client.Close()
	}
	return sc, cleanup
}
