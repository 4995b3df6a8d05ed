package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"bizdesk/internal/redis"
	"bizdesk/internal/upload"
)

const (
	redisEventChannel      = "bizdesk:view-events"
	redisInvalidateChannel = "bizdesk:invalidate"
	redisBatchTTL          = 30 * time.Minute
)

const scopeView = "view"

type invalidateMessage struct {
	ViewID string `json:"view_id"`
	Scope  string `json:"scope"`
}

// stateRedis mirrors view events and batch status to redis so other
// processes can follow them. Every method is a no-op without a client.
type stateRedis struct {
	client *redis.Client
	logger *slog.Logger
}

func newStateCache(client *redis.Client, logger *slog.Logger) *stateRedis {
	if logger == nil {
		logger = slog.Default()
	}
	return &stateRedis{client: client, logger: logger}
}

func (r *stateRedis) enabled() bool {
	return r != nil && r.client != nil && r.client.Raw() != nil
}

func batchKey(id string) string {
	return "bizdesk:batch:" + id
}

// startListener closes views when a peer reports them closed. It stops with ctx.
func (r *stateRedis) startListener(ctx context.Context, handler func(invalidateMessage)) {
	if !r.enabled() || handler == nil {
		return
	}
	sub, err := r.client.Subscribe(ctx, redisInvalidateChannel)
	if err != nil {
		r.logger.Warn("worker invalidation subscribe failed", "error", err)
		return
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inv invalidateMessage
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					r.logger.Warn("worker invalidation decode failed", "error", err)
					continue
				}
				handler(inv)
			}
		}
	}()
}

func (r *stateRedis) publishInvalidation(msg invalidateMessage) {
	r.publish(redisInvalidateChannel, msg)
}

func (r *stateRedis) publishEvent(ev Event) {
	r.publish(redisEventChannel, ev)
}

func (r *stateRedis) publish(channel string, v any) {
	if !r.enabled() {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("worker publish marshal failed", "channel", channel, "error", err)
		return
	}
	if err := r.client.Publish(context.Background(), channel, payload); err != nil {
		r.logger.Warn("worker publish failed", "channel", channel, "error", err)
	}
}

func (r *stateRedis) cacheBatch(snap upload.BatchSnapshot) {
	if !r.enabled() || snap.ID == "" {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		r.logger.Warn("worker batch marshal failed", "batch", snap.ID, "error", err)
		return
	}
	if err := r.client.Set(context.Background(), batchKey(snap.ID), data, redisBatchTTL); err != nil {
		r.logger.Warn("worker cache batch failed", "batch", snap.ID, "error", err)
	}
}

// dropBatches removes snapshots of batches a view no longer tracks.
func (r *stateRedis) dropBatches(ids ...string) {
	if !r.enabled() || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, batchKey(id))
	}
	if err := r.client.Del(context.Background(), keys...); err != nil {
		r.logger.Warn("worker drop batches failed", "batches", len(ids), "error", err)
	}
}

func (r *stateRedis) loadBatch(id string) (upload.BatchSnapshot, bool) {
	var snap upload.BatchSnapshot
	if !r.enabled() || id == "" {
		return snap, false
	}
	raw, err := r.client.Get(context.Background(), batchKey(id))
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			r.logger.Warn("worker load batch failed", "batch", id, "error", err)
		}
		return snap, false
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		r.logger.Warn("worker decode batch failed", "batch", id, "error", err)
		return snap, false
	}
	return snap, true
}
