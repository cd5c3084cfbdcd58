// Package store persists best-effort engine snapshots in Redis so a
// restarted process can resume from the last observed network state.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/citypulse/trafficd/internal/events"
	"github.com/citypulse/trafficd/internal/hub"
)

const (
	snapshotKey  = "trafficd:snapshot"
	writeTimeout = 2 * time.Second
)

// RedisStore writes each traffic_update snapshot to a single Redis key and
// restores it at boot. Persistence is best-effort; a write failure is
// logged and the next tick tries again.
type RedisStore struct {
	client *redis.Client
	log    *logrus.Entry
}

// NewRedisStore creates a store for the given Redis address.
func NewRedisStore(addr string, log *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    log.WithField("component", "store"),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSnapshot persists one snapshot.
func (s *RedisStore) SaveSnapshot(ctx context.Context, snap events.TrafficUpdate) error {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, snapshotKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the last persisted snapshot, or nil when none
// exists.
func (s *RedisStore) LoadSnapshot(ctx context.Context) (*events.TrafficUpdate, error) {
	payload, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

// Run consumes a hub subscription and persists every traffic_update until
// the context is cancelled or the subscription closes.
func (s *RedisStore) Run(ctx context.Context, sub *hub.Subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			if evt.Type != events.TypeTrafficUpdate {
				continue
			}
			snap, ok := evt.Payload.(events.TrafficUpdate)
			if !ok {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			if err := s.SaveSnapshot(writeCtx, snap); err != nil {
				s.log.WithError(err).Warn("snapshot write failed")
			}
			cancel()
		}
	}
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeSnapshot(snap events.TrafficUpdate) ([]byte, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return payload, nil
}

func decodeSnapshot(payload []byte) (*events.TrafficUpdate, error) {
	var snap events.TrafficUpdate
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
