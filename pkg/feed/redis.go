package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// RedisOptions locates the redis server a Mirror writes to.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces keys and channels, "climabus" when empty.
	Prefix string
}

type mirrorItem struct {
	typ string
	b   []byte
}

// Mirror copies feed messages into redis: the latest message of each type
// under "<prefix>:<type>" and every message published on the same channel.
type Mirror struct {
	client *redis.Client
	prefix string
	queue  chan mirrorItem
	log    zerolog.Logger
}

// NewMirror returns a mirror; call Run to start writing.
func NewMirror(opts RedisOptions, log zerolog.Logger) *Mirror {
	if opts.Prefix == "" {
		opts.Prefix = "climabus"
	}
	return &Mirror{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: opts.Prefix,
		queue:  make(chan mirrorItem, 64),
		log:    log,
	}
}

// Key returns the key and channel used for a message type.
func (m *Mirror) Key(typ string) string {
	return m.prefix + ":" + typ
}

// Ping checks the server is reachable.
func (m *Mirror) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := m.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Offer queues a message without blocking. It is dropped when the queue is
// full.
func (m *Mirror) Offer(typ string, b []byte) {
	select {
	case m.queue <- mirrorItem{typ: typ, b: b}:
	default:
		m.log.Warn().Str("type", typ).Msg("redis mirror queue full, message dropped")
	}
}

// Run writes queued messages until ctx ends.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case it := <-m.queue:
			key := m.Key(it.typ)
			pipe := m.client.Pipeline()
			pipe.Set(ctx, key, it.b, 0)
			pipe.Publish(ctx, key, it.b)
			if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
				m.log.Error().Err(err).Str("key", key).Msg("redis mirror write")
			}
		}
	}
}

// Close closes the redis connection.
func (m *Mirror) Close() error {
	return m.client.Close()
}
