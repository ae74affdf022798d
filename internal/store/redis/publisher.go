// Package redis publishes engine snapshots for downstream consumers
// (dashboards, alerting). Publishing is optional: with no address
// configured the publisher is a no-op, and failures never stall the
// evaluation loop.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: ~3h of 5s snapshots + buffer
	snapshotStreamMaxLen = 2200
	defaultLatestTTL     = 30 * time.Minute
)

// Config configures the Redis publisher.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"; "" disables
	Password string
	DB       int
	Symbol   string // instrument symbol used in key names
}

// Publisher writes snapshots and signal changes to Redis.
type Publisher struct {
	client *goredis.Client
	symbol string
}

// Client returns the underlying Redis client for health checks, or nil
// when publishing is disabled.
func (p *Publisher) Client() *goredis.Client {
	if p == nil {
		return nil
	}
	return p.client
}

// New creates a Publisher and pings the server. An empty address returns a
// nil Publisher, which every method accepts.
func New(cfg Config) (*Publisher, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Publisher{client: client, symbol: cfg.Symbol}, nil
}

// PublishSnapshot writes one snapshot document: XADD to the rolling
// stream, SET of the latest key with TTL, and a PUBLISH for live
// subscribers. Errors are logged, not returned.
func (p *Publisher) PublishSnapshot(ctx context.Context, payload []byte) {
	if p == nil {
		return
	}

	data := string(payload)
	streamKey := "signal:snapshot:" + p.symbol
	latestKey := "signal:latest:" + p.symbol
	pubsubCh := "pub:signal:" + p.symbol

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: snapshotStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Set(ctx, latestKey, data, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, data)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[redis] snapshot pipeline error: %v", err)
	}
}

// PublishSignalChange announces a signal transition on its own channel so
// subscribers can alert without parsing full snapshots.
func (p *Publisher) PublishSignalChange(ctx context.Context, payload []byte) {
	if p == nil {
		return
	}
	ch := "pub:signal-change:" + p.symbol
	if err := p.client.Publish(ctx, ch, string(payload)).Err(); err != nil {
		log.Printf("[redis] signal change publish error: %v", err)
	}
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.client.Close()
}
