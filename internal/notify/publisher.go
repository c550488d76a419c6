// Package notify pushes job progress events to other services.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"recipeshorts/internal/logger"
	"recipeshorts/internal/models"
)

// Publisher delivers progress events.
type Publisher interface {
	Publish(ctx context.Context, event models.ProgressEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.ProgressEvent) error { return nil }
func (Nop) Close() error                                          { return nil }

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisPublisher publishes JSON-encoded events on a Redis pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisPublisher connects and pings the server before returning.
func NewRedisPublisher(ctx context.Context, opts RedisOptions, log *logger.Logger) (*RedisPublisher, error) {
	if opts.Addr == "" {
		return nil, errors.New("notify: missing redis address")
	}
	if opts.Channel == "" {
		opts.Channel = "recipeshorts:jobs"
	}
	if log == nil {
		log = logger.Nop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPublisher{
		rdb:     rdb,
		channel: opts.Channel,
		log:     log.With("service", "RedisPublisher"),
	}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.ProgressEvent) error {
	raw, err := encode(event)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func encode(event models.ProgressEvent) ([]byte, error) {
	return json.Marshal(event)
}

