// Package redisstore provides a redis-backed storage backend, for setups
// where acquired data must be visible to other processes on the lab
// network while an acquisition is still running.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/c360/exengine/coords"
	"github.com/c360/exengine/storage"
)

// Compile-time interface satisfaction check.
var _ storage.Backend = (*Store)(nil)

// Store implements storage.Backend on a redis instance. Each item uses two
// keys under the configured prefix: one for the payload, one for the
// metadata document.
type Store struct {
	client   *redis.Client
	prefix   string
	ctx      context.Context
	finished bool
}

// Options configures the store
type Options struct {
	// Addr is the redis host:port
	Addr string
	// Prefix namespaces this dataset's keys (default "exengine")
	Prefix string
	// DB selects the redis database
	DB int
	// Password authenticates if the server requires it
	Password string
}

// Open connects to redis and verifies the connection
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Prefix == "" {
		opts.Prefix = "exengine"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{client: client, prefix: opts.Prefix, ctx: ctx}, nil
}

func (s *Store) dataKey(c coords.Coordinates) string {
	return s.prefix + ":data:" + c.Key()
}

func (s *Store) metaKey(c coords.Coordinates) string {
	return s.prefix + ":meta:" + c.Key()
}

// Put implements storage.Backend
func (s *Store) Put(c coords.Coordinates, data []byte, metadata map[string]any) error {
	if s.finished {
		return storage.ErrFinished
	}

	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(s.ctx, s.dataKey(c), data, 0)
	pipe.Set(s.ctx, s.metaKey(c), md, 0)
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("write item: %w", err)
	}
	return nil
}

// GetData implements storage.Backend
func (s *Store) GetData(c coords.Coordinates) ([]byte, error) {
	data, err := s.client.Get(s.ctx, s.dataKey(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// GetMetadata implements storage.Backend
func (s *Store) GetMetadata(c coords.Coordinates) (map[string]any, error) {
	raw, err := s.client.Get(s.ctx, s.metaKey(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var md map[string]any
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if md == nil {
		md = map[string]any{}
	}
	return md, nil
}

// Contains implements storage.Backend
func (s *Store) Contains(c coords.Coordinates) (bool, error) {
	n, err := s.client.Exists(s.ctx, s.dataKey(c)).Result()
	if err != nil {
		return false, fmt.Errorf("check item: %w", err)
	}
	return n > 0, nil
}

// Finish implements storage.Backend. Data stays in redis; the dataset
// becomes read-only from this process.
func (s *Store) Finish() error {
	s.finished = true
	return nil
}

// Close implements storage.Backend
func (s *Store) Close() error {
	return s.client.Close()
}
