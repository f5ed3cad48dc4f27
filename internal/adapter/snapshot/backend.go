// Package snapshot persists the dashboard document to a pluggable key/value
// backend: local file, Redis, Postgres, or process memory.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/region-colorizer/internal/config"
)

// ErrNotFound is returned by Backend.Read when nothing is stored under the key.
var ErrNotFound = errors.New("snapshot not found")

// Backend stores opaque documents by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// NewBackend opens the backend selected by cfg.StorageBackend.
func NewBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageFile:
		logger.Info("snapshot backend: file", "dir", cfg.StorageDir)
		return NewFileBackend(cfg.StorageDir), nil
	case config.StorageRedis:
		logger.Info("snapshot backend: redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	case config.StoragePostgres:
		logger.Info("snapshot backend: postgres")
		return NewPostgresBackend(ctx, cfg.PostgresDSN)
	case config.StorageNone:
		logger.Info("snapshot backend: memory, state is not persisted")
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// MemoryBackend keeps documents in process memory.
type MemoryBackend struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{docs: make(map[string][]byte)}
}

func (m *MemoryBackend) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBackend) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
