package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/region-colorizer/internal/store"
)

// StorageKey is the fixed key the dashboard document is stored under.
const StorageKey = "dashboard-storage"

// Repository saves and loads the store snapshot through a Backend.
type Repository struct {
	backend Backend
	logger  *slog.Logger
}

// NewRepository creates a repository over backend.
func NewRepository(backend Backend, logger *slog.Logger) *Repository {
	return &Repository{backend: backend, logger: logger}
}

// Save writes snap under StorageKey.
func (r *Repository) Save(ctx context.Context, snap store.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.backend.Write(ctx, StorageKey, data); err != nil {
		return err
	}
	r.logger.Debug("snapshot saved",
		"regions", len(snap.Regions), "data_sources", len(snap.DataSources), "rules", len(snap.ColorRules))
	return nil
}

// Load reads the stored snapshot. found is false when nothing has been
// saved yet.
func (r *Repository) Load(ctx context.Context) (snap store.Snapshot, found bool, err error) {
	data, err := r.backend.Read(ctx, StorageKey)
	if errors.Is(err, ErrNotFound) {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return store.Snapshot{}, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Close releases the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}
