package openstack

import (
	"context"
	"fmt"

	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"

	"go.uber.org/zap"
)

var (
	_ reconcile.Source = (*Client)(nil)
	_ reconcile.Source = (*SnapshotSource)(nil)
)

// Prefetcher is implemented by sources that can read all collections ahead
// of the reconciliation phases.
type Prefetcher interface {
	Prefetch(ctx context.Context) error
}

// NewSource builds the source described by cfg. Snapshot sources read from
// bucket through store.
func NewSource(cfg reconcile.SourceConfig, store storage.Client, bucket string, log *zap.Logger) (reconcile.Source, error) {
	switch cfg.Type {
	case reconcile.SourceTypeOpenStack, "":
		client, err := NewClient(cfg, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case reconcile.SourceTypeSnapshot:
		if cfg.SnapshotObject == "" {
			return nil, fmt.Errorf("source %s: snapshot_object is required", cfg.Name)
		}
		if store == nil {
			return nil, fmt.Errorf("source %s: object storage is not configured", cfg.Name)
		}
		return NewSnapshotSource(cfg.Name, store, bucket, cfg.SnapshotObject), nil
	default:
		return nil, fmt.Errorf("source %s: unknown type %q", cfg.Name, cfg.Type)
	}
}
