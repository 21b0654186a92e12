package openstack

import (
	"context"
	"fmt"

	"inventory-sync/core/reconcile"
)

// Capture reads every collection of src into a Snapshot that a
// SnapshotSource can replay later.
func Capture(ctx context.Context, src reconcile.Source) (*Snapshot, error) {
	if p, ok := src.(Prefetcher); ok {
		if err := p.Prefetch(ctx); err != nil {
			return nil, fmt.Errorf("failed to prefetch %s: %w", src.Name(), err)
		}
	}

	var snap Snapshot
	var err error
	if snap.AvailabilityZones, err = src.AvailabilityZones(ctx); err != nil {
		return nil, fmt.Errorf("failed to read availability zones: %w", err)
	}
	if snap.Hypervisors, err = src.Hypervisors(ctx); err != nil {
		return nil, fmt.Errorf("failed to read hypervisors: %w", err)
	}
	if snap.Volumes, err = src.Volumes(ctx); err != nil {
		return nil, fmt.Errorf("failed to read volumes: %w", err)
	}
	if snap.Servers, err = src.Servers(ctx); err != nil {
		return nil, fmt.Errorf("failed to read servers: %w", err)
	}
	return &snap, nil
}
