package openstack

import (
	"context"
	"fmt"
	"sync"

	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"
)

// Snapshot is a captured state of an OpenStack installation as stored in
// object storage.
type Snapshot struct {
	AvailabilityZones []reconcile.AvailabilityZone `json:"availability_zones"`
	Hypervisors       []reconcile.Hypervisor       `json:"hypervisors"`
	Volumes           []reconcile.Volume           `json:"volumes"`
	Servers           []reconcile.Server           `json:"servers"`
}

// SnapshotSource serves a Snapshot object as a reconcile.Source. The object
// is read once per source instance.
type SnapshotSource struct {
	name   string
	client storage.Client
	bucket string
	key    string

	once sync.Once
	data Snapshot
	err  error
}

// NewSnapshotSource creates a source reading key from bucket.
func NewSnapshotSource(name string, client storage.Client, bucket, key string) *SnapshotSource {
	return &SnapshotSource{name: name, client: client, bucket: bucket, key: key}
}

// Name returns the configured source name.
func (s *SnapshotSource) Name() string {
	return s.name
}

func (s *SnapshotSource) load(ctx context.Context) (*Snapshot, error) {
	s.once.Do(func() {
		if err := storage.GetJSON(ctx, s.client, s.bucket, s.key, &s.data); err != nil {
			s.err = fmt.Errorf("snapshot %s: %w", s.key, err)
		}
	})
	if s.err != nil {
		return nil, s.err
	}
	return &s.data, nil
}

// Prefetch reads the snapshot object.
func (s *SnapshotSource) Prefetch(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// AvailabilityZones implements reconcile.Source.
func (s *SnapshotSource) AvailabilityZones(ctx context.Context) ([]reconcile.AvailabilityZone, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return data.AvailabilityZones, nil
}

// Hypervisors implements reconcile.Source.
func (s *SnapshotSource) Hypervisors(ctx context.Context) ([]reconcile.Hypervisor, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return data.Hypervisors, nil
}

// Volumes implements reconcile.Source.
func (s *SnapshotSource) Volumes(ctx context.Context) ([]reconcile.Volume, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return data.Volumes, nil
}

// Servers implements reconcile.Source.
func (s *SnapshotSource) Servers(ctx context.Context) ([]reconcile.Server, error) {
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return data.Servers, nil
}
