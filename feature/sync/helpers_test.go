package sync

import (
	"context"
	"errors"
	"testing"

	"inventory-sync/core/database"
	"inventory-sync/core/reconcile"
	"inventory-sync/core/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSource struct {
	name        string
	err         error
	prefetchErr error
	prefetched  bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) AvailabilityZones(context.Context) ([]reconcile.AvailabilityZone, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []reconcile.AvailabilityZone{{Name: "nova", Hosts: []string{"cmp1"}}}, nil
}

func (f *fakeSource) Hypervisors(context.Context) ([]reconcile.Hypervisor, error) {
	return []reconcile.Hypervisor{{
		Name: "cmp1", ServiceHost: "cmp1", Status: "enabled",
		HypervisorType: "QEMU", HypervisorVersion: "6002000", HostIP: "10.0.0.11",
	}}, nil
}

func (f *fakeSource) Volumes(context.Context) ([]reconcile.Volume, error) {
	return []reconcile.Volume{{ID: "vol1", Size: 20}}, nil
}

func (f *fakeSource) Servers(context.Context) ([]reconcile.Server, error) {
	return []reconcile.Server{{
		ID: "6f1c", Name: "web01", Status: "ACTIVE", AvailabilityZone: "nova",
		Flavor:          reconcile.Flavor{OriginalName: "m1.small", RAM: 2048, VCPUs: 2},
		AttachedVolumes: []string{"vol1"},
		Networks: []reconcile.ServerNetwork{{
			Network:   "net1",
			Addresses: []reconcile.ServerAddress{{Addr: "10.0.0.50", Version: 4, MAC: "fa:16:3e:00:00:01"}},
		}},
	}}, nil
}

type prefetchingSource struct {
	fakeSource
}

func (p *prefetchingSource) Prefetch(context.Context) error {
	p.prefetched = true
	return p.prefetchErr
}

type failingServers struct {
	fakeSource
}

func (f *failingServers) Servers(context.Context) ([]reconcile.Server, error) {
	return nil, errors.New("servers unavailable")
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func disabled() *bool {
	b := false
	return &b
}

func testSources() []reconcile.SourceConfig {
	return []reconcile.SourceConfig{
		{Name: "os1", Type: reconcile.SourceTypeOpenStack},
		{Name: "broken", Type: reconcile.SourceTypeOpenStack},
		{Name: "off", Type: reconcile.SourceTypeOpenStack, Enabled: disabled()},
	}
}

func newTestService(t *testing.T, db *gorm.DB, client storage.Client, sources map[string]reconcile.Source) *Service {
	t.Helper()
	cfg := storage.Config{Bucket: "bucket", ReportPrefix: "reports/", KeepReports: 2}
	return NewService(db, client, cfg, testSources(), zap.NewNop()).
		WithSourceFactory(func(c reconcile.SourceConfig) (reconcile.Source, error) {
			return sources[c.Name], nil
		})
}
