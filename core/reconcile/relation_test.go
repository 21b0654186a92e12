package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newResolver(t *testing.T, relation string, rules ...RelationConfig) (*RelationResolver, *observer.ObservedLogs) {
	t.Helper()
	table, err := NewRelationTable(relation, rules)
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	return NewRelationResolver(map[string]RelationTable{relation: table}, zap.New(core)), logs
}

func TestRelationTagFanOut(t *testing.T) {
	r, _ := newResolver(t, RelationVMTag,
		RelationConfig{ObjectRegex: "web", AssignedName: "frontend"},
		RelationConfig{ObjectRegex: ".*01$", AssignedName: "primary"},
		RelationConfig{ObjectRegex: "db", AssignedName: "database"},
	)

	assert.Equal(t, []string{"frontend", "primary"}, r.Tags("web01", RelationVMTag))
	assert.Equal(t, []string{"frontend", "primary"}, r.Resolve("web01", RelationVMTag, ""))
	assert.Empty(t, r.Tags("cache", RelationVMTag))
}

func TestRelationFirstMatchWins(t *testing.T) {
	r, logs := newResolver(t, RelationHostTenant,
		RelationConfig{ObjectRegex: "compute", AssignedName: "tenant-a"},
		RelationConfig{ObjectRegex: "compute-1", AssignedName: "tenant-b"},
	)

	assert.Equal(t, "tenant-a", r.Value("compute-1", RelationHostTenant, "fallback"))
	require.Equal(t, 1, logs.FilterMessage("Several relation rules matched, using first").Len())
	entry := logs.All()[0]
	assert.Equal(t, "tenant-a", entry.ContextMap()["value"])

	assert.Equal(t, "fallback", r.Value("storage-1", RelationHostTenant, "fallback"))
	assert.Equal(t, []string{"fallback"}, r.Resolve("storage-1", RelationHostTenant, "fallback"))
	assert.Nil(t, r.Resolve("storage-1", RelationHostTenant, ""))
}

func TestRelationClusterStripping(t *testing.T) {
	r, _ := newResolver(t, RelationClusterSite,
		RelationConfig{ObjectRegex: "zone-a", AssignedName: "site-a"},
		RelationConfig{ObjectRegex: "region-1/zone-b", AssignedName: "site-b"},
	)

	t.Run("Full name matches", func(t *testing.T) {
		assert.Equal(t, "site-b", r.Value("region-1/zone-b", RelationClusterSite, ""))
	})
	t.Run("Stripped name matches", func(t *testing.T) {
		assert.Equal(t, "site-a", r.Value("region-2/zone-a", RelationClusterSite, ""))
	})
	t.Run("No hierarchy", func(t *testing.T) {
		assert.Equal(t, "", r.Value("zone-c", RelationClusterSite, ""))
	})
}

func TestRelationStrippingOnlyForClusters(t *testing.T) {
	r, _ := newResolver(t, RelationHostSite,
		RelationConfig{ObjectRegex: "zone-a", AssignedName: "site-a"},
	)
	assert.Equal(t, "", r.Value("region-2/zone-a", RelationHostSite, ""))
}

func TestRelationTableValidation(t *testing.T) {
	_, err := NewRelationTable(RelationVMRole, []RelationConfig{{ObjectRegex: "(", AssignedName: "x"}})
	assert.Error(t, err)

	_, err = NewRelationTable(RelationVMRole, []RelationConfig{{ObjectRegex: "x"}})
	assert.Error(t, err)
}
