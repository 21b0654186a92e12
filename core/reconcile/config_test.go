package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceConfigCompileDefaults(t *testing.T) {
	s, err := SourceConfig{Name: "os1"}.Compile()
	require.NoError(t, err)

	assert.Equal(t, "OpenStack", s.GroupName)
	assert.Equal(t, PolicyWhenUndefined, s.PrimaryIP)
	assert.Equal(t, DefaultMACMatchRatio, s.MACMatchRatio)
	assert.Equal(t, "OpenStack: os1", s.DefaultSiteName())
	assert.Equal(t, "Source: os1", s.SourceTag())
	assert.Len(t, s.Relations, 10)
	assert.True(t, s.HostFilter.Passes("anything"))
}

func TestSourceConfigCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  SourceConfig
	}{
		{"Missing name", SourceConfig{}},
		{"Unknown type", SourceConfig{Name: "x", Type: "vmware"}},
		{"Bad policy", SourceConfig{Name: "x", SetPrimaryIP: "sometimes"}},
		{"Bad filter", SourceConfig{Name: "x", VMIncludeFilter: "("}},
		{"Bad relation", SourceConfig{Name: "x", HostTagRelation: []RelationConfig{{ObjectRegex: "[", AssignedName: "t"}}}},
		{"Bad subnet", SourceConfig{Name: "x", PermittedSubnets: []string{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Compile()
			assert.Error(t, err)
		})
	}
}

func TestSourceConfigFlags(t *testing.T) {
	off := false
	assert.True(t, SourceConfig{}.IsEnabled())
	assert.False(t, SourceConfig{Enabled: &off}.IsEnabled())
	assert.True(t, SourceConfig{}.VerifyTLS())
	assert.False(t, SourceConfig{ValidateTLSCerts: &off}.VerifyTLS())
}
