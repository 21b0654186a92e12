package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubnetPolicy(t *testing.T) {
	p, err := NewSubnetPolicy([]string{"10.0.0.0/8", "!10.99.0.0/16", "fd00::/8", " "})
	require.NoError(t, err)

	tests := []struct {
		address string
		want    bool
	}{
		{"10.1.2.3/24", true},
		{"10.99.1.1/24", false},
		{"192.168.1.1", false},
		{"fd00::10/64", true},
		{"not-an-address", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Permitted(tt.address, "eth0"))
		})
	}
}

func TestSubnetPolicyOnlyExcludes(t *testing.T) {
	p, err := NewSubnetPolicy([]string{"!169.254.0.0/16"})
	require.NoError(t, err)
	assert.True(t, p.Permitted("192.0.2.1/24", "eth0"))
	assert.False(t, p.Permitted("169.254.3.4/16", "eth0"))

	var none *SubnetPolicy
	assert.True(t, none.Permitted("192.0.2.1", "eth0"))
}

func TestSubnetPolicyInvalid(t *testing.T) {
	_, err := NewSubnetPolicy([]string{"10.0.0.0/33"})
	assert.Error(t, err)
}

func TestSubnetPolicyPrefixes(t *testing.T) {
	p, err := NewSubnetPolicy([]string{"10.0.0.0/24", "10.0.1.0/24", "!10.0.1.128/25"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/25"}, p.Prefixes())

	all, err := NewSubnetPolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.0.0/0", "::/0"}, all.Prefixes())
	assert.True(t, all.Permitted("2001:db8::1/64", "eth0"))
}
