package reconcile

import (
	"testing"

	"inventory-sync/core/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// committed returns an inventory whose objects are all persisted already.
func committed(build func(inv *inventory.Inventory)) *inventory.Inventory {
	inv := inventory.New()
	build(inv)
	inv.Commit()
	return inv
}

func TestArbiterAlwaysMovesPrimary(t *testing.T) {
	var a, b *inventory.Machine
	var ip *inventory.IPAddress
	inv := committed(func(inv *inventory.Inventory) {
		a = inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "a"})
		b = inv.CreateMachine(inventory.TypeVM, inventory.MachineData{Name: "b"})
		ip = inv.CreateIPAddress("10.0.0.1/24")
		inv.SetPrimaryIP(a, 4, ip)
	})

	arbiter := NewPrimaryIPArbiter(inv, PolicyAlways, zap.NewNop())
	assert.True(t, arbiter.Arbitrate(b, 4, ip))

	assert.False(t, a.PrimaryIP4.IsSet())
	assert.True(t, a.IsChanged())
	assert.True(t, b.PrimaryIP4.Refers(ip))
}

func TestArbiterAlwaysSkipsScanForNewAddress(t *testing.T) {
	inv := inventory.New()
	a := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "a"})
	b := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "b"})
	ip := inv.CreateIPAddress("10.0.0.1/24")
	a.PrimaryIP4 = inventory.IPRef{ID: &ip.ID, Address: ip.Address}

	arbiter := NewPrimaryIPArbiter(inv, PolicyAlways, zap.NewNop())
	require.True(t, ip.IsNew())
	assert.True(t, arbiter.Arbitrate(b, 4, ip))
	assert.True(t, a.PrimaryIP4.IsSet())
	assert.True(t, b.PrimaryIP4.Refers(ip))
}

func TestArbiterWhenUndefined(t *testing.T) {
	inv := inventory.New()
	m := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "a"})
	first := inv.CreateIPAddress("10.0.0.1/24")
	second := inv.CreateIPAddress("10.0.0.2/24")
	arbiter := NewPrimaryIPArbiter(inv, PolicyWhenUndefined, zap.NewNop())

	assert.True(t, arbiter.Arbitrate(m, 4, first))
	assert.False(t, arbiter.Arbitrate(m, 4, second))
	assert.True(t, m.PrimaryIP4.Refers(first))

	v6 := inv.CreateIPAddress("2001:db8::1/64")
	assert.True(t, arbiter.Arbitrate(m, 6, v6))
	assert.True(t, m.PrimaryIP6.Refers(v6))
}

func TestArbiterNever(t *testing.T) {
	inv := inventory.New()
	m := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "a"})
	ip := inv.CreateIPAddress("10.0.0.1/24")

	assert.False(t, NewPrimaryIPArbiter(inv, PolicyNever, zap.NewNop()).Arbitrate(m, 4, ip))
	assert.False(t, m.PrimaryIP4.IsSet())
}

func TestParsePrimaryIPPolicy(t *testing.T) {
	p, err := ParsePrimaryIPPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyWhenUndefined, p)

	p, err = ParsePrimaryIPPolicy("always")
	require.NoError(t, err)
	assert.Equal(t, PolicyAlways, p)

	_, err = ParsePrimaryIPPolicy("sometimes")
	assert.Error(t, err)
}
