package reconcile

import (
	"context"
	"fmt"
	"testing"

	"inventory-sync/core/inventory"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func compileSettings(t *testing.T, cfg SourceConfig) *Settings {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	s, err := cfg.Compile()
	require.NoError(t, err)
	return s
}

func mac(owner, n int) string {
	return fmt.Sprintf("02:00:00:00:%02x:%02x", owner, n)
}

// addDevice stores a device in site with one physical interface per MAC.
func addDevice(inv *inventory.Inventory, name, site string, macs ...string) *inventory.Machine {
	m := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: name, Site: site})
	for i, addr := range macs {
		inv.CreateInterface(m, inventory.InterfaceData{Name: fmt.Sprintf("eth%d", i), MACAddress: addr})
	}
	return m
}

// withIPAM returns an inventory holding prefixes and vlans in the given order.
func withIPAM(prefixes []*inventory.Prefix, vlans ...*inventory.VLAN) *inventory.Inventory {
	id := uint(1)
	for _, p := range prefixes {
		p.ID, id = id, id+1
	}
	for _, v := range vlans {
		if v.ID == 0 {
			v.ID, id = id, id+1
		}
	}
	return inventory.FromSnapshot(inventory.Snapshot{Prefixes: prefixes, VLANs: vlans})
}

// fakeSource serves fixed collections. A non-nil err for a phase fails that call.
type fakeSource struct {
	zones   []AvailabilityZone
	hosts   []Hypervisor
	volumes []Volume
	servers []Server
	errs    map[string]error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) AvailabilityZones(context.Context) ([]AvailabilityZone, error) {
	return f.zones, f.errs[PhaseClusters]
}

func (f *fakeSource) Hypervisors(context.Context) ([]Hypervisor, error) {
	return f.hosts, f.errs[PhaseHosts]
}

func (f *fakeSource) Volumes(context.Context) ([]Volume, error) {
	return f.volumes, f.errs[PhaseVolumes]
}

func (f *fakeSource) Servers(context.Context) ([]Server, error) {
	return f.servers, f.errs[PhaseServers]
}

func newTestOrchestrator(t *testing.T, cfg SourceConfig, inv *inventory.Inventory) *Orchestrator {
	t.Helper()
	return NewOrchestrator(compileSettings(t, cfg), inv, zap.NewNop())
}
