package reconcile

import (
	"context"
	"errors"
	"testing"

	"inventory-sync/core/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func findMachine(inv *inventory.Inventory, t inventory.ObjectType, name string) *inventory.Machine {
	for _, m := range inv.Machines(t) {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func TestRunFullSource(t *testing.T) {
	inv := withIPAM([]*inventory.Prefix{{Prefix: "10.0.0.0/24", VRF: "prod", Tenant: "t1"}})

	src := &fakeSource{
		zones: []AvailabilityZone{
			{Name: "nova", Hosts: []string{"cmp1", "cmp2"}},
			{Name: "excluded-az", Hosts: []string{"cmp3"}},
		},
		hosts: []Hypervisor{
			{Name: "cmp1.example.com", ServiceHost: "cmp1", Status: "enabled", HypervisorType: "QEMU", HypervisorVersion: "6002000", HostIP: "10.0.0.11"},
			{Name: "cmp1.example.org", ServiceHost: "cmp2", Status: "disabled", HostIP: "10.0.0.12"},
			{Name: "cmp3", ServiceHost: "cmp3", Status: "enabled", HostIP: "10.0.0.13"},
		},
		volumes: []Volume{{ID: "vol1", Size: 20}, {ID: "vol2", Size: 30}},
		servers: []Server{{
			ID:               "6f1c",
			Name:             "web01.example.com",
			Status:           "ACTIVE",
			AvailabilityZone: "nova",
			Flavor:           Flavor{OriginalName: "m1.small", RAM: 2048, VCPUs: 0},
			AttachedVolumes:  []string{"vol1", "vol2"},
			Networks: []ServerNetwork{{
				Network: "net1",
				Addresses: []ServerAddress{
					{Addr: "10.0.0.50", Version: 4, MAC: "FA:16:3E:00:00:01"},
					{Addr: "2001:db8::50", Version: 6, MAC: "FA:16:3E:00:00:01"},
				},
			}},
		}},
	}

	o := newTestOrchestrator(t, SourceConfig{
		Name:                 "os1",
		AuthURL:              "https://keystone.example.com/v3",
		StripHostDomainName:  true,
		StripVMDomainName:    true,
		ClusterExcludeFilter: "excluded",
	}, inv)

	report, err := o.Run(context.Background(), src)
	require.NoError(t, err)
	require.NotEmpty(t, report.ID)
	assert.Equal(t, "os1", report.Source)

	assert.Equal(t, 1, report.Summary.Clusters)
	assert.Equal(t, 2, report.Summary.Created)
	assert.Equal(t, 0, report.Summary.Updated)
	assert.Equal(t, 3, report.Summary.Skipped)
	assert.Equal(t, 1, report.Summary.Errors)
	assert.Equal(t, 2, report.Summary.Volumes)
	assert.Equal(t, 1, report.Summary.Devices)
	assert.Equal(t, 1, report.Summary.VirtualMachines)

	t.Run("Host", func(t *testing.T) {
		hosts := inv.Machines(inventory.TypeDevice)
		require.Len(t, hosts, 1)
		h := hosts[0]
		assert.Equal(t, "cmp1", h.Name)
		assert.Equal(t, inventory.StatusActive, h.Status)
		assert.Equal(t, "QEMU 6002000", h.Platform)
		assert.Equal(t, "OpenStack: os1", h.Site)
		assert.Equal(t, "Server", h.Role)
		assert.Equal(t, "Generic Vendor", h.Manufacturer)
		assert.True(t, h.Tags.Has("Source: os1"))

		ifaces := inv.MachineInterfaces(h)
		require.Len(t, ifaces, 1)
		assert.Equal(t, "eth0", ifaces[0].Name)
		assert.Equal(t, "10gbase-t", ifaces[0].Type)

		ip := inv.IPAddress(*h.PrimaryIP4.ID)
		require.NotNil(t, ip)
		assert.Equal(t, "10.0.0.11/24", ip.Address)
		assert.Equal(t, "prod", ip.VRF)
	})

	t.Run("Virtual machine", func(t *testing.T) {
		vm := findMachine(inv, inventory.TypeVM, "web01")
		require.NotNil(t, vm)
		assert.Equal(t, 2048, vm.Memory)
		assert.Equal(t, 1, vm.VCPUs)
		assert.Equal(t, 50, vm.Disk)
		assert.Equal(t, "m1.small", vm.Platform)
		assert.Equal(t, "6f1c", vm.Comments)
		assert.Empty(t, vm.Role)

		ifaces := inv.MachineInterfaces(vm)
		require.Len(t, ifaces, 1)
		assert.Equal(t, "vNIC1 (net1)", ifaces[0].Name)
		assert.Equal(t, "fa:16:3e:00:00:01", ifaces[0].MACAddress)

		v4 := inv.IPAddress(*vm.PrimaryIP4.ID)
		v6 := inv.IPAddress(*vm.PrimaryIP6.ID)
		assert.Equal(t, "10.0.0.50/24", v4.Address)
		assert.Equal(t, "t1", v4.Tenant)
		assert.Equal(t, "2001:db8::50/128", v6.Address)
	})

	t.Run("Basic data", func(t *testing.T) {
		role := inv.Role("Server")
		require.NotNil(t, role)
		assert.True(t, role.VMRole)
		assert.Equal(t, "9e9e9e", role.Color)

		site := inv.Site("OpenStack: os1")
		require.NotNil(t, site)
		assert.NotEmpty(t, site.Comments)

		tag := inv.EnsureTag("Source: os1", "")
		assert.Contains(t, tag.Description, "https://keystone.example.com/v3")
	})
}

func TestRunDuplicateHostName(t *testing.T) {
	inv := inventory.New()
	core, logs := observer.New(zap.WarnLevel)
	o := NewOrchestrator(compileSettings(t, SourceConfig{Name: "os1", StripHostDomainName: true}), inv, zap.New(core))

	src := &fakeSource{
		zones: []AvailabilityZone{{Name: "nova", Hosts: []string{"a", "b"}}},
		hosts: []Hypervisor{
			{Name: "dup.one", ServiceHost: "a", Status: "enabled", HostIP: "10.0.0.1"},
			{Name: "dup.two", ServiceHost: "b", Status: "disabled", HostIP: "10.0.0.2"},
		},
	}
	report, err := o.Run(context.Background(), src)
	require.NoError(t, err)

	hosts := inv.Machines(inventory.TypeDevice)
	require.Len(t, hosts, 1)
	assert.Equal(t, inventory.StatusActive, hosts[0].Status)
	assert.Len(t, inv.IPAddresses(), 1)

	last := report.Results[len(report.Results)-1]
	assert.Equal(t, ActionSkipped, last.Action)
	assert.Contains(t, last.Reason, ErrDuplicateName.Error())
	assert.Equal(t, 1, logs.FilterMessageSnippet("names must be unique").Len())
}

func TestRunSourceFailureKeepsAppliedChanges(t *testing.T) {
	inv := inventory.New()
	o := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv)
	src := &fakeSource{
		zones: []AvailabilityZone{{Name: "nova", Hosts: []string{"h1"}}},
		hosts: []Hypervisor{{Name: "h1", ServiceHost: "h1", HostIP: "10.0.0.1"}},
		errs:  map[string]error{PhaseServers: errors.New("connection refused")},
	}

	report, err := o.Run(context.Background(), src)
	require.Error(t, err)

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, PhaseServers, srcErr.Phase)
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.Contains(t, report.Error, "connection refused")
	assert.Len(t, inv.Machines(inventory.TypeDevice), 1)
}

func TestReconcileMachineMatchesByMAC(t *testing.T) {
	inv := inventory.New()
	existing := addDevice(inv, "old-name", "dc1", "aa:bb:cc:dd:ee:ff")
	addDevice(inv, "bystander", "dc1", "aa:bb:cc:dd:ee:00")
	inv.Commit()
	o := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv)

	res := EntityResult{}
	m := o.reconcileMachine(inventory.TypeDevice,
		inventory.MachineData{Name: "host1", Site: "dc1"},
		[]declaredInterface{{data: inventory.InterfaceData{Name: "enp1s0", MACAddress: "aa:bb:cc:dd:ee:ff", Enabled: true}}},
		"", "", &res)

	assert.Same(t, existing, m)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, MatchMAC, res.MatchedBy)
	assert.Len(t, inv.Machines(inventory.TypeDevice), 2)
	assert.Equal(t, "host1", existing.Name)
	assert.True(t, existing.IsChanged())

	ifaces := inv.MachineInterfaces(existing)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "enp1s0", ifaces[0].Name)
}

func TestRunVMMatchedByMAC(t *testing.T) {
	inv := inventory.New()
	cluster := inv.CreateCluster(inventory.ClusterData{Name: "nova", Site: "OpenStack: os1"})
	old := inv.CreateMachine(inventory.TypeVM, inventory.MachineData{Name: "old", ClusterID: &cluster.ID})
	inv.CreateInterface(old, inventory.InterfaceData{Name: "vNIC1 (net1)", MACAddress: "fa:16:3e:00:00:09"})
	inv.Commit()

	o := newTestOrchestrator(t, SourceConfig{Name: "os1", SetPrimaryIP: "always"}, inv)
	report, err := o.Run(context.Background(), &fakeSource{
		zones: []AvailabilityZone{{Name: "nova"}},
		servers: []Server{{
			ID: "abc", Name: "renamed", Status: "SHUTOFF", AvailabilityZone: "nova",
			Networks: []ServerNetwork{{Network: "net1", Addresses: []ServerAddress{{Addr: "192.0.2.9", Version: 4, MAC: "fa:16:3e:00:00:09"}}}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, inv.Machines(inventory.TypeVM), 1)
	assert.Equal(t, "renamed", old.Name)
	assert.Equal(t, inventory.StatusOffline, old.Status)
	assert.Len(t, inv.Clusters(), 1)

	last := report.Results[len(report.Results)-1]
	assert.Equal(t, ActionUpdated, last.Action)
	assert.Equal(t, MatchMAC, last.MatchedBy)
}

func TestRunVMNameToUUID(t *testing.T) {
	inv := inventory.New()
	o := newTestOrchestrator(t, SourceConfig{Name: "os1", SetVMNameToUUID: true, SkipVMPlatform: true}, inv)
	_, err := o.Run(context.Background(), &fakeSource{
		zones:   []AvailabilityZone{{Name: "nova"}},
		servers: []Server{{ID: "uuid-1", Name: "db01", Status: "ACTIVE", AvailabilityZone: "nova", Flavor: Flavor{OriginalName: "m1", VCPUs: 2}}},
	})
	require.NoError(t, err)

	vm := findMachine(inv, inventory.TypeVM, "uuid-1")
	require.NotNil(t, vm)
	assert.Equal(t, "db01", vm.CustomFields["openstack_vm_name"])
	assert.Empty(t, vm.Comments)
	assert.Empty(t, vm.Platform)
	assert.Equal(t, 2, vm.VCPUs)
}

func TestRunVMPermittedClusterAndAddresses(t *testing.T) {
	inv := inventory.New()
	o := newTestOrchestrator(t, SourceConfig{
		Name:             "os1",
		PermittedSubnets: []string{"10.0.0.0/8"},
		VMPlatformRelation: []RelationConfig{
			{ObjectRegex: "m1\\.", AssignedName: "Linux"},
		},
	}, inv)
	report, err := o.Run(context.Background(), &fakeSource{
		zones: []AvailabilityZone{{Name: "nova"}},
		servers: []Server{
			{ID: "1", Name: "outside", AvailabilityZone: "other"},
			{ID: "2", Name: "inside", AvailabilityZone: "nova", Flavor: Flavor{OriginalName: "m1.large"},
				Networks: []ServerNetwork{{Network: "pub%20net", Addresses: []ServerAddress{
					{Addr: "10.1.1.1", Version: 4},
					{Addr: "203.0.113.5", Version: 4},
					{Addr: "bogus", Version: 4},
				}}}},
		},
	})
	require.NoError(t, err)

	require.Nil(t, findMachine(inv, inventory.TypeVM, "outside"))
	vm := findMachine(inv, inventory.TypeVM, "inside")
	require.NotNil(t, vm)
	assert.Equal(t, "Linux", vm.Platform)

	ifaces := inv.MachineInterfaces(vm)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "vNIC1 (pub net)", ifaces[0].Name)
	ips := inv.InterfaceIPs(ifaces[0].ID)
	require.Len(t, ips, 1)
	assert.Equal(t, "10.1.1.1/32", ips[0].Address)
	assert.False(t, vm.PrimaryIP4.IsSet())

	last := report.Results[len(report.Results)-1]
	require.Len(t, last.Warnings, 1)
	assert.Contains(t, last.Warnings[0], ErrInvalidAddress.Error())
}

func TestSelectClusterTieBreak(t *testing.T) {
	inv := inventory.New()
	inv.CreateCluster(inventory.ClusterData{Name: "nova", Site: "elsewhere"})
	byGroup := inv.CreateCluster(inventory.ClusterData{Name: "nova", Group: "OpenStack"})
	inv.CreateCluster(inventory.ClusterData{Name: "other", Site: "OpenStack: os1"})
	o := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv)

	assert.Same(t, byGroup, o.selectCluster("nova", "OpenStack: os1", ""))

	inv2 := inventory.New()
	first := inv2.CreateCluster(inventory.ClusterData{Name: "nova", Site: "x"})
	inv2.CreateCluster(inventory.ClusterData{Name: "nova", Site: "y"})
	o2 := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv2)
	assert.Same(t, first, o2.selectCluster("nova", "z", ""))

	o2.AddCluster(AvailabilityZone{Name: "nova"})
	assert.Equal(t, "OpenStack: os1", first.Site)
	assert.Equal(t, "Openstack", first.Type)
}

func TestSiteName(t *testing.T) {
	o := newTestOrchestrator(t, SourceConfig{
		Name:                "os1",
		ClusterSiteRelation: []RelationConfig{{ObjectRegex: "nova", AssignedName: "dc-nova"}},
		HostSiteRelation:    []RelationConfig{{ObjectRegex: "special", AssignedName: "dc-special"}},
	}, inventory.New())

	assert.Equal(t, "dc-nova", o.SiteName(objectCluster, "nova", ""))
	assert.Equal(t, "OpenStack: os1", o.SiteName(objectCluster, "zone2", ""))
	assert.Equal(t, "dc-special", o.SiteName(string(inventory.TypeDevice), "special-1", "nova"))
	assert.Equal(t, "dc-nova", o.SiteName(string(inventory.TypeDevice), "cmp1", "nova"))
	assert.Equal(t, "OpenStack: os1", o.SiteName(string(inventory.TypeDevice), "cmp1", "zone2"))
}

func TestRunHostTakesPrimaryAddressFromPreviousOwner(t *testing.T) {
	inv := inventory.New()
	old := addDevice(inv, "old", "dc1", mac(1, 0))
	oldIface := inv.MachineInterfaces(old)[0]
	ip := inv.CreateIPAddress("10.0.0.11/32")
	inv.UpdateIPAddress(ip, inventory.IPAddressData{InterfaceID: &oldIface.ID})
	inv.SetPrimaryIP(old, 4, ip)
	host := inv.CreateMachine(inventory.TypeDevice, inventory.MachineData{Name: "cmp1", Site: "OpenStack: os1"})
	inv.Commit()

	core, logs := observer.New(zap.InfoLevel)
	o := NewOrchestrator(compileSettings(t, SourceConfig{Name: "os1", SetPrimaryIP: "always"}), inv, zap.New(core))
	_, err := o.Run(context.Background(), &fakeSource{
		zones: []AvailabilityZone{{Name: "nova", Hosts: []string{"cmp1"}}},
		hosts: []Hypervisor{{Name: "cmp1", ServiceHost: "cmp1", Status: "enabled", HostIP: "10.0.0.11"}},
	})
	require.NoError(t, err)

	require.Len(t, inv.Machines(inventory.TypeDevice), 2)
	records := inv.FindIPAddresses("10.0.0.11")
	require.Len(t, records, 1)
	assert.Same(t, ip, records[0])

	ifaces := inv.MachineInterfaces(host)
	require.Len(t, ifaces, 1)
	assert.True(t, ip.AssignedTo(ifaces[0].ID))
	assert.True(t, host.PrimaryIP(4).Refers(ip))
	assert.False(t, old.PrimaryIP(4).IsSet())
	assert.True(t, old.IsChanged())

	moved := logs.FilterMessage("Moving address to new interface").All()
	require.Len(t, moved, 1)
	assert.Equal(t, "old (dc1)", moved[0].ContextMap()["previous_owner"])
	assert.Equal(t, 1, logs.FilterMessage("Removing primary address from previous owner").Len())
}

func TestRunAddressTenantFromVLAN(t *testing.T) {
	vlanID := uint(100)
	inv := withIPAM(
		[]*inventory.Prefix{{Prefix: "10.1.0.0/24", VRF: "edge", VLANID: &vlanID}},
		&inventory.VLAN{Record: inventory.Record{ID: vlanID}, VID: 20, Tenant: "blue"},
	)
	o := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv)
	_, err := o.Run(context.Background(), &fakeSource{
		zones: []AvailabilityZone{{Name: "nova"}},
		servers: []Server{{
			ID: "s1", Name: "app", Status: "ACTIVE", AvailabilityZone: "nova",
			Networks: []ServerNetwork{{Network: "net1", Addresses: []ServerAddress{{Addr: "10.1.0.7", Version: 4, MAC: "fa:16:3e:00:00:07"}}}},
		}},
	})
	require.NoError(t, err)

	records := inv.FindIPAddresses("10.1.0.7")
	require.Len(t, records, 1)
	assert.Equal(t, "10.1.0.7/24", records[0].Address)
	assert.Equal(t, "edge", records[0].VRF)
	assert.Equal(t, "blue", records[0].Tenant)
}

func TestRunRelationRolesCarryVMFlag(t *testing.T) {
	inv := inventory.New()
	o := newTestOrchestrator(t, SourceConfig{
		Name:             "os1",
		HostRoleRelation: []RelationConfig{{ObjectRegex: "cmp", AssignedName: "Compute"}},
		VMRoleRelation:   []RelationConfig{{ObjectRegex: "db", AssignedName: "Database"}},
	}, inv)
	_, err := o.Run(context.Background(), &fakeSource{
		zones:   []AvailabilityZone{{Name: "nova", Hosts: []string{"cmp1"}}},
		hosts:   []Hypervisor{{Name: "cmp1", ServiceHost: "cmp1", Status: "enabled", HostIP: "10.0.0.11"}},
		servers: []Server{{ID: "s1", Name: "db01", Status: "ACTIVE", AvailabilityZone: "nova"}},
	})
	require.NoError(t, err)

	vm := findMachine(inv, inventory.TypeVM, "db01")
	require.NotNil(t, vm)
	assert.Equal(t, "Database", vm.Role)
	database := inv.Role("Database")
	require.NotNil(t, database)
	assert.True(t, database.VMRole)

	compute := inv.Role("Compute")
	require.NotNil(t, compute)
	assert.False(t, compute.VMRole)
}

func TestRunHostMatchedByMAC(t *testing.T) {
	inv := inventory.New()
	existing := addDevice(inv, "legacy-name", "dc1", "aa:bb:cc:dd:ee:ff")
	addDevice(inv, "bystander", "dc1", "aa:bb:cc:dd:ee:00")
	inv.Commit()

	o := newTestOrchestrator(t, SourceConfig{Name: "os1"}, inv)
	report, err := o.Run(context.Background(), &fakeSource{
		zones: []AvailabilityZone{{Name: "nova", Hosts: []string{"cmp1"}}},
		hosts: []Hypervisor{{Name: "cmp1", ServiceHost: "cmp1", Status: "enabled", HostIP: "10.0.0.11", MAC: "AA-BB-CC-DD-EE-FF"}},
	})
	require.NoError(t, err)

	assert.Len(t, inv.Machines(inventory.TypeDevice), 2)
	assert.Equal(t, "cmp1", existing.Name)
	assert.Equal(t, 0, report.Summary.Created)
	assert.Equal(t, 1, report.Summary.Updated)

	last := report.Results[len(report.Results)-1]
	assert.Equal(t, ActionUpdated, last.Action)
	assert.Equal(t, MatchMAC, last.MatchedBy)

	ifaces := inv.MachineInterfaces(existing)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "eth0", ifaces[0].Name)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", ifaces[0].MACAddress)
}
