package reconcile

import "inventory-sync/core/inventory"

// Store is the inventory a run reads and mutates. *inventory.Inventory
// satisfies it.
type Store interface {
	Site(name string) *inventory.Site
	EnsureSite(name string) *inventory.Site
	SetSiteComments(s *inventory.Site, comments string)
	EnsureTag(name, description string) *inventory.Tag
	Role(name string) *inventory.Role
	EnsureRole(name, color string, vmRole bool) *inventory.Role
	EnsureClusterGroup(name string) *inventory.ClusterGroup

	Clusters() []*inventory.Cluster
	CreateCluster(d inventory.ClusterData) *inventory.Cluster
	UpdateCluster(c *inventory.Cluster, d inventory.ClusterData) bool

	Machines(t inventory.ObjectType) []*inventory.Machine
	Tagged(t inventory.ObjectType, tag string) []*inventory.Machine
	CreateMachine(t inventory.ObjectType, d inventory.MachineData) *inventory.Machine
	UpdateMachine(m *inventory.Machine, d inventory.MachineData) bool
	SetRole(m *inventory.Machine, role string)
	SetPrimaryIP(m *inventory.Machine, version int, ip *inventory.IPAddress)
	UnsetPrimaryIP(m *inventory.Machine, version int)

	Interfaces(kind inventory.InterfaceKind) []*inventory.Interface
	Interface(id uint) *inventory.Interface
	MachineInterfaces(m *inventory.Machine) []*inventory.Interface
	Owner(i *inventory.Interface) *inventory.Machine
	CreateInterface(m *inventory.Machine, d inventory.InterfaceData) *inventory.Interface
	UpdateInterface(i *inventory.Interface, d inventory.InterfaceData) bool

	IPAddress(id uint) *inventory.IPAddress
	FindIPAddresses(host string) []*inventory.IPAddress
	CreateIPAddress(address string) *inventory.IPAddress
	UpdateIPAddress(ip *inventory.IPAddress, d inventory.IPAddressData) bool

	Prefixes() []*inventory.Prefix
	VLAN(id uint) *inventory.VLAN
}

var _ Store = (*inventory.Inventory)(nil)
