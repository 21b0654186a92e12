package inventory

import "slices"

// Snapshot is the serialisable content of an Inventory, in load order.
type Snapshot struct {
	Sites         []*Site         `json:"sites"`
	Tags          []*Tag          `json:"tags"`
	Roles         []*Role         `json:"roles"`
	ClusterGroups []*ClusterGroup `json:"cluster_groups"`
	Clusters      []*Cluster      `json:"clusters"`
	Machines      []*Machine      `json:"machines"`
	Interfaces    []*Interface    `json:"interfaces"`
	IPAddresses   []*IPAddress    `json:"ip_addresses"`
	VLANs         []*VLAN         `json:"vlans"`
	Prefixes      []*Prefix       `json:"prefixes"`
}

// Inventory is the in-memory view of all managed objects. It is not safe for
// concurrent use; callers serialise runs against one inventory.
type Inventory struct {
	data   Snapshot
	nextID uint
}

// New returns an empty inventory.
func New() *Inventory {
	return FromSnapshot(Snapshot{})
}

// FromSnapshot builds an inventory around previously stored objects.
func FromSnapshot(s Snapshot) *Inventory {
	inv := &Inventory{data: s, nextID: 1}
	inv.eachRecord(func(r *Record) {
		if r.ID >= inv.nextID {
			inv.nextID = r.ID + 1
		}
	})
	return inv
}

// Snapshot returns the current content.
func (inv *Inventory) Snapshot() Snapshot {
	return inv.data
}

// Pending counts created and changed objects.
func (inv *Inventory) Pending() (created, changed int) {
	inv.eachRecord(func(r *Record) {
		switch {
		case r.IsNew():
			created++
		case r.IsChanged():
			changed++
		}
	})
	return created, changed
}

// Commit clears the change state after the content has been persisted.
func (inv *Inventory) Commit() {
	inv.eachRecord(func(r *Record) { r.clearState() })
}

func (inv *Inventory) eachRecord(fn func(r *Record)) {
	d := &inv.data
	for _, o := range d.Sites {
		fn(&o.Record)
	}
	for _, o := range d.Tags {
		fn(&o.Record)
	}
	for _, o := range d.Roles {
		fn(&o.Record)
	}
	for _, o := range d.ClusterGroups {
		fn(&o.Record)
	}
	for _, o := range d.Clusters {
		fn(&o.Record)
	}
	for _, o := range d.Machines {
		fn(&o.Record)
	}
	for _, o := range d.Interfaces {
		fn(&o.Record)
	}
	for _, o := range d.IPAddresses {
		fn(&o.Record)
	}
	for _, o := range d.VLANs {
		fn(&o.Record)
	}
	for _, o := range d.Prefixes {
		fn(&o.Record)
	}
}

func (inv *Inventory) create(r *Record) {
	r.ID = inv.nextID
	inv.nextID++
	r.markCreated()
}

// Site returns the site with the given name, or nil.
func (inv *Inventory) Site(name string) *Site {
	for _, s := range inv.data.Sites {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// EnsureSite returns the named site, creating it when missing.
func (inv *Inventory) EnsureSite(name string) *Site {
	if s := inv.Site(name); s != nil {
		return s
	}
	s := &Site{Name: name}
	inv.create(&s.Record)
	inv.data.Sites = append(inv.data.Sites, s)
	return s
}

// SetSiteComments updates the comments of a site.
func (inv *Inventory) SetSiteComments(s *Site, comments string) {
	if setString(&s.Comments, comments) {
		s.markChanged()
	}
}

// EnsureTag returns the named tag, creating it with the description when missing.
func (inv *Inventory) EnsureTag(name, description string) *Tag {
	for _, t := range inv.data.Tags {
		if t.Name == name {
			if setString(&t.Description, description) {
				t.markChanged()
			}
			return t
		}
	}
	t := &Tag{Name: name, Description: description}
	inv.create(&t.Record)
	inv.data.Tags = append(inv.data.Tags, t)
	return t
}

// Role returns the role with the given name, or nil.
func (inv *Inventory) Role(name string) *Role {
	for _, r := range inv.data.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// EnsureRole returns the named role, creating it when missing. An existing
// role is updated to the given colour and vm flag.
func (inv *Inventory) EnsureRole(name, color string, vmRole bool) *Role {
	for _, r := range inv.data.Roles {
		if r.Name == name {
			changed := setString(&r.Color, color)
			if vmRole && !r.VMRole {
				r.VMRole = true
				changed = true
			}
			if changed {
				r.markChanged()
			}
			return r
		}
	}
	r := &Role{Name: name, Color: color, VMRole: vmRole}
	inv.create(&r.Record)
	inv.data.Roles = append(inv.data.Roles, r)
	return r
}

// EnsureClusterGroup returns the named cluster group, creating it when missing.
func (inv *Inventory) EnsureClusterGroup(name string) *ClusterGroup {
	for _, g := range inv.data.ClusterGroups {
		if g.Name == name {
			return g
		}
	}
	g := &ClusterGroup{Name: name}
	inv.create(&g.Record)
	inv.data.ClusterGroups = append(inv.data.ClusterGroups, g)
	return g
}

// Clusters returns all clusters.
func (inv *Inventory) Clusters() []*Cluster {
	return inv.data.Clusters
}

// CreateCluster stores a new cluster.
func (inv *Inventory) CreateCluster(d ClusterData) *Cluster {
	c := &Cluster{}
	c.apply(d)
	inv.create(&c.Record)
	inv.data.Clusters = append(inv.data.Clusters, c)
	return c
}

// UpdateCluster applies d to c and reports whether anything changed.
func (inv *Inventory) UpdateCluster(c *Cluster, d ClusterData) bool {
	if !c.apply(d) {
		return false
	}
	c.markChanged()
	return true
}

// Machines returns all managed objects of the given type.
func (inv *Inventory) Machines(t ObjectType) []*Machine {
	var out []*Machine
	for _, m := range inv.data.Machines {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// Machine returns the managed object with the given id, or nil.
func (inv *Inventory) Machine(id uint) *Machine {
	for _, m := range inv.data.Machines {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// CreateMachine stores a new managed object of type t.
func (inv *Inventory) CreateMachine(t ObjectType, d MachineData) *Machine {
	m := &Machine{Type: t}
	m.apply(d)
	inv.create(&m.Record)
	inv.data.Machines = append(inv.data.Machines, m)
	return m
}

// UpdateMachine applies d to m and reports whether anything changed.
func (inv *Inventory) UpdateMachine(m *Machine, d MachineData) bool {
	if !m.apply(d) {
		return false
	}
	m.markChanged()
	return true
}

// SetRole sets the role of a managed object.
func (inv *Inventory) SetRole(m *Machine, role string) {
	if setString(&m.Role, role) {
		m.markChanged()
	}
}

// SetPrimaryIP points the primary slot of the given IP version at ip.
func (inv *Inventory) SetPrimaryIP(m *Machine, version int, ip *IPAddress) {
	if m.PrimaryIP(version).Refers(ip) {
		return
	}
	id := ip.ID
	m.setPrimaryIP(version, IPRef{ID: &id, Address: ip.Address})
	m.markChanged()
}

// UnsetPrimaryIP clears the primary slot of the given IP version.
func (inv *Inventory) UnsetPrimaryIP(m *Machine, version int) {
	if !m.PrimaryIP(version).IsSet() {
		return
	}
	m.setPrimaryIP(version, IPRef{})
	m.markChanged()
}

// Interfaces returns all interfaces of the given kind.
func (inv *Inventory) Interfaces(kind InterfaceKind) []*Interface {
	var out []*Interface
	for _, i := range inv.data.Interfaces {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

// Interface returns the interface with the given id, or nil.
func (inv *Inventory) Interface(id uint) *Interface {
	for _, i := range inv.data.Interfaces {
		if i.ID == id {
			return i
		}
	}
	return nil
}

// MachineInterfaces returns the interfaces owned by m.
func (inv *Inventory) MachineInterfaces(m *Machine) []*Interface {
	kind := m.Type.InterfaceKind()
	var out []*Interface
	for _, i := range inv.data.Interfaces {
		if i.Kind == kind && i.MachineID == m.ID {
			out = append(out, i)
		}
	}
	return out
}

// Owner returns the managed object owning the interface, or nil.
func (inv *Inventory) Owner(i *Interface) *Machine {
	m := inv.Machine(i.MachineID)
	if m == nil || m.Type.InterfaceKind() != i.Kind {
		return nil
	}
	return m
}

// CreateInterface stores a new interface owned by m.
func (inv *Inventory) CreateInterface(m *Machine, d InterfaceData) *Interface {
	i := &Interface{Kind: m.Type.InterfaceKind(), MachineID: m.ID}
	i.apply(d)
	inv.create(&i.Record)
	inv.data.Interfaces = append(inv.data.Interfaces, i)
	return i
}

// UpdateInterface applies d to i and reports whether anything changed.
func (inv *Inventory) UpdateInterface(i *Interface, d InterfaceData) bool {
	if !i.apply(d) {
		return false
	}
	i.markChanged()
	return true
}

// IPAddresses returns all addresses.
func (inv *Inventory) IPAddresses() []*IPAddress {
	return inv.data.IPAddresses
}

// IPAddress returns the address with the given id, or nil.
func (inv *Inventory) IPAddress(id uint) *IPAddress {
	for _, ip := range inv.data.IPAddresses {
		if ip.ID == id {
			return ip
		}
	}
	return nil
}

// InterfaceIPs returns the addresses assigned to the interface id.
func (inv *Inventory) InterfaceIPs(interfaceID uint) []*IPAddress {
	var out []*IPAddress
	for _, ip := range inv.data.IPAddresses {
		if ip.AssignedTo(interfaceID) {
			out = append(out, ip)
		}
	}
	return out
}

// FindIPAddresses returns the addresses whose host part equals host.
func (inv *Inventory) FindIPAddresses(host string) []*IPAddress {
	host = StripPrefixLength(host)
	var out []*IPAddress
	for _, ip := range inv.data.IPAddresses {
		if ip.Host() == host {
			out = append(out, ip)
		}
	}
	return out
}

// CreateIPAddress stores a new address.
func (inv *Inventory) CreateIPAddress(address string) *IPAddress {
	ip := &IPAddress{Address: address}
	inv.create(&ip.Record)
	inv.data.IPAddresses = append(inv.data.IPAddresses, ip)
	return ip
}

// IPAddressData carries the attributes set on an address during a run.
type IPAddressData struct {
	Address     string
	InterfaceID *uint
	VRF         string
	Tenant      string
	Tags        []string
}

// UpdateIPAddress applies d to ip and reports whether anything changed.
func (inv *Inventory) UpdateIPAddress(ip *IPAddress, d IPAddressData) bool {
	changed := setString(&ip.Address, d.Address)
	if d.InterfaceID != nil && !ip.AssignedTo(*d.InterfaceID) {
		id := *d.InterfaceID
		ip.InterfaceID = &id
		changed = true
	}
	changed = setString(&ip.VRF, d.VRF) || changed
	changed = setString(&ip.Tenant, d.Tenant) || changed
	changed = ip.Tags.Add(d.Tags...) || changed
	if changed {
		ip.markChanged()
	}
	return changed
}

// Prefixes returns all prefixes.
func (inv *Inventory) Prefixes() []*Prefix {
	return inv.data.Prefixes
}

// VLAN returns the VLAN with the given id, or nil.
func (inv *Inventory) VLAN(id uint) *VLAN {
	for _, v := range inv.data.VLANs {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Tagged returns the managed objects of type t carrying the tag.
func (inv *Inventory) Tagged(t ObjectType, tag string) []*Machine {
	return slices.DeleteFunc(inv.Machines(t), func(m *Machine) bool {
		return !m.Tags.Has(tag)
	})
}
