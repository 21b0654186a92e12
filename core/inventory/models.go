package inventory

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

// ObjectType identifies the kind of a managed object.
type ObjectType string

const (
	// TypeDevice is a physical host (hypervisor) scoped by site.
	TypeDevice ObjectType = "device"
	// TypeVM is a virtual machine scoped by cluster.
	TypeVM ObjectType = "virtual_machine"
)

// InterfaceKind tells physical device interfaces from virtual machine interfaces.
type InterfaceKind string

const (
	InterfacePhysical InterfaceKind = "physical"
	InterfaceVirtual  InterfaceKind = "virtual"
)

// Status values used for managed objects.
const (
	StatusActive  = "active"
	StatusOffline = "offline"
)

// Record is embedded in every stored object. It carries the primary key and the
// in-memory change state used when the inventory is written back.
type Record struct {
	ID uint `gorm:"primaryKey" json:"id"`

	created bool
	changed bool
}

// IsNew reports whether the object was created during this process lifetime.
func (r *Record) IsNew() bool { return r.created }

// IsChanged reports whether an existing object was modified.
func (r *Record) IsChanged() bool { return r.changed }

func (r *Record) markCreated() { r.created = true }

func (r *Record) markChanged() {
	if !r.created {
		r.changed = true
	}
}

func (r *Record) clearState() {
	r.created = false
	r.changed = false
}

// StringSet is an ordered set of strings stored as a JSON array.
type StringSet []string

// Add appends values not yet present and reports whether the set grew.
func (s *StringSet) Add(values ...string) bool {
	grew := false
	for _, v := range values {
		if v == "" || slices.Contains(*s, v) {
			continue
		}
		*s = append(*s, v)
		grew = true
	}
	return grew
}

// Has reports whether v is part of the set.
func (s StringSet) Has(v string) bool {
	return slices.Contains(s, v)
}

// Site groups devices and clusters by physical or logical location.
type Site struct {
	Record
	Name     string `gorm:"size:100;uniqueIndex" json:"name"`
	Comments string `json:"comments"`
}

// Tag marks objects, e.g. with the source they were synced from.
type Tag struct {
	Record
	Name        string `gorm:"size:100;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

// Role is assigned to devices and, when VMRole is set, to virtual machines.
type Role struct {
	Record
	Name   string `gorm:"size:100;uniqueIndex" json:"name"`
	Color  string `gorm:"size:6" json:"color"`
	VMRole bool   `json:"vm_role"`
}

// ClusterGroup groups the clusters of one source.
type ClusterGroup struct {
	Record
	Name string `gorm:"size:100;uniqueIndex" json:"name"`
}

// Cluster is an availability zone of a source platform.
type Cluster struct {
	Record
	Name   string    `gorm:"size:100;index" json:"name"`
	Type   string    `gorm:"size:50" json:"type"`
	Group  string    `gorm:"size:100" json:"group"`
	Site   string    `gorm:"size:100" json:"site"`
	Tenant string    `gorm:"size:100" json:"tenant"`
	Tags   StringSet `gorm:"serializer:json" json:"tags"`
}

// ClusterData is the attribute set computed for a cluster by a source.
type ClusterData struct {
	Name   string
	Type   string
	Group  string
	Site   string
	Tenant string
	Tags   []string
}

func (c *Cluster) apply(d ClusterData) bool {
	changed := setString(&c.Name, d.Name)
	changed = setString(&c.Type, d.Type) || changed
	changed = setString(&c.Group, d.Group) || changed
	changed = setString(&c.Site, d.Site) || changed
	changed = setString(&c.Tenant, d.Tenant) || changed
	return c.Tags.Add(d.Tags...) || changed
}

// IPRef points a managed object at its primary address. ID references a stored
// IPAddress; Address carries the address value when only an embedded form is known.
type IPRef struct {
	ID      *uint  `json:"id,omitempty"`
	Address string `gorm:"size:64" json:"address,omitempty"`
}

// IsSet reports whether the reference points anywhere.
func (r IPRef) IsSet() bool {
	return r.ID != nil || r.Address != ""
}

// Refers reports whether the reference points at ip.
func (r IPRef) Refers(ip *IPAddress) bool {
	if ip == nil {
		return false
	}
	if r.ID != nil {
		return *r.ID == ip.ID
	}
	return r.Address != "" && StripPrefixLength(r.Address) == ip.Host()
}

// Machine is a managed object: a Device or a VM. Both variants share one record
// layout; Type is the tag that decides identity scope and interface kind.
type Machine struct {
	Record
	Type         ObjectType        `gorm:"size:20;index:idx_machine_name" json:"type"`
	Name         string            `gorm:"size:64;index:idx_machine_name" json:"name"`
	Status       string            `gorm:"size:20" json:"status"`
	Role         string            `gorm:"size:100" json:"role"`
	Tenant       string            `gorm:"size:100" json:"tenant"`
	Platform     string            `gorm:"size:100" json:"platform"`
	Site         string            `gorm:"size:100" json:"site"`
	ClusterID    *uint             `gorm:"index" json:"cluster_id"`
	Manufacturer string            `gorm:"size:100" json:"manufacturer,omitempty"`
	Model        string            `gorm:"size:100" json:"model,omitempty"`
	Memory       int               `json:"memory,omitempty"`
	VCPUs        int               `gorm:"column:vcpus" json:"vcpus,omitempty"`
	Disk         int               `json:"disk,omitempty"`
	Comments     string            `json:"comments,omitempty"`
	Tags         StringSet         `gorm:"serializer:json" json:"tags"`
	CustomFields map[string]string `gorm:"serializer:json" json:"custom_fields,omitempty"`
	PrimaryIP4   IPRef             `gorm:"embedded;embeddedPrefix:primary_ip4_" json:"primary_ip4"`
	PrimaryIP6   IPRef             `gorm:"embedded;embeddedPrefix:primary_ip6_" json:"primary_ip6"`
}

// PrimaryKey returns the identifying name of the object.
func (m *Machine) PrimaryKey() string {
	return m.Name
}

// SecondaryKey returns the scope in which the name is unique: the site for
// devices and the cluster for virtual machines.
func (m *Machine) SecondaryKey() string {
	if m.Type == TypeDevice {
		return m.Site
	}
	if m.ClusterID == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*m.ClusterID), 10)
}

// InterfaceKind returns the kind of interface owned by this type of object.
func (t ObjectType) InterfaceKind() InterfaceKind {
	if t == TypeDevice {
		return InterfacePhysical
	}
	return InterfaceVirtual
}

// RelationPrefix returns the prefix of the relation tables configured for the type.
func (t ObjectType) RelationPrefix() string {
	if t == TypeDevice {
		return "host"
	}
	return "vm"
}

// String returns a human readable name.
func (t ObjectType) String() string {
	if t == TypeDevice {
		return "device"
	}
	return "virtual machine"
}

// PrimaryIP returns the primary address reference for the IP version (4 or 6).
func (m *Machine) PrimaryIP(version int) IPRef {
	if version == 6 {
		return m.PrimaryIP6
	}
	return m.PrimaryIP4
}

func (m *Machine) setPrimaryIP(version int, ref IPRef) {
	if version == 6 {
		m.PrimaryIP6 = ref
		return
	}
	m.PrimaryIP4 = ref
}

// DisplayName returns the name including the scope, e.g. "web01 (site-a)".
func (m *Machine) DisplayName() string {
	if scope := m.SecondaryKey(); scope != "" {
		return fmt.Sprintf("%s (%s)", m.Name, scope)
	}
	return m.Name
}

// MachineData is the attribute set computed for a managed object by a source.
// Empty values leave the stored attribute untouched; tags are merged.
type MachineData struct {
	Name         string
	Status       string
	Site         string
	Tenant       string
	Platform     string
	ClusterID    *uint
	Manufacturer string
	Model        string
	Memory       int
	VCPUs        int
	Disk         int
	Comments     string
	Tags         []string
	CustomFields map[string]string
}

func (m *Machine) apply(d MachineData) bool {
	changed := setString(&m.Name, d.Name)
	changed = setString(&m.Status, d.Status) || changed
	changed = setString(&m.Site, d.Site) || changed
	changed = setString(&m.Tenant, d.Tenant) || changed
	changed = setString(&m.Platform, d.Platform) || changed
	changed = setString(&m.Manufacturer, d.Manufacturer) || changed
	changed = setString(&m.Model, d.Model) || changed
	changed = setString(&m.Comments, d.Comments) || changed
	if d.ClusterID != nil && (m.ClusterID == nil || *m.ClusterID != *d.ClusterID) {
		id := *d.ClusterID
		m.ClusterID = &id
		changed = true
	}
	changed = setInt(&m.Memory, d.Memory) || changed
	changed = setInt(&m.VCPUs, d.VCPUs) || changed
	changed = setInt(&m.Disk, d.Disk) || changed
	for k, v := range d.CustomFields {
		if m.CustomFields == nil {
			m.CustomFields = make(map[string]string)
		}
		if m.CustomFields[k] != v {
			m.CustomFields[k] = v
			changed = true
		}
	}
	return m.Tags.Add(d.Tags...) || changed
}

// Interface is a network interface owned by exactly one managed object.
type Interface struct {
	Record
	Kind        InterfaceKind `gorm:"size:20;index:idx_interface_owner" json:"kind"`
	MachineID   uint          `gorm:"index:idx_interface_owner" json:"machine_id"`
	Name        string        `gorm:"size:100" json:"name"`
	Type        string        `gorm:"size:50" json:"type,omitempty"`
	MACAddress  string        `gorm:"column:mac_address;size:17;index" json:"mac_address,omitempty"`
	Enabled     bool          `json:"enabled"`
	Description string        `json:"description,omitempty"`
	Tags        StringSet     `gorm:"serializer:json" json:"tags"`
}

// InterfaceData is the attribute set of a discovered interface.
type InterfaceData struct {
	Name        string
	Type        string
	MACAddress  string
	Enabled     bool
	Description string
	Tags        []string
}

func (i *Interface) apply(d InterfaceData) bool {
	changed := setString(&i.Name, d.Name)
	changed = setString(&i.Type, d.Type) || changed
	changed = setString(&i.MACAddress, d.MACAddress) || changed
	changed = setString(&i.Description, d.Description) || changed
	if i.Enabled != d.Enabled {
		i.Enabled = d.Enabled
		changed = true
	}
	return i.Tags.Add(d.Tags...) || changed
}

// IPAddress is an address with prefix length, optionally assigned to an interface.
type IPAddress struct {
	Record
	Address     string    `gorm:"size:64;index" json:"address"`
	InterfaceID *uint     `gorm:"index" json:"interface_id"`
	VRF         string    `gorm:"column:vrf;size:100" json:"vrf,omitempty"`
	Tenant      string    `gorm:"size:100" json:"tenant,omitempty"`
	Tags        StringSet `gorm:"serializer:json" json:"tags"`
}

// Host returns the address without prefix length.
func (ip *IPAddress) Host() string {
	return StripPrefixLength(ip.Address)
}

// Interface returns the parsed address and prefix length.
func (ip *IPAddress) Interface() (netip.Prefix, error) {
	return ParseInterface(ip.Address)
}

// AssignedTo reports whether the address belongs to the interface id.
func (ip *IPAddress) AssignedTo(interfaceID uint) bool {
	return ip.InterfaceID != nil && *ip.InterfaceID == interfaceID
}

// VLAN is a layer 2 segment that prefixes may point at.
type VLAN struct {
	Record
	VID    int    `gorm:"column:vid" json:"vid"`
	Name   string `gorm:"size:100" json:"name"`
	Site   string `gorm:"size:100" json:"site,omitempty"`
	Tenant string `gorm:"size:100" json:"tenant,omitempty"`
}

// Prefix is a network used to look up prefix length and context of addresses.
type Prefix struct {
	Record
	Prefix string `gorm:"size:64" json:"prefix"`
	Site   string `gorm:"size:100" json:"site,omitempty"`
	VRF    string `gorm:"column:vrf;size:100" json:"vrf,omitempty"`
	VLANID *uint  `gorm:"column:vlan_id" json:"vlan_id,omitempty"`
	Tenant string `gorm:"size:100" json:"tenant,omitempty"`
}

// Network returns the parsed network of the prefix.
func (p *Prefix) Network() (netip.Prefix, error) {
	n, err := netip.ParsePrefix(strings.TrimSpace(p.Prefix))
	if err != nil {
		return netip.Prefix{}, err
	}
	return n.Masked(), nil
}

// StripPrefixLength drops a "/len" suffix from an address literal.
func StripPrefixLength(address string) string {
	host, _, _ := strings.Cut(strings.TrimSpace(address), "/")
	return host
}

// ParseInterface parses "addr/len". A bare address gets the full host length.
func ParseInterface(address string) (netip.Prefix, error) {
	address = strings.TrimSpace(address)
	if !strings.Contains(address, "/") {
		addr, err := netip.ParseAddr(address)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	return netip.ParsePrefix(address)
}

func setString(dst *string, v string) bool {
	if v == "" || *dst == v {
		return false
	}
	*dst = v
	return true
}

func setInt(dst *int, v int) bool {
	if v == 0 || *dst == v {
		return false
	}
	*dst = v
	return true
}

func (Site) TableName() string         { return "sites" }
func (Tag) TableName() string          { return "tags" }
func (Role) TableName() string         { return "roles" }
func (ClusterGroup) TableName() string { return "cluster_groups" }
func (Cluster) TableName() string      { return "clusters" }
func (Machine) TableName() string      { return "machines" }
func (Interface) TableName() string    { return "interfaces" }
func (IPAddress) TableName() string    { return "ip_addresses" }
func (VLAN) TableName() string         { return "vlans" }
func (Prefix) TableName() string       { return "prefixes" }
