package reconcile

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"inventory-sync/core/inventory"
	"inventory-sync/core/utils"

	"go.uber.org/zap"
)

const (
	objectCluster = "cluster"

	clusterType       = "Openstack"
	defaultRole       = "Server"
	defaultRoleColor  = "9e9e9e"
	genericVendor     = "Generic Vendor"
	genericModel      = "Generic Model"
	hostInterfaceName = "eth0"
	hostInterfaceType = "10gbase-t"
	vmNameField       = "openstack_vm_name"
)

// Orchestrator runs the per-entity reconciliation pipeline of one source
// against a store. It is not safe for concurrent use.
type Orchestrator struct {
	settings  *Settings
	store     Store
	log       *zap.Logger
	relations *RelationResolver
	prefixes  *PrefixResolver
	matcher   *ObjectMatcher
	arbiter   *PrimaryIPArbiter
	session   *Session
}

// NewOrchestrator wires the pipeline components for settings and store.
func NewOrchestrator(settings *Settings, store Store, log *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		settings:  settings,
		store:     store,
		log:       log,
		relations: NewRelationResolver(settings.Relations, log),
		prefixes:  NewPrefixResolver(store, log),
		matcher:   NewObjectMatcher(store, settings.MACMatchRatio, log),
		arbiter:   NewPrimaryIPArbiter(store, settings.PrimaryIP, log),
	}
	o.reset(&RunReport{Source: settings.Name})
	return o
}

func (o *Orchestrator) reset(report *RunReport) {
	o.session = newSession(report)
	o.store.EnsureClusterGroup(o.settings.GroupName)
}

// Report returns the report of the current run.
func (o *Orchestrator) Report() *RunReport {
	return o.session.report
}

// SiteName returns the site of a cluster or host. Clusters use the cluster
// site relation. Hosts use the host site relation, then the site of their
// cluster. Both fall back to the default site of the source.
func (o *Orchestrator) SiteName(t string, name, cluster string) string {
	switch t {
	case objectCluster:
		return o.relations.Value(name, RelationClusterSite, o.settings.DefaultSiteName())
	case string(inventory.TypeDevice):
		if site := o.relations.Value(name, RelationHostSite, ""); site != "" {
			return site
		}
		return o.SiteName(objectCluster, cluster, "")
	}
	return o.settings.DefaultSiteName()
}

// skip records a skipped entity and logs the reason at a level matching it.
func (o *Orchestrator) skip(res EntityResult, err error) {
	res.Action = ActionSkipped
	res.Reason = err.Error()
	fields := []zap.Field{zap.String("object_type", res.ObjectType), zap.String("name", res.Name), zap.Error(err)}
	switch {
	case errors.Is(err, ErrUnresolvableCluster):
		o.log.Error("Skipping entity", fields...)
		o.session.report.Summary.Errors++
	case errors.Is(err, ErrDuplicateName):
		o.log.Warn("Skipping entity, names must be unique per scope", fields...)
	default:
		o.log.Debug("Skipping entity", fields...)
	}
	o.session.report.add(res)
}

// AddCluster turns an availability zone into a cluster and makes its hosts
// eligible for the host and VM phases.
func (o *Orchestrator) AddCluster(az AvailabilityZone) {
	name := strings.TrimSpace(az.Name)
	if name == "" {
		return
	}
	res := EntityResult{ObjectType: objectCluster, Name: name}
	if err := o.settings.ClusterFilter.Check(name); err != nil {
		o.skip(res, entityError(objectCluster, name, err))
		return
	}

	site := o.SiteName(objectCluster, name, "")
	tenant := o.relations.Value(name, RelationClusterTenant, "")
	data := inventory.ClusterData{
		Name:   name,
		Type:   clusterType,
		Group:  o.settings.GroupName,
		Site:   site,
		Tenant: tenant,
		Tags:   []string{o.settings.SourceTag()},
	}
	o.store.EnsureSite(site)

	res.Scope = site
	cluster := o.selectCluster(name, site, tenant)
	if cluster != nil {
		o.store.UpdateCluster(cluster, data)
		res.Action, res.MatchedBy = ActionUpdated, MatchExact
	} else {
		cluster = o.store.CreateCluster(data)
		res.Action = ActionCreated
	}

	o.session.addCluster(cluster, az.Hosts, site)
	o.session.report.add(res)
}

// selectCluster picks the existing cluster named name. Candidates in the same
// site win over those in the same group, which win over those of the same
// tenant; otherwise the first candidate is used.
func (o *Orchestrator) selectCluster(name, site, tenant string) *inventory.Cluster {
	var fallback *inventory.Cluster
	for _, c := range o.store.Clusters() {
		if c.Name != name {
			continue
		}
		switch {
		case c.Site == site:
			return c
		case c.Group != "" && c.Group == o.settings.GroupName:
			return c
		case c.Tenant != "" && tenant != "" && c.Tenant == tenant:
			return c
		}
		if fallback == nil {
			fallback = c
		}
	}
	return fallback
}

// AddVolume records the size of a volume for VM disk sizing.
func (o *Orchestrator) AddVolume(v Volume) {
	o.session.volumes[v.ID] = v.Size
	o.session.report.Summary.Volumes++
}

// AddHost reconciles a hypervisor as a device.
func (o *Orchestrator) AddHost(h Hypervisor) {
	name := strings.TrimSpace(h.Name)
	if o.settings.StripHostDomainName {
		name, _, _ = strings.Cut(name, ".")
	}
	res := EntityResult{ObjectType: string(inventory.TypeDevice), Name: name}

	cluster := o.session.clusterForHost(h.ServiceHost)
	if cluster == "" {
		o.skip(res, machineError(inventory.TypeDevice, name,
			fmt.Errorf("%w: no cluster lists host %q", ErrUnresolvableCluster, h.ServiceHost)))
		return
	}
	if _, ok := o.session.permittedSite(cluster); !ok {
		o.skip(res, machineError(inventory.TypeDevice, name,
			fmt.Errorf("%w: cluster %q", ErrNotPermitted, cluster)))
		return
	}

	site := o.SiteName(string(inventory.TypeDevice), name, cluster)
	res.Scope = site
	if !claimName(o.session.hostNames, site, name) {
		o.skip(res, machineError(inventory.TypeDevice, name,
			fmt.Errorf("%w: site %q", ErrDuplicateName, site)))
		return
	}
	if err := o.settings.HostFilter.Check(name); err != nil {
		o.skip(res, machineError(inventory.TypeDevice, name, err))
		return
	}

	status := inventory.StatusOffline
	if h.Status == "enabled" {
		status = inventory.StatusActive
	}
	clusterID := o.session.clusters[cluster].ID
	data := inventory.MachineData{
		Name:         name,
		Status:       status,
		Site:         site,
		ClusterID:    &clusterID,
		Platform:     strings.TrimSpace(h.HypervisorType + " " + h.HypervisorVersion),
		Manufacturer: genericVendor,
		Model:        genericModel,
		Tenant:       o.relations.Value(name, RelationHostTenant, ""),
		Tags:         append(o.relations.Tags(name, RelationHostTag), o.settings.SourceTag()),
	}

	eth0 := declaredInterface{data: inventory.InterfaceData{
		Name:       hostInterfaceName,
		Type:       hostInterfaceType,
		MACAddress: utils.NormalizeMAC(h.MAC),
		Enabled:    true,
	}}
	var primary4, primary6 string
	if addr, err := netip.ParseAddr(strings.TrimSpace(h.HostIP)); err != nil {
		res.Warnings = append(res.Warnings, o.invalidAddress(name, h.HostIP, err))
	} else {
		formatted, _ := o.prefixes.FormatAddress(addr, "")
		if addr.Is4() {
			primary4 = formatted.String()
		} else {
			primary6 = formatted.String()
		}
		eth0.addresses = append(eth0.addresses, formatted.String())
	}

	o.reconcileMachine(inventory.TypeDevice, data, []declaredInterface{eth0}, primary4, primary6, &res)
	o.session.report.add(res)
}

// AddVirtualMachine reconciles a server as a virtual machine.
func (o *Orchestrator) AddVirtualMachine(s Server) {
	name := strings.TrimSpace(s.Name)
	if o.settings.StripVMDomainName {
		name, _, _ = strings.Cut(name, ".")
	}
	displayName := name
	if o.settings.SetVMNameToUUID {
		name = s.ID
	}
	res := EntityResult{ObjectType: string(inventory.TypeVM), Name: name}

	cluster := strings.TrimSpace(s.AvailabilityZone)
	if o.settings.StripHostDomainName {
		cluster, _, _ = strings.Cut(cluster, ".")
	}
	if cluster == "" {
		o.skip(res, machineError(inventory.TypeVM, name,
			fmt.Errorf("%w: server has no availability zone", ErrUnresolvableCluster)))
		return
	}
	site, ok := o.session.permittedSite(cluster)
	if !ok {
		o.skip(res, machineError(inventory.TypeVM, name,
			fmt.Errorf("%w: cluster %q", ErrNotPermitted, cluster)))
		return
	}
	res.Scope = cluster
	if !claimName(o.session.vmNames, cluster, name) {
		o.skip(res, machineError(inventory.TypeVM, name,
			fmt.Errorf("%w: cluster %q", ErrDuplicateName, cluster)))
		return
	}
	if err := o.settings.VMFilter.Check(name); err != nil {
		o.skip(res, machineError(inventory.TypeVM, name, err))
		return
	}

	status := inventory.StatusOffline
	if s.Status == "ACTIVE" {
		status = inventory.StatusActive
	}
	vcpus := s.Flavor.VCPUs
	if vcpus == 0 {
		vcpus = 1
	}
	disk := 0
	for _, id := range s.AttachedVolumes {
		size, ok := o.session.volumes[id]
		if !ok {
			o.log.Debug("Attached volume not found", zap.String("name", name), zap.String("volume", id))
		}
		disk += size
	}
	clusterID := o.session.clusters[cluster].ID
	data := inventory.MachineData{
		Name:      name,
		Status:    status,
		Site:      site,
		ClusterID: &clusterID,
		Memory:    s.Flavor.RAM,
		VCPUs:     vcpus,
		Disk:      disk,
		Tenant:    o.relations.Value(name, RelationVMTenant, ""),
		Tags:      append(o.relations.Tags(name, RelationVMTag), o.settings.SourceTag()),
	}
	if !o.settings.SkipVMPlatform && s.Flavor.OriginalName != "" {
		data.Platform = o.relations.Value(s.Flavor.OriginalName, RelationVMPlatform, s.Flavor.OriginalName)
	}
	if !o.settings.SkipVMComments && !o.settings.SetVMNameToUUID {
		data.Comments = s.ID
	}
	if o.settings.SetVMNameToUUID {
		data.CustomFields = map[string]string{vmNameField: displayName}
	}

	var (
		ifaces             []declaredInterface
		primary4, primary6 string
	)
	for n, network := range s.Networks {
		label := network.Network
		if unescaped, err := url.PathUnescape(label); err == nil {
			label = unescaped
		}
		nic := declaredInterface{data: inventory.InterfaceData{
			Name:    fmt.Sprintf("vNIC%d (%s)", n+1, label),
			Enabled: true,
		}}
		nic.data.Description = nic.data.Name
		for _, a := range network.Addresses {
			if a.MAC != "" {
				nic.data.MACAddress = utils.NormalizeMAC(a.MAC)
			}
			addr, err := netip.ParseAddr(strings.TrimSpace(a.Addr))
			if err != nil {
				res.Warnings = append(res.Warnings, o.invalidAddress(name, a.Addr, err))
				continue
			}
			formatted, _ := o.prefixes.FormatAddress(addr, site)
			nic.addresses = append(nic.addresses, formatted.String())
			if addr.Is4() {
				primary4 = formatted.String()
			} else {
				primary6 = formatted.String()
			}
		}
		ifaces = append(ifaces, nic)
	}

	o.reconcileMachine(inventory.TypeVM, data, ifaces, primary4, primary6, &res)
	o.session.report.add(res)
}

func (o *Orchestrator) invalidAddress(name, address string, err error) string {
	err = fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	o.log.Error("Skipping address", zap.String("name", name), zap.String("address", address), zap.Error(err))
	return err.Error()
}

// declaredInterface is an interface as discovered, with its formatted addresses.
type declaredInterface struct {
	data      inventory.InterfaceData
	addresses []string
}

// reconcileMachine finds or creates the object, assigns its role and merges
// interfaces and addresses.
func (o *Orchestrator) reconcileMachine(t inventory.ObjectType, data inventory.MachineData, ifaces []declaredInterface, primary4, primary6 string, res *EntityResult) *inventory.Machine {
	var macs []string
	for _, i := range ifaces {
		if i.data.MACAddress != "" {
			macs = append(macs, i.data.MACAddress)
		}
	}

	m, tier := o.matcher.Find(MatchQuery{Type: t, Data: data, MACs: macs, PrimaryV4: primary4, PrimaryV6: primary6})
	if m == nil {
		o.log.Debug("Creating new object", zap.String("object_type", string(t)), zap.String("name", data.Name))
		m = o.store.CreateMachine(t, data)
		res.Action = ActionCreated
	} else {
		o.store.UpdateMachine(m, data)
		res.Action, res.MatchedBy = ActionUpdated, tier
	}
	if data.Site != "" {
		o.store.EnsureSite(data.Site)
	}

	role := o.relations.Value(data.Name, t.RelationPrefix()+"_role_relation", "")
	if role == "" && t == inventory.TypeDevice {
		role = defaultRole
	}
	if role != "" {
		o.store.EnsureRole(role, "", t == inventory.TypeVM)
		o.store.SetRole(m, role)
	}

	declared4, _ := inventory.ParseInterface(primary4)
	declared6, _ := inventory.ParseInterface(primary6)

	existing := o.mapInterfaces(m, ifaces)
	for n, decl := range ifaces {
		decl.data.Tags = append(decl.data.Tags, o.settings.SourceTag())
		iface := existing[n]
		if iface == nil {
			iface = o.store.CreateInterface(m, decl.data)
		} else {
			o.store.UpdateInterface(iface, decl.data)
		}
		for _, address := range decl.addresses {
			ip, err := o.reconcileAddress(m, iface, address, data.Site)
			if err != nil {
				if errors.Is(err, ErrNotPermitted) {
					o.log.Debug("Skipping address", zap.String("name", data.Name), zap.String("address", address), zap.Error(err))
				} else {
					res.Warnings = append(res.Warnings, err.Error())
				}
				continue
			}
			value, _ := ip.Interface()
			switch value {
			case declared4:
				o.arbiter.Arbitrate(m, 4, ip)
			case declared6:
				o.arbiter.Arbitrate(m, 6, ip)
			}
		}
	}
	return m
}

// mapInterfaces pairs declared interfaces with existing ones of m, by name
// first and then by MAC address among those still unpaired.
func (o *Orchestrator) mapInterfaces(m *inventory.Machine, ifaces []declaredInterface) []*inventory.Interface {
	mapped := make([]*inventory.Interface, len(ifaces))
	if m.IsNew() {
		return mapped
	}
	current := o.store.MachineInterfaces(m)
	used := make(map[uint]bool)

	for n, decl := range ifaces {
		for _, c := range current {
			if !used[c.ID] && c.Name == decl.data.Name {
				mapped[n], used[c.ID] = c, true
				break
			}
		}
	}
	for n, decl := range ifaces {
		if mapped[n] != nil || decl.data.MACAddress == "" {
			continue
		}
		for _, c := range current {
			if !used[c.ID] && utils.NormalizeMAC(c.MACAddress) == decl.data.MACAddress {
				mapped[n], used[c.ID] = c, true
				break
			}
		}
	}
	return mapped
}

// reconcileAddress attaches address to iface, creating the address when no
// usable one exists, and enriches it from its longest matching prefix.
func (o *Orchestrator) reconcileAddress(m *inventory.Machine, iface *inventory.Interface, address, site string) (*inventory.IPAddress, error) {
	value, err := inventory.ParseInterface(address)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	if !o.settings.PermittedSubnets.Permitted(address, iface.Name) {
		return nil, fmt.Errorf("%w: address %s on %s", ErrNotPermitted, address, iface.Name)
	}

	var ip, unassigned, elsewhere *inventory.IPAddress
	for _, candidate := range o.store.FindIPAddresses(value.Addr().String()) {
		switch {
		case candidate.AssignedTo(iface.ID):
			ip = candidate
		case candidate.InterfaceID == nil:
			if unassigned == nil {
				unassigned = candidate
			}
		case elsewhere == nil:
			elsewhere = candidate
		}
		if ip != nil {
			break
		}
	}
	if ip == nil {
		ip = unassigned
	}
	if ip == nil && elsewhere != nil {
		ip = elsewhere
		o.log.Info("Moving address to new interface",
			zap.String("address", ip.Address),
			zap.String("previous_owner", o.interfaceOwnerName(*ip.InterfaceID)),
			zap.String("name", m.DisplayName()),
			zap.String("interface", iface.Name))
	}
	if ip == nil {
		ip = o.store.CreateIPAddress(value.String())
	}

	update := inventory.IPAddressData{
		Address:     value.String(),
		InterfaceID: &iface.ID,
		Tags:        []string{o.settings.SourceTag()},
	}
	if prefix := o.prefixes.LongestMatch(value.Addr(), site); prefix != nil {
		if ip.VRF == "" {
			update.VRF = prefix.VRF
		}
		if ip.Tenant == "" {
			update.Tenant = prefix.Tenant
			if update.Tenant == "" && prefix.VLANID != nil {
				if vlan := o.store.VLAN(*prefix.VLANID); vlan != nil {
					update.Tenant = vlan.Tenant
				}
			}
		}
	}
	o.store.UpdateIPAddress(ip, update)
	o.log.Debug("Reconciled address",
		zap.String("name", m.DisplayName()),
		zap.String("interface", iface.Name),
		zap.String("address", ip.Address))
	return ip, nil
}

func (o *Orchestrator) interfaceOwnerName(interfaceID uint) string {
	if iface := o.store.Interface(interfaceID); iface != nil {
		if owner := o.store.Owner(iface); owner != nil {
			return owner.DisplayName()
		}
	}
	return ""
}
