package reconcile

import (
	"fmt"
	"slices"

	"inventory-sync/core/inventory"
	"inventory-sync/core/utils"

	"go.uber.org/zap"
)

// DefaultMACMatchRatio is the minimum ratio between the MAC tallies of the top
// two candidates for the top one to be accepted.
const DefaultMACMatchRatio = 2.0

// MatchTier names the stage of identity resolution that found an object.
type MatchTier string

const (
	MatchNone      MatchTier = ""
	MatchExact     MatchTier = "exact"
	MatchMAC       MatchTier = "mac"
	MatchPrimaryIP MatchTier = "primary_ip"
)

// MatchQuery carries what is known about a discovered entity.
type MatchQuery struct {
	Type      inventory.ObjectType
	Data      inventory.MachineData
	MACs      []string
	PrimaryV4 string
	PrimaryV6 string
}

// ObjectMatcher resolves a discovered entity to an existing managed object.
type ObjectMatcher struct {
	store Store
	ratio float64
	log   *zap.Logger
}

// NewObjectMatcher returns a matcher with the given MAC tier ratio.
func NewObjectMatcher(store Store, ratio float64, log *zap.Logger) *ObjectMatcher {
	if ratio <= 0 {
		ratio = DefaultMACMatchRatio
	}
	return &ObjectMatcher{store: store, ratio: ratio, log: log}
}

// Find runs the tiers in order and returns the first object found together
// with the tier that found it. A nil object means the caller creates one.
func (m *ObjectMatcher) Find(q MatchQuery) (*inventory.Machine, MatchTier) {
	if obj := m.ByAttributes(q.Type, q.Data); obj != nil {
		m.log.Debug("Found exact match", zap.String("object_type", string(q.Type)), zap.String("name", obj.DisplayName()))
		return obj, MatchExact
	}

	obj, err := m.ByMACs(q.Type, q.MACs)
	if err != nil {
		m.log.Debug("MAC correlation inconclusive", zap.String("name", q.Data.Name), zap.Error(err))
	}
	if obj != nil {
		return obj, MatchMAC
	}

	if obj := m.ByPrimaryIP(q.Type, q.PrimaryV4, q.PrimaryV6); obj != nil {
		return obj, MatchPrimaryIP
	}
	return nil, MatchNone
}

// ByAttributes returns the object of type t with the same name in the same
// scope: the site for devices and the cluster for virtual machines.
func (m *ObjectMatcher) ByAttributes(t inventory.ObjectType, d inventory.MachineData) *inventory.Machine {
	probe := &inventory.Machine{Type: t, Name: d.Name, Site: d.Site, ClusterID: d.ClusterID}
	for _, obj := range m.store.Machines(t) {
		if obj.PrimaryKey() == probe.PrimaryKey() && obj.SecondaryKey() == probe.SecondaryKey() {
			return obj
		}
	}
	return nil
}

type macTally struct {
	owner *inventory.Machine
	count int
}

// ByMACs tallies the owners of interfaces carrying one of macs. A single owner
// is returned directly. With several owners the top one is returned only if
// its tally is at least ratio times the runner-up's; otherwise the error wraps
// ErrAmbiguousMatch.
func (m *ObjectMatcher) ByMACs(t inventory.ObjectType, macs []string) (*inventory.Machine, error) {
	if len(macs) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(macs))
	for _, mac := range macs {
		if mac = utils.NormalizeMAC(mac); mac != "" {
			wanted[mac] = struct{}{}
		}
	}

	var tallies []*macTally
	index := make(map[uint]*macTally)
	for _, iface := range m.store.Interfaces(t.InterfaceKind()) {
		if iface.MACAddress == "" {
			continue
		}
		if _, ok := wanted[utils.NormalizeMAC(iface.MACAddress)]; !ok {
			continue
		}
		owner := m.store.Owner(iface)
		if owner == nil {
			continue
		}
		m.log.Debug("Found matching MAC",
			zap.String("mac", iface.MACAddress),
			zap.String("object_type", string(t)),
			zap.String("name", owner.DisplayName()))
		if tally, ok := index[owner.ID]; ok {
			tally.count++
			continue
		}
		tally := &macTally{owner: owner, count: 1}
		index[owner.ID] = tally
		tallies = append(tallies, tally)
	}

	switch len(tallies) {
	case 0:
		return nil, nil
	case 1:
		return tallies[0].owner, nil
	}

	slices.SortStableFunc(tallies, func(a, b *macTally) int { return b.count - a.count })
	first, second := tallies[0], tallies[1]
	ratio := float64(first.count) / float64(second.count)
	if ratio >= m.ratio {
		m.log.Debug("MAC ratio high enough",
			zap.String("name", first.owner.DisplayName()),
			zap.Float64("ratio", ratio))
		return first.owner, nil
	}
	return nil, fmt.Errorf("%w: %s has %d matching MACs, %s has %d (ratio %.2f < %.2f)",
		ErrAmbiguousMatch, first.owner.DisplayName(), first.count,
		second.owner.DisplayName(), second.count, ratio, m.ratio)
}

// ByPrimaryIP returns the first object of type t whose primary IPv4 equals
// v4, or failing that the first whose primary IPv6 equals v6. Prefix lengths
// are ignored.
func (m *ObjectMatcher) ByPrimaryIP(t inventory.ObjectType, v4, v6 string) *inventory.Machine {
	objects := m.store.Machines(t)
	for _, probe := range []struct {
		version int
		address string
	}{{4, v4}, {6, v6}} {
		if probe.address == "" {
			continue
		}
		needle := inventory.StripPrefixLength(probe.address)
		for _, obj := range objects {
			if m.primaryAddress(obj.PrimaryIP(probe.version)) == needle {
				m.log.Debug("Found existing object by primary address",
					zap.String("name", obj.DisplayName()),
					zap.String("address", needle))
				return obj
			}
		}
	}
	return nil
}

func (m *ObjectMatcher) primaryAddress(ref inventory.IPRef) string {
	if ref.ID != nil {
		if ip := m.store.IPAddress(*ref.ID); ip != nil {
			return ip.Host()
		}
	}
	if ref.Address == "" {
		return ""
	}
	return inventory.StripPrefixLength(ref.Address)
}
