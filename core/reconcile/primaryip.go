package reconcile

import (
	"fmt"

	"inventory-sync/core/inventory"

	"go.uber.org/zap"
)

// PrimaryIPPolicy controls how primary addresses are assigned.
type PrimaryIPPolicy string

const (
	// PolicyAlways assigns the address and takes it away from any other owner.
	PolicyAlways PrimaryIPPolicy = "always"
	// PolicyWhenUndefined assigns the address only to an empty slot.
	PolicyWhenUndefined PrimaryIPPolicy = "when-undefined"
	// PolicyNever leaves primary addresses untouched.
	PolicyNever PrimaryIPPolicy = "never"
)

// ParsePrimaryIPPolicy parses a configured policy; empty means when-undefined.
func ParsePrimaryIPPolicy(s string) (PrimaryIPPolicy, error) {
	switch p := PrimaryIPPolicy(s); p {
	case PolicyAlways, PolicyWhenUndefined, PolicyNever:
		return p, nil
	case "":
		return PolicyWhenUndefined, nil
	default:
		return "", fmt.Errorf("unknown set_primary_ip policy %q", s)
	}
}

// PrimaryIPArbiter keeps every primary address owned by at most one object.
type PrimaryIPArbiter struct {
	store  Store
	policy PrimaryIPPolicy
	log    *zap.Logger
}

// NewPrimaryIPArbiter returns an arbiter applying policy.
func NewPrimaryIPArbiter(store Store, policy PrimaryIPPolicy, log *zap.Logger) *PrimaryIPArbiter {
	return &PrimaryIPArbiter{store: store, policy: policy, log: log}
}

// Arbitrate makes ip the primary address of m for the IP version when the
// policy allows it, and reports whether it did. With PolicyAlways the slot is
// cleared on every other object holding ip, unless ip was just created.
func (a *PrimaryIPArbiter) Arbitrate(m *inventory.Machine, version int, ip *inventory.IPAddress) bool {
	switch a.policy {
	case PolicyNever:
		return false
	case PolicyAlways:
		if !ip.IsNew() {
			a.release(m, version, ip)
		}
	default:
		if m.PrimaryIP(version).IsSet() {
			return false
		}
	}

	a.log.Debug("Setting primary address",
		zap.String("name", m.DisplayName()),
		zap.String("address", ip.Address),
		zap.Int("version", version))
	a.store.SetPrimaryIP(m, version, ip)
	return true
}

func (a *PrimaryIPArbiter) release(owner *inventory.Machine, version int, ip *inventory.IPAddress) {
	for _, t := range []inventory.ObjectType{inventory.TypeDevice, inventory.TypeVM} {
		for _, other := range a.store.Machines(t) {
			if other == owner || !other.PrimaryIP(version).Refers(ip) {
				continue
			}
			a.log.Info("Removing primary address from previous owner",
				zap.String("object_type", string(other.Type)),
				zap.String("name", other.DisplayName()),
				zap.String("address", ip.Address))
			a.store.UnsetPrimaryIP(other, version)
		}
	}
}
