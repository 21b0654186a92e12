package reconcile

import (
	"fmt"
	"net/netip"
	"strings"

	"inventory-sync/core/inventory"

	"go4.org/netipx"
)

// SubnetPolicy decides which addresses may be added to the inventory.
// Entries prefixed with "!" exclude a network; exclusions win over inclusions.
// Without any inclusion every address not excluded is permitted.
type SubnetPolicy struct {
	set *netipx.IPSet
}

// NewSubnetPolicy parses a list of CIDR entries.
func NewSubnetPolicy(entries []string) (*SubnetPolicy, error) {
	var include, exclude []netip.Prefix
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		excluded := strings.HasPrefix(entry, "!")
		network, err := netip.ParsePrefix(strings.TrimSpace(strings.TrimPrefix(entry, "!")))
		if err != nil {
			return nil, fmt.Errorf("invalid permitted subnet %q: %w", entry, err)
		}
		if excluded {
			exclude = append(exclude, network.Masked())
		} else {
			include = append(include, network.Masked())
		}
	}
	if len(include) == 0 {
		include = []netip.Prefix{netip.MustParsePrefix("0.0.0.0/0"), netip.MustParsePrefix("::/0")}
	}

	var b netipx.IPSetBuilder
	for _, p := range include {
		b.AddPrefix(p)
	}
	for _, p := range exclude {
		b.RemovePrefix(p)
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("build permitted subnets: %w", err)
	}
	return &SubnetPolicy{set: set}, nil
}

// Permitted reports whether address may be added to the interface.
func (p *SubnetPolicy) Permitted(address, interfaceName string) bool {
	if p == nil {
		return true
	}
	ip, err := inventory.ParseInterface(address)
	if err != nil {
		return false
	}
	return p.set.Contains(ip.Addr())
}

// Prefixes returns the minimal list of networks the policy permits.
func (p *SubnetPolicy) Prefixes() []string {
	if p == nil {
		return []string{"0.0.0.0/0", "::/0"}
	}
	var out []string
	for _, prefix := range p.set.Prefixes() {
		out = append(out, prefix.String())
	}
	return out
}
