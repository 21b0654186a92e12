package reconcile

import (
	"net/netip"

	"inventory-sync/core/inventory"

	"go.uber.org/zap"
)

// PrefixResolver finds the most specific known prefix for an address.
type PrefixResolver struct {
	store Store
	log   *zap.Logger
}

// NewPrefixResolver returns a resolver over the prefixes of store.
func NewPrefixResolver(store Store, log *zap.Logger) *PrefixResolver {
	return &PrefixResolver{store: store, log: log}
}

// LongestMatch returns the prefix with the greatest length containing addr.
// With a site, prefixes of that site are searched first and all prefixes only
// when none of them matched. Of several equally specific prefixes the first in
// store order wins.
func (r *PrefixResolver) LongestMatch(addr netip.Addr, site string) *inventory.Prefix {
	if site != "" {
		if p := r.longest(addr, func(p *inventory.Prefix) bool { return p.Site == site }); p != nil {
			return p
		}
	}
	return r.longest(addr, func(*inventory.Prefix) bool { return true })
}

func (r *PrefixResolver) longest(addr netip.Addr, keep func(*inventory.Prefix) bool) *inventory.Prefix {
	var (
		best     *inventory.Prefix
		bestBits = -1
	)
	for _, p := range r.store.Prefixes() {
		if !keep(p) {
			continue
		}
		network, err := p.Network()
		if err != nil {
			r.log.Debug("Skipping unparsable prefix", zap.String("prefix", p.Prefix), zap.Error(err))
			continue
		}
		if !network.Contains(addr) {
			continue
		}
		if network.Bits() > bestBits {
			best, bestBits = p, network.Bits()
		}
	}
	return best
}

// FormatAddress returns addr with the length of its longest matching prefix,
// or with the full host length when no prefix matched.
func (r *PrefixResolver) FormatAddress(addr netip.Addr, site string) (netip.Prefix, *inventory.Prefix) {
	p := r.LongestMatch(addr, site)
	if p == nil {
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}
	network, _ := p.Network()
	return netip.PrefixFrom(addr, network.Bits()), p
}
